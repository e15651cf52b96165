package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/tasktree/pkg/debug"
	"github.com/vanderheijden86/tasktree/pkg/loader"
	"github.com/vanderheijden86/tasktree/pkg/model"
)

// ReplicaSource reads tasks straight from a taskchampion replica
// (Taskwarrior 3's taskchampion.sqlite3). The database is opened read-only
// for each fetch. Urgency is not stored in the replica and is estimated.
type ReplicaSource struct {
	path        string
	filter      StatusFilter
	parentField string
	now         func() time.Time
}

// NewReplicaSource returns a source over the replica at path.
func NewReplicaSource(path string, filter StatusFilter, parentField string) *ReplicaSource {
	if parentField == "" {
		parentField = loader.DefaultParentField
	}
	return &ReplicaSource{path: path, filter: filter, parentField: parentField, now: time.Now}
}

// Describe implements Source.
func (s *ReplicaSource) Describe() string {
	return s.path
}

// WatchPath implements Source.
func (s *ReplicaSource) WatchPath() string {
	return s.path
}

// openReplica opens a replica database for reading
func openReplica(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	return db, nil
}

// Fetch implements Source.
func (s *ReplicaSource) Fetch(ctx context.Context) ([]model.Task, error) {
	db, err := openReplica(s.path)
	if err != nil {
		return nil, model.NewSourceError(model.ProcessInvocationFailed, "open replica", err)
	}
	defer db.Close()

	rows, err := s.query(ctx, db)
	if err != nil {
		return nil, model.NewSourceError(model.ProcessInvocationFailed, "query replica", err)
	}
	defer rows.Close()

	var tasks []model.Task
	now := s.now()
	for rows.Next() {
		var rawUUID, data string
		var id sql.NullInt64
		if err := rows.Scan(&rawUUID, &data, &id); err != nil {
			return nil, model.NewSourceError(model.MalformedPayload, "scan replica", err)
		}
		task, err := decodeReplicaTask(rawUUID, data, s.parentField, now)
		if err != nil {
			debug.Log("datasource: skipping replica task %s: %v", rawUUID, err)
			continue
		}
		if id.Valid {
			task.ID = int(id.Int64)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewSourceError(model.MalformedPayload, "read replica", err)
	}

	// Blocked state and blocking bonus depend on the whole replica, so
	// the filter runs last.
	model.ResolveBlocked(tasks)
	blocking := model.Blocking(tasks)
	for i := range tasks {
		tasks[i].Urgency = model.EstimateUrgency(&tasks[i], blocking[tasks[i].UUID], now)
	}
	if !s.filter.IsZero() {
		tasks = slices.DeleteFunc(tasks, func(t model.Task) bool { return !s.filter.Match(&t) })
	}
	return tasks, nil
}

// query selects tasks with their working-set ids, falling back to tasks
// alone for replicas without a working_set table.
func (s *ReplicaSource) query(ctx context.Context, db *sql.DB) (*sql.Rows, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT t.uuid, t.data, w.id
		FROM tasks t
		LEFT JOIN working_set w ON w.uuid = t.uuid
	`)
	if err == nil {
		return rows, nil
	}
	return db.QueryContext(ctx, `SELECT uuid, data, NULL FROM tasks`)
}

// decodeReplicaTask maps taskchampion's flat string map onto a Task.
// Timestamps are unix seconds; tags, dependencies and annotations are
// encoded in the key names (tag_NAME, dep_UUID, annotation_SECONDS).
func decodeReplicaTask(rawUUID, data, parentField string, now time.Time) (model.Task, error) {
	id, err := uuid.Parse(rawUUID)
	if err != nil {
		return model.Task{}, fmt.Errorf("bad uuid: %w", err)
	}
	var props map[string]string
	if err := json.Unmarshal([]byte(data), &props); err != nil {
		return model.Task{}, fmt.Errorf("bad data: %w", err)
	}

	t := model.Task{UUID: id}
	for key, val := range props {
		switch {
		case key == "status":
			if t.Status, err = model.ParseStatus(val); err != nil {
				return model.Task{}, err
			}
		case key == "description":
			t.Description = val
		case key == "project":
			t.Project = val
		case key == "priority":
			t.Priority = val
		case key == "entry":
			t.Entry, err = unixTime(val)
		case key == "modified":
			t.Modified, err = unixTime(val)
		case key == "due":
			t.Due, err = optUnixTime(val)
		case key == "start":
			t.Start, err = optUnixTime(val)
		case key == "end":
			t.End, err = optUnixTime(val)
		case key == "wait":
			t.Wait, err = optUnixTime(val)
		case key == parentField:
			var p uuid.UUID
			if p, err = uuid.Parse(val); err == nil {
				t.Parent = &p
			}
		case key == "parent":
			var p uuid.UUID
			if p, err = uuid.Parse(val); err == nil {
				t.Recur = &p
			}
		case strings.HasPrefix(key, "tag_"):
			t.Tags = append(t.Tags, strings.TrimPrefix(key, "tag_"))
		case strings.HasPrefix(key, "dep_"):
			var dep uuid.UUID
			if dep, err = uuid.Parse(strings.TrimPrefix(key, "dep_")); err == nil {
				t.Depends = append(t.Depends, dep)
			}
		case strings.HasPrefix(key, "annotation_"):
			var entry time.Time
			if entry, err = unixTime(strings.TrimPrefix(key, "annotation_")); err == nil {
				t.Annotations = append(t.Annotations, model.Annotation{Entry: entry, Description: val})
			}
		default:
			if t.UDAs == nil {
				t.UDAs = make(map[string]any)
			}
			t.UDAs[key] = val
		}
		if err != nil {
			return model.Task{}, fmt.Errorf("bad %s: %w", key, err)
		}
	}

	// Map iteration order is random; keep derived lists stable.
	slices.Sort(t.Tags)
	slices.SortFunc(t.Depends, func(a, b uuid.UUID) int { return strings.Compare(a.String(), b.String()) })
	slices.SortFunc(t.Annotations, func(a, b model.Annotation) int { return a.Entry.Compare(b.Entry) })

	// Taskwarrior 3 stores waiting tasks as pending with a future wait.
	if t.Status == model.StatusPending && t.Wait != nil && t.Wait.After(now) {
		t.Status = model.StatusWaiting
	}
	return t, nil
}

func unixTime(s string) (time.Time, error) {
	secs, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(secs, 0).UTC(), nil
}

func optUnixTime(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := unixTime(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// countReplicaTasks opens the replica and counts its tasks.
func countReplicaTasks(path string) (int, error) {
	db, err := openReplica(path)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM tasks").Scan(&count); err != nil {
		return 0, fmt.Errorf("not a taskchampion replica: %w", err)
	}
	return count, nil
}
