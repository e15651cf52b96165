// Package loader parses Taskwarrior exports and finds Taskwarrior's data
// files on disk.
package loader

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/vanderheijden86/tasktree/pkg/debug"
	"github.com/vanderheijden86/tasktree/pkg/model"
)

// TimeLayout is Taskwarrior's export timestamp format (always UTC).
const TimeLayout = "20060102T150405Z"

// DefaultParentField is the UDA that links a task to its parent.
const DefaultParentField = "sub_of"

// ParseOptions configures ParseExport.
type ParseOptions struct {
	// WarningHandler is called for every skipped element.
	// If nil, warnings go to the debug log.
	WarningHandler func(string)

	// ParentField names the attribute holding the parent UUID.
	// If empty, DefaultParentField is used.
	ParentField string

	// TaskFilter optionally filters parsed tasks. Return true to include.
	TaskFilter func(*model.Task) bool
}

func (o ParseOptions) parentField() string {
	if o.ParentField == "" {
		return DefaultParentField
	}
	return o.ParentField
}

// knownFields are decoded into Task fields; everything else is a UDA.
var knownFields = map[string]bool{
	"id": true, "uuid": true, "description": true, "status": true,
	"urgency": true, "entry": true, "modified": true, "due": true,
	"start": true, "end": true, "wait": true, "project": true,
	"priority": true, "tags": true, "depends": true, "parent": true,
	"annotations": true,
}

// ParseExport reads the JSON array printed by `task export`.
//
// A payload that is not a JSON array is a MalformedPayload
// model.SourceError. Elements that do not map to a task (missing or bad
// UUID, bad timestamp, unknown status) are skipped with a warning.
// Blocked status is derived from depends once the whole array is read.
func ParseExport(r io.Reader, opts ParseOptions) ([]model.Task, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading export: %w", err)
	}
	data = bytes.TrimSpace(stripBOM(data))

	if len(data) == 0 || data[0] != '[' {
		return nil, model.NewSourceError(model.MalformedPayload, "parse export", fmt.Errorf("expected a JSON array"))
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, model.NewSourceError(model.MalformedPayload, "parse export", err)
	}

	warn := opts.WarningHandler
	if warn == nil {
		warn = func(msg string) { debug.Log("loader: %s", msg) }
	}

	parentField := opts.parentField()
	tasks := make([]model.Task, 0, len(elems))
	for i, raw := range elems {
		task, err := decodeTask(raw, parentField)
		if err != nil {
			warn(fmt.Sprintf("skipping task %d: %v", i, err))
			continue
		}
		if opts.TaskFilter != nil && !opts.TaskFilter(&task) {
			continue
		}
		tasks = append(tasks, task)
	}

	model.ResolveBlocked(tasks)
	return tasks, nil
}

// ParseExportString is ParseExport over a string.
func ParseExportString(s string, opts ParseOptions) ([]model.Task, error) {
	return ParseExport(strings.NewReader(s), opts)
}

func decodeTask(raw json.RawMessage, parentField string) (model.Task, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return model.Task{}, fmt.Errorf("not an object: %w", err)
	}

	var t model.Task
	d := fieldDecoder{fields: fields}

	idText := d.str("uuid")
	if idText == "" {
		return model.Task{}, fmt.Errorf("missing uuid")
	}
	id, err := uuid.Parse(idText)
	if err != nil {
		return model.Task{}, fmt.Errorf("bad uuid %q: %w", idText, err)
	}
	t.UUID = id

	t.ID = d.integer("id")
	t.Description = d.str("description")
	t.Urgency = d.number("urgency")
	t.Project = d.str("project")
	t.Priority = d.str("priority")
	t.Tags = d.strs("tags")

	if s, ok := fields["status"]; ok {
		var name string
		if err := json.Unmarshal(s, &name); err != nil {
			return model.Task{}, fmt.Errorf("bad status: %w", err)
		}
		if t.Status, err = model.ParseStatus(name); err != nil {
			return model.Task{}, err
		}
	}

	if t.Entry, err = d.timestamp("entry"); err != nil {
		return model.Task{}, err
	}
	if t.Modified, err = d.timestamp("modified"); err != nil {
		return model.Task{}, err
	}
	for _, f := range []struct {
		name string
		dst  **time.Time
	}{{"due", &t.Due}, {"start", &t.Start}, {"end", &t.End}, {"wait", &t.Wait}} {
		if *f.dst, err = d.optTimestamp(f.name); err != nil {
			return model.Task{}, err
		}
	}

	if t.Depends, err = d.uuids("depends"); err != nil {
		return model.Task{}, err
	}
	if t.Parent, err = d.optUUID(parentField); err != nil {
		return model.Task{}, err
	}
	if parentField != "parent" {
		// Taskwarrior's own parent attribute is the recurrence template.
		if t.Recur, err = d.optUUID("parent"); err != nil {
			return model.Task{}, err
		}
	}

	if a, ok := fields["annotations"]; ok {
		var anns []struct {
			Entry       string `json:"entry"`
			Description string `json:"description"`
		}
		if err := json.Unmarshal(a, &anns); err != nil {
			return model.Task{}, fmt.Errorf("bad annotations: %w", err)
		}
		for _, an := range anns {
			entry, err := ParseTime(an.Entry)
			if err != nil {
				return model.Task{}, fmt.Errorf("bad annotation entry: %w", err)
			}
			t.Annotations = append(t.Annotations, model.Annotation{Entry: entry, Description: an.Description})
		}
	}

	for name, v := range fields {
		if knownFields[name] || name == parentField {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			continue
		}
		if t.UDAs == nil {
			t.UDAs = make(map[string]any)
		}
		t.UDAs[name] = val
	}

	return t, d.err
}

// ParseTime parses a Taskwarrior timestamp.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(TimeLayout, s)
}

// fieldDecoder pulls typed values out of a decoded object. Scalar type
// mismatches are remembered in err; the first one wins.
type fieldDecoder struct {
	fields map[string]json.RawMessage
	err    error
}

func (d *fieldDecoder) decode(name string, dst any) bool {
	raw, ok := d.fields[name]
	if !ok || string(raw) == "null" {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		if d.err == nil {
			d.err = fmt.Errorf("bad %s: %w", name, err)
		}
		return false
	}
	return true
}

func (d *fieldDecoder) str(name string) string {
	var s string
	d.decode(name, &s)
	return s
}

func (d *fieldDecoder) integer(name string) int {
	var n int
	d.decode(name, &n)
	return n
}

func (d *fieldDecoder) number(name string) float64 {
	var f float64
	d.decode(name, &f)
	return f
}

func (d *fieldDecoder) strs(name string) []string {
	var out []string
	d.decode(name, &out)
	return out
}

func (d *fieldDecoder) timestamp(name string) (time.Time, error) {
	s := d.str(name)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := ParseTime(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad %s: %w", name, err)
	}
	return t, nil
}

func (d *fieldDecoder) optTimestamp(name string) (*time.Time, error) {
	t, err := d.timestamp(name)
	if err != nil || t.IsZero() {
		return nil, err
	}
	return &t, nil
}

func (d *fieldDecoder) optUUID(name string) (*uuid.UUID, error) {
	s := d.str(name)
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("bad %s %q: %w", name, s, err)
	}
	return &id, nil
}

// uuids accepts both the array form and the comma separated string older
// Taskwarrior versions export.
func (d *fieldDecoder) uuids(name string) ([]uuid.UUID, error) {
	raw, ok := d.fields[name]
	if !ok {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		var joined string
		if err := json.Unmarshal(raw, &joined); err != nil {
			return nil, fmt.Errorf("bad %s: %w", name, err)
		}
		list = strings.Split(joined, ",")
	}
	out := make([]uuid.UUID, 0, len(list))
	for _, s := range list {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("bad %s entry %q: %w", name, s, err)
		}
		out = append(out, id)
	}
	return out, nil
}

// stripBOM removes the UTF-8 Byte Order Mark if present
func stripBOM(b []byte) []byte {
	if bytes.HasPrefix(b, []byte{0xEF, 0xBB, 0xBF}) {
		return b[3:]
	}
	return b
}

// warnToStderr is a WarningHandler for command line tools.
func warnToStderr(msg string) {
	fmt.Fprintf(os.Stderr, "Warning: %s\n", msg)
}

// StderrWarnings returns ParseOptions that print warnings to stderr.
func StderrWarnings(parentField string) ParseOptions {
	return ParseOptions{WarningHandler: warnToStderr, ParentField: parentField}
}
