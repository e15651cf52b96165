// Package testutil provides task fixtures for tests.
// All generators produce deterministic output for reproducible tests.
package testutil

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/vanderheijden86/tasktree/pkg/model"
)

// ID returns a deterministic UUID for a fixture name.
func ID(name string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("tt-fixture:"+name))
}

// IDs maps names to fixture UUIDs.
func IDs(names ...string) []uuid.UUID {
	out := make([]uuid.UUID, len(names))
	for i, n := range names {
		out[i] = ID(n)
	}
	return out
}

// TaskOption customizes a fixture task.
type TaskOption func(*model.Task)

// Under sets the fixture's parent.
func Under(parent string) TaskOption {
	return func(t *model.Task) {
		p := ID(parent)
		t.Parent = &p
	}
}

// WithStatus sets the status.
func WithStatus(s model.Status) TaskOption {
	return func(t *model.Task) { t.Status = s }
}

// WithUrgency sets the urgency.
func WithUrgency(u float64) TaskOption {
	return func(t *model.Task) { t.Urgency = u }
}

// WithDescription overrides the description (defaults to the name).
func WithDescription(d string) TaskOption {
	return func(t *model.Task) { t.Description = d }
}

// Task builds a pending fixture task whose UUID is ID(name).
func Task(name string, opts ...TaskOption) model.Task {
	t := model.Task{
		UUID:        ID(name),
		Description: name,
		Status:      model.StatusPending,
		Entry:       baseTime,
		Modified:    baseTime,
	}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

var baseTime = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

// GeneratorConfig controls random task generation.
type GeneratorConfig struct {
	Seed       int64          // Random seed for determinism (0 = use current time)
	BaseTime   time.Time      // Entry time of the first task
	StatusMix  []model.Status // Status distribution (nil = all pending)
	ParentProb float64        // Chance that a task gets a parent among earlier tasks
	NaNProb    float64        // Chance of a NaN urgency
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:       42,
		BaseTime:   baseTime,
		StatusMix:  []model.Status{model.StatusPending},
		ParentProb: 0.6,
	}
}

// Generator creates task fixtures with various shapes.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if cfg.BaseTime.IsZero() {
		cfg.BaseTime = baseTime
	}
	if len(cfg.StatusMix) == 0 {
		cfg.StatusMix = []model.Status{model.StatusPending}
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

// Chain creates t0 <- t1 <- ... : every task is the parent of the next.
func (g *Generator) Chain(size int) []model.Task {
	tasks := make([]model.Task, 0, size)
	for i := 0; i < size; i++ {
		var opts []TaskOption
		if i > 0 {
			opts = append(opts, Under(name(i-1)))
		}
		tasks = append(tasks, g.task(i, opts...))
	}
	return tasks
}

// Tree creates a complete tree with the given depth and branching factor.
func (g *Generator) Tree(depth, breadth int) []model.Task {
	if depth < 1 {
		depth = 1
	}
	if breadth < 1 {
		breadth = 1
	}
	tasks := []model.Task{g.task(0)}
	next := 1
	level := []int{0}
	for d := 0; d < depth; d++ {
		var nextLevel []int
		for _, parent := range level {
			for b := 0; b < breadth; b++ {
				tasks = append(tasks, g.task(next, Under(name(parent))))
				nextLevel = append(nextLevel, next)
				next++
			}
		}
		level = nextLevel
	}
	return tasks
}

// Cycle creates size tasks whose parents form one loop.
func (g *Generator) Cycle(size int) []model.Task {
	tasks := make([]model.Task, 0, size)
	for i := 0; i < size; i++ {
		tasks = append(tasks, g.task(i, Under(name((i+1)%size))))
	}
	return tasks
}

// Forest creates size tasks with random parents among earlier tasks, so
// the result never contains a cycle.
func (g *Generator) Forest(size int) []model.Task {
	tasks := make([]model.Task, 0, size)
	for i := 0; i < size; i++ {
		var opts []TaskOption
		if i > 0 && g.rng.Float64() < g.cfg.ParentProb {
			opts = append(opts, Under(name(g.rng.Intn(i))))
		}
		tasks = append(tasks, g.task(i, opts...))
	}
	return tasks
}

func (g *Generator) task(i int, opts ...TaskOption) model.Task {
	t := Task(name(i), opts...)
	t.ID = i + 1
	t.Status = g.cfg.StatusMix[g.rng.Intn(len(g.cfg.StatusMix))]
	t.Urgency = float64(g.rng.Intn(200)) / 10
	if g.cfg.NaNProb > 0 && g.rng.Float64() < g.cfg.NaNProb {
		t.Urgency = math.NaN()
	}
	t.Description = fmt.Sprintf("task %s %s", name(i), sampleWords[g.rng.Intn(len(sampleWords))])
	t.Entry = g.cfg.BaseTime.Add(time.Duration(i) * time.Hour)
	t.Modified = t.Entry
	return t
}

func name(i int) string {
	return fmt.Sprintf("t%d", i)
}

var sampleWords = []string{"backup", "invoice", "review", "deploy", "groceries", "refactor", "call", "taxes"}

// ToExportJSON renders tasks in Taskwarrior's export format, with the
// parent link written to parentField.
func ToExportJSON(tasks []model.Task, parentField string) string {
	const layout = "20060102T150405Z"
	items := make([]map[string]any, 0, len(tasks))
	for _, t := range tasks {
		item := map[string]any{
			"id":          t.ID,
			"uuid":        t.UUID.String(),
			"description": t.Description,
			"status":      exportStatus(t.Status),
			"urgency":     t.Urgency,
			"entry":       t.Entry.UTC().Format(layout),
			"modified":    t.Modified.UTC().Format(layout),
		}
		if t.Parent != nil {
			item[parentField] = t.Parent.String()
		}
		if len(t.Tags) > 0 {
			item["tags"] = t.Tags
		}
		if t.Project != "" {
			item["project"] = t.Project
		}
		items = append(items, item)
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// Taskwarrior never exports "blocked"; it is derived from depends.
func exportStatus(s model.Status) string {
	if s == model.StatusBlocked {
		return model.StatusPending.String()
	}
	return s.String()
}
