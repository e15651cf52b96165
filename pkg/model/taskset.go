package model

import "github.com/google/uuid"

// TaskSet is an immutable snapshot of tasks keyed by UUID.
//
// Input order is preserved so that anything derived from the set is
// deterministic. A UUID that appears twice keeps its first position and
// the later record's contents.
type TaskSet struct {
	tasks []Task
	index map[uuid.UUID]int
}

// NewTaskSet copies tasks into a new snapshot.
func NewTaskSet(tasks []Task) *TaskSet {
	s := &TaskSet{
		tasks: make([]Task, 0, len(tasks)),
		index: make(map[uuid.UUID]int, len(tasks)),
	}
	for _, t := range tasks {
		if i, ok := s.index[t.UUID]; ok {
			s.tasks[i] = t
			continue
		}
		s.index[t.UUID] = len(s.tasks)
		s.tasks = append(s.tasks, t)
	}
	return s
}

// Len returns the number of distinct tasks.
func (s *TaskSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.tasks)
}

// Get returns the task with the given UUID.
func (s *TaskSet) Get(id uuid.UUID) (*Task, bool) {
	if s == nil {
		return nil, false
	}
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return &s.tasks[i], true
}

// Has reports whether id is part of the snapshot.
func (s *TaskSet) Has(id uuid.UUID) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[id]
	return ok
}

// At returns the i-th task in input order.
func (s *TaskSet) At(i int) *Task {
	return &s.tasks[i]
}

// Each calls fn for every task in input order until fn returns false.
func (s *TaskSet) Each(fn func(*Task) bool) {
	if s == nil {
		return
	}
	for i := range s.tasks {
		if !fn(&s.tasks[i]) {
			return
		}
	}
}

// Tasks returns a copy of the tasks in input order.
func (s *TaskSet) Tasks() []Task {
	if s == nil {
		return nil
	}
	out := make([]Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// ResolveBlocked marks pending tasks that depend on an unfinished task of
// the same snapshot as blocked, the way Taskwarrior derives +BLOCKED.
// Dependencies outside the snapshot are ignored.
func ResolveBlocked(tasks []Task) {
	open := make(map[uuid.UUID]bool, len(tasks))
	for i := range tasks {
		open[tasks[i].UUID] = !tasks[i].Status.IsClosed()
	}
	for i := range tasks {
		t := &tasks[i]
		if t.Status != StatusPending {
			continue
		}
		for _, dep := range t.Depends {
			if open[dep] {
				t.Status = StatusBlocked
				break
			}
		}
	}
}

// Blocking returns the set of tasks that at least one open task depends on.
func Blocking(tasks []Task) map[uuid.UUID]bool {
	out := make(map[uuid.UUID]bool)
	for i := range tasks {
		if tasks[i].Status.IsClosed() {
			continue
		}
		for _, dep := range tasks[i].Depends {
			out[dep] = true
		}
	}
	return out
}
