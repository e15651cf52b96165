package datasource

import (
	"fmt"
	"strings"

	"github.com/vanderheijden86/tasktree/pkg/model"
)

// StatusFilter is the subset of Taskwarrior filter syntax the replica
// source understands: status:NAME, virtual status tags (+PENDING,
// -COMPLETED, +BLOCKED...), plain tags (+home, -someday) and
// project:NAME (which also matches subprojects).
type StatusFilter struct {
	statuses    map[model.Status]bool
	notStatuses map[model.Status]bool
	tags        []string
	notTags     []string
	project     string
}

// ParseStatusFilter parses filter words. Anything outside the supported
// subset is an error rather than silently matching everything.
func ParseStatusFilter(words []string) (StatusFilter, error) {
	f := StatusFilter{
		statuses:    make(map[model.Status]bool),
		notStatuses: make(map[model.Status]bool),
	}
	for _, w := range words {
		for _, word := range strings.Fields(w) {
			if err := f.add(word); err != nil {
				return StatusFilter{}, err
			}
		}
	}
	return f, nil
}

func (f *StatusFilter) add(word string) error {
	switch {
	case strings.HasPrefix(word, "status:"):
		s, err := model.ParseStatus(strings.TrimPrefix(word, "status:"))
		if err != nil {
			return fmt.Errorf("replica filter %q: %w", word, err)
		}
		f.statuses[s] = true
	case strings.HasPrefix(word, "project:"):
		f.project = strings.TrimPrefix(word, "project:")
	case len(word) > 1 && (word[0] == '+' || word[0] == '-'):
		name := word[1:]
		if s, ok := virtualStatus(name); ok {
			if word[0] == '+' {
				f.statuses[s] = true
			} else {
				f.notStatuses[s] = true
			}
			return nil
		}
		if word[0] == '+' {
			f.tags = append(f.tags, name)
		} else {
			f.notTags = append(f.notTags, name)
		}
	default:
		return fmt.Errorf("unsupported replica filter %q (use status:, project:, +TAG or -TAG)", word)
	}
	return nil
}

// virtualStatus maps Taskwarrior's upper-case virtual tags to statuses.
func virtualStatus(name string) (model.Status, bool) {
	if name != strings.ToUpper(name) {
		return 0, false
	}
	s, err := model.ParseStatus(name)
	return s, err == nil
}

// IsZero reports whether the filter matches everything.
func (f StatusFilter) IsZero() bool {
	return len(f.statuses) == 0 && len(f.notStatuses) == 0 &&
		len(f.tags) == 0 && len(f.notTags) == 0 && f.project == ""
}

// Match reports whether t passes the filter.
func (f StatusFilter) Match(t *model.Task) bool {
	if len(f.statuses) > 0 && !f.statuses[t.Status] {
		return false
	}
	if f.notStatuses[t.Status] {
		return false
	}
	for _, tag := range f.tags {
		if !t.HasTag(tag) {
			return false
		}
	}
	for _, tag := range f.notTags {
		if t.HasTag(tag) {
			return false
		}
	}
	if f.project != "" && t.Project != f.project && !strings.HasPrefix(t.Project, f.project+".") {
		return false
	}
	return true
}
