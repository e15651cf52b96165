package ui

import (
	"strings"

	"github.com/google/uuid"

	"github.com/vanderheijden86/tasktree/pkg/model"
)

// filterTasks keeps tasks whose description, project or tags contain
// every word of query (case-insensitive), plus the ancestors of each
// match so matches stay in their place in the tree. An empty query keeps
// everything.
func filterTasks(tasks []model.Task, query string) []model.Task {
	words := strings.Fields(strings.ToLower(query))
	if len(words) == 0 {
		return tasks
	}

	byID := make(map[uuid.UUID]*model.Task, len(tasks))
	for i := range tasks {
		byID[tasks[i].UUID] = &tasks[i]
	}

	keep := make(map[uuid.UUID]bool)
	for i := range tasks {
		t := &tasks[i]
		if !matchesWords(t, words) {
			continue
		}
		// Walk up until a kept task (which also ends parent cycles) or a
		// missing parent.
		for cur := t; cur != nil && !keep[cur.UUID]; {
			keep[cur.UUID] = true
			if cur.Parent == nil {
				break
			}
			cur = byID[*cur.Parent]
		}
	}

	out := make([]model.Task, 0, len(keep))
	for _, t := range tasks {
		if keep[t.UUID] {
			out = append(out, t)
		}
	}
	return out
}

func matchesWords(t *model.Task, words []string) bool {
	hay := strings.ToLower(t.Description + " " + t.Project + " " + strings.Join(t.Tags, " "))
	for _, w := range words {
		if !strings.Contains(hay, w) {
			return false
		}
	}
	return true
}
