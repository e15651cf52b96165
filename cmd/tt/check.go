package main

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/tasktree/internal/datasource"
	"github.com/vanderheijden86/tasktree/pkg/hierarchy"
	"github.com/vanderheijden86/tasktree/pkg/model"
)

func newCheckCmd(a *app) *cobra.Command {
	var compare string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report parent cycles and tasks whose parent is missing",
		Long: `check loads one snapshot and reports hierarchy problems:

  - parent cycles, with the task where the dashboard cuts each one
  - tasks whose parent is not in the snapshot

With --compare it also reads a second source and lists the tasks that
differ between the two. The exit status is 1 when anything is found.`,
		Example: `  tt check
  tt check --compare replica`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			src, err := a.openSource(cfg)
			if err != nil {
				return err
			}
			tasks, err := src.Fetch(cmd.Context())
			if err != nil {
				return err
			}

			set := model.NewTaskSet(tasks)
			findings := reportHierarchy(a.stdout, set, hierarchy.Build(set))

			if compare != "" {
				kind, err := datasource.ParseSourceType(compare)
				if err != nil {
					return err
				}
				opts, err := a.discoveryOptions(cfg)
				if err != nil {
					return err
				}
				opts.Kind = kind
				other, err := datasource.Open(opts)
				if err != nil {
					return err
				}
				diff, err := datasource.CompareSources(cmd.Context(), src, other, datasource.DefaultDiffOptions())
				if err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, diff.Summary())
				if diff.HasChanges() {
					findings++
				}
			}

			if findings > 0 {
				return exitError{code: 1}
			}
			fmt.Fprintf(a.stdout, "OK: %d tasks, no hierarchy problems\n", set.Len())
			return nil
		},
	}

	cmd.Flags().StringVar(&compare, "compare", "", "Also compare against another source: command, file or replica")
	return cmd
}

// reportHierarchy prints cycles and dangling parents and returns how many
// problems it found.
func reportHierarchy(w io.Writer, set *model.TaskSet, forest *hierarchy.Forest) int {
	findings := 0

	cut := make(map[uuid.UUID]uuid.UUID)
	for _, c := range forest.Cycles {
		for _, id := range c.Members {
			cut[id] = c.CutAt
		}
	}

	cycles := hierarchy.FindCycles(set)
	if len(cycles) > 0 {
		fmt.Fprintf(w, "Parent cycles (%d):\n", len(cycles))
	}
	for _, members := range cycles {
		findings++
		fmt.Fprintf(w, "  cycle of %d:", len(members))
		for _, id := range members {
			fmt.Fprintf(w, " %s", describeTask(set, id))
		}
		fmt.Fprintln(w)
		if at, ok := cut[members[0]]; ok {
			fmt.Fprintf(w, "    shown with %s as a root\n", describeTask(set, at))
		}
	}

	if len(forest.Dangling) > 0 {
		fmt.Fprintf(w, "Missing parents (%d):\n", len(forest.Dangling))
	}
	for _, id := range forest.Dangling {
		findings++
		parent := "?"
		if t, ok := set.Get(id); ok && t.Parent != nil {
			parent = t.Parent.String()
		}
		fmt.Fprintf(w, "  %s -> %s\n", describeTask(set, id), parent)
	}
	return findings
}

func describeTask(set *model.TaskSet, id uuid.UUID) string {
	t, ok := set.Get(id)
	if !ok {
		return id.String()[:8]
	}
	if t.ID > 0 {
		return fmt.Sprintf("%d:%q", t.ID, t.Description)
	}
	return fmt.Sprintf("%s:%q", t.ShortUUID(), t.Description)
}
