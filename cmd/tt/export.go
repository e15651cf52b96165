package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/tasktree/pkg/export"
	"github.com/vanderheijden86/tasktree/pkg/hierarchy"
	"github.com/vanderheijden86/tasktree/pkg/tasklist"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		out    string
		format string
		title  string
		expand bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the task tree as an SVG or PNG image",
		Example: `  tt export --out tree.svg
  tt export --out tree.png --expand --filter project:home`,
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

			opts := listOptions(cfg)
			if expand {
				opts.FoldedGroups = nil
			}
			list := tasklist.New(opts)
			if err := list.RefreshFrom(cmd.Context(), src); err != nil {
				if !errors.Is(err, hierarchy.ErrCyclicHierarchy) {
					return err
				}
				fmt.Fprintf(a.stderr, "Warning: %v (run `tt check` for details)\n", err)
			}

			if title == "" {
				title = src.Describe()
			}
			path, err := export.SaveSnapshot(export.SnapshotOptions{
				Path:      out,
				Format:    format,
				Title:     title,
				Rows:      list.Visible(),
				Tasks:     list.Tasks(),
				Generated: time.Now(),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Wrote %s (%d rows)\n", path, list.Len())
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (.svg or .png)")
	cmd.Flags().StringVar(&format, "format", "", "Image format: svg or png (default from --out)")
	cmd.Flags().StringVar(&title, "title", "", "Image title (default the source name)")
	cmd.Flags().BoolVar(&expand, "expand", false, "Draw every row, ignoring the default folds")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
