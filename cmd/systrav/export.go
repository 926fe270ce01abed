package main

import (
	"fmt"
	"io"
	"os"

	"github.com/dusk-indust/systrav/internal/engine"
	"github.com/dusk-indust/systrav/internal/export"
	"github.com/spf13/cobra"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		focus  string
		output string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the graph and its consistency warnings as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.loadGraph(cmd.Context(), func(eng *engine.Engine) error {
				g := eng.Snapshot()
				if focus != "" {
					var err error
					if g, err = eng.SetFocus(focus); err != nil {
						return err
					}
				}
				x := export.ExportGraph(g, eng.Focus(), eng.Check())

				var w io.Writer = cmd.OutOrStdout()
				if output != "" {
					f, err := os.Create(output)
					if err != nil {
						return fmt.Errorf("create %s: %w", output, err)
					}
					defer f.Close()
					w = f
				}
				return export.WriteJSON(w, x)
			})
		},
	}
	cmd.Flags().StringVar(&focus, "focus", "", "system to focus before exporting")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")
	return cmd
}
