package main

import (
	"fmt"

	"github.com/dusk-indust/systrav/internal/engine"
	"github.com/dusk-indust/systrav/internal/export"
	"github.com/spf13/cobra"
)

func newDiagramCmd(a *app) *cobra.Command {
	var (
		focus   string
		visible bool
	)
	cmd := &cobra.Command{
		Use:   "diagram",
		Short: "Print the graph as a Mermaid flowchart",
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
				fmt.Fprint(cmd.OutOrStdout(), export.GenerateMermaid(g, export.MermaidOptions{VisibleOnly: visible}))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&focus, "focus", "", "system to focus before drawing")
	cmd.Flags().BoolVar(&visible, "visible", false, "draw only visible nodes and edges")
	return cmd
}
