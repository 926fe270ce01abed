package main

import (
	"fmt"

	"github.com/dusk-indust/systrav/internal/engine"
	"github.com/spf13/cobra"
)

func newCheckCmd(a *app) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report consistency problems in the stored graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.loadGraph(cmd.Context(), func(eng *engine.Engine) error {
				warnings := eng.Check()
				out := cmd.OutOrStdout()
				for _, w := range warnings {
					fmt.Fprintln(out, w.String())
				}
				if len(warnings) == 0 {
					fmt.Fprintln(out, "ok")
					return nil
				}
				if strict {
					return fmt.Errorf("%d consistency warnings", len(warnings))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when any warning is found")
	return cmd
}
