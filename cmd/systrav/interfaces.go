package main

import (
	"fmt"

	"github.com/dusk-indust/systrav/internal/engine"
	"github.com/spf13/cobra"
)

func newInterfacesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "interfaces <system>",
		Short: "List the interfaces of a system and its descendants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.loadGraph(cmd.Context(), func(eng *engine.Engine) error {
				attached, err := eng.Interfaces(args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, at := range attached {
					link := "---"
					if at.Edge.Directional {
						link = "-->"
					}
					label := at.Edge.Label
					if label == "" {
						label = "N/A"
					}
					fmt.Fprintf(out, "%s %s %s [%s] other: %s (%s)\n",
						at.Edge.Source, link, at.Edge.Target, label, at.Other.Label, at.Other.Category)
				}
				return nil
			})
		},
	}
}
