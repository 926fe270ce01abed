package main

import (
	"fmt"

	"github.com/dusk-indust/systrav/internal/seed"
	"github.com/spf13/cobra"
)

func newSeedCmd(a *app) *cobra.Command {
	var (
		file  string
		reset bool
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write a seed file into the store",
		Long: "Write the systems, hierarchy and interfaces of an HCL seed file into the store.\n" +
			"Without --file the built-in seed is used. --reset deletes every existing record first.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := seed.Load(file)
			if err != nil {
				return err
			}

			// The startup seed would race the explicit one.
			a.cfg.Store.Seed = ""
			st, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			res, err := seed.Apply(cmd.Context(), st, f, seed.Options{Reset: reset, Logger: a.logger})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d rows; wrote %d systems, %d hierarchy rows, %d interfaces\n",
				res.Removed, res.Systems, res.Hierarchy, res.Interfaces)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "default", `HCL seed file, or "default" for the built-in seed`)
	cmd.Flags().BoolVar(&reset, "reset", false, "delete every existing record before seeding")
	return cmd
}
