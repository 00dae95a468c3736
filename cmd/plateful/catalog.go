package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load restaurants into the catalog",
	Long:  "Loads a JSON or YAML list of restaurants into the catalog. Existing restaurants with the same id are replaced.",
	RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
		n, err := a.catalog.Seed(cmd.Context(), seedFile)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), map[string]any{"seeded": n, "file": seedFile})
	}),
}

var restaurantsCmd = &cobra.Command{
	Use:   "restaurants",
	Short: "List candidate restaurants",
	RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
		_, cat := a.sources()
		items, err := cat.List(cmd.Context())
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), items)
	}),
}

var cuisinesCmd = &cobra.Command{
	Use:   "cuisines",
	Short: "List known cuisines",
	RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
		var (
			out []string
			err error
		)
		if a.remote != nil {
			out, err = a.remote.Cuisines(cmd.Context())
		} else {
			out, err = a.catalog.Cuisines(cmd.Context())
		}
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), out)
	}),
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "Restaurant file (.json, .yaml or .yml)")
	if err := seedCmd.MarkFlagRequired("file"); err != nil {
		panic(fmt.Sprintf("failed to mark file flag as required: %v", err))
	}

	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(restaurantsCmd)
	rootCmd.AddCommand(cuisinesCmd)
}
