package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	udUser   string
	viewType string
)

var favoritesCmd = &cobra.Command{
	Use:   "favorites",
	Short: "Manage a user's favorite restaurants",
}

var favoritesAddCmd = &cobra.Command{
	Use:   "add <restaurant-id>",
	Short: "Add a restaurant to favorites",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		it, err := a.findRestaurant(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fav, err := a.userdata.AddFavorite(cmd.Context(), udUser, it)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), fav)
	}),
}

var favoritesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List favorites, newest first",
	RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
		favs, err := a.userdata.Favorites(cmd.Context(), udUser)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), favs)
	}),
}

var favoritesRemoveCmd = &cobra.Command{
	Use:   "remove <favorite-id>",
	Short: "Remove a favorite",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		if err := a.userdata.RemoveFavorite(cmd.Context(), udUser, args[0]); err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), map[string]string{"removed": args[0]})
	}),
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage a user's browse history",
}

var historyAddCmd = &cobra.Command{
	Use:   "add <restaurant-id>",
	Short: "Record a restaurant view",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		it, err := a.findRestaurant(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		entry, err := a.userdata.AddBrowseHistory(cmd.Context(), udUser, it, viewType)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), entry)
	}),
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List browse history, newest first",
	RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
		entries, err := a.userdata.BrowseHistory(cmd.Context(), udUser)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), entries)
	}),
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear browse history",
	RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
		if err := a.userdata.ClearBrowseHistory(cmd.Context(), udUser); err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), map[string]bool{"cleared": true})
	}),
}

func init() {
	for _, c := range []*cobra.Command{favoritesCmd, historyCmd} {
		c.PersistentFlags().StringVarP(&udUser, "user", "u", "", "User id")
		if err := c.MarkPersistentFlagRequired("user"); err != nil {
			panic(fmt.Sprintf("failed to mark user flag as required: %v", err))
		}
	}
	historyAddCmd.Flags().StringVar(&viewType, "view-type", "", "How the restaurant was viewed (default \"Details viewed\")")

	favoritesCmd.AddCommand(favoritesAddCmd, favoritesListCmd, favoritesRemoveCmd)
	historyCmd.AddCommand(historyAddCmd, historyListCmd, historyClearCmd)
	rootCmd.AddCommand(favoritesCmd)
	rootCmd.AddCommand(historyCmd)
}
