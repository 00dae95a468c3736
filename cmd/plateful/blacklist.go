package main

import (
	"github.com/spf13/cobra"

	"github.com/plateful/recommender/filter"
)

var blacklistKey string

var blacklistCmd = &cobra.Command{
	Use:   "blacklist",
	Short: "Manage restaurants excluded from recommendations",
	Long: `Manages the stored blacklist read by the pipeline "blacklist" filter.
The default key is <store.prefix>:blacklist; pass --key to match a pipeline file that uses another key.`,
}

func blacklistAction(use, short string, mutate func(*filter.StoreAdapter, *cobra.Command, string, []string) ([]string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			ids, err := mutate(filter.NewStoreAdapter(a.store), cmd, a.blacklistKey(), args)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), ids)
		}),
	}
}

var blacklistListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the blacklist",
	RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
		ids, err := filter.NewStoreAdapter(a.store).List(cmd.Context(), a.blacklistKey())
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), ids)
	}),
}

func (a *app) blacklistKey() string {
	if blacklistKey != "" {
		return blacklistKey
	}
	return a.settings.Store.Prefix + ":blacklist"
}

func init() {
	blacklistCmd.PersistentFlags().StringVar(&blacklistKey, "key", "", "Store key of the blacklist")

	blacklistCmd.AddCommand(
		blacklistAction("add <restaurant-id>...", "Exclude restaurants",
			func(s *filter.StoreAdapter, cmd *cobra.Command, key string, ids []string) ([]string, error) {
				return s.Block(cmd.Context(), key, ids...)
			}),
		blacklistAction("remove <restaurant-id>...", "Allow restaurants again",
			func(s *filter.StoreAdapter, cmd *cobra.Command, key string, ids []string) ([]string, error) {
				return s.Unblock(cmd.Context(), key, ids...)
			}),
		blacklistListCmd,
	)
	rootCmd.AddCommand(blacklistCmd)
}
