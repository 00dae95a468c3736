package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plateful/recommender/recommend"
)

var (
	recUser          string
	recLimit         int
	recMinScore      float64
	recAllowNegative bool
	recPipeline      string
	recColdStart     bool
	recUpvotes       []string
	recDownvotes     []string
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend restaurants for a user",
	Long: `Builds a preference profile from the user's votes and scores every
restaurant the user has not voted on yet. --upvote / --downvote record
votes first, which is handy with the in-memory store.`,
	RunE: withApp(runRecommend),
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show the user's preference profile",
	RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
		if err := recordVotes(cmd, a); err != nil {
			return err
		}
		svc, err := a.recommender(recommendConfig(cmd, a))
		if err != nil {
			return err
		}
		d, err := svc.Profile(cmd.Context(), recUser)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), d)
	}),
}

// recommendConfig 以配置文件为基础，命令行显式给出的参数覆盖之。
func recommendConfig(cmd *cobra.Command, a *app) recommend.Config {
	cfg := a.settings.Recommend
	flags := cmd.Flags()
	if flags.Changed("limit") {
		cfg.Limit = recLimit
	}
	if flags.Changed("min-score") {
		cfg.MinScore = recMinScore
	}
	if flags.Changed("allow-negative") {
		cfg.AllowNegative = recAllowNegative
	}
	if flags.Changed("pipeline") {
		cfg.Pipeline = recPipeline
	}
	if flags.Changed("cold-start") {
		cfg.ColdStart = recColdStart
	}
	return cfg
}

func recordVotes(cmd *cobra.Command, a *app) error {
	ctx := cmd.Context()
	v := a.voter()
	for _, id := range recUpvotes {
		if err := v.Upvote(ctx, recUser, id); err != nil {
			return fmt.Errorf("upvote %s: %w", id, err)
		}
	}
	for _, id := range recDownvotes {
		if err := v.Downvote(ctx, recUser, id); err != nil {
			return fmt.Errorf("downvote %s: %w", id, err)
		}
	}
	return nil
}

func runRecommend(cmd *cobra.Command, a *app, _ []string) error {
	if err := recordVotes(cmd, a); err != nil {
		return err
	}
	var opts []recommend.Option
	// 显式给出的 --limit 0 表示不返回餐厅，而配置中的 0 表示默认条数
	if cmd.Flags().Changed("limit") {
		opts = append(opts, recommend.WithLimit(recLimit))
	}
	svc, err := a.recommender(recommendConfig(cmd, a), opts...)
	if err != nil {
		return err
	}
	res, err := svc.Recommend(cmd.Context(), recUser)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), res)
}

func init() {
	for _, c := range []*cobra.Command{recommendCmd, profileCmd} {
		c.Flags().StringVarP(&recUser, "user", "u", "", "User id (empty means guest)")
		c.Flags().StringSliceVar(&recUpvotes, "upvote", nil, "Restaurant ids to upvote before running")
		c.Flags().StringSliceVar(&recDownvotes, "downvote", nil, "Restaurant ids to downvote before running")
	}
	if err := profileCmd.MarkFlagRequired("user"); err != nil {
		panic(fmt.Sprintf("failed to mark user flag as required: %v", err))
	}

	recommendCmd.Flags().IntVarP(&recLimit, "limit", "n", 12, "Maximum number of recommendations")
	recommendCmd.Flags().Float64Var(&recMinScore, "min-score", 0, "Only keep restaurants scoring above this value")
	recommendCmd.Flags().BoolVar(&recAllowNegative, "allow-negative", false, "Keep restaurants with a negative score")
	recommendCmd.Flags().StringVarP(&recPipeline, "pipeline", "p", "", "Pipeline config file (YAML or JSON)")
	recommendCmd.Flags().BoolVar(&recColdStart, "cold-start", false, "Return popular restaurants for users without votes")

	rootCmd.AddCommand(recommendCmd)
	rootCmd.AddCommand(profileCmd)
}
