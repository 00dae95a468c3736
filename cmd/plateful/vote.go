package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plateful/recommender/core"
	"github.com/plateful/recommender/votes"
)

var (
	voteUser      string
	voteDirection string
	votePage      int
	voteSize      int
)

var voteCmd = &cobra.Command{
	Use:   "vote",
	Short: "Record and inspect restaurant votes",
}

func voteAction(action string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <restaurant-id>",
		Short: fmt.Sprintf("%s a restaurant vote", action),
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			ctx := cmd.Context()
			id := args[0]
			v := a.voter()
			var err error
			switch action {
			case "up":
				err = v.Upvote(ctx, voteUser, id)
			case "down":
				err = v.Downvote(ctx, voteUser, id)
			case "remove":
				err = v.RemoveVote(ctx, voteUser, id)
			}
			if err != nil {
				return err
			}
			st, err := v.Status(ctx, voteUser, id)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), st)
		}),
	}
}

var voteStatusCmd = &cobra.Command{
	Use:   "status <restaurant-id>",
	Short: "Show the user's vote on a restaurant",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		st, err := a.voter().Status(cmd.Context(), voteUser, args[0])
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), st)
	}),
}

var voteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List upvoted or downvoted restaurants, newest first",
	RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
		if a.remote != nil {
			return listRemoteVotes(cmd, a)
		}
		switch core.ParseVote(voteDirection) {
		case core.VoteUp:
			p, err := a.votes.ListUp(cmd.Context(), voteUser, votePage, voteSize)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), p)
		case core.VoteDown:
			p, err := a.votes.ListDown(cmd.Context(), voteUser, votePage, voteSize)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), p)
		default:
			return fmt.Errorf("unknown direction %q (want up or down)", voteDirection)
		}
	}),
}

// listRemoteVotes 读取后端的投票列表。后端以 token 识别用户，--user 只做校验。
func listRemoteVotes(cmd *cobra.Command, a *app) error {
	var (
		items []*core.Item
		err   error
	)
	switch core.ParseVote(voteDirection) {
	case core.VoteUp:
		items, err = a.remote.Upvoted(cmd.Context(), votePage, voteSize)
	case core.VoteDown:
		items, err = a.remote.Downvoted(cmd.Context(), votePage, voteSize)
	default:
		return fmt.Errorf("unknown direction %q (want up or down)", voteDirection)
	}
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), votes.Page{Content: items, Number: votePage, Size: voteSize})
}

func init() {
	voteCmd.PersistentFlags().StringVarP(&voteUser, "user", "u", "", "User id")
	if err := voteCmd.MarkPersistentFlagRequired("user"); err != nil {
		panic(fmt.Sprintf("failed to mark user flag as required: %v", err))
	}

	voteListCmd.Flags().StringVarP(&voteDirection, "direction", "d", "up", "Vote direction: up or down")
	voteListCmd.Flags().IntVar(&votePage, "page", 0, "Page number (0-based)")
	voteListCmd.Flags().IntVar(&voteSize, "size", 20, "Page size (max 100)")

	voteCmd.AddCommand(voteAction("up"), voteAction("down"), voteAction("remove"), voteStatusCmd, voteListCmd)
	rootCmd.AddCommand(voteCmd)
}
