package rank

import (
	"context"

	"github.com/plateful/recommender/core"
	"github.com/plateful/recommender/pipeline"
)

// PreferenceNode 是偏好打分器的 Pipeline 形态：对上游候选打分、过滤、排序。
// - 投票历史来自 rctx.Votes，为空时视为无信号（输出为空）
// - rctx.Votes.VotedIDs 中的餐厅同样被排除
// - Limit <= 0 时不截断，交给下游 rerank.TopNNode
type PreferenceNode struct {
	Limit         int
	MinScore      float64
	AllowNegative bool
}

func (n *PreferenceNode) Name() string        { return "rank.preference" }
func (n *PreferenceNode) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *PreferenceNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	var history core.VoteHistory
	if rctx != nil && rctx.Votes != nil {
		history = *rctx.Votes
	}

	limit := n.Limit
	if limit <= 0 {
		limit = len(items)
	}
	opts := []Option{WithLimit(limit), WithMinScore(n.MinScore)}
	if n.AllowNegative {
		opts = append(opts, WithNegativeScores())
	}
	if len(history.VotedIDs) > 0 {
		items = withoutVoted(items, history.IDs())
	}
	return Recommend(history.Upvoted, history.Downvoted, items, opts...), nil
}

// withoutVoted 去掉分页列表之外、只出现在 VotedIDs 中的已投票餐厅。
func withoutVoted(items []*core.Item, voted map[string]struct{}) []*core.Item {
	out := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		if _, ok := voted[it.ID]; !ok {
			out = append(out, it)
		}
	}
	return out
}
