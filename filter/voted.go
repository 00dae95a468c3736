package filter

import (
	"context"

	"github.com/plateful/recommender/core"
)

// VotedFilter 剔除用户已经赞过或踩过的餐厅。投票历史来自 rctx.Votes，
// 包括分页列表之外的 VotedIDs。
type VotedFilter struct{}

func (f *VotedFilter) Name() string {
	return "filter.voted"
}

func (f *VotedFilter) Prepare(_ context.Context, rctx *core.RecommendContext) (Matcher, error) {
	return idSet(rctx.VotedIDs()).match, nil
}

func (f *VotedFilter) ShouldFilter(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error) {
	return matchOne(ctx, f, rctx, item)
}
