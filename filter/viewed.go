package filter

import (
	"context"
	"strings"
	"time"

	"github.com/plateful/recommender/core"
)

// ViewedFilter 剔除用户在 Window 内浏览过的餐厅，避免刚看过的又被推荐。
// 浏览记录有 RestaurantID 时按 ID 匹配，否则按名称（忽略大小写）匹配。
type ViewedFilter struct {
	History ViewedStore

	// Window 为 0 表示不限时间
	Window time.Duration

	now func() time.Time
}

// ViewedStore 读取浏览历史，userdata.Repository 满足该接口。
type ViewedStore interface {
	BrowseHistory(ctx context.Context, userID string) ([]core.HistoryEntry, error)
}

func NewViewedFilter(history ViewedStore, window time.Duration) *ViewedFilter {
	return &ViewedFilter{History: history, Window: window}
}

func (f *ViewedFilter) Name() string {
	return "filter.viewed"
}

func (f *ViewedFilter) Prepare(ctx context.Context, rctx *core.RecommendContext) (Matcher, error) {
	if rctx == nil || rctx.UserID == "" || f.History == nil {
		return func(*core.Item) bool { return false }, nil
	}

	entries, err := f.History.BrowseHistory(ctx, rctx.UserID)
	if err != nil {
		return nil, err
	}

	var cutoff time.Time
	if f.Window > 0 {
		now := time.Now
		if f.now != nil {
			now = f.now
		}
		cutoff = now().Add(-f.Window)
	}

	ids := idSet{}
	names := make(map[string]struct{})
	for _, e := range entries {
		if !cutoff.IsZero() && e.VisitedDate.Before(cutoff) {
			continue
		}
		if e.RestaurantID != "" {
			ids.add(e.RestaurantID)
		} else if e.Restaurant.Name != "" {
			names[strings.ToLower(e.Restaurant.Name)] = struct{}{}
		}
	}

	return func(item *core.Item) bool {
		if ids.match(item) {
			return true
		}
		_, ok := names[strings.ToLower(item.Name)]
		return ok && item.Name != ""
	}, nil
}

func (f *ViewedFilter) ShouldFilter(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error) {
	return matchOne(ctx, f, rctx, item)
}
