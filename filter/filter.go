// Package filter 剔除不应推荐的餐厅：已投票、最近浏览、黑名单、表达式命中。
package filter

import (
	"context"

	"github.com/plateful/recommender/core"
)

// Filter 判断单个餐厅是否应被剔除，true 表示剔除。
type Filter interface {
	Name() string

	ShouldFilter(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error)
}

// Matcher 是一次请求内使用的判定函数，true 表示剔除。
type Matcher func(item *core.Item) bool

// Preparer 由需要读取外部数据（投票、浏览记录、黑名单）的过滤器实现：
// 在处理一批餐厅前加载一次数据，返回的 Matcher 只在本次请求内使用。
// FilterNode 对实现了 Preparer 的过滤器不再逐条调用 ShouldFilter。
type Preparer interface {
	Prepare(ctx context.Context, rctx *core.RecommendContext) (Matcher, error)
}

// idSet 是按餐厅 ID 剔除的 Matcher。
type idSet map[string]struct{}

func (s idSet) add(ids ...string) {
	for _, id := range ids {
		if id != "" {
			s[id] = struct{}{}
		}
	}
}

func (s idSet) match(item *core.Item) bool {
	_, ok := s[item.ID]
	return ok
}

// matchOne 用 Prepare 的结果判断单个餐厅，供 ShouldFilter 复用。
func matchOne(ctx context.Context, p Preparer, rctx *core.RecommendContext, item *core.Item) (bool, error) {
	if item == nil {
		return true, nil
	}
	m, err := p.Prepare(ctx, rctx)
	if err != nil {
		return false, err
	}
	return m(item), nil
}
