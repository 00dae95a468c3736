package filter

import (
	"context"

	"github.com/plateful/recommender/core"
)

// BlacklistFilter 剔除停业、下架等不应出现的餐厅。
// 名单由两部分合并：配置里写死的 ItemIDs，以及 Store 中 Key 下维护的名单（运营可随时修改）。
type BlacklistFilter struct {
	ItemIDs []string

	// Store / Key 都设置时才读取存储；Key 不存在视为空名单
	Store BlacklistStore
	Key   string
}

// BlacklistStore 读取存储中的黑名单。
type BlacklistStore interface {
	GetBlacklist(ctx context.Context, key string) ([]string, error)
}

// NewBlacklistFilter 创建黑名单过滤器；adapter 为 nil 时只使用 ids。
func NewBlacklistFilter(ids []string, adapter *StoreAdapter, key string) *BlacklistFilter {
	f := &BlacklistFilter{ItemIDs: ids, Key: key}
	if adapter != nil {
		f.Store = adapter
	}
	return f
}

func (f *BlacklistFilter) Name() string {
	return "filter.blacklist"
}

func (f *BlacklistFilter) Prepare(ctx context.Context, _ *core.RecommendContext) (Matcher, error) {
	blocked := idSet{}
	blocked.add(f.ItemIDs...)

	if f.Store != nil && f.Key != "" {
		ids, err := f.Store.GetBlacklist(ctx, f.Key)
		if err != nil && !core.IsStoreNotFound(err) {
			return nil, err
		}
		blocked.add(ids...)
	}
	return blocked.match, nil
}

func (f *BlacklistFilter) ShouldFilter(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error) {
	return matchOne(ctx, f, rctx, item)
}
