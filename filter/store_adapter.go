package filter

import (
	"context"
	"slices"

	json "github.com/goccy/go-json"

	"github.com/plateful/recommender/core"
)

// StoreAdapter 在 core.Store 上维护黑名单，值为排序去重后的 JSON 数组：["r-1","r-2"]。
type StoreAdapter struct {
	store core.Store
}

func NewStoreAdapter(s core.Store) *StoreAdapter {
	return &StoreAdapter{store: s}
}

// GetBlacklist 读取黑名单；key 不存在时返回存储层的 NotFound 错误。
func (a *StoreAdapter) GetBlacklist(ctx context.Context, key string) ([]string, error) {
	data, err := a.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// SetBlacklist 覆盖写入黑名单。
func (a *StoreAdapter) SetBlacklist(ctx context.Context, key string, ids []string) error {
	ids = normalizeIDs(ids)
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return a.store.Set(ctx, key, data)
}

// Block 把餐厅加入黑名单，返回更新后的名单。
func (a *StoreAdapter) Block(ctx context.Context, key string, ids ...string) ([]string, error) {
	cur, err := a.list(ctx, key)
	if err != nil {
		return nil, err
	}
	cur = normalizeIDs(append(cur, ids...))
	return cur, a.SetBlacklist(ctx, key, cur)
}

// Unblock 把餐厅移出黑名单，返回更新后的名单。
func (a *StoreAdapter) Unblock(ctx context.Context, key string, ids ...string) ([]string, error) {
	cur, err := a.list(ctx, key)
	if err != nil {
		return nil, err
	}
	cur = slices.DeleteFunc(cur, func(id string) bool { return slices.Contains(ids, id) })
	return cur, a.SetBlacklist(ctx, key, cur)
}

// list 读取黑名单，key 不存在时返回空名单。
func (a *StoreAdapter) list(ctx context.Context, key string) ([]string, error) {
	ids, err := a.GetBlacklist(ctx, key)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return []string{}, nil
		}
		return nil, err
	}
	return ids, nil
}

// List 返回黑名单，key 不存在时为空。
func (a *StoreAdapter) List(ctx context.Context, key string) ([]string, error) {
	return a.list(ctx, key)
}

func normalizeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
