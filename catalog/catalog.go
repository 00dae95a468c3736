// Package catalog 是餐厅目录：基于 core.Store 的增删查，以及 JSON / YAML 种子数据加载。
//
// 每家餐厅以 JSON 存放在 {prefix}:item:{id}，ID 索引存放在 {prefix}:ids（JSON 数组）。
package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/plateful/recommender/core"
)

// DefaultPrefix 是默认 key 前缀。
const DefaultPrefix = "plateful:catalog"

// ErrNotFound 表示目录中不存在该餐厅。
var ErrNotFound = core.NewDomainError(core.ModuleCatalog, core.ErrorCodeNotFound, "catalog: restaurant not found")

// Catalog 是基于 core.Store 的餐厅目录，实现 core.Catalog。
type Catalog struct {
	store    core.Store
	prefix   string
	validate *validator.Validate

	mu sync.Mutex
}

// New 创建餐厅目录；prefix 为空时使用 DefaultPrefix。
func New(store core.Store, prefix string) *Catalog {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Catalog{store: store, prefix: prefix, validate: validator.New()}
}

var _ core.Catalog = (*Catalog)(nil)

func (c *Catalog) itemKey(id string) string { return c.prefix + ":item:" + id }
func (c *Catalog) idsKey() string           { return c.prefix + ":ids" }

func (c *Catalog) loadIDs(ctx context.Context) ([]string, error) {
	data, err := c.store.Get(ctx, c.idsKey())
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load catalog index: %w", err)
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("decode catalog index: %w", err)
	}
	return ids, nil
}

func (c *Catalog) saveIDs(ctx context.Context, ids []string) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, c.idsKey(), data)
}

// Put 新增或覆盖餐厅。Tags / Cuisine 去除首尾空白，ID 必填，PriceLevel 需在 1-5。
func (c *Catalog) Put(ctx context.Context, items ...*core.Item) error {
	if len(items) == 0 {
		return nil
	}

	kvs := make(map[string][]byte, len(items))
	added := make([]string, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		if err := c.validate.Struct(it); err != nil {
			return core.NewDomainError(core.ModuleCatalog, core.ErrorCodeInvalidInput,
				fmt.Sprintf("catalog: invalid restaurant %q: %v", it.ID, err))
		}
		clean := sanitize(it)
		if clean.ID == "" {
			return core.NewDomainError(core.ModuleCatalog, core.ErrorCodeInvalidInput, "catalog: restaurant id is blank")
		}
		data, err := json.Marshal(clean)
		if err != nil {
			return fmt.Errorf("encode restaurant %s: %w", it.ID, err)
		}
		kvs[c.itemKey(clean.ID)] = data
		added = append(added, clean.ID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ids, err := c.loadIDs(ctx)
	if err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	for _, id := range added {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	if err := c.store.BatchSet(ctx, kvs); err != nil {
		return fmt.Errorf("save restaurants: %w", err)
	}
	return c.saveIDs(ctx, ids)
}

// sanitize 返回只包含目录字段的副本（不保存链路中的 Score / Labels / Meta）。
func sanitize(it *core.Item) *core.Item {
	out := &core.Item{
		ID:            strings.TrimSpace(it.ID),
		Name:          it.Name,
		Description:   it.Description,
		Cuisine:       strings.TrimSpace(it.Cuisine),
		City:          it.City,
		UpvoteCount:   it.UpvoteCount,
		DownvoteCount: it.DownvoteCount,
	}
	if p, ok := it.Price(); ok {
		out.PriceLevel = core.PriceLevel(p)
	}
	for _, t := range it.Tags {
		if t = strings.TrimSpace(t); t != "" {
			out.Tags = append(out.Tags, t)
		}
	}
	return out
}

// Get 按 ID 读取餐厅，不存在时返回 ErrNotFound。
func (c *Catalog) Get(ctx context.Context, id string) (*core.Item, error) {
	data, err := c.store.Get(ctx, c.itemKey(id))
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get restaurant %s: %w", id, err)
	}
	var it core.Item
	if err := json.Unmarshal(data, &it); err != nil {
		return nil, fmt.Errorf("decode restaurant %s: %w", id, err)
	}
	return &it, nil
}

// List 按写入顺序返回所有餐厅。
func (c *Catalog) List(ctx context.Context) ([]*core.Item, error) {
	ids, err := c.loadIDs(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*core.Item{}, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, c.itemKey(id))
	}
	raw, err := c.store.BatchGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("list restaurants: %w", err)
	}

	out := make([]*core.Item, 0, len(ids))
	for _, id := range ids {
		data, ok := raw[c.itemKey(id)]
		if !ok {
			continue
		}
		var it core.Item
		if err := json.Unmarshal(data, &it); err != nil {
			return nil, fmt.Errorf("decode restaurant %s: %w", id, err)
		}
		out = append(out, &it)
	}
	return out, nil
}

// Delete 删除餐厅，不存在时返回 ErrNotFound。
func (c *Catalog) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids, err := c.loadIDs(ctx)
	if err != nil {
		return err
	}
	idx := -1
	for i, v := range ids {
		if v == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotFound
	}
	ids = append(ids[:idx], ids[idx+1:]...)

	if err := c.store.Delete(ctx, c.itemKey(id)); err != nil {
		return fmt.Errorf("delete restaurant %s: %w", id, err)
	}
	return c.saveIDs(ctx, ids)
}

// Cuisines 返回目录中出现过的菜系（去重、排序、去除空值）。
func (c *Catalog) Cuisines(ctx context.Context) ([]string, error) {
	items, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, it := range items {
		if it.Cuisine == "" {
			continue
		}
		if _, ok := seen[it.Cuisine]; ok {
			continue
		}
		seen[it.Cuisine] = struct{}{}
		out = append(out, it.Cuisine)
	}
	sort.Strings(out)
	return out, nil
}

// LoadFile 读取 JSON 或 YAML 格式的餐厅列表（按扩展名判断，.yaml / .yml 为 YAML）。
func LoadFile(path string) ([]*core.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var items []*core.Item
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	}
	return items, nil
}

// Seed 从文件加载餐厅并写入目录，返回写入条数。
func (c *Catalog) Seed(ctx context.Context, path string) (int, error) {
	items, err := LoadFile(path)
	if err != nil {
		return 0, err
	}
	if err := c.Put(ctx, items...); err != nil {
		return 0, err
	}
	return len(items), nil
}
