// Package userdata 是用户数据仓库：资料、收藏、浏览历史。
//
// 所有状态都存放在注入的 core.Store 中，按 userID 隔离：
//
//	{prefix}:profile:{userID}    User（JSON）
//	{prefix}:favorites:{userID}  []Favorite（JSON，最新在前）
//	{prefix}:history:{userID}    []HistoryEntry（JSON，最新在前，最多 50 条）
package userdata

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/plateful/recommender/core"
	"github.com/plateful/recommender/logging"
	"github.com/plateful/recommender/pkg/conv"
)

const (
	// DefaultPrefix 是默认 key 前缀。
	DefaultPrefix = "plateful:userdata"

	// DefaultViewType 是未指定浏览类型时的默认值。
	DefaultViewType = "Details viewed"

	// 快照缺省值
	DefaultRating     = 4.5
	DefaultPriceLevel = 2
)

// Repository 是基于 core.Store 的 core.UserDataRepository 实现。
type Repository struct {
	store  core.Store
	prefix string
	now    func() time.Time
	newID  func() string

	mu sync.Mutex
}

// Option 配置 Repository。
type Option func(*Repository)

// WithPrefix 设置 key 前缀。
func WithPrefix(prefix string) Option {
	return func(r *Repository) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}

// WithClock 替换时钟，测试用。
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// New 创建用户数据仓库。
func New(store core.Store, opts ...Option) *Repository {
	r := &Repository{
		store:  store,
		prefix: DefaultPrefix,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ core.UserDataRepository = (*Repository)(nil)

func (r *Repository) key(kind, userID string) string {
	return r.prefix + ":" + kind + ":" + userID
}

// getJSON 读取 key 并解码到 v；key 不存在时返回 false。
func (r *Repository) getJSON(ctx context.Context, key string, v any) (bool, error) {
	data, err := r.store.Get(ctx, key)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (r *Repository) putJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Snapshot 把餐厅转换为收藏 / 浏览记录中保存的快照。
// rating / image 取自 Meta，缺失时使用缺省值。
func Snapshot(it *core.Item) core.RestaurantSnapshot {
	snap := core.RestaurantSnapshot{
		Name:       it.Name,
		Cuisine:    it.Cuisine,
		Rating:     DefaultRating,
		Location:   it.City,
		PriceLevel: DefaultPriceLevel,
		Tags:       append([]string(nil), it.Tags...),
	}
	if p, ok := it.Price(); ok {
		snap.PriceLevel = p
	}
	if v, ok := conv.ToFloat64(it.Meta["rating"]); ok {
		snap.Rating = v
	}
	if s, ok := it.Meta["image"].(string); ok {
		snap.Image = s
	}
	if snap.Name == "" {
		snap.Name = it.ID
	}
	return snap
}

// ---- 用户资料 ----

func (r *Repository) GetUser(ctx context.Context, userID string) (*core.User, error) {
	if userID == "" {
		return nil, core.ErrUserIDRequired
	}
	return r.loadUser(ctx, userID)
}

func (r *Repository) loadUser(ctx context.Context, userID string) (*core.User, error) {
	u := &core.User{}
	ok, err := r.getJSON(ctx, r.key("profile", userID), u)
	if err != nil {
		return nil, err
	}
	if !ok {
		u = &core.User{ID: userID}
	}
	if u.Preferences == nil {
		u.Preferences = map[string]any{}
	}
	if u.Settings == nil {
		u.Settings = map[string]any{}
	}
	return u, nil
}

// updateUser 以读-改-写方式更新资料。
func (r *Repository) updateUser(ctx context.Context, userID string, apply func(u *core.User)) (*core.User, error) {
	if userID == "" {
		return nil, core.ErrUserIDRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	u, err := r.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	apply(u)
	u.ID = userID
	u.UpdatedAt = r.now().UTC()
	if err := r.putJSON(ctx, r.key("profile", userID), u); err != nil {
		return nil, err
	}
	return u, nil
}

// UpdateUser 合并资料：非空的 Name / Email 覆盖，Preferences / Settings 按 key 合并。
func (r *Repository) UpdateUser(ctx context.Context, userID string, patch core.User) (*core.User, error) {
	return r.updateUser(ctx, userID, func(u *core.User) {
		if patch.Name != "" {
			u.Name = patch.Name
		}
		if patch.Email != "" {
			u.Email = patch.Email
		}
		for k, v := range patch.Preferences {
			u.Preferences[k] = v
		}
		for k, v := range patch.Settings {
			u.Settings[k] = v
		}
	})
}

func (r *Repository) UpdatePreferences(ctx context.Context, userID string, prefs map[string]any) (*core.User, error) {
	return r.UpdateUser(ctx, userID, core.User{Preferences: prefs})
}

func (r *Repository) UpdateSettings(ctx context.Context, userID string, settings map[string]any) (*core.User, error) {
	return r.UpdateUser(ctx, userID, core.User{Settings: settings})
}

// ---- 收藏 ----

func (r *Repository) loadFavorites(ctx context.Context, userID string) ([]core.Favorite, error) {
	var favs []core.Favorite
	if _, err := r.getJSON(ctx, r.key("favorites", userID), &favs); err != nil {
		return nil, err
	}
	if favs == nil {
		favs = []core.Favorite{}
	}
	return favs, nil
}

// Favorites 返回收藏列表，最新的在前。
func (r *Repository) Favorites(ctx context.Context, userID string) ([]core.Favorite, error) {
	if userID == "" {
		return nil, core.ErrUserIDRequired
	}
	return r.loadFavorites(ctx, userID)
}

// AddFavorite 收藏餐厅；同名餐厅已收藏时返回 core.ErrAlreadyFavorite。
func (r *Repository) AddFavorite(ctx context.Context, userID string, restaurant *core.Item) (*core.Favorite, error) {
	if userID == "" {
		return nil, core.ErrUserIDRequired
	}
	if restaurant == nil {
		return nil, core.ErrRestaurantNeeded
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	favs, err := r.loadFavorites(ctx, userID)
	if err != nil {
		return nil, err
	}
	snap := Snapshot(restaurant)
	for _, f := range favs {
		if f.Restaurant.Name == snap.Name {
			return nil, core.ErrAlreadyFavorite
		}
	}

	fav := core.Favorite{
		ID:           r.newID(),
		RestaurantID: restaurant.ID,
		DateAdded:    r.now().UTC(),
		Restaurant:   snap,
	}
	favs = append([]core.Favorite{fav}, favs...)
	if err := r.putJSON(ctx, r.key("favorites", userID), favs); err != nil {
		return nil, err
	}
	logging.Debug().Str("user", userID).Str("restaurant", snap.Name).Msg("favorite added")
	return &fav, nil
}

// RemoveFavorite 按收藏 ID 删除；不存在时不报错。
func (r *Repository) RemoveFavorite(ctx context.Context, userID string, favoriteID string) error {
	if userID == "" {
		return core.ErrUserIDRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	favs, err := r.loadFavorites(ctx, userID)
	if err != nil {
		return err
	}
	kept := favs[:0]
	for _, f := range favs {
		if f.ID != favoriteID {
			kept = append(kept, f)
		}
	}
	if len(kept) == len(favs) {
		return nil
	}
	return r.putJSON(ctx, r.key("favorites", userID), kept)
}

// IsFavorite 按餐厅名称判断是否已收藏。
func (r *Repository) IsFavorite(ctx context.Context, userID string, restaurantName string) (bool, error) {
	favs, err := r.Favorites(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, f := range favs {
		if f.Restaurant.Name == restaurantName {
			return true, nil
		}
	}
	return false, nil
}

// ---- 浏览历史 ----

func (r *Repository) loadHistory(ctx context.Context, userID string) ([]core.HistoryEntry, error) {
	var entries []core.HistoryEntry
	if _, err := r.getJSON(ctx, r.key("history", userID), &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []core.HistoryEntry{}
	}
	return entries, nil
}

// BrowseHistory 返回浏览历史，最新的在前。
func (r *Repository) BrowseHistory(ctx context.Context, userID string) ([]core.HistoryEntry, error) {
	if userID == "" {
		return nil, core.ErrUserIDRequired
	}
	return r.loadHistory(ctx, userID)
}

// AddBrowseHistory 记录一次浏览：同名餐厅的旧记录被移除，新记录置顶，最多保留 core.BrowseHistoryLimit 条。
func (r *Repository) AddBrowseHistory(ctx context.Context, userID string, restaurant *core.Item, viewType string) (*core.HistoryEntry, error) {
	if userID == "" {
		return nil, core.ErrUserIDRequired
	}
	if restaurant == nil {
		return nil, core.ErrRestaurantNeeded
	}
	if strings.TrimSpace(viewType) == "" {
		viewType = DefaultViewType
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.loadHistory(ctx, userID)
	if err != nil {
		return nil, err
	}

	entry := core.HistoryEntry{
		ID:           r.newID(),
		RestaurantID: restaurant.ID,
		VisitedDate:  r.now().UTC(),
		ViewType:     viewType,
		Restaurant:   Snapshot(restaurant),
	}

	out := make([]core.HistoryEntry, 0, len(entries)+1)
	out = append(out, entry)
	for _, e := range entries {
		if e.Restaurant.Name != entry.Restaurant.Name {
			out = append(out, e)
		}
	}
	if len(out) > core.BrowseHistoryLimit {
		out = out[:core.BrowseHistoryLimit]
	}

	if err := r.putJSON(ctx, r.key("history", userID), out); err != nil {
		return nil, err
	}
	return &entry, nil
}

// ClearBrowseHistory 清空浏览历史。
func (r *Repository) ClearBrowseHistory(ctx context.Context, userID string) error {
	if userID == "" {
		return core.ErrUserIDRequired
	}
	if err := r.store.Delete(ctx, r.key("history", userID)); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}
