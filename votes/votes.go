// Package votes 是用户投票仓库：赞 / 踩 / 取消投票 / 查询状态 / 分页列出。
//
// 每个用户的投票记录以 JSON 形式存放在 {prefix}:user:{userID} 下：
//
//	{"r1": {"vote": 1, "updated_at": "..."}, "r2": {"vote": -1, "updated_at": "..."}}
//
// 如果底层 Store 实现了 core.KeyValueStore，还会在 {prefix}:popular 有序集合里维护
// 每家餐厅的净票数，供 recall.Popular 冷启动召回使用。
package votes

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/plateful/recommender/core"
	"github.com/plateful/recommender/feedback"
	"github.com/plateful/recommender/logging"
	"github.com/plateful/recommender/metrics"
)

// DefaultPrefix 是默认 key 前缀。
const DefaultPrefix = "plateful:votes"

// Record 是一条投票记录。
type Record struct {
	Vote      core.Vote `json:"vote"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Status 是用户对某家餐厅的投票状态。
type Status = core.VoteStatus

// Page 是分页结果，字段与后端的分页 JSON 对齐。
type Page struct {
	Content       []*core.Item `json:"content"`
	Number        int          `json:"number"`
	Size          int          `json:"size"`
	TotalElements int          `json:"totalElements"`
	TotalPages    int          `json:"totalPages"`
}

// Repository 是基于 core.Store 的投票仓库。
type Repository struct {
	store   core.Store
	catalog core.Catalog
	prefix  string
	now     func() time.Time
	events  feedback.Collector

	// 串行化同一仓库内的读-改-写
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

// WithCatalog 设置用于解析餐厅详情的目录；未设置时列表只包含 ID。
func WithCatalog(c core.Catalog) Option {
	return func(r *Repository) { r.catalog = c }
}

// WithCollector 设置反馈采集器，每次投票变更都会记录一条事件。
func WithCollector(c feedback.Collector) Option {
	return func(r *Repository) {
		if c != nil {
			r.events = c
		}
	}
}

// WithClock 替换时钟，测试用。
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// New 创建投票仓库。
func New(store core.Store, opts ...Option) *Repository {
	r := &Repository{store: store, prefix: DefaultPrefix, now: time.Now, events: feedback.Nop{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var (
	_ core.VoteSource   = (*Repository)(nil)
	_ core.VoteRecorder = (*Repository)(nil)
)

// PopularKey 返回维护净票数的有序集合 key。
func PopularKey(prefix string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return prefix + ":popular"
}

func (r *Repository) userKey(userID string) string {
	return r.prefix + ":user:" + userID
}

func (r *Repository) load(ctx context.Context, userID string) (map[string]Record, error) {
	data, err := r.store.Get(ctx, r.userKey(userID))
	if err != nil {
		if core.IsStoreNotFound(err) {
			return map[string]Record{}, nil
		}
		return nil, fmt.Errorf("load votes: %w", err)
	}
	records := map[string]Record{}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode votes: %w", err)
	}
	return records, nil
}

func (r *Repository) save(ctx context.Context, userID string, records map[string]Record) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode votes: %w", err)
	}
	if err := r.store.Set(ctx, r.userKey(userID), data); err != nil {
		return fmt.Errorf("save votes: %w", err)
	}
	return nil
}

func validate(userID, restaurantID string) error {
	if userID == "" {
		return core.ErrVoteUserRequired
	}
	if restaurantID == "" {
		return core.ErrVoteItemRequired
	}
	return nil
}

// Upvote 记录赞；已踩过则切换为赞。
func (r *Repository) Upvote(ctx context.Context, userID, restaurantID string) error {
	return r.set(ctx, userID, restaurantID, core.VoteUp)
}

// Downvote 记录踩；已赞过则切换为踩。
func (r *Repository) Downvote(ctx context.Context, userID, restaurantID string) error {
	return r.set(ctx, userID, restaurantID, core.VoteDown)
}

// RemoveVote 取消投票；没有投过票时不报错。
func (r *Repository) RemoveVote(ctx context.Context, userID, restaurantID string) error {
	return r.set(ctx, userID, restaurantID, core.VoteNone)
}

func (r *Repository) set(ctx context.Context, userID, restaurantID string, vote core.Vote) error {
	if err := validate(userID, restaurantID); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.load(ctx, userID)
	if err != nil {
		return err
	}

	old := records[restaurantID].Vote
	if vote == core.VoteNone {
		if _, ok := records[restaurantID]; !ok {
			return nil
		}
		delete(records, restaurantID)
	} else {
		records[restaurantID] = Record{Vote: vote, UpdatedAt: r.now().UTC()}
	}

	if err := r.save(ctx, userID, records); err != nil {
		return err
	}

	action := vote.String()
	if vote == core.VoteNone {
		action = "remove"
	}
	metrics.VotesRecorded.WithLabelValues(action).Inc()

	if delta := vote.Weight() - old.Weight(); delta != 0 {
		r.bumpPopular(ctx, restaurantID, delta)
	}
	if err := r.events.Record(ctx, feedback.VoteEvent(userID, restaurantID, vote, r.now())); err != nil {
		logging.Warn().Err(err).Str("restaurant", restaurantID).Msg("record vote event failed")
	}

	logging.Debug().
		Str("user", userID).
		Str("restaurant", restaurantID).
		Str("action", action).
		Msg("vote recorded")
	return nil
}

// bumpPopular 更新净票数有序集合；失败只记录日志，投票本身已经落库。
func (r *Repository) bumpPopular(ctx context.Context, restaurantID string, delta float64) {
	kv, ok := r.store.(core.KeyValueStore)
	if !ok {
		return
	}
	if err := kv.ZIncrBy(ctx, PopularKey(r.prefix), delta, restaurantID); err != nil {
		logging.Warn().Err(err).Str("restaurant", restaurantID).Msg("update popularity failed")
	}
}

// Status 返回用户对某家餐厅的投票状态。
func (r *Repository) Status(ctx context.Context, userID, restaurantID string) (Status, error) {
	if err := validate(userID, restaurantID); err != nil {
		return Status{}, err
	}
	records, err := r.load(ctx, userID)
	if err != nil {
		return Status{}, err
	}
	rec, ok := records[restaurantID]
	if !ok {
		return Status{Vote: core.VoteNone}, nil
	}
	return Status{HasVoted: true, Vote: rec.Vote}, nil
}

// ListUp 分页列出赞过的餐厅，最新的在前。
func (r *Repository) ListUp(ctx context.Context, userID string, page, size int) (*Page, error) {
	return r.list(ctx, userID, core.VoteUp, page, size)
}

// ListDown 分页列出踩过的餐厅，最新的在前。
func (r *Repository) ListDown(ctx context.Context, userID string, page, size int) (*Page, error) {
	return r.list(ctx, userID, core.VoteDown, page, size)
}

// ClampPage 把分页参数约束到合法范围：page >= 0，1 <= size <= MaxVotePageSize。
func ClampPage(page, size int) (int, int) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = 20
	}
	if size > core.MaxVotePageSize {
		size = core.MaxVotePageSize
	}
	return page, size
}

func (r *Repository) list(ctx context.Context, userID string, vote core.Vote, page, size int) (*Page, error) {
	if userID == "" {
		return nil, core.ErrVoteUserRequired
	}
	page, size = ClampPage(page, size)

	records, err := r.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	type entry struct {
		id string
		at time.Time
	}
	matched := make([]entry, 0, len(records))
	for id, rec := range records {
		if rec.Vote == vote {
			matched = append(matched, entry{id: id, at: rec.UpdatedAt})
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].at.Equal(matched[j].at) {
			return matched[i].at.After(matched[j].at)
		}
		return matched[i].id < matched[j].id
	})

	out := &Page{
		Content:       make([]*core.Item, 0, size),
		Number:        page,
		Size:          size,
		TotalElements: len(matched),
		TotalPages:    (len(matched) + size - 1) / size,
	}

	start := page * size
	if start >= len(matched) {
		return out, nil
	}
	end := start + size
	if end > len(matched) {
		end = len(matched)
	}

	for _, e := range matched[start:end] {
		it, err := r.resolve(ctx, e.id)
		if err != nil {
			return nil, err
		}
		if it != nil {
			out.Content = append(out.Content, it)
		}
	}
	return out, nil
}

func (r *Repository) resolve(ctx context.Context, id string) (*core.Item, error) {
	if r.catalog == nil {
		return core.NewItem(id), nil
	}
	it, err := r.catalog.Get(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			logging.Debug().Str("restaurant", id).Msg("voted restaurant no longer in catalog")
			return nil, nil
		}
		return nil, err
	}
	return it.Clone(), nil
}

// History 返回首页的赞 / 踩列表（每个方向最多 size 条），实现 core.VoteSource。
// VotedIDs 包含该用户全部投票记录，列表被截断时已投票餐厅仍能被排除。
func (r *Repository) History(ctx context.Context, userID string, size int) (*core.VoteHistory, error) {
	up, err := r.ListUp(ctx, userID, 0, size)
	if err != nil {
		return nil, err
	}
	down, err := r.ListDown(ctx, userID, 0, size)
	if err != nil {
		return nil, err
	}
	records, err := r.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(records))
	for id, rec := range records {
		if rec.Vote != core.VoteNone {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return &core.VoteHistory{Upvoted: up.Content, Downvoted: down.Content, VotedIDs: ids}, nil
}
