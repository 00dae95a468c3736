// Package remote 是 Plateful REST 后端的 HTTP 客户端。
//
// 它实现 core.VoteSource（/api/me/votes/up|down）、core.VoteRecorder
// （/api/restaurants/{id}/upvote|downvote|vote|vote-status）和 core.Catalog（/api/restaurants），
// 使推荐服务与投票命令可以直接对接线上后端，而不是本地存储。
//
// 所有请求都经过限流（x/time/rate）和熔断（gobreaker）。
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/plateful/recommender/core"
	"github.com/plateful/recommender/logging"
	"github.com/plateful/recommender/metrics"
	"github.com/plateful/recommender/pkg/conv"
)

// Config 是远端客户端配置。
type Config struct {
	BaseURL string        `koanf:"base_url" validate:"omitempty,url"`
	Token   string        `koanf:"token"`
	Timeout time.Duration `koanf:"timeout"`

	// RatePerSecond <= 0 表示不限流
	RatePerSecond float64 `koanf:"rate" validate:"gte=0"`
	Burst         int     `koanf:"burst" validate:"gte=0"`

	// CacheTTL > 0 时调用方用 catalog.Cached 缓存餐厅列表
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

// Client 是 REST 后端客户端。
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[[]byte]
	name    string
}

// Option 配置 Client。
type Option func(*Client)

// WithHTTPClient 替换底层 http.Client。
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken 设置 Bearer token（覆盖配置）。
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New 创建客户端；BaseURL 必填。
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, core.NewDomainError(core.ModuleRemote, core.ErrorCodeInvalidInput, "remote: base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, core.NewDomainError(core.ModuleRemote, core.ErrorCodeInvalidInput, "remote: invalid base url: "+err.Error())
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Inf, 0),
		name:    "plateful-api",
	}
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	c.cb = newBreaker(c.name)

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

var (
	_ core.VoteSource   = (*Client)(nil)
	_ core.VoteRecorder = (*Client)(nil)
	_ core.Catalog      = (*Client)(nil)
)

// statusError 把 HTTP 状态码映射为 DomainError。
func statusError(status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	text := fmt.Sprintf("remote: http %d", status)
	if msg != "" {
		text += ": " + msg
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return core.NewDomainError(core.ModuleRemote, core.ErrorCodeUnauthorized, text)
	case status == http.StatusNotFound:
		return core.NewDomainError(core.ModuleRemote, core.ErrorCodeNotFound, text)
	case status == http.StatusBadRequest:
		return core.NewDomainError(core.ModuleRemote, core.ErrorCodeInvalidInput, text)
	case status >= 500 || status == http.StatusTooManyRequests:
		return core.NewDomainError(core.ModuleRemote, core.ErrorCodeUnavailable, text)
	default:
		return core.NewDomainError(core.ModuleRemote, core.ErrorCodeInternalError, text)
	}
}

func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values) ([]byte, error) {
	return c.do(ctx, http.MethodGet, endpoint, path, query, nil)
}

// do 发起请求并返回响应体；payload 不为 nil 时编码为 JSON 请求体，endpoint 用于指标标签。
func (c *Client) do(ctx context.Context, method, endpoint, path string, query url.Values, payload any) ([]byte, error) {
	var reqBody []byte
	if payload != nil {
		var err error
		if reqBody, err = json.Marshal(payload); err != nil {
			return nil, fmt.Errorf("encode %s request: %w", endpoint, err)
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	body, err := c.cb.Execute(func() ([]byte, error) {
		var rd io.Reader
		if reqBody != nil {
			rd = bytes.NewReader(reqBody)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, rd)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if reqBody != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, core.NewDomainError(core.ModuleRemote, core.ErrorCodeUnavailable, "remote: "+err.Error())
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, core.NewDomainError(core.ModuleRemote, core.ErrorCodeUnavailable, "remote: read body: "+err.Error())
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, statusError(resp.StatusCode, data)
		}
		return data, nil
	})

	switch {
	case err == nil:
		metrics.RemoteRequests.WithLabelValues(endpoint, "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RemoteRequests.WithLabelValues(endpoint, "rejected").Inc()
		logging.Warn().Err(err).Str("endpoint", endpoint).Msg("remote request rejected by circuit breaker")
		return nil, core.NewDomainError(core.ModuleRemote, core.ErrorCodeUnavailable, "remote: "+err.Error())
	default:
		metrics.RemoteRequests.WithLabelValues(endpoint, "failure").Inc()
		logging.Debug().Err(err).Str("endpoint", endpoint).Msg("remote request failed")
	}
	return body, err
}

// springPage 是后端分页响应中用到的字段。
type springPage struct {
	Content       []*core.Item `json:"content"`
	Number        int          `json:"number"`
	Size          int          `json:"size"`
	TotalElements int          `json:"totalElements"`
}

// votes 读取 /api/me/votes/{direction} 的一页。空响应体视为空列表。
func (c *Client) votes(ctx context.Context, direction string, page, size int) ([]*core.Item, error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 || size > core.MaxVotePageSize {
		size = core.MaxVotePageSize
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))

	data, err := c.get(ctx, "votes_"+direction, "/api/me/votes/"+direction, q)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return []*core.Item{}, nil
	}

	var p springPage
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode %s votes: %w", direction, err)
	}
	out := make([]*core.Item, 0, len(p.Content))
	for _, it := range p.Content {
		if it != nil {
			out = append(out, it)
		}
	}
	return out, nil
}

// Upvoted 返回当前 token 用户赞过的餐厅的一页。
func (c *Client) Upvoted(ctx context.Context, page, size int) ([]*core.Item, error) {
	return c.votes(ctx, "up", page, size)
}

// Downvoted 返回当前 token 用户踩过的餐厅的一页。
func (c *Client) Downvoted(ctx context.Context, page, size int) ([]*core.Item, error) {
	return c.votes(ctx, "down", page, size)
}

// History 并发拉取赞 / 踩列表的首页。
// 后端以 token 识别用户，userID 只用于日志；没有 token 时返回空历史（访客）。
func (c *Client) History(ctx context.Context, userID string, size int) (*core.VoteHistory, error) {
	if c.token == "" {
		logging.Debug().Str("user", userID).Msg("no token, skipping remote vote history")
		return &core.VoteHistory{}, nil
	}

	var h core.VoteHistory
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := c.Upvoted(gctx, 0, size)
		h.Upvoted = items
		return err
	})
	g.Go(func() error {
		items, err := c.Downvoted(gctx, 0, size)
		h.Downvoted = items
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *Client) itemList(ctx context.Context, endpoint, path string) ([]*core.Item, error) {
	data, err := c.get(ctx, endpoint, path, nil)
	if err != nil {
		return nil, err
	}
	var items []*core.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", endpoint, err)
	}
	if items == nil {
		items = []*core.Item{}
	}
	return items, nil
}

// List 返回全部餐厅（GET /api/restaurants）。
func (c *Client) List(ctx context.Context) ([]*core.Item, error) {
	return c.itemList(ctx, "restaurants", "/api/restaurants")
}

// Popular 返回后端的热门餐厅（GET /api/restaurants/popular）。
func (c *Client) Popular(ctx context.Context) ([]*core.Item, error) {
	return c.itemList(ctx, "restaurants_popular", "/api/restaurants/popular")
}

// Get 返回单个餐厅（GET /api/restaurants/{id}）。
func (c *Client) Get(ctx context.Context, id string) (*core.Item, error) {
	data, err := c.get(ctx, "restaurant", "/api/restaurants/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	var it core.Item
	if err := json.Unmarshal(data, &it); err != nil {
		return nil, fmt.Errorf("decode restaurant: %w", err)
	}
	return &it, nil
}

// Cuisines 返回后端已知的菜系（GET /api/restaurants/cuisines）。
func (c *Client) Cuisines(ctx context.Context) ([]string, error) {
	data, err := c.get(ctx, "cuisines", "/api/restaurants/cuisines", nil)
	if err != nil {
		return nil, err
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode cuisines: %w", err)
	}
	return out, nil
}

// voteRequest 是投票接口的请求体。
type voteRequest struct {
	UserID string `json:"userId"`
}

func voteArgs(userID, restaurantID string) error {
	if strings.TrimSpace(userID) == "" {
		return core.ErrVoteUserRequired
	}
	if restaurantID == "" {
		return core.ErrVoteItemRequired
	}
	return nil
}

func (c *Client) vote(ctx context.Context, method, endpoint, action, userID, restaurantID string) error {
	if err := voteArgs(userID, restaurantID); err != nil {
		return err
	}
	path := "/api/restaurants/" + url.PathEscape(restaurantID) + "/" + action
	_, err := c.do(ctx, method, endpoint, path, nil, voteRequest{UserID: userID})
	return err
}

// Upvote 赞（POST /api/restaurants/{id}/upvote）。
func (c *Client) Upvote(ctx context.Context, userID, restaurantID string) error {
	return c.vote(ctx, http.MethodPost, "upvote", "upvote", userID, restaurantID)
}

// Downvote 踩（POST /api/restaurants/{id}/downvote）。
func (c *Client) Downvote(ctx context.Context, userID, restaurantID string) error {
	return c.vote(ctx, http.MethodPost, "downvote", "downvote", userID, restaurantID)
}

// RemoveVote 取消投票（DELETE /api/restaurants/{id}/vote）。
func (c *Client) RemoveVote(ctx context.Context, userID, restaurantID string) error {
	return c.vote(ctx, http.MethodDelete, "remove_vote", "vote", userID, restaurantID)
}

// Status 查询投票状态（GET /api/restaurants/{id}/vote-status?userId=）。
//
// 后端返回一个 map：hasVoted 以及 vote / voteType / userVote 之一
// （1、-1、"up"、"UPVOTE" 等写法都接受），另有餐厅的票数统计。
func (c *Client) Status(ctx context.Context, userID, restaurantID string) (core.VoteStatus, error) {
	if err := voteArgs(userID, restaurantID); err != nil {
		return core.VoteStatus{}, err
	}
	q := url.Values{}
	q.Set("userId", userID)
	data, err := c.get(ctx, "vote_status", "/api/restaurants/"+url.PathEscape(restaurantID)+"/vote-status", q)
	if err != nil {
		return core.VoteStatus{}, err
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return core.VoteStatus{}, fmt.Errorf("decode vote status: %w", err)
	}
	return parseVoteStatus(raw), nil
}

func parseVoteStatus(raw map[string]any) core.VoteStatus {
	var st core.VoteStatus
	for _, key := range []string{"vote", "voteType", "userVote"} {
		if v := parseVoteValue(raw[key]); v != core.VoteNone {
			st.Vote = v
			break
		}
	}
	hasVoted, ok := raw["hasVoted"].(bool)
	st.HasVoted = hasVoted || (!ok && st.Vote != core.VoteNone)
	if !st.HasVoted {
		st.Vote = core.VoteNone
	}

	count := func(key string) int {
		f, _ := conv.ToFloat64(raw[key])
		return int(f)
	}
	st.UpvoteCount = count("upvoteCount")
	st.DownvoteCount = count("downvoteCount")
	st.VoteCount = count("voteCount")
	return st
}

func parseVoteValue(v any) core.Vote {
	if s, ok := v.(string); ok {
		if vote := core.ParseVote(strings.ToLower(strings.TrimSpace(s))); vote != core.VoteNone {
			return vote
		}
	}
	f, ok := conv.ToFloat64(v)
	switch {
	case !ok:
		return core.VoteNone
	case f > 0:
		return core.VoteUp
	case f < 0:
		return core.VoteDown
	default:
		return core.VoteNone
	}
}
