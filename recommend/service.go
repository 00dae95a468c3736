// Package recommend 编排一次推荐请求：并发拉取投票历史与候选餐厅，
// 构建 RecommendContext，运行 Pipeline，返回推荐结果与画像诊断。
package recommend

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/plateful/recommender/core"
	"github.com/plateful/recommender/feedback"
	"github.com/plateful/recommender/filter"
	"github.com/plateful/recommender/logging"
	"github.com/plateful/recommender/metrics"
	"github.com/plateful/recommender/pipeline"
	"github.com/plateful/recommender/pkg/utils"
	"github.com/plateful/recommender/profile"
	"github.com/plateful/recommender/rank"
	"github.com/plateful/recommender/recall"
	"github.com/plateful/recommender/rerank"
)

// Config 是推荐服务配置。
type Config struct {
	// Limit 返回条数上限，默认 12
	Limit int `koanf:"limit" validate:"gte=0"`

	// PageSize 是拉取投票历史时每个方向的条数，超过 100 按 100 处理
	PageSize int `koanf:"page_size" validate:"gte=0"`

	// MinScore 是入选阈值（信号分必须 > MinScore）
	MinScore float64 `koanf:"min_score"`

	// AllowNegative 为 true 时保留负分候选
	AllowNegative bool `koanf:"allow_negative"`

	// DiagnosticsTopN 是诊断中 top 标签 / 菜系的个数，默认 10
	DiagnosticsTopN int `koanf:"diagnostics_top_n" validate:"gte=0"`

	// Timeout 是单次请求的总超时，0 表示使用默认值
	Timeout time.Duration `koanf:"timeout"`

	// Pipeline 是自定义 Pipeline 配置文件（YAML / JSON），为空时使用内置流程
	Pipeline string `koanf:"pipeline"`

	// ColdStart 为 true 时，没有投票历史的用户返回热门餐厅
	ColdStart bool `koanf:"cold_start"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() Config {
	d := &core.DefaultRecommendConfig{}
	return Config{
		Limit:           d.DefaultLimit(),
		PageSize:        d.DefaultVotePageSize(),
		DiagnosticsTopN: d.DefaultDiagnosticsTopN(),
		Timeout:         d.DefaultTimeout(),
	}
}

// Result 是一次推荐的结果。
type Result struct {
	UserID      string              `json:"userId"`
	Items       []*core.Item        `json:"items"`
	Diagnostics profile.Diagnostics `json:"diagnostics"`
	Upvoted     int                 `json:"upvoted"`
	Downvoted   int                 `json:"downvoted"`
	Candidates  int                 `json:"candidates"`
	ColdStart   bool                `json:"coldStart,omitempty"`
}

// Service 是推荐服务。
type Service struct {
	votes    core.VoteSource
	catalog  core.Catalog
	pipeline *pipeline.Pipeline
	cold     recall.Source
	events   feedback.Collector
	cfg      Config
}

// Option 配置 Service。
type Option func(*Service)

// WithConfig 设置服务配置，零值字段使用默认值。
func WithConfig(cfg Config) Option {
	return func(s *Service) {
		def := DefaultConfig()
		if cfg.Limit == 0 {
			cfg.Limit = def.Limit
		}
		if cfg.PageSize == 0 {
			cfg.PageSize = def.PageSize
		}
		if cfg.DiagnosticsTopN == 0 {
			cfg.DiagnosticsTopN = def.DiagnosticsTopN
		}
		if cfg.Timeout == 0 {
			cfg.Timeout = def.Timeout
		}
		s.cfg = cfg
	}
}

// WithLimit 显式设置返回条数，0 表示不返回任何餐厅（WithConfig 中的 0 表示默认值）。
// 需放在 WithConfig 之后。
func WithLimit(n int) Option {
	return func(s *Service) {
		s.cfg.Limit = max(n, 0)
	}
}

// WithPipeline 使用自定义 Pipeline 替换内置流程。
// Pipeline 的输入是候选餐厅，rctx.Votes 为用户的投票历史。
func WithPipeline(p *pipeline.Pipeline) Option {
	return func(s *Service) { s.pipeline = p }
}

// WithColdStart 设置冷启动召回源（通常是 recall.Popular）。
func WithColdStart(src recall.Source) Option {
	return func(s *Service) { s.cold = src }
}

// WithCollector 设置反馈采集器，返回的每个餐厅记录一条曝光事件。
func WithCollector(c feedback.Collector) Option {
	return func(s *Service) {
		if c != nil {
			s.events = c
		}
	}
}

// New 创建推荐服务。
func New(votes core.VoteSource, catalog core.Catalog, opts ...Option) *Service {
	s := &Service{votes: votes, catalog: catalog, events: feedback.Nop{}, cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(s)
	}
	if s.pipeline == nil {
		s.pipeline = DefaultPipeline(s.cfg)
	}
	return s
}

// DefaultPipeline 是内置流程：过滤已投票 → 偏好打分 → 截断。
func DefaultPipeline(cfg Config) *pipeline.Pipeline {
	return &pipeline.Pipeline{
		Name: "default",
		Nodes: []pipeline.Node{
			&filter.FilterNode{Filters: []filter.Filter{&filter.VotedFilter{}}},
			&rank.PreferenceNode{MinScore: cfg.MinScore, AllowNegative: cfg.AllowNegative},
			&rerank.TopNNode{N: cfg.Limit},
		},
	}
}

// Config 返回生效的配置。
func (s *Service) Config() Config {
	return s.cfg
}

// fetch 并发拉取投票历史与候选餐厅。
func (s *Service) fetch(ctx context.Context, userID string) (*core.VoteHistory, []*core.Item, error) {
	var (
		history    *core.VoteHistory
		candidates []*core.Item
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		h, err := s.history(gctx, userID)
		history = h
		return err
	})
	g.Go(func() error {
		items, err := s.catalog.List(gctx)
		if err != nil {
			return fmt.Errorf("fetch candidates: %w", err)
		}
		candidates = items
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return history, candidates, nil
}

// history 读取投票历史；来源返回 nil 时视为没有投票。
func (s *Service) history(ctx context.Context, userID string) (*core.VoteHistory, error) {
	h, err := s.votes.History(ctx, userID, s.cfg.PageSize)
	if err != nil {
		return nil, fmt.Errorf("fetch votes: %w", err)
	}
	if h == nil {
		h = &core.VoteHistory{}
	}
	return h, nil
}

// Recommend 为用户生成推荐。userID 为空（访客）时返回空结果。
func (s *Service) Recommend(ctx context.Context, userID string) (*Result, error) {
	start := time.Now()
	defer func() {
		metrics.RecommendationDuration.Observe(time.Since(start).Seconds())
	}()

	empty := &Result{UserID: userID, Items: []*core.Item{}, Diagnostics: (*profile.Profile)(nil).Diagnostics(0)}
	if userID == "" {
		metrics.RecommendationsServed.WithLabelValues("guest").Inc()
		return empty, nil
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	history, candidates, err := s.fetch(ctx, userID)
	if err != nil {
		metrics.RecommendationsServed.WithLabelValues("error").Inc()
		logging.Error().Err(err).Str("user", userID).Msg("failed to build recommendations")
		return nil, fmt.Errorf("build recommendations: %w", err)
	}

	res := &Result{
		UserID:      userID,
		Upvoted:     len(history.Upvoted),
		Downvoted:   len(history.Downvoted),
		Candidates:  len(candidates),
		Diagnostics: profile.Build(history.Upvoted, history.Downvoted).Diagnostics(s.cfg.DiagnosticsTopN),
	}

	if history.Len() == 0 && s.cold != nil {
		items, err := s.coldStart(ctx, userID)
		if err != nil {
			metrics.RecommendationsServed.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("build recommendations: %w", err)
		}
		res.Items = items
		res.ColdStart = true
		s.served(ctx, res, "cold_start")
		return res, nil
	}

	rctx := &core.RecommendContext{
		UserID: userID,
		Scene:  "recommendations",
		Votes:  history,
	}
	items, err := s.pipeline.Run(ctx, rctx, candidates)
	if err != nil {
		metrics.RecommendationsServed.WithLabelValues("error").Inc()
		logging.Error().Err(err).Str("user", userID).Str("pipeline", s.pipeline.Name).Msg("pipeline failed")
		return nil, fmt.Errorf("build recommendations: %w", err)
	}
	if len(items) > s.cfg.Limit {
		items = items[:s.cfg.Limit]
	}
	if items == nil {
		items = []*core.Item{}
	}
	res.Items = items
	s.served(ctx, res, "ok")
	return res, nil
}

func (s *Service) coldStart(ctx context.Context, userID string) ([]*core.Item, error) {
	items, err := s.cold.Recall(ctx, &core.RecommendContext{UserID: userID, Scene: "cold_start"})
	if err != nil {
		return nil, err
	}
	out := make([]*core.Item, 0, s.cfg.Limit)
	for _, it := range items {
		if it == nil {
			continue
		}
		if len(out) >= s.cfg.Limit {
			break
		}
		it.PutLabel("rank_model", utils.Label{Value: "cold_start", Source: "rank"})
		out = append(out, it)
	}
	return out, nil
}

func (s *Service) served(ctx context.Context, res *Result, outcome string) {
	metrics.RecommendationsServed.WithLabelValues(outcome).Inc()
	metrics.RecommendationItems.Observe(float64(len(res.Items)))

	rctx := &core.RecommendContext{UserID: res.UserID, Scene: "recommendations"}
	if err := s.events.Record(ctx, feedback.ImpressionEvents(rctx, res.Items, time.Now())...); err != nil {
		logging.Warn().Err(err).Str("user", res.UserID).Msg("record impressions failed")
	}

	logging.Info().
		Str("user", res.UserID).
		Int("upvoted", res.Upvoted).
		Int("downvoted", res.Downvoted).
		Int("candidates", res.Candidates).
		Int("items", len(res.Items)).
		Bool("cold_start", res.ColdStart).
		Msg("recommendations served")
}

// Profile 只返回用户的偏好画像诊断，不打分。
func (s *Service) Profile(ctx context.Context, userID string) (*profile.Diagnostics, error) {
	if userID == "" {
		return nil, core.ErrVoteUserRequired
	}
	history, err := s.history(ctx, userID)
	if err != nil {
		return nil, err
	}
	d := profile.Build(history.Upvoted, history.Downvoted).Diagnostics(s.cfg.DiagnosticsTopN)
	return &d, nil
}
