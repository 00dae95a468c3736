package rank

import (
	"sort"

	"github.com/plateful/recommender/core"
	"github.com/plateful/recommender/pkg/utils"
	"github.com/plateful/recommender/profile"
)

const (
	// DefaultLimit 是默认返回的推荐条数
	DefaultLimit = 12

	// CuisineWeight 是菜系分的权重（菜系比单个标签更重）
	CuisineWeight = 1.5

	// ModelName 写入 rank_model label
	ModelName = "preference"
)

// Options 控制一次打分的截断与阈值。
type Options struct {
	// Limit 返回条数上限；0 返回空列表
	Limit int

	// MinScore 是入选阈值：信号分必须 > MinScore
	MinScore float64

	// AllowNegative 为 true 时只要信号分 != 0 即入选，负分排在最后
	AllowNegative bool
}

// Option 修改 Options。
type Option func(*Options)

// WithLimit 设置返回条数上限，负数按 0 处理。
func WithLimit(n int) Option {
	return func(o *Options) {
		if n < 0 {
			n = 0
		}
		o.Limit = n
	}
}

// WithMinScore 设置入选阈值（信号分必须严格大于该值）。
func WithMinScore(s float64) Option {
	return func(o *Options) { o.MinScore = s }
}

// WithNegativeScores 保留所有非零信号分的候选（包括负分）。
func WithNegativeScores() Option {
	return func(o *Options) { o.AllowNegative = true }
}

// DefaultOptions 返回默认配置：12 条，信号分 > 0。
func DefaultOptions() Options {
	return Options{Limit: DefaultLimit}
}

// Breakdown 是单个候选的分数拆解。
type Breakdown struct {
	Tags     float64
	Cuisine  float64
	Price    float64
	TieBreak float64
}

// Signal 是不含 tie-break 的真实信号分。
func (b Breakdown) Signal() float64 {
	return b.Tags + b.Cuisine + b.Price
}

// Total 是最终写入 Item.Score 的分数。
func (b Breakdown) Total() float64 {
	return b.Signal() + b.TieBreak
}

// ScoreItem 按画像计算单个候选的分数拆解。缺失的 tags / cuisine / price 贡献为 0。
func ScoreItem(p *profile.Profile, it *core.Item) Breakdown {
	var b Breakdown
	if p == nil || it == nil {
		return b
	}
	for _, t := range it.Tags {
		b.Tags += p.TagWeight(t)
	}
	if it.Cuisine != "" {
		b.Cuisine = CuisineWeight * p.CuisineWeight(it.Cuisine)
	}
	if level, ok := it.Price(); ok {
		b.Price = p.PriceBonus(level)
	}
	b.TieBreak = TieBreak(it.ID)
	return b
}

type scored struct {
	item *core.Item
	b    Breakdown
}

// Recommend 是偏好打分器：基于赞 / 踩历史为候选集打分，返回排好序的推荐列表。
//
//   - 已投票（赞或踩）的候选按 ID 排除，不参与打分
//   - 信号分不满足阈值的候选被丢弃（默认 > 0）
//   - 按信号分降序，同分按 tie-break 降序，再按 ID 升序，保证结果确定
//   - 不修改输入，返回的是带 Score 与 labels 的副本
func Recommend(upvoted, downvoted, candidates []*core.Item, opts ...Option) []*core.Item {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Limit == 0 || len(candidates) == 0 {
		return []*core.Item{}
	}

	p := profile.Build(upvoted, downvoted)
	voted := (&core.VoteHistory{Upvoted: upvoted, Downvoted: downvoted}).IDs()

	list := make([]scored, 0, len(candidates))
	for _, it := range candidates {
		if it == nil {
			continue
		}
		if _, ok := voted[it.ID]; ok {
			continue
		}
		b := ScoreItem(p, it)
		if !o.accept(b.Signal()) {
			continue
		}
		list = append(list, scored{item: it, b: b})
	}

	sortScored(list)
	if len(list) > o.Limit {
		list = list[:o.Limit]
	}

	out := make([]*core.Item, 0, len(list))
	for _, s := range list {
		out = append(out, annotate(s.item.Clone(), s.b))
	}
	return out
}

func (o Options) accept(signal float64) bool {
	if o.AllowNegative {
		return signal != 0
	}
	return signal > o.MinScore
}

func sortScored(list []scored) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i].b, list[j].b
		if a.Signal() != b.Signal() {
			return a.Signal() > b.Signal()
		}
		if a.TieBreak != b.TieBreak {
			return a.TieBreak > b.TieBreak
		}
		return list[i].item.ID < list[j].item.ID
	})
}

func annotate(it *core.Item, b Breakdown) *core.Item {
	it.Score = b.Total()
	it.PutLabel("rank_model", utils.Label{Value: ModelName, Source: "rank"})
	it.PutLabel("score_tags", utils.FloatLabel(b.Tags, "rank"))
	it.PutLabel("score_cuisine", utils.FloatLabel(b.Cuisine, "rank"))
	it.PutLabel("score_price", utils.FloatLabel(b.Price, "rank"))
	return it
}
