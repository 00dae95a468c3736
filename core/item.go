package core

import (
	"slices"

	"github.com/plateful/recommender/pkg/utils"
)

// Item 是推荐链路中的统一承载结构：餐厅的内容属性 + 链路中的分数、元信息、标签。
// Tags / Cuisine / PriceLevel 都是可选字段，缺失时不参与打分（贡献为 0）。
type Item struct {
	ID          string   `json:"id" yaml:"id" validate:"required"`
	Name        string   `json:"name,omitempty" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description"`
	Cuisine     string   `json:"cuisine,omitempty" yaml:"cuisine"`
	Tags        []string `json:"tags,omitempty" yaml:"tags"`
	City        string   `json:"city,omitempty" yaml:"city"`

	// PriceLevel 取值 1-5，nil 表示未知
	PriceLevel *int `json:"priceLevel,omitempty" yaml:"price_level" validate:"omitempty,min=1,max=5"`

	UpvoteCount   int `json:"upvoteCount,omitempty" yaml:"upvote_count"`
	DownvoteCount int `json:"downvoteCount,omitempty" yaml:"downvote_count"`

	// 以下字段只在 Pipeline 内部流转
	Score  float64                `json:"score,omitempty" yaml:"-"`
	Meta   map[string]any         `json:"meta,omitempty" yaml:"-"`
	Labels map[string]utils.Label `json:"labels,omitempty" yaml:"-"`
}

func NewItem(id string) *Item {
	return &Item{
		ID:     id,
		Meta:   make(map[string]any),
		Labels: make(map[string]utils.Label),
	}
}

// Price 返回价格档位，ok=false 表示未设置。
func (it *Item) Price() (int, bool) {
	if it == nil || it.PriceLevel == nil {
		return 0, false
	}
	return *it.PriceLevel, true
}

// VoteCount 是净票数（赞 - 踩）。
func (it *Item) VoteCount() int {
	return it.UpvoteCount - it.DownvoteCount
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// Clone 返回一份可独立修改的副本（Tags / Meta / Labels 均拷贝）。
// 打分节点通过 Clone 保证不修改调用方传入的列表。
func (it *Item) Clone() *Item {
	if it == nil {
		return nil
	}
	out := *it
	out.Tags = slices.Clone(it.Tags)
	if it.PriceLevel != nil {
		p := *it.PriceLevel
		out.PriceLevel = &p
	}
	out.Meta = make(map[string]any, len(it.Meta))
	for k, v := range it.Meta {
		out.Meta[k] = v
	}
	out.Labels = make(map[string]utils.Label, len(it.Labels))
	for k, v := range it.Labels {
		out.Labels[k] = v
	}
	return &out
}

// PriceLevel 是构造 *int 价格档位的便捷函数。
func PriceLevel(level int) *int {
	return &level
}
