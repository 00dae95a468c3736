// Package profile 根据用户投票历史构建偏好画像（Preference Profile）。
//
// 画像只有两张表：tag → score、cuisine → score。赞过的餐厅上每个标签 / 菜系 +1，
// 踩过的 -1，按求和累积（不做平均）。画像每次打分都从头重建，不做增量维护。
package profile

import (
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/plateful/recommender/core"
)

// PriceWeight 是价格亲和加分的上限（价格档位完全一致时取满）。
const PriceWeight = 0.75

// Profile 是一次打分过程中的偏好画像，用完即弃。
type Profile struct {
	TagScore     map[string]float64
	CuisineScore map[string]float64

	// MedianPrice 是赞过餐厅的价格档位中位数，没有任何价格信息时为 nil
	MedianPrice *int
}

// NormalizeKey 统一标签 / 菜系 key：去首尾空白并转小写。
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Build 从赞 / 踩列表构建画像。nil 列表与 nil 元素视为无数据。
func Build(upvoted, downvoted []*core.Item) *Profile {
	p := &Profile{
		TagScore:     make(map[string]float64),
		CuisineScore: make(map[string]float64),
	}
	p.add(upvoted, core.VoteUp.Weight())
	p.add(downvoted, core.VoteDown.Weight())
	p.MedianPrice = medianPrice(upvoted)
	return p
}

func (p *Profile) add(items []*core.Item, weight float64) {
	for _, it := range items {
		if it == nil {
			continue
		}
		for _, t := range it.Tags {
			if key := NormalizeKey(t); key != "" {
				p.TagScore[key] += weight
			}
		}
		if c := NormalizeKey(it.Cuisine); c != "" {
			p.CuisineScore[c] += weight
		}
	}
}

// medianPrice 取上中位数：排序后下标 len/2。
func medianPrice(upvoted []*core.Item) *int {
	prices := make([]int, 0, len(upvoted))
	for _, it := range upvoted {
		if p, ok := it.Price(); ok {
			prices = append(prices, p)
		}
	}
	if len(prices) == 0 {
		return nil
	}
	slices.Sort(prices)
	m := prices[len(prices)/2]
	return &m
}

// Empty 表示画像中没有任何信号。
func (p *Profile) Empty() bool {
	return p == nil || (len(p.TagScore) == 0 && len(p.CuisineScore) == 0 && p.MedianPrice == nil)
}

// TagWeight 返回标签分，未出现过的标签为 0。
func (p *Profile) TagWeight(tag string) float64 {
	return p.TagScore[NormalizeKey(tag)]
}

// CuisineWeight 返回菜系分，未出现过的菜系为 0。
func (p *Profile) CuisineWeight(cuisine string) float64 {
	return p.CuisineScore[NormalizeKey(cuisine)]
}

// PriceBonus 返回价格亲和加分：0.75 * exp(-0.5 * d²)，d 为与中位价格的档位差。
// 没有参考价格时返回 0。
func (p *Profile) PriceBonus(level int) float64 {
	if p.MedianPrice == nil {
		return 0
	}
	d := float64(level - *p.MedianPrice)
	return PriceWeight * math.Exp(-0.5*d*d)
}

// Entry 是诊断输出中的一项。
type Entry struct {
	Key   string  `json:"key"`
	Score float64 `json:"score"`
}

// Diagnostics 是画像的可观测视图：top 标签 / 菜系以及原始分表。
type Diagnostics struct {
	TopTags      []Entry            `json:"topTags"`
	TopCuisines  []Entry            `json:"topCuisines"`
	TagScore     map[string]float64 `json:"tagScore"`
	CuisineScore map[string]float64 `json:"cuisineScore"`
	MedianPrice  *int               `json:"medianPrice,omitempty"`
}

// Diagnostics 返回 top-n 标签与菜系（分数降序，同分按 key 升序）。
func (p *Profile) Diagnostics(n int) Diagnostics {
	if p == nil {
		return Diagnostics{TopTags: []Entry{}, TopCuisines: []Entry{}, TagScore: map[string]float64{}, CuisineScore: map[string]float64{}}
	}
	return Diagnostics{
		TopTags:      topN(p.TagScore, n),
		TopCuisines:  topN(p.CuisineScore, n),
		TagScore:     cloneMap(p.TagScore),
		CuisineScore: cloneMap(p.CuisineScore),
		MedianPrice:  p.MedianPrice,
	}
}

func topN(m map[string]float64, n int) []Entry {
	out := make([]Entry, 0, len(m))
	for k, v := range m {
		out = append(out, Entry{Key: k, Score: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Key < out[j].Key
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func cloneMap(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
