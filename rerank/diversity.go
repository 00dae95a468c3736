package rerank

import (
	"context"
	"strings"

	"github.com/plateful/recommender/core"
	"github.com/plateful/recommender/pipeline"
)

// Diversity 是按类别打散的 ReRank：同一类别最多保留 MaxPer 个，保持原有顺序。
// 类别来源优先级：
//   - Key 为空或 "cuisine" 时使用 Item.Cuisine
//   - label[Key].Value
//   - meta[Key] (string)
//
// 没有类别的餐厅不受限制。超出配额的餐厅不会丢弃，而是按原顺序追加到末尾，
// 由后续的 TopN 决定是否截断。
type Diversity struct {
	Key    string // 默认 "cuisine"
	MaxPer int    // 默认 1

	// Drop 为 true 时直接丢弃超出配额的餐厅
	Drop bool
}

func (n *Diversity) Name() string {
	return "rerank.diversity"
}

func (n *Diversity) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *Diversity) category(it *core.Item) string {
	key := n.Key
	if key == "" || key == "cuisine" {
		return strings.ToLower(strings.TrimSpace(it.Cuisine))
	}
	if lbl, ok := it.Labels[key]; ok {
		return lbl.Value
	}
	if v, ok := it.Meta[key].(string); ok {
		return v
	}
	return ""
}

func (n *Diversity) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	maxPer := n.MaxPer
	if maxPer <= 0 {
		maxPer = 1
	}

	counts := make(map[string]int, 16)
	out := make([]*core.Item, 0, len(items))
	var overflow []*core.Item

	for _, it := range items {
		if it == nil {
			continue
		}
		cate := n.category(it)
		if cate == "" {
			out = append(out, it)
			continue
		}
		if counts[cate] >= maxPer {
			overflow = append(overflow, it)
			continue
		}
		counts[cate]++
		out = append(out, it)
	}

	if !n.Drop {
		out = append(out, overflow...)
	}
	return out, nil
}
