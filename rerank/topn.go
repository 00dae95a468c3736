package rerank

import (
	"context"

	"github.com/plateful/recommender/core"
	"github.com/plateful/recommender/pipeline"
	"github.com/plateful/recommender/pkg/conv"
)

// 请求参数中覆盖分页的键。
const (
	ParamLimit  = "limit"
	ParamOffset = "offset"
)

// TopNNode 是分页截断节点：跳过前 Offset 个餐厅后保留 N 个。
// 请求参数 limit / offset（rctx.Params）存在时覆盖节点配置。
//
//	pipeline := &pipeline.Pipeline{
//	    Nodes: []pipeline.Node{
//	        &rank.PreferenceNode{},      // 偏好打分
//	        &rerank.Diversity{MaxPer: 2}, // 同菜系最多 2 家
//	        &rerank.TopNNode{N: 12},     // 第一页 12 家
//	    },
//	}
type TopNNode struct {
	// N <= 0 时不截断
	N int

	Offset int
}

func (n *TopNNode) Name() string {
	return "rerank.topn"
}

func (n *TopNNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

// window 返回本次请求生效的 offset / limit。
func (n *TopNNode) window(rctx *core.RecommendContext) (offset, limit int) {
	offset, limit = n.Offset, n.N
	if v, ok := conv.ToFloat64(rctx.Param(ParamLimit)); ok {
		limit = int(v)
	}
	if v, ok := conv.ToFloat64(rctx.Param(ParamOffset)); ok {
		offset = int(v)
	}
	return max(offset, 0), limit
}

func (n *TopNNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	offset, limit := n.window(rctx)
	if offset >= len(items) {
		return []*core.Item{}, nil
	}
	items = items[offset:]
	if limit <= 0 || len(items) <= limit {
		return items, nil
	}
	return items[:limit], nil
}
