package pipeline

import (
	"context"

	"github.com/plateful/recommender/core"
)

// Kind 是 Node 所属的阶段，用于指标标签与配置校验。
type Kind string

const (
	KindRecall      Kind = "recall"      // 产生候选餐厅
	KindFilter      Kind = "filter"      // 剔除已投票、已浏览、黑名单餐厅
	KindRank        Kind = "rank"        // 偏好打分并排序
	KindReRank      Kind = "rerank"      // 截断、菜系打散
	KindPostProcess Kind = "postprocess" // 结果整形
)

// Node 接收上一阶段的餐厅列表，返回交给下一阶段的列表。
// rctx.Votes 携带用户的投票历史，打分与过滤节点都从这里读取。
type Node interface {
	Name() string
	Kind() Kind

	Process(
		ctx context.Context,
		rctx *core.RecommendContext,
		items []*core.Item,
	) ([]*core.Item, error)
}

// NodeBuilder 根据配置构建 Node。
type NodeBuilder func(map[string]any) (Node, error)

// Func 把一个函数包装成 Node，适合一次性的整形逻辑：
//
//	pipeline.Func{NodeName: "only.open", NodeKind: pipeline.KindFilter, Fn: dropClosed}
type Func struct {
	NodeName string
	NodeKind Kind
	Fn       func(ctx context.Context, rctx *core.RecommendContext, items []*core.Item) ([]*core.Item, error)
}

func (f Func) Name() string { return f.NodeName }

// Kind 未设置时视为 postprocess。
func (f Func) Kind() Kind {
	if f.NodeKind == "" {
		return KindPostProcess
	}
	return f.NodeKind
}

func (f Func) Process(ctx context.Context, rctx *core.RecommendContext, items []*core.Item) ([]*core.Item, error) {
	if f.Fn == nil {
		return items, nil
	}
	return f.Fn(ctx, rctx, items)
}
