package filter

import (
	"context"

	"github.com/plateful/recommender/core"
	"github.com/plateful/recommender/logging"
	"github.com/plateful/recommender/pipeline"
)

// FilterNode 依次应用 Filters，任一命中即剔除。
// 过滤器出错（加载数据失败或单条判断失败）时记录告警并跳过该过滤器，不中断推荐。
type FilterNode struct {
	Filters []Filter
}

func (n *FilterNode) Name() string {
	return "filter.node"
}

func (n *FilterNode) Kind() pipeline.Kind {
	return pipeline.KindFilter
}

type check struct {
	name  string
	match Matcher
	f     Filter
}

// prepare 为每个过滤器准备本次请求的判定；Prepare 失败的过滤器被跳过。
func (n *FilterNode) prepare(ctx context.Context, rctx *core.RecommendContext) []check {
	checks := make([]check, 0, len(n.Filters))
	for _, f := range n.Filters {
		p, ok := f.(Preparer)
		if !ok {
			checks = append(checks, check{name: f.Name(), f: f})
			continue
		}
		m, err := p.Prepare(ctx, rctx)
		if err != nil {
			logging.Warn().Err(err).Str("filter", f.Name()).Msg("filter unavailable, skipping")
			continue
		}
		checks = append(checks, check{name: f.Name(), match: m})
	}
	return checks
}

func (n *FilterNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(n.Filters) == 0 || len(items) == 0 {
		return items, nil
	}

	checks := n.prepare(ctx, rctx)
	out := make([]*core.Item, 0, len(items))
	dropped := make(map[string]int, len(checks))

	for _, item := range items {
		if item == nil {
			continue
		}
		if reason := n.firstMatch(ctx, rctx, checks, item); reason != "" {
			dropped[reason]++
			continue
		}
		out = append(out, item)
	}

	if len(dropped) > 0 {
		ev := logging.Debug().Int("kept", len(out))
		for name, cnt := range dropped {
			ev = ev.Int(name, cnt)
		}
		ev.Msg("restaurants filtered")
	}
	return out, nil
}

func (n *FilterNode) firstMatch(ctx context.Context, rctx *core.RecommendContext, checks []check, item *core.Item) string {
	for _, c := range checks {
		if c.match != nil {
			if c.match(item) {
				return c.name
			}
			continue
		}
		hit, err := c.f.ShouldFilter(ctx, rctx, item)
		if err != nil {
			logging.Warn().Err(err).Str("filter", c.name).Str("restaurant", item.ID).Msg("filter failed, skipping")
			continue
		}
		if hit {
			return c.name
		}
	}
	return ""
}
