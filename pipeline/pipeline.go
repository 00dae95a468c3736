package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/plateful/recommender/core"
	"github.com/plateful/recommender/logging"
	"github.com/plateful/recommender/metrics"
)

// Pipeline 把推荐逻辑拆成可组合的 Node 链：Recall → Filter → Rank → ReRank。
type Pipeline struct {
	Name  string
	Nodes []Node
}

// Run 依次执行每个 Node，上一个 Node 的输出是下一个的输入；任一 Node 出错即停止。
func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cur := items
	for _, node := range p.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		next, err := node.Process(ctx, rctx, cur)
		elapsed := time.Since(start)
		metrics.PipelineNodeDuration.WithLabelValues(node.Name(), string(node.Kind())).Observe(elapsed.Seconds())

		if err != nil {
			metrics.PipelineNodeErrors.WithLabelValues(node.Name()).Inc()
			return nil, fmt.Errorf("node %s: %w", node.Name(), err)
		}

		logging.Debug().
			Str("pipeline", p.Name).
			Str("node", node.Name()).
			Str("kind", string(node.Kind())).
			Int("in", len(cur)).
			Int("out", len(next)).
			Dur("elapsed", elapsed).
			Msg("node processed")
		cur = next
	}
	return cur, nil
}
