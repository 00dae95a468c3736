package recall

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/plateful/recommender/core"
	"github.com/plateful/recommender/logging"
	"github.com/plateful/recommender/pipeline"
	"github.com/plateful/recommender/pkg/utils"
)

// 合并策略
const (
	MergeFirst    = "first"    // 按 ID 去重，按召回源顺序保留首个
	MergePriority = "priority" // 同 ID 保留优先级更高（索引更小）的召回源结果
	MergeUnion    = "union"    // 不去重
)

// Fanout 是一个 Recall Node：并发执行多个召回源，并合并结果。
// 单个召回源失败或超时只记录日志，不影响其他召回源。
type Fanout struct {
	Sources       []Source
	Dedup         bool
	Timeout       time.Duration // 每个召回源的超时时间
	MaxConcurrent int           // 最大并发数（0 表示无限制）
	MergeStrategy string
}

func (n *Fanout) Name() string        { return "recall.fanout" }
func (n *Fanout) Kind() pipeline.Kind { return pipeline.KindRecall }

func (n *Fanout) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	if len(n.Sources) == 0 {
		return nil, nil
	}

	// 按召回源下标存放结果，保证合并顺序与并发调度无关
	results := make([][]*core.Item, len(n.Sources))
	var mu sync.Mutex

	eg, egCtx := errgroup.WithContext(ctx)
	if n.MaxConcurrent > 0 {
		eg.SetLimit(n.MaxConcurrent)
	}

	for i, src := range n.Sources {
		eg.Go(func() error {
			recallCtx := egCtx
			if n.Timeout > 0 {
				var cancel context.CancelFunc
				recallCtx, cancel = context.WithTimeout(egCtx, n.Timeout)
				defer cancel()
			}

			items, err := src.Recall(recallCtx, rctx)
			if err != nil {
				logging.Warn().Err(err).Str("source", src.Name()).Msg("recall source failed")
				return nil
			}

			for _, it := range items {
				if it == nil {
					continue
				}
				if _, ok := it.Labels["recall_source"]; !ok {
					it.PutLabel("recall_source", utils.Label{Value: src.Name(), Source: "recall"})
				}
				it.Labels["recall_priority"] = utils.Label{Value: strconv.Itoa(i), Source: "recall"}
			}

			mu.Lock()
			results[i] = items
			mu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	all := make([]*core.Item, 0)
	for _, items := range results {
		for _, it := range items {
			if it != nil {
				all = append(all, it)
			}
		}
	}

	if !n.Dedup {
		return all, nil
	}
	switch n.MergeStrategy {
	case MergeUnion:
		return all, nil
	case MergePriority:
		return mergeByPriority(all), nil
	default:
		return mergeFirst(all), nil
	}
}

// mergeFirst 按 ID 去重，保留第一个出现的，后出现的 labels 合并进来。
func mergeFirst(all []*core.Item) []*core.Item {
	seen := make(map[string]*core.Item, len(all))
	out := make([]*core.Item, 0, len(all))
	for _, it := range all {
		if old, ok := seen[it.ID]; ok {
			for k, v := range it.Labels {
				if _, exists := old.Labels[k]; !exists {
					old.PutLabel(k, v)
				}
			}
			continue
		}
		seen[it.ID] = it
		out = append(out, it)
	}
	return out
}

func priorityOf(it *core.Item) int {
	if lbl, ok := it.Labels["recall_priority"]; ok {
		if p, err := strconv.Atoi(lbl.Value); err == nil {
			return p
		}
	}
	return int(^uint(0) >> 1)
}

// mergeByPriority 相同 ID 时保留优先级更高（值更小）的条目，位置取首次出现的位置。
func mergeByPriority(all []*core.Item) []*core.Item {
	index := make(map[string]int, len(all))
	out := make([]*core.Item, 0, len(all))
	for _, it := range all {
		i, ok := index[it.ID]
		if !ok {
			index[it.ID] = len(out)
			out = append(out, it)
			continue
		}
		if priorityOf(it) < priorityOf(out[i]) {
			out[i] = it
		}
	}
	return out
}
