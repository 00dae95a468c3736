package recall

import (
	"context"
	"sort"

	"github.com/plateful/recommender/core"
	"github.com/plateful/recommender/logging"
	"github.com/plateful/recommender/pipeline"
	"github.com/plateful/recommender/pkg/utils"
)

// DefaultPopularTopN 是热门召回默认返回的条数。
const DefaultPopularTopN = 100

// Popular 是热门召回源：按净票数（赞 - 踩）取 TopN 餐厅，用于冷启动用户。
//   - Store + Key 不为空时，从有序集合读取（votes.Repository 投票时维护该集合）
//   - 有序集合为空或读取失败时，退化为对目录按 VoteCount 排序
type Popular struct {
	Store   core.KeyValueStore
	Key     string
	Catalog core.Catalog
	TopN    int
}

func (r *Popular) Name() string        { return "recall.popular" }
func (r *Popular) Kind() pipeline.Kind { return pipeline.KindRecall }

func (r *Popular) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

func (r *Popular) topN() int {
	if r.TopN <= 0 {
		return DefaultPopularTopN
	}
	return r.TopN
}

func (r *Popular) Recall(ctx context.Context, _ *core.RecommendContext) ([]*core.Item, error) {
	if r.Catalog == nil {
		return nil, nil
	}

	out, err := r.fromStore(ctx)
	if err != nil {
		logging.Warn().Err(err).Str("key", r.Key).Msg("popular: sorted set unavailable, falling back to catalog")
	}
	if len(out) == 0 {
		out, err = r.fromCatalog(ctx)
		if err != nil {
			return nil, err
		}
	}

	for _, it := range out {
		it.PutLabel("recall_source", utils.Label{Value: r.Name(), Source: "recall"})
	}
	return out, nil
}

func (r *Popular) fromStore(ctx context.Context) ([]*core.Item, error) {
	if r.Store == nil || r.Key == "" {
		return nil, nil
	}
	ids, err := r.Store.ZRange(ctx, r.Key, 0, int64(r.topN()-1))
	if err != nil {
		return nil, err
	}

	out := make([]*core.Item, 0, len(ids))
	for _, id := range ids {
		it, err := r.Catalog.Get(ctx, id)
		if err != nil {
			if core.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		out = append(out, it.Clone())
	}
	return out, nil
}

func (r *Popular) fromCatalog(ctx context.Context) ([]*core.Item, error) {
	items, err := r.Catalog.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it != nil {
			out = append(out, it.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].VoteCount() != out[j].VoteCount() {
			return out[i].VoteCount() > out[j].VoteCount()
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > r.topN() {
		out = out[:r.topN()]
	}
	return out, nil
}

// PopularLister 提供已经排好序的热门餐厅，remote.Client 满足该接口（GET /api/restaurants/popular）。
type PopularLister interface {
	Popular(ctx context.Context) ([]*core.Item, error)
}

// ListedPopular 是以 PopularLister 为来源的热门召回：保持来源顺序，截断到 TopN。
// 远端模式下替代 Popular，热门榜由后端统计。
type ListedPopular struct {
	Source PopularLister
	TopN   int
}

func (r *ListedPopular) Name() string        { return "recall.popular" }
func (r *ListedPopular) Kind() pipeline.Kind { return pipeline.KindRecall }

func (r *ListedPopular) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

func (r *ListedPopular) Recall(ctx context.Context, _ *core.RecommendContext) ([]*core.Item, error) {
	if r.Source == nil {
		return nil, nil
	}
	items, err := r.Source.Popular(ctx)
	if err != nil {
		return nil, err
	}

	topN := r.TopN
	if topN <= 0 {
		topN = DefaultPopularTopN
	}
	out := make([]*core.Item, 0, min(len(items), topN))
	for _, it := range items {
		if it == nil {
			continue
		}
		if len(out) >= topN {
			break
		}
		c := it.Clone()
		c.PutLabel("recall_source", utils.Label{Value: r.Name(), Source: "recall"})
		out = append(out, c)
	}
	return out, nil
}
