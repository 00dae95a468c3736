package recall

import (
	"context"

	"github.com/plateful/recommender/core"
	"github.com/plateful/recommender/pipeline"
	"github.com/plateful/recommender/pkg/utils"
)

// CatalogRecall 把整个餐厅目录作为候选集。
// 餐厅规模在数百到数千，全量打分即可，不需要向量检索等近似召回。
// 返回的是目录条目的副本，后续节点可以放心修改 Score / Labels。
type CatalogRecall struct {
	Catalog core.Catalog
}

func (r *CatalogRecall) Name() string        { return "recall.catalog" }
func (r *CatalogRecall) Kind() pipeline.Kind { return pipeline.KindRecall }

func (r *CatalogRecall) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

func (r *CatalogRecall) Recall(ctx context.Context, _ *core.RecommendContext) ([]*core.Item, error) {
	if r.Catalog == nil {
		return nil, nil
	}
	items, err := r.Catalog.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		c := it.Clone()
		c.PutLabel("recall_source", utils.Label{Value: r.Name(), Source: "recall"})
		out = append(out, c)
	}
	return out, nil
}
