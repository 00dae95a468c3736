package builders_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plateful/recommender/config"
	"github.com/plateful/recommender/config/builders"
	"github.com/plateful/recommender/core"
	"github.com/plateful/recommender/pipeline"
)

type stubCatalog struct{ items []*core.Item }

func (c *stubCatalog) List(context.Context) ([]*core.Item, error) { return c.items, nil }

func (c *stubCatalog) Get(_ context.Context, id string) (*core.Item, error) {
	for _, it := range c.items {
		if it.ID == id {
			return it, nil
		}
	}
	return nil, core.NewDomainError(core.ModuleCatalog, core.ErrorCodeNotFound, "not found")
}

const pipelineYAML = `
pipeline:
  name: restaurants
  nodes:
    - type: recall.fanout
      config:
        sources:
          - type: catalog
          - type: popular
            top_n: 10
        merge_strategy: priority
        timeout: 1
    - type: filter
      config:
        filters:
          - type: voted
          - type: blacklist
            item_ids: ["closed"]
          - type: expr
            expr: 'item.has_price && item.price_level > 4'
    - type: rank.preference
    - type: rerank.diversity
      config:
        max_per: 2
    - type: rerank.topn
      config:
        n: 2
`

func TestBuildPipelineFromYAML(t *testing.T) {
	builders.Use(builders.Resources{Catalog: &stubCatalog{items: []*core.Item{
		{ID: "liked", Tags: []string{"vegan"}, Cuisine: "Thai"},
		{ID: "a", Tags: []string{"vegan"}, Cuisine: "Thai"},
		{ID: "b", Tags: []string{"vegan"}},
		{ID: "closed", Tags: []string{"vegan"}, Cuisine: "Thai"},
		{ID: "lux", Tags: []string{"vegan"}, Cuisine: "Thai", PriceLevel: core.PriceLevel(5)},
		{ID: "c", Cuisine: "Thai"},
	}}})
	t.Cleanup(func() { builders.Use(builders.Resources{}) })

	cfg, err := pipeline.ParseYAML([]byte(pipelineYAML))
	require.NoError(t, err)
	require.NoError(t, config.ValidatePipelineConfig(cfg))

	p, err := cfg.BuildPipeline(config.DefaultFactory())
	require.NoError(t, err)
	require.Len(t, p.Nodes, 5)

	rctx := &core.RecommendContext{
		UserID: "u1",
		Votes:  &core.VoteHistory{Upvoted: []*core.Item{{ID: "liked", Tags: []string{"vegan"}, Cuisine: "Thai"}}},
	}
	out, err := p.Run(context.Background(), rctx, nil)
	require.NoError(t, err)

	got := make([]string, 0, len(out))
	for _, it := range out {
		got = append(got, it.ID)
	}
	assert.Equal(t, []string{"a", "c"}, got)
}

func TestBuilders_Errors(t *testing.T) {
	builders.Use(builders.Resources{})
	factory := config.DefaultFactory()

	_, err := factory.Build("recall.catalog", nil)
	assert.Error(t, err)

	_, err = factory.Build("filter", map[string]any{"filters": []any{map[string]any{"type": "viewed"}}})
	assert.Error(t, err)

	_, err = factory.Build("filter", map[string]any{"filters": []any{map[string]any{"type": "nope"}}})
	assert.Error(t, err)

	_, err = factory.Build("filter", map[string]any{"filters": []any{map[string]any{"type": "expr", "expr": "item.id =="}}})
	assert.Error(t, err)

	_, err = factory.Build("recall.fanout", map[string]any{})
	assert.Error(t, err)

	node, err := factory.Build("rerank.topn", nil)
	require.NoError(t, err)
	assert.Equal(t, "rerank.topn", node.Name())
}

func TestExamplePipelineFile(t *testing.T) {
	cfg, err := pipeline.LoadFromYAML("../../examples/pipeline.yaml")
	require.NoError(t, err)
	require.NoError(t, config.ValidatePipelineConfig(cfg))

	builders.Use(builders.Resources{
		Catalog: &stubCatalog{},
		History: stubHistory{},
	})
	t.Cleanup(func() { builders.Use(builders.Resources{}) })

	p, err := cfg.BuildPipeline(config.DefaultFactory())
	require.NoError(t, err)
	assert.Equal(t, "restaurants", p.Name)
	assert.Len(t, p.Nodes, 5)
}

type stubHistory struct{}

func (stubHistory) BrowseHistory(context.Context, string) ([]core.HistoryEntry, error) {
	return nil, nil
}

type stubPopular struct{ items []*core.Item }

func (p stubPopular) Popular(context.Context) ([]*core.Item, error) { return p.items, nil }

func TestBuildPopularNode_FromLister(t *testing.T) {
	builders.Use(builders.Resources{
		Catalog: &stubCatalog{items: []*core.Item{{ID: "local"}}},
		Popular: stubPopular{items: []*core.Item{{ID: "b"}, {ID: "a"}, {ID: "c"}}},
	})
	t.Cleanup(func() { builders.Use(builders.Resources{}) })

	node, err := config.DefaultFactory().Build("recall.popular", map[string]any{"top_n": 2})
	require.NoError(t, err)

	out, err := node.Process(context.Background(), &core.RecommendContext{}, nil)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].ID)
	assert.Equal(t, "a", out[1].ID)
}
