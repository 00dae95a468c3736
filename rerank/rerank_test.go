package rerank

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plateful/recommender/core"
	"github.com/plateful/recommender/pkg/utils"
)

func itemIDs(items []*core.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestTopNNode(t *testing.T) {
	items := []*core.Item{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	tests := []struct {
		n    int
		want []string
	}{
		{0, []string{"1", "2", "3"}},
		{-1, []string{"1", "2", "3"}},
		{2, []string{"1", "2"}},
		{10, []string{"1", "2", "3"}},
	}
	for _, tt := range tests {
		out, err := (&TopNNode{N: tt.n}).Process(context.Background(), nil, items)
		require.NoError(t, err)
		assert.Equal(t, tt.want, itemIDs(out))
	}
}

func TestTopNNode_Paging(t *testing.T) {
	items := []*core.Item{{ID: "1"}, {ID: "2"}, {ID: "3"}, {ID: "4"}}
	ctx := context.Background()

	out, err := (&TopNNode{N: 2, Offset: 1}).Process(ctx, nil, items)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3"}, itemIDs(out))

	out, err = (&TopNNode{N: 2, Offset: 10}).Process(ctx, nil, items)
	require.NoError(t, err)
	assert.Empty(t, out)

	// 请求参数覆盖节点配置
	rctx := &core.RecommendContext{Params: map[string]any{ParamLimit: 1, ParamOffset: "2"}}
	out, err = (&TopNNode{N: 3}).Process(ctx, rctx, items)
	require.NoError(t, err)
	assert.Equal(t, []string{"3"}, itemIDs(out))

	rctx.Params = map[string]any{ParamOffset: -5}
	out, err = (&TopNNode{N: 2}).Process(ctx, rctx, items)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, itemIDs(out))
}

func TestDiversity_ByCuisine(t *testing.T) {
	items := []*core.Item{
		{ID: "t1", Cuisine: "Thai"},
		{ID: "t2", Cuisine: "thai "},
		{ID: "i1", Cuisine: "Italian"},
		{ID: "t3", Cuisine: "Thai"},
		{ID: "x", Cuisine: ""},
		nil,
	}

	out, err := (&Diversity{}).Process(context.Background(), nil, items)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "i1", "x", "t2", "t3"}, itemIDs(out))

	out, err = (&Diversity{MaxPer: 2}).Process(context.Background(), nil, items)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2", "i1", "x", "t3"}, itemIDs(out))

	out, err = (&Diversity{Drop: true}).Process(context.Background(), nil, items)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "i1", "x"}, itemIDs(out))
}

func TestDiversity_ByLabelAndMeta(t *testing.T) {
	a := &core.Item{ID: "a"}
	a.PutLabel("recall_source", utils.Label{Value: "recall.popular"})
	b := &core.Item{ID: "b"}
	b.PutLabel("recall_source", utils.Label{Value: "recall.popular"})
	c := &core.Item{ID: "c", Meta: map[string]any{"recall_source": "recall.catalog"}}

	out, err := (&Diversity{Key: "recall_source", Drop: true}).Process(context.Background(), nil, []*core.Item{a, b, c})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, itemIDs(out))
}
