package rank

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plateful/recommender/core"
)

func ids(items []*core.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestRecommend_Scenarios(t *testing.T) {
	candidates := func() []*core.Item {
		return []*core.Item{
			{ID: "2", Tags: []string{"vegan"}, Cuisine: "Thai"},
			{ID: "3", Tags: []string{"steak"}, Cuisine: "American"},
		}
	}

	tests := []struct {
		name      string
		upvoted   []*core.Item
		downvoted []*core.Item
		opts      []Option
		want      []string
	}{
		{
			name:    "shared tag and cuisine is recommended, unrelated item is not",
			upvoted: []*core.Item{{ID: "1", Tags: []string{"vegan"}, Cuisine: "Thai"}},
			want:    []string{"2"},
		},
		{
			name:      "net-disliked candidate is dropped by default",
			downvoted: []*core.Item{{ID: "4", Tags: []string{"vegan"}}},
			want:      []string{},
		},
		{
			name:      "net-disliked candidate is kept when negative scores are allowed",
			downvoted: []*core.Item{{ID: "4", Tags: []string{"vegan"}}},
			opts:      []Option{WithNegativeScores()},
			want:      []string{"2"},
		},
		{
			name:    "min score raises the bar",
			upvoted: []*core.Item{{ID: "1", Tags: []string{"vegan"}, Cuisine: "Thai"}},
			opts:    []Option{WithMinScore(5)},
			want:    []string{},
		},
		{
			name: "no history yields nothing",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Recommend(tt.upvoted, tt.downvoted, candidates(), tt.opts...)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestRecommend_ScoreBreakdown(t *testing.T) {
	up := []*core.Item{{ID: "1", Tags: []string{"vegan"}, Cuisine: "Thai"}}
	got := Recommend(up, nil, []*core.Item{{ID: "2", Tags: []string{"Vegan "}, Cuisine: "thai"}})
	require.Len(t, got, 1)

	// 1 (tag) + 1.5 (cuisine) + tie-break
	assert.InDelta(t, 2.5+TieBreak("2"), got[0].Score, 1e-12)
	assert.Equal(t, "preference", got[0].Labels["rank_model"].Value)
	assert.Equal(t, "1.0000", got[0].Labels["score_tags"].Value)
	assert.Equal(t, "1.5000", got[0].Labels["score_cuisine"].Value)
	assert.Equal(t, "0.0000", got[0].Labels["score_price"].Value)
}

func TestRecommend_PriceAffinityAlone(t *testing.T) {
	up := []*core.Item{
		{ID: "a", PriceLevel: core.PriceLevel(1)},
		{ID: "b", PriceLevel: core.PriceLevel(1)},
		{ID: "c", PriceLevel: core.PriceLevel(3)},
	}
	candidates := []*core.Item{
		{ID: "cheap", PriceLevel: core.PriceLevel(1)},
		{ID: "unpriced", Tags: []string{"new"}},
	}

	got := Recommend(up, nil, candidates)
	require.Equal(t, []string{"cheap"}, ids(got))
	assert.Greater(t, got[0].Score, 0.0)
	assert.InDelta(t, 0.75+TieBreak("cheap"), got[0].Score, 1e-12)
}

func TestRecommend_ExcludesVotedItems(t *testing.T) {
	up := []*core.Item{{ID: "1", Tags: []string{"vegan"}}, {ID: "2", Tags: []string{"vegan"}}}
	down := []*core.Item{{ID: "3", Tags: []string{"steak"}}}
	candidates := []*core.Item{
		{ID: "1", Tags: []string{"vegan"}},
		{ID: "2", Tags: []string{"vegan"}},
		{ID: "3", Tags: []string{"vegan"}},
		{ID: "4", Tags: []string{"vegan"}},
	}

	for _, opts := range [][]Option{nil, {WithNegativeScores()}, {WithLimit(100)}} {
		got := Recommend(up, down, candidates, opts...)
		assert.Equal(t, []string{"4"}, ids(got))
	}
}

func TestRecommend_Deterministic(t *testing.T) {
	up := []*core.Item{{ID: "u", Tags: []string{"pizza"}, Cuisine: "Italian", PriceLevel: core.PriceLevel(2)}}
	candidates := make([]*core.Item, 0, 40)
	for i := 0; i < 40; i++ {
		candidates = append(candidates, &core.Item{
			ID:         fmt.Sprintf("r%02d", i),
			Tags:       []string{"pizza"},
			Cuisine:    "Italian",
			PriceLevel: core.PriceLevel(1 + i%5),
		})
	}

	first := Recommend(up, nil, candidates, WithLimit(40))
	for i := 0; i < 5; i++ {
		again := Recommend(up, nil, candidates, WithLimit(40))
		assert.Equal(t, ids(first), ids(again))
	}

	// 分数单调不增（按信号分），同分时 tie-break 单调不增
	for i := 1; i < len(first); i++ {
		assert.GreaterOrEqual(t, first[i-1].Score-TieBreak(first[i-1].ID)+1e-9, first[i].Score-TieBreak(first[i].ID))
	}
}

func TestRecommend_TieBreakNeverOverridesSignal(t *testing.T) {
	up := []*core.Item{{ID: "u", PriceLevel: core.PriceLevel(1)}}
	// 档位差 3 与 4 的价格加分差约 0.008，小于 tie-break 上限
	near := &core.Item{ID: "near", PriceLevel: core.PriceLevel(4)}
	far := &core.Item{ID: "far", PriceLevel: core.PriceLevel(5)}

	for _, order := range [][]*core.Item{{near, far}, {far, near}} {
		got := Recommend(up, nil, order)
		assert.Equal(t, []string{"near", "far"}, ids(got))
	}
}

func TestRecommend_Limit(t *testing.T) {
	up := []*core.Item{{ID: "u", Tags: []string{"sushi"}}}
	candidates := make([]*core.Item, 0, 30)
	for i := 0; i < 30; i++ {
		candidates = append(candidates, &core.Item{ID: fmt.Sprintf("c%d", i), Tags: []string{"sushi"}})
	}

	assert.Len(t, Recommend(up, nil, candidates), DefaultLimit)
	assert.Len(t, Recommend(up, nil, candidates, WithLimit(3)), 3)
	assert.Empty(t, Recommend(up, nil, candidates, WithLimit(0)))
	assert.Empty(t, Recommend(up, nil, candidates, WithLimit(-5)))
	assert.Len(t, Recommend(up, nil, candidates, WithLimit(100)), 30)
}

func TestRecommend_DoesNotMutateInput(t *testing.T) {
	up := []*core.Item{{ID: "u", Tags: []string{"sushi"}}}
	cand := &core.Item{ID: "c", Tags: []string{"sushi"}}

	got := Recommend(up, nil, []*core.Item{cand, nil})
	require.Len(t, got, 1)
	assert.NotSame(t, cand, got[0])
	assert.Zero(t, cand.Score)
	assert.Nil(t, cand.Labels)
}

func TestRecommend_MalformedInputs(t *testing.T) {
	up := []*core.Item{nil, {ID: "u"}, {ID: "v", Tags: nil, Cuisine: "   "}}
	candidates := []*core.Item{nil, {ID: "x"}, {ID: "y", Tags: []string{""}}}
	assert.Empty(t, Recommend(up, nil, candidates))
	assert.Empty(t, Recommend(nil, nil, nil))
}

func TestHashID(t *testing.T) {
	assert.Equal(t, uint32(5381), HashID(""))
	assert.Equal(t, uint32(177670), HashID("a"))
	assert.Equal(t, HashID("restaurant-42"), HashID("restaurant-42"))

	assert.Zero(t, TieBreak(""))
	assert.InDelta(t, 0.0067, TieBreak("a"), 1e-12)
	for _, id := range []string{"1", "2", "abc", "64f1c2e9a1b2c3d4e5f60718"} {
		tb := TieBreak(id)
		assert.GreaterOrEqual(t, tb, 0.0)
		assert.Less(t, tb, TieBreakWeight)
	}
}

func TestPreferenceNode(t *testing.T) {
	rctx := &core.RecommendContext{
		UserID: "u1",
		Votes: &core.VoteHistory{
			Upvoted:   []*core.Item{{ID: "1", Tags: []string{"vegan"}, Cuisine: "Thai"}},
			Downvoted: []*core.Item{{ID: "9", Tags: []string{"steak"}}},
		},
	}
	items := []*core.Item{
		{ID: "1", Tags: []string{"vegan"}},
		{ID: "2", Tags: []string{"vegan"}, Cuisine: "Thai"},
		{ID: "3", Cuisine: "Thai"},
		{ID: "4", Tags: []string{"steak"}},
	}

	node := &PreferenceNode{}
	out, err := node.Process(context.Background(), rctx, items)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3"}, ids(out))

	node.AllowNegative = true
	out, err = node.Process(context.Background(), rctx, items)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3", "4"}, ids(out))

	out, err = (&PreferenceNode{}).Process(context.Background(), nil, items)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestPreferenceNode_ExcludesVotedIDs(t *testing.T) {
	rctx := &core.RecommendContext{Votes: &core.VoteHistory{
		Upvoted:  []*core.Item{{ID: "1", Tags: []string{"vegan"}}},
		VotedIDs: []string{"1", "2"},
	}}
	items := []*core.Item{
		{ID: "2", Tags: []string{"vegan"}},
		{ID: "3", Tags: []string{"vegan"}},
	}
	out, err := (&PreferenceNode{}).Process(context.Background(), rctx, items)
	require.NoError(t, err)
	assert.Equal(t, []string{"3"}, ids(out))
}
