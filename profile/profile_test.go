package profile

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plateful/recommender/core"
)

func TestBuild(t *testing.T) {
	tests := []struct {
		name        string
		upvoted     []*core.Item
		downvoted   []*core.Item
		wantTags    map[string]float64
		wantCuisine map[string]float64
		wantMedian  *int
	}{
		{
			name:        "nil inputs give empty profile",
			wantTags:    map[string]float64{},
			wantCuisine: map[string]float64{},
		},
		{
			name: "keys are trimmed and lowercased",
			upvoted: []*core.Item{
				{ID: "1", Tags: []string{" Vegan", "vegan ", "", "   "}, Cuisine: " THAI "},
			},
			wantTags:    map[string]float64{"vegan": 2},
			wantCuisine: map[string]float64{"thai": 1},
		},
		{
			name: "downvotes subtract and sums are not averaged",
			upvoted: []*core.Item{
				{ID: "1", Tags: []string{"vegan"}, Cuisine: "Thai"},
				{ID: "2", Tags: []string{"vegan", "spicy"}, Cuisine: "Thai"},
			},
			downvoted: []*core.Item{
				{ID: "3", Tags: []string{"spicy"}, Cuisine: "Thai"},
				nil,
			},
			wantTags:    map[string]float64{"vegan": 2, "spicy": 0},
			wantCuisine: map[string]float64{"thai": 1},
		},
		{
			name: "median uses upper middle of upvoted prices only",
			upvoted: []*core.Item{
				{ID: "1", PriceLevel: core.PriceLevel(1)},
				{ID: "2", PriceLevel: core.PriceLevel(3)},
				{ID: "3"},
				{ID: "4", PriceLevel: core.PriceLevel(2)},
				{ID: "5", PriceLevel: core.PriceLevel(4)},
			},
			downvoted: []*core.Item{
				{ID: "6", PriceLevel: core.PriceLevel(5)},
			},
			wantTags:    map[string]float64{},
			wantCuisine: map[string]float64{},
			wantMedian:  core.PriceLevel(3),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Build(tt.upvoted, tt.downvoted)
			assert.Equal(t, tt.wantTags, p.TagScore)
			assert.Equal(t, tt.wantCuisine, p.CuisineScore)
			assert.Equal(t, tt.wantMedian, p.MedianPrice)
		})
	}
}

func TestBuild_MedianOfOneOneThree(t *testing.T) {
	p := Build([]*core.Item{
		{ID: "a", PriceLevel: core.PriceLevel(1)},
		{ID: "b", PriceLevel: core.PriceLevel(1)},
		{ID: "c", PriceLevel: core.PriceLevel(3)},
	}, nil)
	require.NotNil(t, p.MedianPrice)
	assert.Equal(t, 1, *p.MedianPrice)
}

func TestPriceBonus(t *testing.T) {
	p := &Profile{MedianPrice: core.PriceLevel(2)}

	assert.InDelta(t, PriceWeight, p.PriceBonus(2), 1e-12)
	assert.InDelta(t, PriceWeight*math.Exp(-0.5), p.PriceBonus(3), 1e-12)
	assert.InDelta(t, PriceWeight*math.Exp(-0.5), p.PriceBonus(1), 1e-12)
	assert.Less(t, p.PriceBonus(5), 0.01)

	none := &Profile{}
	assert.Zero(t, none.PriceBonus(2))
}

func TestDiagnostics(t *testing.T) {
	p := Build([]*core.Item{
		{ID: "1", Tags: []string{"vegan", "cheap", "brunch"}, Cuisine: "Thai"},
		{ID: "2", Tags: []string{"vegan"}, Cuisine: "Italian"},
	}, []*core.Item{
		{ID: "3", Tags: []string{"cheap"}},
	})

	d := p.Diagnostics(2)
	assert.Equal(t, []Entry{{Key: "vegan", Score: 2}, {Key: "brunch", Score: 1}}, d.TopTags)
	assert.Equal(t, []Entry{{Key: "italian", Score: 1}, {Key: "thai", Score: 1}}, d.TopCuisines)
	assert.Equal(t, 0.0, d.TagScore["cheap"])

	// 诊断输出不共享画像内部的 map
	d.TagScore["vegan"] = 100
	assert.Equal(t, 2.0, p.TagScore["vegan"])
}

func TestEmpty(t *testing.T) {
	assert.True(t, Build(nil, nil).Empty())
	assert.False(t, Build([]*core.Item{{ID: "1", PriceLevel: core.PriceLevel(2)}}, nil).Empty())
}
