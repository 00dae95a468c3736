package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalog = `
- id: "1"
  name: Green Bowl
  cuisine: Thai
  tags: [vegan, spicy]
  price_level: 2
- id: "2"
  name: Lotus Garden
  cuisine: Thai
  tags: [vegan]
  price_level: 2
- id: "3"
  name: Smokehouse
  cuisine: American
  tags: [bbq]
  price_level: 3
- id: "4"
  name: Curry Leaf
  cuisine: Indian
  tags: [spicy]
  price_level: 1
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// execute 在内存存储上运行一条命令并返回 stdout。
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("PLATEFUL_LOG_LEVEL", "disabled")
	t.Setenv("PLATEFUL_STORE_BACKEND", "memory")

	// 包级 flag 变量与 Changed 状态在多次 Execute 之间保留
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRecommendCommand(t *testing.T) {
	seed := writeFile(t, "restaurants.yaml", testCatalog)

	out, err := execute(t, "recommend", "--seed", seed, "--user", "u1", "--upvote", "1", "--downvote", "3")
	require.NoError(t, err)

	var res struct {
		UserID string `json:"userId"`
		Items  []struct {
			ID    string  `json:"id"`
			Score float64 `json:"score"`
		} `json:"items"`
		Upvoted   int `json:"upvoted"`
		Downvoted int `json:"downvoted"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "u1", res.UserID)
	assert.Equal(t, 1, res.Upvoted)
	assert.Equal(t, 1, res.Downvoted)
	require.NotEmpty(t, res.Items)
	// 同菜系、同标签、同价位的 Lotus Garden 排第一
	assert.Equal(t, "2", res.Items[0].ID)
	for _, it := range res.Items {
		assert.NotContains(t, []string{"1", "3"}, it.ID, "voted restaurants are excluded")
		assert.Greater(t, it.Score, 0.0)
	}
}

func TestSeedAndCuisinesCommands(t *testing.T) {
	seed := writeFile(t, "restaurants.yaml", testCatalog)

	out, err := execute(t, "seed", "--file", seed)
	require.NoError(t, err)
	var seeded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &seeded))
	assert.EqualValues(t, 4, seeded["seeded"])

	out, err = execute(t, "cuisines", "--seed", seed)
	require.NoError(t, err)
	var cuisines []string
	require.NoError(t, json.Unmarshal([]byte(out), &cuisines))
	assert.Equal(t, []string{"American", "Indian", "Thai"}, cuisines)
}

func TestVoteCommand(t *testing.T) {
	seed := writeFile(t, "restaurants.yaml", testCatalog)

	out, err := execute(t, "vote", "down", "2", "--user", "u1", "--seed", seed)
	require.NoError(t, err)

	var st struct {
		HasVoted bool `json:"hasVoted"`
		Vote     int  `json:"vote"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.True(t, st.HasVoted)
	assert.Equal(t, -1, st.Vote)

	_, err = execute(t, "vote", "list", "--user", "u1", "--direction", "sideways")
	assert.Error(t, err)
}

func TestBlacklistCommand(t *testing.T) {
	out, err := execute(t, "blacklist", "add", "r-2", "r-1", "r-2")
	require.NoError(t, err)
	var ids []string
	require.NoError(t, json.Unmarshal([]byte(out), &ids))
	assert.Equal(t, []string{"r-1", "r-2"}, ids)

	out, err = execute(t, "blacklist", "remove", "r-1", "--key", "custom:blacklist")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &ids))
	assert.Empty(t, ids)

	_, err = execute(t, "blacklist", "add")
	assert.Error(t, err)
}

func TestFavoritesCommand(t *testing.T) {
	seed := writeFile(t, "restaurants.yaml", testCatalog)

	out, err := execute(t, "favorites", "add", "4", "--user", "u1", "--seed", seed)
	require.NoError(t, err)

	var fav struct {
		ID           string `json:"id"`
		RestaurantID string `json:"restaurantId"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &fav))
	assert.NotEmpty(t, fav.ID)
	assert.Equal(t, "4", fav.RestaurantID)

	_, err = execute(t, "favorites", "add", "missing", "--user", "u1", "--seed", seed)
	assert.Error(t, err)
}

func TestInvalidSettings(t *testing.T) {
	t.Setenv("PLATEFUL_SOURCE", "remote")
	_, err := execute(t, "cuisines")
	assert.Error(t, err)
}

// fakeBackend 是最小的 REST 后端：记录投票，热门榜固定，用户还没有投票列表。
func fakeBackend(t *testing.T) (*httptest.Server, func() []string) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []string
	)
	record := func(r *http.Request) {
		mu.Lock()
		calls = append(calls, r.Method+" "+r.URL.Path)
		mu.Unlock()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/restaurants/{id}/upvote", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		_, _ = w.Write([]byte(`{"message":"Upvoted successfully","upvoteCount":1}`))
	})
	mux.HandleFunc("GET /api/restaurants/{id}/vote-status", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		assert.Equal(t, "u1", r.URL.Query().Get("userId"))
		_, _ = w.Write([]byte(`{"hasVoted":true,"voteType":"UPVOTE","upvoteCount":1}`))
	})
	mux.HandleFunc("GET /api/me/votes/{direction}", func(w http.ResponseWriter, r *http.Request) {
		record(r)
	})
	mux.HandleFunc("GET /api/restaurants", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		_, _ = w.Write([]byte(`[{"id":"1","name":"Green Bowl"},{"id":"2","name":"Lotus Garden"},{"id":"3","name":"Smokehouse"}]`))
	})
	mux.HandleFunc("GET /api/restaurants/popular", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		_, _ = w.Write([]byte(`[{"id":"3","name":"Smokehouse"},{"id":"1","name":"Green Bowl"}]`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), calls...)
	}
}

func TestRemoteSource(t *testing.T) {
	srv, calls := fakeBackend(t)
	t.Setenv("PLATEFUL_SOURCE", "remote")
	t.Setenv("PLATEFUL_REMOTE_BASE_URL", srv.URL)
	t.Setenv("PLATEFUL_REMOTE_TOKEN", "secret")

	out, err := execute(t, "vote", "up", "2", "--user", "u1")
	require.NoError(t, err)
	var st struct {
		HasVoted    bool `json:"hasVoted"`
		Vote        int  `json:"vote"`
		UpvoteCount int  `json:"upvoteCount"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.True(t, st.HasVoted)
	assert.Equal(t, 1, st.Vote)
	assert.Equal(t, 1, st.UpvoteCount)
	assert.Contains(t, calls(), "POST /api/restaurants/2/upvote")

	out, err = execute(t, "recommend", "--user", "u1", "--cold-start")
	require.NoError(t, err)
	var res struct {
		ColdStart bool `json:"coldStart"`
		Items     []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.ColdStart)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "3", res.Items[0].ID)
	assert.Contains(t, calls(), "GET /api/restaurants/popular")
}

func TestRecommendCommand_ExplicitZeroLimit(t *testing.T) {
	seed := writeFile(t, "restaurants.yaml", testCatalog)

	out, err := execute(t, "recommend", "--seed", seed, "--user", "u1", "--upvote", "1", "--limit", "0")
	require.NoError(t, err)
	var res struct {
		Items []json.RawMessage `json:"items"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Empty(t, res.Items)
}
