package votes

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plateful/recommender/core"
	"github.com/plateful/recommender/feedback"
	"github.com/plateful/recommender/store"
)

type stubCatalog map[string]*core.Item

func (c stubCatalog) List(context.Context) ([]*core.Item, error) {
	out := make([]*core.Item, 0, len(c))
	for _, it := range c {
		out = append(out, it)
	}
	return out, nil
}

func (c stubCatalog) Get(_ context.Context, id string) (*core.Item, error) {
	if it, ok := c[id]; ok {
		return it, nil
	}
	return nil, core.NewDomainError(core.ModuleCatalog, core.ErrorCodeNotFound, "not found")
}

func tickingClock() func() time.Time {
	t := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Minute)
		return t
	}
}

func newRepo(t *testing.T, opts ...Option) (*Repository, *store.MemoryStore) {
	t.Helper()
	kv := store.NewMemoryStore()
	t.Cleanup(func() { _ = kv.Close() })
	opts = append([]Option{WithClock(tickingClock())}, opts...)
	return New(kv, opts...), kv
}

func pageIDs(p *Page) []string {
	out := make([]string, 0, len(p.Content))
	for _, it := range p.Content {
		out = append(out, it.ID)
	}
	return out
}

func TestRepository_VoteLifecycle(t *testing.T) {
	ctx := context.Background()
	repo, kv := newRepo(t)

	st, err := repo.Status(ctx, "u1", "r1")
	require.NoError(t, err)
	assert.False(t, st.HasVoted)
	assert.Equal(t, core.VoteNone, st.Vote)

	require.NoError(t, repo.Upvote(ctx, "u1", "r1"))
	st, err = repo.Status(ctx, "u1", "r1")
	require.NoError(t, err)
	assert.Equal(t, Status{HasVoted: true, Vote: core.VoteUp}, st)

	// 切换为踩
	require.NoError(t, repo.Downvote(ctx, "u1", "r1"))
	st, err = repo.Status(ctx, "u1", "r1")
	require.NoError(t, err)
	assert.Equal(t, core.VoteDown, st.Vote)

	score, err := kv.ZScore(ctx, PopularKey(""), "r1")
	require.NoError(t, err)
	assert.Equal(t, -1.0, score)

	require.NoError(t, repo.RemoveVote(ctx, "u1", "r1"))
	require.NoError(t, repo.RemoveVote(ctx, "u1", "r1"))
	st, err = repo.Status(ctx, "u1", "r1")
	require.NoError(t, err)
	assert.False(t, st.HasVoted)

	score, err = kv.ZScore(ctx, PopularKey(""), "r1")
	require.NoError(t, err)
	assert.Zero(t, score)

	// 重复赞不会重复计数
	require.NoError(t, repo.Upvote(ctx, "u1", "r2"))
	require.NoError(t, repo.Upvote(ctx, "u1", "r2"))
	require.NoError(t, repo.Upvote(ctx, "u2", "r2"))
	score, err = kv.ZScore(ctx, PopularKey(""), "r2")
	require.NoError(t, err)
	assert.Equal(t, 2.0, score)
}

func TestRepository_Validation(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)

	assert.ErrorIs(t, repo.Upvote(ctx, "", "r1"), core.ErrVoteUserRequired)
	assert.ErrorIs(t, repo.Downvote(ctx, "u1", ""), core.ErrVoteItemRequired)
	assert.True(t, core.IsInvalidInput(repo.RemoveVote(ctx, "", "")))

	_, err := repo.ListUp(ctx, "", 0, 10)
	assert.ErrorIs(t, err, core.ErrVoteUserRequired)
	_, err = repo.History(ctx, "", 10)
	assert.Error(t, err)
}

func TestRepository_ListPaging(t *testing.T) {
	ctx := context.Background()
	catalog := stubCatalog{}
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("r%d", i)
		catalog[id] = &core.Item{ID: id, Name: "Restaurant " + id}
	}
	repo, _ := newRepo(t, WithCatalog(catalog), WithPrefix("test"))

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Upvote(ctx, "u1", fmt.Sprintf("r%d", i)))
	}
	require.NoError(t, repo.Upvote(ctx, "u1", "deleted"))
	require.NoError(t, repo.Downvote(ctx, "u1", "r0"))

	p, err := repo.ListUp(ctx, "u1", 0, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, p.TotalElements)
	assert.Equal(t, 3, p.TotalPages)
	// "deleted" 最新但已不在目录中，被跳过
	assert.Equal(t, []string{"r4"}, pageIDs(p))
	assert.Equal(t, "Restaurant r4", p.Content[0].Name)

	p, err = repo.ListUp(ctx, "u1", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"r3", "r2"}, pageIDs(p))

	p, err = repo.ListUp(ctx, "u1", 9, 2)
	require.NoError(t, err)
	assert.Empty(t, p.Content)

	p, err = repo.ListDown(ctx, "u1", -3, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Number)
	assert.Equal(t, []string{"r0"}, pageIDs(p))
}

func TestClampPage(t *testing.T) {
	tests := []struct{ page, size, wantPage, wantSize int }{
		{0, 10, 0, 10},
		{-1, 10, 0, 10},
		{2, 500, 2, core.MaxVotePageSize},
		{0, 0, 0, 20},
	}
	for _, tt := range tests {
		p, s := ClampPage(tt.page, tt.size)
		assert.Equal(t, tt.wantPage, p)
		assert.Equal(t, tt.wantSize, s)
	}
}

func TestRepository_History(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)

	require.NoError(t, repo.Upvote(ctx, "u1", "a"))
	require.NoError(t, repo.Upvote(ctx, "u1", "b"))
	require.NoError(t, repo.Downvote(ctx, "u1", "c"))
	require.NoError(t, repo.Upvote(ctx, "u2", "z"))

	h, err := repo.History(ctx, "u1", 200)
	require.NoError(t, err)
	require.Len(t, h.Upvoted, 2)
	require.Len(t, h.Downvoted, 1)
	assert.Equal(t, "b", h.Upvoted[0].ID)
	assert.Equal(t, "c", h.Downvoted[0].ID)

	h, err = repo.History(ctx, "nobody", 0)
	require.NoError(t, err)
	assert.Zero(t, h.Len())
}

func TestRepository_HistoryKeepsAllVotedIDs(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)

	require.NoError(t, repo.Upvote(ctx, "u1", "a"))
	require.NoError(t, repo.Upvote(ctx, "u1", "b"))
	require.NoError(t, repo.Downvote(ctx, "u1", "c"))
	require.NoError(t, repo.Upvote(ctx, "u1", "d"))
	require.NoError(t, repo.RemoveVote(ctx, "u1", "d"))

	h, err := repo.History(ctx, "u1", 1)
	require.NoError(t, err)
	assert.Len(t, h.Upvoted, 1)
	assert.Len(t, h.Downvoted, 1)
	assert.Equal(t, []string{"a", "b", "c"}, h.VotedIDs)
	assert.Len(t, h.IDs(), 3)
}

func TestRepository_RecordsFeedbackEvents(t *testing.T) {
	ctx := context.Background()
	events := feedback.NewMemoryCollector()
	repo, _ := newRepo(t, WithCollector(events))

	require.NoError(t, repo.Upvote(ctx, "u1", "r1"))
	require.NoError(t, repo.Downvote(ctx, "u1", "r1"))
	require.NoError(t, repo.RemoveVote(ctx, "u1", "r1"))
	// 没有投过票，不产生事件
	require.NoError(t, repo.RemoveVote(ctx, "u1", "r2"))

	got := events.Events()
	require.Len(t, got, 3)
	assert.Equal(t, feedback.EventVoteUp, got[0].Type)
	assert.Equal(t, feedback.EventVoteDown, got[1].Type)
	assert.Equal(t, feedback.EventVoteRemove, got[2].Type)
	for _, ev := range got {
		assert.Equal(t, "u1", ev.UserID)
		assert.Equal(t, "r1", ev.RestaurantID)
	}
}
