package core

import "context"

// Vote 是用户对餐厅的有符号判断：赞 = +1，踩 = -1。
type Vote int

const (
	VoteNone Vote = 0
	VoteUp   Vote = 1
	VoteDown Vote = -1
)

func (v Vote) String() string {
	switch v {
	case VoteUp:
		return "up"
	case VoteDown:
		return "down"
	default:
		return "none"
	}
}

// Weight 是该投票在偏好画像中的累加权重。
func (v Vote) Weight() float64 {
	return float64(v)
}

// ParseVote 解析 "up" / "down"，其他值返回 VoteNone。
func ParseVote(s string) Vote {
	switch s {
	case "up", "upvote", "+1":
		return VoteUp
	case "down", "downvote", "-1":
		return VoteDown
	default:
		return VoteNone
	}
}

// VoteHistory 是用户的投票历史：赞过的和踩过的餐厅。
//
// Upvoted / Downvoted 按页取回，可能被截断；VotedIDs 是来源能给出的全部已投票 ID
// （本地投票仓库会填写，远端后端只返回分页列表），用于排除已投票餐厅。
type VoteHistory struct {
	Upvoted   []*Item  `json:"upvoted"`
	Downvoted []*Item  `json:"downvoted"`
	VotedIDs  []string `json:"votedIds,omitempty"`
}

// IDs 返回赞 / 踩列表与 VotedIDs 中所有物品 ID 的并集。
func (h *VoteHistory) IDs() map[string]struct{} {
	out := make(map[string]struct{})
	if h == nil {
		return out
	}
	for _, id := range h.VotedIDs {
		out[id] = struct{}{}
	}
	for _, it := range h.Upvoted {
		if it != nil {
			out[it.ID] = struct{}{}
		}
	}
	for _, it := range h.Downvoted {
		if it != nil {
			out[it.ID] = struct{}{}
		}
	}
	return out
}

// Len 返回投票总数。
func (h *VoteHistory) Len() int {
	if h == nil {
		return 0
	}
	return len(h.Upvoted) + len(h.Downvoted)
}

// VoteSource 提供用户投票历史（本地投票仓库或远端 REST API）。
// size 是每个方向最多取回的条数。
type VoteSource interface {
	History(ctx context.Context, userID string, size int) (*VoteHistory, error)
}

// VoteStatus 是用户对某家餐厅的投票状态；计数字段只有远端后端会返回。
type VoteStatus struct {
	HasVoted      bool `json:"hasVoted"`
	Vote          Vote `json:"vote"`
	UpvoteCount   int  `json:"upvoteCount,omitempty"`
	DownvoteCount int  `json:"downvoteCount,omitempty"`
	VoteCount     int  `json:"voteCount,omitempty"`
}

// VoteRecorder 记录投票（本地投票仓库或远端 REST API）。
type VoteRecorder interface {
	Upvote(ctx context.Context, userID, restaurantID string) error
	Downvote(ctx context.Context, userID, restaurantID string) error
	RemoveVote(ctx context.Context, userID, restaurantID string) error
	Status(ctx context.Context, userID, restaurantID string) (VoteStatus, error)
}

// Catalog 是餐厅目录的只读视图，提供候选集。
type Catalog interface {
	List(ctx context.Context) ([]*Item, error)
	Get(ctx context.Context, id string) (*Item, error)
}

// Vote 模块错误
var (
	ErrVoteUserRequired = NewDomainError(ModuleVote, ErrorCodeInvalidInput, "vote: userId is required")
	ErrVoteItemRequired = NewDomainError(ModuleVote, ErrorCodeInvalidInput, "vote: restaurantId is required")
)
