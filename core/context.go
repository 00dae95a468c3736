package core

import "github.com/plateful/recommender/pkg/utils"

// RecommendContext 承载用户/场景/请求信息，贯穿整个 Pipeline 透传。
type RecommendContext struct {
	UserID string
	Scene  string

	// Votes 是用户的历史投票（赞 / 踩），由调用方在运行 Pipeline 前取好
	Votes *VoteHistory

	// Labels 是用户级标签，可驱动整个 Pipeline 行为
	Labels map[string]utils.Label

	// Params 请求级参数，例如 limit / city
	Params map[string]any
}

// VotedIDs 返回已投票物品 ID 集合；Votes 为空时返回空集合。
func (rctx *RecommendContext) VotedIDs() map[string]struct{} {
	if rctx == nil || rctx.Votes == nil {
		return map[string]struct{}{}
	}
	return rctx.Votes.IDs()
}

// PutLabel 写入用户级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取用户级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}

// Param 读取请求参数，不存在时返回 nil。
func (rctx *RecommendContext) Param(key string) any {
	if rctx == nil || rctx.Params == nil {
		return nil
	}
	return rctx.Params[key]
}
