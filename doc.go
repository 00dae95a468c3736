// Package recommender 是 Plateful 的餐厅偏好推荐器。
//
// 设计要点：
// - Pipeline-first: 推荐逻辑通过 Node 串联（Recall → Filter → Rank → ReRank）
// - Profile-based: 由用户的赞 / 踩构建标签、菜系、价位偏好画像，对候选餐厅打分
// - Labels-first: labels 全链路透传，记录召回来源与排序模型，便于解释与观测
package recommender

import "github.com/plateful/recommender/pipeline"

// 轻量 facade：便于直接 import 根包使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRecall = pipeline.KindRecall
	KindFilter = pipeline.KindFilter
	KindRank   = pipeline.KindRank
	KindReRank = pipeline.KindReRank
)
