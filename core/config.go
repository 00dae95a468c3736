package core

import "time"

// RecommendConfig 是推荐相关的配置接口，用于提供默认值。
type RecommendConfig interface {
	// DefaultLimit 返回默认推荐条数
	DefaultLimit() int

	// DefaultVotePageSize 返回拉取投票历史时每个方向的条数
	DefaultVotePageSize() int

	// DefaultDiagnosticsTopN 返回画像诊断中 top 标签 / 菜系的个数
	DefaultDiagnosticsTopN() int

	// DefaultTimeout 返回默认的超时时间
	DefaultTimeout() time.Duration
}

// DefaultRecommendConfig 是默认的推荐配置实现。
type DefaultRecommendConfig struct{}

func (c *DefaultRecommendConfig) DefaultLimit() int {
	return 12
}

func (c *DefaultRecommendConfig) DefaultVotePageSize() int {
	return 100
}

func (c *DefaultRecommendConfig) DefaultDiagnosticsTopN() int {
	return 10
}

func (c *DefaultRecommendConfig) DefaultTimeout() time.Duration {
	return 5 * time.Second
}

// MaxVotePageSize 是投票列表单页的上限（与后端 Math.min(100, size) 一致）。
const MaxVotePageSize = 100

// BrowseHistoryLimit 是浏览历史保留的最大条数。
const BrowseHistoryLimit = 50
