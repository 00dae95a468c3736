// Package store 提供 core.Store / core.KeyValueStore 的实现。
//
// 接口定义在 core 包，此包只包含实现：
//
//	var s core.KeyValueStore = store.NewMemoryStore()
//	s, err := store.NewRedisStore(store.RedisConfig{Addr: "localhost:6379"})
//
// 投票仓库、餐厅目录、用户数据仓库、热门召回都只依赖接口，后端可按配置切换。
package store

import (
	"fmt"

	"github.com/plateful/recommender/core"
)

// Config 是存储后端配置。
type Config struct {
	// Backend: memory / redis，默认 memory
	Backend string `koanf:"backend" validate:"omitempty,oneof=memory redis"`

	// Prefix 是所有 key 的命名空间前缀
	Prefix string `koanf:"prefix"`

	Redis RedisConfig `koanf:"redis"`
}

// New 按配置创建存储后端。
func New(cfg Config) (core.KeyValueStore, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(cfg.Redis)
	default:
		return nil, fmt.Errorf("store: unknown backend %q", cfg.Backend)
	}
}
