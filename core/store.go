package core

import "context"

// Store 是存储的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（store）实现
//   - 投票仓库、餐厅目录、用户数据仓库都只依赖此接口
//
// 实现：
//   - store.MemoryStore（测试 / 单机）
//   - store.RedisStore（生产）
type Store interface {
	// Name 返回存储后端名称（用于日志/监控）
	Name() string

	Get(ctx context.Context, key string) ([]byte, error)

	// Set 写入单个 key-value，ttl 单位为秒
	Set(ctx context.Context, key string, value []byte, ttl ...int) error

	Delete(ctx context.Context, key string) error

	// BatchGet 批量读取，不存在的 key 不出现在结果中
	BatchGet(ctx context.Context, keys []string) (map[string][]byte, error)

	BatchSet(ctx context.Context, kvs map[string][]byte, ttl ...int) error

	Close() error
}

// KeyValueStore 是 Store 的扩展接口，支持有序集合与哈希表。
//
//   - 有序集合（SortedSet）：热门餐厅按净票数排序
//   - 哈希表（Hash）：餐厅目录、用户数据
//
// 如果后端不支持某些操作，可返回 ErrStoreNotSupported。
type KeyValueStore interface {
	Store

	// ZAdd 向有序集合添加成员
	ZAdd(ctx context.Context, key string, score float64, member string) error

	// ZIncrBy 为有序集合成员累加分数
	ZIncrBy(ctx context.Context, key string, increment float64, member string) error

	// ZRange 按分数降序获取有序集合成员（用于 TopN 召回）
	ZRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	ZScore(ctx context.Context, key string, member string) (float64, error)

	HGet(ctx context.Context, key, field string) ([]byte, error)

	HSet(ctx context.Context, key, field string, value []byte) error

	HDel(ctx context.Context, key, field string) error

	HGetAll(ctx context.Context, key string) (map[string][]byte, error)
}

// Store 错误定义（使用统一的 DomainError）
var (
	ErrStoreNotFound     = NewDomainError(ModuleStore, ErrorCodeNotFound, "store: key not found")
	ErrStoreNotSupported = NewDomainError(ModuleStore, ErrorCodeNotSupported, "store: operation not supported")
)

// IsStoreNotFound 检查错误是否为 key 不存在
func IsStoreNotFound(err error) bool {
	domainErr := GetDomainError(err)
	return domainErr != nil && domainErr.Module == ModuleStore && domainErr.Code == ErrorCodeNotFound
}

// IsStoreNotSupported 检查错误是否为操作不支持
func IsStoreNotSupported(err error) bool {
	domainErr := GetDomainError(err)
	return domainErr != nil && domainErr.Module == ModuleStore && domainErr.Code == ErrorCodeNotSupported
}
