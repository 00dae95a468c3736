// Package settings 加载服务配置。
//
// 优先级：环境变量 > 配置文件 > 默认值。
//
//	PLATEFUL_STORE_BACKEND=redis
//	PLATEFUL_STORE_REDIS_ADDR=localhost:6379
//	PLATEFUL_RECOMMEND_LIMIT=20
//	PLATEFUL_REMOTE_BASE_URL=https://api.plateful.example
//	PLATEFUL_FEEDBACK_KAFKA_BROKERS=kafka-1:9092,kafka-2:9092
package settings

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/plateful/recommender/feedback"
	"github.com/plateful/recommender/logging"
	"github.com/plateful/recommender/recommend"
	"github.com/plateful/recommender/remote"
	"github.com/plateful/recommender/store"
)

// EnvPrefix 是环境变量前缀。
const EnvPrefix = "PLATEFUL_"

// 数据来源
const (
	SourceLocal  = "local"  // 本地存储中的投票仓库与餐厅目录
	SourceRemote = "remote" // REST 后端
)

// Settings 是服务的完整配置。
type Settings struct {
	// Source: local / remote，决定投票历史与候选餐厅的来源
	Source string `koanf:"source" validate:"required,oneof=local remote"`

	Log       logging.Config   `koanf:"log"`
	Store     store.Config     `koanf:"store"`
	Recommend recommend.Config `koanf:"recommend"`
	Remote    remote.Config    `koanf:"remote"`
	Feedback  FeedbackConfig   `koanf:"feedback"`
}

// FeedbackConfig 决定反馈事件（投票、曝光）写到哪里。
type FeedbackConfig struct {
	// Enabled 为 false 时丢弃事件
	Enabled bool                 `koanf:"enabled"`
	Kafka   feedback.KafkaConfig `koanf:"kafka"`
}

// Default 返回默认配置。
func Default() Settings {
	return Settings{
		Source: SourceLocal,
		Log: logging.Config{
			Level:  "info",
			Format: "json",
		},
		Store: store.Config{
			Backend: "memory",
			Prefix:  "plateful",
			Redis: store.RedisConfig{
				Addr:    "localhost:6379",
				Timeout: 3 * time.Second,
			},
		},
		Recommend: recommend.DefaultConfig(),
		Remote: remote.Config{
			Timeout:  10 * time.Second,
			CacheTTL: 5 * time.Minute,
		},
		Feedback: FeedbackConfig{
			Kafka: feedback.KafkaConfig{
				Topic:         "plateful.feedback",
				BatchSize:     100,
				FlushInterval: time.Second,
				RequiredAcks:  1,
			},
		},
	}
}

// Load 按 默认值 → path 指向的 YAML 文件（可为空）→ PLATEFUL_ 环境变量 的顺序加载并校验配置。
func Load(path string) (*Settings, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	s := &Settings{}
	if err := k.Unmarshal("", s); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}

// envKeys 把环境变量名（去掉前缀、小写）映射到配置路径。
// 配置项名本身含下划线，无法按 "_" 机械切分，因此显式列出。
var envKeys = map[string]string{
	"source":                      "source",
	"log_level":                   "log.level",
	"log_format":                  "log.format",
	"log_caller":                  "log.caller",
	"store_backend":               "store.backend",
	"store_prefix":                "store.prefix",
	"store_redis_addr":            "store.redis.addr",
	"store_redis_password":        "store.redis.password",
	"store_redis_db":              "store.redis.db",
	"store_redis_timeout":         "store.redis.timeout",
	"recommend_limit":             "recommend.limit",
	"recommend_page_size":         "recommend.page_size",
	"recommend_min_score":         "recommend.min_score",
	"recommend_allow_negative":    "recommend.allow_negative",
	"recommend_diagnostics_top_n": "recommend.diagnostics_top_n",
	"recommend_timeout":           "recommend.timeout",
	"recommend_pipeline":          "recommend.pipeline",
	"recommend_cold_start":        "recommend.cold_start",
	"remote_base_url":             "remote.base_url",
	"remote_token":                "remote.token",
	"remote_timeout":              "remote.timeout",
	"remote_rate":                 "remote.rate",
	"remote_burst":                "remote.burst",
	"remote_cache_ttl":            "remote.cache_ttl",
	"feedback_enabled":            "feedback.enabled",
	"feedback_kafka_topic":        "feedback.kafka.topic",
	"feedback_kafka_client_id":    "feedback.kafka.client_id",
	"feedback_kafka_compression":  "feedback.kafka.compression",
}

// envLists 是以逗号分隔的列表型配置。
var envLists = map[string]string{
	"feedback_kafka_brokers": "feedback.kafka.brokers",
}

// envTransform 返回空 key 时该变量被忽略。
func envTransform(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	if path, ok := envLists[key]; ok {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return path, out
	}
	return envKeys[key], value
}

var validate = validator.New()

// Validate 校验字段约束以及跨字段约束。
func (s *Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return err
	}
	if s.Store.Backend == "redis" && s.Store.Redis.Addr == "" {
		return errors.New("store.redis.addr is required when store.backend is redis")
	}
	if s.Source == SourceRemote && s.Remote.BaseURL == "" {
		return errors.New("remote.base_url is required when source is remote")
	}
	if s.Feedback.Enabled && (len(s.Feedback.Kafka.Brokers) == 0 || s.Feedback.Kafka.Topic == "") {
		return errors.New("feedback.kafka.brokers and feedback.kafka.topic are required when feedback is enabled")
	}
	return nil
}
