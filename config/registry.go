// Package config 维护配置驱动 Pipeline 的 Node 类型注册表，并在构建前校验配置。
//
// 内置 Node 由 config/builders 在 init 中注册，入口处需要：
//
//	import _ "github.com/plateful/recommender/config/builders"
package config

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/plateful/recommender/pipeline"
)

// NodeBuilder 根据 config 构建 Node。
type NodeBuilder = pipeline.NodeBuilder

type registration struct {
	kind    pipeline.Kind
	builder NodeBuilder
}

var (
	registry   = make(map[string]registration)
	registryMu sync.RWMutex
)

// stageOrder 是各阶段在一条 Pipeline 中的先后顺序。
var stageOrder = map[pipeline.Kind]int{
	pipeline.KindRecall:      0,
	pipeline.KindFilter:      1,
	pipeline.KindRank:        2,
	pipeline.KindReRank:      3,
	pipeline.KindPostProcess: 4,
}

// Register 注册一种 Node 类型及其所属阶段；重复注册时后者覆盖前者。
func Register(typeName string, kind pipeline.Kind, builder NodeBuilder) {
	if typeName == "" || builder == nil {
		return
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[typeName] = registration{kind: kind, builder: builder}
}

func lookup(typeName string) (registration, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	r, ok := registry[typeName]
	return r, ok
}

// SupportedTypes 返回已注册的 Node 类型（排序）。
func SupportedTypes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// DefaultFactory 返回包含全部已注册类型的 NodeFactory。
func DefaultFactory() *pipeline.NodeFactory {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f := pipeline.NewNodeFactory()
	for typeName, r := range registry {
		f.Register(typeName, r.builder)
	}
	return f
}

// ValidatePipelineConfig 在构建前检查配置，一次返回全部问题：
//   - 至少一个启用的 Node，且每个 Node 都有 type
//   - type 已注册
//   - 阶段不倒退（recall → filter → rank → rerank），例如 filter 不能出现在 rank.preference 之后
func ValidatePipelineConfig(cfg *pipeline.Config) error {
	if cfg == nil {
		return nil
	}
	nodes := cfg.ActiveNodes()
	if len(nodes) == 0 {
		return errors.New("pipeline has no nodes")
	}

	var (
		errs      []error
		lastKind  pipeline.Kind
		lastStage = -1
	)
	for i, nc := range nodes {
		if nc.Type == "" {
			errs = append(errs, fmt.Errorf("node #%d: type is required", i))
			continue
		}
		r, ok := lookup(nc.Type)
		if !ok {
			errs = append(errs, fmt.Errorf("node #%d: unsupported node type %q (supported: %v)", i, nc.Type, SupportedTypes()))
			continue
		}
		stage, known := stageOrder[r.kind]
		if !known {
			continue
		}
		if stage < lastStage {
			errs = append(errs, fmt.Errorf("node #%d: %s (%s) must come before %s nodes", i, nc.Type, r.kind, lastKind))
			continue
		}
		lastStage, lastKind = stage, r.kind
	}
	return errors.Join(errs...)
}
