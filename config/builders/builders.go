// Package builders 注册内置 Node 的配置构建器。
//
// 部分 Node 依赖运行时资源（餐厅目录、存储、浏览历史），这些资源无法写进 YAML，
// 需要在构建 Pipeline 之前通过 Use 注入：
//
//	builders.Use(builders.Resources{Catalog: cat, Store: kv, History: repo})
//	p, err := cfg.BuildPipeline(config.DefaultFactory())
package builders

import (
	"fmt"
	"sync"

	"github.com/plateful/recommender/config"
	"github.com/plateful/recommender/core"
	"github.com/plateful/recommender/filter"
	"github.com/plateful/recommender/pipeline"
	"github.com/plateful/recommender/pkg/conv"
	"github.com/plateful/recommender/rank"
	"github.com/plateful/recommender/recall"
	"github.com/plateful/recommender/rerank"
)

// Resources 是 Node 构建时可用的运行时依赖。
type Resources struct {
	Catalog core.Catalog
	Store   core.KeyValueStore
	History filter.ViewedStore

	// PopularKey 是 recall.popular 未配置 key 时读取的有序集合
	PopularKey string

	// Popular 不为 nil 时 recall.popular 直接使用它的热门榜（远端后端），不读有序集合
	Popular recall.PopularLister
}

var (
	resources   Resources
	resourcesMu sync.RWMutex
)

// Use 设置构建 Node 时使用的运行时依赖，覆盖之前的设置。
func Use(res Resources) {
	resourcesMu.Lock()
	defer resourcesMu.Unlock()
	resources = res
}

func current() Resources {
	resourcesMu.RLock()
	defer resourcesMu.RUnlock()
	return resources
}

func init() {
	config.Register("recall.catalog", pipeline.KindRecall, BuildCatalogNode)
	config.Register("recall.popular", pipeline.KindRecall, BuildPopularNode)
	config.Register("recall.fanout", pipeline.KindRecall, BuildFanoutNode)
	config.Register("filter", pipeline.KindFilter, BuildFilterNode)
	config.Register("rank.preference", pipeline.KindRank, BuildPreferenceNode)
	config.Register("rerank.topn", pipeline.KindReRank, BuildTopNNode)
	config.Register("rerank.diversity", pipeline.KindReRank, BuildDiversityNode)
}

func BuildCatalogNode(map[string]any) (pipeline.Node, error) {
	res := current()
	if res.Catalog == nil {
		return nil, fmt.Errorf("recall.catalog: catalog not configured")
	}
	return &recall.CatalogRecall{Catalog: res.Catalog}, nil
}

func BuildPopularNode(cfg map[string]any) (pipeline.Node, error) {
	return buildPopular(cfg)
}

// popularSource 既可作为 Node 也可作为 fanout 的召回源。
type popularSource interface {
	pipeline.Node
	recall.Source
}

func buildPopular(cfg map[string]any) (popularSource, error) {
	res := current()
	topN := conv.ConfigGetInt(cfg, "top_n", recall.DefaultPopularTopN)
	if res.Popular != nil {
		return &recall.ListedPopular{Source: res.Popular, TopN: topN}, nil
	}
	if res.Catalog == nil {
		return nil, fmt.Errorf("recall.popular: catalog not configured")
	}
	return &recall.Popular{
		Store:   res.Store,
		Key:     conv.ConfigGet(cfg, "key", res.PopularKey),
		Catalog: res.Catalog,
		TopN:    topN,
	}, nil
}

// BuildFanoutNode 构建多路召回：
//
//	type: recall.fanout
//	config:
//	  sources: [{type: catalog}, {type: popular, key: "plateful:votes:popular", top_n: 50}]
//	  merge_strategy: first
//	  timeout: 2   # 秒，也可写 "1500ms"
func BuildFanoutNode(cfg map[string]any) (pipeline.Node, error) {
	sourcesConfig, ok := cfg["sources"].([]any)
	if !ok || len(sourcesConfig) == 0 {
		return nil, fmt.Errorf("sources not found or invalid")
	}
	res := current()
	sources := make([]recall.Source, 0, len(sourcesConfig))
	for _, sc := range sourcesConfig {
		sourceMap, ok := sc.(map[string]any)
		if !ok {
			continue
		}
		switch sourceType := conv.ConfigGet(sourceMap, "type", ""); sourceType {
		case "catalog":
			if res.Catalog == nil {
				return nil, fmt.Errorf("catalog source: catalog not configured")
			}
			sources = append(sources, &recall.CatalogRecall{Catalog: res.Catalog})
		case "popular":
			p, err := buildPopular(sourceMap)
			if err != nil {
				return nil, err
			}
			sources = append(sources, p)
		default:
			return nil, fmt.Errorf("unknown source type: %s", sourceType)
		}
	}

	fanout := &recall.Fanout{
		Sources:       sources,
		Dedup:         conv.ConfigGet(cfg, "dedup", true),
		MaxConcurrent: conv.ConfigGetInt(cfg, "max_concurrent", 0),
	}
	fanout.Timeout = conv.ConfigGetSeconds(cfg, "timeout", 0)
	switch strategy := conv.ConfigGet(cfg, "merge_strategy", recall.MergeFirst); strategy {
	case recall.MergeFirst, recall.MergePriority, recall.MergeUnion:
		fanout.MergeStrategy = strategy
	default:
		return nil, fmt.Errorf("unknown merge strategy: %s", strategy)
	}
	return fanout, nil
}

// BuildFilterNode 构建过滤节点：
//
//	type: filter
//	config:
//	  filters:
//	    - type: voted
//	    - type: blacklist
//	      item_ids: ["closed-1"]
//	      key: "plateful:blacklist"
//	    - type: viewed
//	      window: 24h    # 秒数或时长字符串，0 表示不限
//	    - type: expr
//	      expr: 'item.has_price && item.price_level > 3'
//	      invert: false
func BuildFilterNode(cfg map[string]any) (pipeline.Node, error) {
	filtersConfig, ok := cfg["filters"].([]any)
	if !ok {
		return nil, fmt.Errorf("filters not found or invalid")
	}
	res := current()
	filters := make([]filter.Filter, 0, len(filtersConfig))
	for _, fc := range filtersConfig {
		filterMap, ok := fc.(map[string]any)
		if !ok {
			continue
		}
		switch filterType := conv.ConfigGet(filterMap, "type", ""); filterType {
		case "voted":
			filters = append(filters, &filter.VotedFilter{})
		case "blacklist":
			var adapter *filter.StoreAdapter
			key := conv.ConfigGet(filterMap, "key", "")
			if key != "" && res.Store != nil {
				adapter = filter.NewStoreAdapter(res.Store)
			}
			ids := conv.ConfigGetStrings(filterMap, "item_ids")
			filters = append(filters, filter.NewBlacklistFilter(ids, adapter, key))
		case "viewed":
			if res.History == nil {
				return nil, fmt.Errorf("viewed filter: browse history not configured")
			}
			window := conv.ConfigGetSeconds(filterMap, "window", 0)
			filters = append(filters, filter.NewViewedFilter(res.History, window))
		case "expr":
			expr := conv.ConfigGet(filterMap, "expr", "")
			if expr == "" {
				return nil, fmt.Errorf("expr filter: expr is required")
			}
			f, err := filter.NewExprFilter(expr, conv.ConfigGet(filterMap, "invert", false))
			if err != nil {
				return nil, fmt.Errorf("expr filter: %w", err)
			}
			filters = append(filters, f)
		default:
			return nil, fmt.Errorf("unknown filter type: %s", filterType)
		}
	}
	return &filter.FilterNode{Filters: filters}, nil
}

func BuildPreferenceNode(cfg map[string]any) (pipeline.Node, error) {
	return &rank.PreferenceNode{
		Limit:         conv.ConfigGetInt(cfg, "limit", 0),
		MinScore:      conv.ConfigGetFloat(cfg, "min_score", 0),
		AllowNegative: conv.ConfigGet(cfg, "allow_negative", false),
	}, nil
}

func BuildTopNNode(cfg map[string]any) (pipeline.Node, error) {
	return &rerank.TopNNode{
		N:      conv.ConfigGetInt(cfg, "n", rank.DefaultLimit),
		Offset: conv.ConfigGetInt(cfg, "offset", 0),
	}, nil
}

func BuildDiversityNode(cfg map[string]any) (pipeline.Node, error) {
	return &rerank.Diversity{
		Key:    conv.ConfigGet(cfg, "key", "cuisine"),
		MaxPer: conv.ConfigGetInt(cfg, "max_per", 1),
		Drop:   conv.ConfigGet(cfg, "drop", false),
	}, nil
}
