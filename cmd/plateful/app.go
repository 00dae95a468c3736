package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/plateful/recommender/catalog"
	"github.com/plateful/recommender/config"
	"github.com/plateful/recommender/config/builders"
	"github.com/plateful/recommender/core"
	"github.com/plateful/recommender/feedback"
	"github.com/plateful/recommender/logging"
	"github.com/plateful/recommender/pipeline"
	"github.com/plateful/recommender/recall"
	"github.com/plateful/recommender/recommend"
	"github.com/plateful/recommender/remote"
	"github.com/plateful/recommender/settings"
	"github.com/plateful/recommender/store"
	"github.com/plateful/recommender/userdata"
	"github.com/plateful/recommender/votes"
)

// app 持有一次命令执行所需的全部依赖。
type app struct {
	settings      *settings.Settings
	store         core.KeyValueStore
	catalog       *catalog.Catalog
	votes         *votes.Repository
	userdata      *userdata.Repository
	remote        *remote.Client
	remoteCatalog core.Catalog
	events        feedback.Collector
}

func newApp(s *settings.Settings) (*app, error) {
	logging.Init(s.Log)

	kv, err := store.New(s.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	var events feedback.Collector = feedback.Nop{}
	if s.Feedback.Enabled {
		events, err = feedback.NewKafkaCollector(s.Feedback.Kafka)
		if err != nil {
			_ = kv.Close()
			return nil, fmt.Errorf("feedback collector: %w", err)
		}
	}

	prefix := s.Store.Prefix
	cat := catalog.New(kv, prefix+":catalog")
	a := &app{
		settings: s,
		store:    kv,
		catalog:  cat,
		votes: votes.New(kv,
			votes.WithPrefix(prefix+":votes"),
			votes.WithCatalog(cat),
			votes.WithCollector(events),
		),
		userdata: userdata.New(kv, userdata.WithPrefix(prefix+":userdata")),
		events:   events,
	}

	if s.Source == settings.SourceRemote {
		a.remote, err = remote.New(s.Remote)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.remoteCatalog = catalog.NewCached(a.remote, s.Remote.CacheTTL, catalog.DefaultCacheSize)
	}
	return a, nil
}

// loadApp 读取配置并创建 app，调用方负责 Close。
func loadApp() (*app, error) {
	s, err := settings.Load(configPath)
	if err != nil {
		return nil, err
	}
	a, err := newApp(s)
	if err != nil {
		return nil, err
	}
	if seedPath != "" {
		n, err := a.catalog.Seed(context.Background(), seedPath)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		logging.Debug().Int("restaurants", n).Str("file", seedPath).Msg("catalog seeded")
	}
	return a, nil
}

func (a *app) Close() error {
	return errors.Join(a.events.Close(), a.store.Close())
}

// sources 返回推荐使用的投票来源与候选目录。
func (a *app) sources() (core.VoteSource, core.Catalog) {
	if a.remote != nil {
		return a.remote, a.remoteCatalog
	}
	return a.votes, a.catalog
}

// voter 返回投票写入的目标，与 sources 的投票来源一致。
func (a *app) voter() core.VoteRecorder {
	if a.remote != nil {
		return a.remote
	}
	return a.votes
}

func (a *app) popularKey() string {
	return votes.PopularKey(a.settings.Store.Prefix + ":votes")
}

// popularLister 在远端模式下返回后端热门榜，否则为 nil。
func (a *app) popularLister() recall.PopularLister {
	if a.remote != nil {
		return a.remote
	}
	return nil
}

// popular 返回冷启动召回源：远端模式用后端的热门榜，本地模式用净票数有序集合。
func (a *app) popular() recall.Source {
	if a.remote != nil {
		return &recall.ListedPopular{Source: a.remote}
	}
	return &recall.Popular{
		Store:   a.store,
		Key:     a.popularKey(),
		Catalog: a.catalog,
	}
}

// recommender 按配置构建推荐服务；配置了 pipeline 文件时使用配置驱动的 Pipeline。
// extra 在配置之后应用，可覆盖 cfg。
func (a *app) recommender(cfg recommend.Config, extra ...recommend.Option) (*recommend.Service, error) {
	voteSrc, cat := a.sources()
	opts := []recommend.Option{recommend.WithConfig(cfg), recommend.WithCollector(a.events)}

	if cfg.ColdStart {
		opts = append(opts, recommend.WithColdStart(a.popular()))
	}

	if cfg.Pipeline != "" {
		p, err := loadPipeline(cfg.Pipeline, builders.Resources{
			Catalog:    cat,
			Store:      a.store,
			History:    a.userdata,
			PopularKey: a.popularKey(),
			Popular:    a.popularLister(),
		})
		if err != nil {
			return nil, err
		}
		opts = append(opts, recommend.WithPipeline(p))
	}
	return recommend.New(voteSrc, cat, append(opts, extra...)...), nil
}

func loadPipeline(path string, res builders.Resources) (*pipeline.Pipeline, error) {
	cfg, err := pipeline.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load pipeline %s: %w", path, err)
	}
	if err := config.ValidatePipelineConfig(cfg); err != nil {
		return nil, err
	}
	builders.Use(res)
	return cfg.BuildPipeline(config.DefaultFactory())
}

// findRestaurant 从目录读取餐厅，用于收藏 / 浏览记录。
func (a *app) findRestaurant(ctx context.Context, id string) (*core.Item, error) {
	_, cat := a.sources()
	it, err := cat.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("restaurant %s: %w", id, err)
	}
	return it, nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// withApp 包装 RunE：加载 app，执行 fn，最后关闭存储。
func withApp(fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, a, args)
	}
}
