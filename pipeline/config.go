package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Config 是 Pipeline 文件的结构，YAML 与 JSON 字段相同。
//
//	pipeline:
//	  name: restaurants
//	  nodes:
//	    - type: recall.catalog
//	    - type: filter
//	      config:
//	        filters:
//	          - type: voted
//	    - type: rerank.diversity
//	      disabled: true     # 临时关闭，不参与构建
//	    - type: rank.preference
//	    - type: rerank.topn
//	      config: {n: 12}
type Config struct {
	Pipeline struct {
		Name  string       `yaml:"name" json:"name"`
		Nodes []NodeConfig `yaml:"nodes" json:"nodes"`
	} `yaml:"pipeline" json:"pipeline"`
}

// NodeConfig 是单个 Node 的配置，Config 原样交给该类型的 NodeBuilder。
type NodeConfig struct {
	Type     string         `yaml:"type" json:"type"`
	Disabled bool           `yaml:"disabled" json:"disabled"`
	Config   map[string]any `yaml:"config" json:"config"`
}

// ActiveNodes 返回未被禁用的 Node 配置，保持原顺序。
func (c *Config) ActiveNodes() []NodeConfig {
	out := make([]NodeConfig, 0, len(c.Pipeline.Nodes))
	for _, nc := range c.Pipeline.Nodes {
		if !nc.Disabled {
			out = append(out, nc)
		}
	}
	return out
}

// Load 按扩展名读取 Pipeline 文件：.json 用 JSON 解析，其余按 YAML。
func Load(path string) (*Config, error) {
	if IsJSON(path) {
		return LoadFromJSON(path)
	}
	return LoadFromYAML(path)
}

// IsJSON 判断文件扩展名是否为 .json（忽略大小写）。
func IsJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

func LoadFromYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline: %w", err)
	}
	cfg, err := ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func LoadFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline: %w", err)
	}
	cfg, err := ParseJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func ParseYAML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return cfg, nil
}

func ParseJSON(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return cfg, nil
}

// BuildPipeline 用 factory 构建全部启用的 Node。
// factory 由 config 包提供（已注册全部 Node 类型），pipeline 包不反向依赖它。
func (c *Config) BuildPipeline(factory *NodeFactory) (*Pipeline, error) {
	active := c.ActiveNodes()
	nodes := make([]Node, 0, len(active))
	for i, nc := range active {
		node, err := factory.Build(nc.Type, nc.Config)
		if err != nil {
			return nil, fmt.Errorf("build node #%d %s: %w", i, nc.Type, err)
		}
		nodes = append(nodes, node)
	}
	return &Pipeline{Name: c.Pipeline.Name, Nodes: nodes}, nil
}

// NodeFactory 按类型名查找 NodeBuilder。
type NodeFactory struct {
	builders map[string]NodeBuilder
}

func NewNodeFactory() *NodeFactory {
	return &NodeFactory{builders: make(map[string]NodeBuilder)}
}

func (f *NodeFactory) Register(nodeType string, builder NodeBuilder) {
	f.builders[nodeType] = builder
}

// Build 构建单个 Node；config 为 nil 时传入空 map，builder 无需判空。
func (f *NodeFactory) Build(nodeType string, config map[string]any) (Node, error) {
	builder, ok := f.builders[nodeType]
	if !ok {
		return nil, fmt.Errorf("unknown node type: %s", nodeType)
	}
	if config == nil {
		config = map[string]any{}
	}
	return builder(config)
}
