package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/plateful/recommender/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("item", cel.DynType),
			cel.Variable("label", cel.DynType),
			cel.Variable("rctx", cel.DynType),
		)
	})
	return celEnv, celEnvErr
}

// Eval 是基于 CEL (Common Expression Language) 的餐厅表达式解释器。
// 表达式在 Compile 时编译一次，之后可并发对不同 Item 求值。
//
// 可用变量：
//   - item.id / item.name / item.cuisine / item.city / item.tags / item.score
//   - item.price_level（未知时为 0）/ item.has_price
//   - item.upvotes / item.downvotes / item.votes
//   - label.<key>（Label.Value）
//   - rctx.user_id / rctx.scene / rctx.params
//
// 示例：
//   - `item.has_price && item.price_level > 3`
//   - `"spicy" in item.tags`
//   - `item.cuisine == "Thai" && item.score > 1.0`
type Eval struct {
	expr string
	prg  cel.Program
}

// Compile 编译表达式；表达式必须返回 bool。
func Compile(expr string) (*Eval, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	return &Eval{expr: expr, prg: prg}, nil
}

// Expr 返回原始表达式。
func (e *Eval) Expr() string { return e.expr }

// Evaluate 对单个 Item 求值。
func (e *Eval) Evaluate(item *core.Item, rctx *core.RecommendContext) (bool, error) {
	out, _, err := e.prg.Eval(buildInput(item, rctx))
	if err != nil {
		// 访问不存在的 label key 会报错，应先用 `"key" in label` 判断
		return false, fmt.Errorf("eval error: %w", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

func buildInput(it *core.Item, rctx *core.RecommendContext) map[string]any {
	labels := make(map[string]any, len(it.Labels))
	for k, v := range it.Labels {
		labels[k] = v.Value
	}

	price, hasPrice := it.Price()
	tags := it.Tags
	if tags == nil {
		tags = []string{}
	}
	item := map[string]any{
		"id":          it.ID,
		"name":        it.Name,
		"cuisine":     it.Cuisine,
		"city":        it.City,
		"tags":        tags,
		"score":       it.Score,
		"price_level": price,
		"has_price":   hasPrice,
		"upvotes":     it.UpvoteCount,
		"downvotes":   it.DownvoteCount,
		"votes":       it.VoteCount(),
	}

	rc := map[string]any{
		"user_id": "",
		"scene":   "",
		"params":  map[string]any{},
	}
	if rctx != nil {
		rc["user_id"] = rctx.UserID
		rc["scene"] = rctx.Scene
		if rctx.Params != nil {
			rc["params"] = rctx.Params
		}
	}

	return map[string]any{
		"item":  item,
		"label": labels,
		"rctx":  rc,
	}
}
