package filter

import (
	"context"

	"github.com/plateful/recommender/core"
	"github.com/plateful/recommender/pkg/dsl"
)

// ExprFilter 使用 CEL 表达式过滤餐厅，例如 `item.has_price && item.price_level > 3`。
// Invert=false 时表达式为 true 的餐厅被过滤；Invert=true 时只保留表达式为 true 的餐厅。
type ExprFilter struct {
	eval   *dsl.Eval
	Invert bool
}

// NewExprFilter 编译表达式并创建过滤器。
func NewExprFilter(expr string, invert bool) (*ExprFilter, error) {
	eval, err := dsl.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &ExprFilter{eval: eval, Invert: invert}, nil
}

func (f *ExprFilter) Name() string {
	return "filter.expr"
}

// Expr 返回原始表达式。
func (f *ExprFilter) Expr() string {
	return f.eval.Expr()
}

func (f *ExprFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	ok, err := f.eval.Evaluate(item, rctx)
	if err != nil {
		return false, err
	}
	if f.Invert {
		return !ok, nil
	}
	return ok, nil
}
