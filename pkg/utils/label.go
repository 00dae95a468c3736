// Package utils 定义推荐链路上透传的 Label。
package utils

import (
	"slices"
	"strconv"
	"strings"
)

// Label 记录某个阶段对餐厅做了什么，例如 recall_source=catalog、
// rank_model=preference、score_cuisine=1.5000。
type Label struct {
	Value  string `json:"value"`
	Source string `json:"source"` // recall / filter / rank / rerank
}

const (
	valueSep  = "|"
	sourceSep = ","
)

// FloatLabel 以固定 4 位小数构造数值型 Label。
func FloatLabel(v float64, source string) Label {
	return Label{Value: strconv.FormatFloat(v, 'f', 4, 64), Source: source}
}

// Values 按写入顺序返回累积的值。
func (l Label) Values() []string {
	if l.Value == "" {
		return nil
	}
	return strings.Split(l.Value, valueSep)
}

// MergeLabel 合并同名 Label：值以 '|' 累积，来源以 ',' 累积，已存在的值 / 来源不重复追加。
// 同一餐厅被两路召回命中时得到 recall_source=catalog|popular。
func MergeLabel(existing, incoming Label) Label {
	if existing.Value == "" {
		return incoming
	}
	if incoming.Value == "" {
		return existing
	}
	return Label{
		Value:  appendUnique(existing.Value, incoming.Value, valueSep),
		Source: appendUnique(existing.Source, incoming.Source, sourceSep),
	}
}

func appendUnique(acc, v, sep string) string {
	switch {
	case v == "":
		return acc
	case acc == "":
		return v
	case slices.Contains(strings.Split(acc, sep), v):
		return acc
	default:
		return acc + sep + v
	}
}
