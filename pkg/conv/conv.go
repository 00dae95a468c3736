// Package conv 把 YAML / JSON 解出的松散值（map[string]any、[]any）转换为具体类型，
// 供配置驱动的 Node 构建与餐厅元信息读取使用。
package conv

import (
	"strconv"
	"strings"
	"time"
)

// ToFloat64 把数字或数字字符串转为 float64。
// YAML 解出 int，JSON 解出 float64，后端返回的评分有时是字符串（"4.5"）。
func ToFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	case uint64:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// ConfigGet 按 key 取 T，缺失或类型不符时返回 def。
func ConfigGet[T any](m map[string]any, key string, def T) T {
	if t, ok := m[key].(T); ok {
		return t
	}
	return def
}

// ConfigGetInt 取整数；小数向零截断，字符串不接受。
func ConfigGetInt(m map[string]any, key string, def int) int {
	if _, isStr := m[key].(string); isStr {
		return def
	}
	if f, ok := ToFloat64(m[key]); ok {
		return int(f)
	}
	return def
}

// ConfigGetFloat 取浮点数，兼容整数写法。
func ConfigGetFloat(m map[string]any, key string, def float64) float64 {
	if _, isStr := m[key].(string); isStr {
		return def
	}
	if f, ok := ToFloat64(m[key]); ok {
		return f
	}
	return def
}

// ConfigGetSeconds 取时长：数字按秒计（timeout: 1.5），
// 字符串按 time.ParseDuration 解析（window: 24h）。
func ConfigGetSeconds(m map[string]any, key string, def time.Duration) time.Duration {
	switch v := m[key].(type) {
	case nil:
		return def
	case string:
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return def
		}
		return d
	default:
		if f, ok := ToFloat64(v); ok {
			return time.Duration(f * float64(time.Second))
		}
		return def
	}
}

// ConfigGetStrings 取字符串列表。YAML 里写成数字的餐厅 ID（[101, 102]）按整数格式化。
func ConfigGetStrings(m map[string]any, key string) []string {
	switch v := m[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			switch x := e.(type) {
			case string:
				out = append(out, x)
			default:
				if f, ok := ToFloat64(x); ok {
					out = append(out, strconv.FormatFloat(f, 'f', -1, 64))
				}
			}
		}
		return out
	default:
		return nil
	}
}
