package remote

import (
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/plateful/recommender/core"
	"github.com/plateful/recommender/logging"
	"github.com/plateful/recommender/metrics"
)

// newBreaker 创建熔断器：
//   - 至少 10 次请求且失败率 >= 60% 时打开
//   - 打开 30 秒后进入半开，半开状态最多放行 3 个请求
//   - 只有“服务不可用”类错误计为失败，401 / 404 等业务错误不影响熔断
func newBreaker(name string) *gobreaker.CircuitBreaker[[]byte] {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= 0.6 {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", ratio).Msg("circuit breaker opening")
				return true
			}
			return false
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !core.IsUnavailable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
