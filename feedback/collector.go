// Package feedback 采集用户反馈事件：投票变更、推荐曝光。
//
// 事件异步写出，采集失败不影响主流程。生产环境使用 KafkaCollector，
// 测试与单机场景使用 MemoryCollector 或 Nop。
package feedback

import (
	"context"
	"sync"
	"time"

	"github.com/plateful/recommender/core"
)

// EventType 反馈类型
type EventType string

const (
	EventVoteUp     EventType = "vote_up"     // 赞
	EventVoteDown   EventType = "vote_down"   // 踩
	EventVoteRemove EventType = "vote_remove" // 取消投票
	EventImpression EventType = "impression"  // 推荐曝光
)

// Event 反馈事件（轻量级，只包含必要信息）
type Event struct {
	UserID       string            `json:"user_id"`
	RestaurantID string            `json:"restaurant_id"`
	Scene        string            `json:"scene,omitempty"`
	Type         EventType         `json:"type"`
	Timestamp    int64             `json:"timestamp"`          // Unix 秒
	Position     int               `json:"position,omitempty"` // 推荐列表中的位置
	Score        float64           `json:"score,omitempty"`
	Labels       map[string]string `json:"labels,omitempty"`
}

// Collector 反馈收集器。Record 不阻塞调用方。
type Collector interface {
	Record(ctx context.Context, events ...Event) error
	Close() error
}

// VoteEvent 把一次投票变更转换为事件。
func VoteEvent(userID, restaurantID string, vote core.Vote, at time.Time) Event {
	typ := EventVoteRemove
	switch vote {
	case core.VoteUp:
		typ = EventVoteUp
	case core.VoteDown:
		typ = EventVoteDown
	}
	return Event{
		UserID:       userID,
		RestaurantID: restaurantID,
		Scene:        "vote",
		Type:         typ,
		Timestamp:    at.Unix(),
	}
}

// ImpressionEvents 为推荐结果中的每个餐厅生成曝光事件，保留召回来源 / 排序模型标签。
func ImpressionEvents(rctx *core.RecommendContext, items []*core.Item, at time.Time) []Event {
	events := make([]Event, 0, len(items))
	for i, it := range items {
		if it == nil {
			continue
		}
		ev := Event{
			UserID:       rctx.UserID,
			RestaurantID: it.ID,
			Scene:        rctx.Scene,
			Type:         EventImpression,
			Timestamp:    at.Unix(),
			Position:     i,
			Score:        it.Score,
		}
		for _, k := range []string{"recall_source", "rank_model"} {
			if l, ok := it.Labels[k]; ok {
				if ev.Labels == nil {
					ev.Labels = make(map[string]string, 2)
				}
				ev.Labels[k] = l.Value
			}
		}
		events = append(events, ev)
	}
	return events
}

// Nop 丢弃所有事件。
type Nop struct{}

func (Nop) Record(context.Context, ...Event) error { return nil }
func (Nop) Close() error                           { return nil }

// MemoryCollector 把事件保存在内存中。
type MemoryCollector struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryCollector() *MemoryCollector {
	return &MemoryCollector{}
}

func (c *MemoryCollector) Record(_ context.Context, events ...Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, events...)
	return nil
}

// Events 返回已记录事件的副本。
func (c *MemoryCollector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

func (c *MemoryCollector) Close() error { return nil }
