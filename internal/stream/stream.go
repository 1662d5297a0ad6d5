// Package stream 提供楼层平面图同步事件的 Redis Streams 发布。
// 事件在事务提交之后发布，仅作通知用途，失败不影响写入结果。
package stream

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// 事件流与事件类型
const (
	FloorPlanStream = "estate:floorplan"

	EventFloorPlanSynced  = "floorplan.synced"
	EventFloorPlanDeleted = "floorplan.deleted"
)

// FloorPlanEvent 楼层平面图变更事件
type FloorPlanEvent struct {
	Event      string `json:"event"`
	TenantID   string `json:"tenant_id"`
	BuildingID string `json:"building_id"`
	PlanID     string `json:"plan_id"`
	FloorNo    int    `json:"floor_no"`
	Created    int    `json:"created"` // 本次同步新建的房间数
	Updated    int    `json:"updated"`
	Deleted    int    `json:"deleted"`
}

// Publisher Redis Streams 事件发布器
type Publisher struct {
	client *redis.Client
	maxLen int64
}

// NewPublisher 创建事件发布器（maxLen 控制流的近似长度上限）
func NewPublisher(client *redis.Client, maxLen int64) *Publisher {
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &Publisher{client: client, maxLen: maxLen}
}

// PublishFloorPlanEvent 发布事件到 estate:floorplan 流
func (p *Publisher) PublishFloorPlanEvent(ctx context.Context, ev FloorPlanEvent) (string, error) {
	values := map[string]interface{}{
		"event":       ev.Event,
		"tenant_id":   ev.TenantID,
		"building_id": ev.BuildingID,
		"plan_id":     ev.PlanID,
		"floor_no":    strconv.Itoa(ev.FloorNo),
		"created":     strconv.Itoa(ev.Created),
		"updated":     strconv.Itoa(ev.Updated),
		"deleted":     strconv.Itoa(ev.Deleted),
		"ts":          time.Now().UTC().Format(time.RFC3339),
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: FloorPlanStream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: values,
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to publish floor plan event: %w", err)
	}
	return id, nil
}

// ReadEvents 从流中读取事件（消费侧工具，供排障脚本使用）
func ReadEvents(ctx context.Context, client *redis.Client, lastID string, count int64) ([]FloorPlanEvent, string, error) {
	if lastID == "" {
		lastID = "0"
	}
	streams, err := client.XRead(ctx, &redis.XReadArgs{
		Streams: []string{FloorPlanStream, lastID},
		Count:   count,
		Block:   time.Second,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, lastID, nil
		}
		return nil, lastID, fmt.Errorf("failed to read floor plan events: %w", err)
	}

	var events []FloorPlanEvent
	for _, s := range streams {
		for _, msg := range s.Messages {
			events = append(events, FloorPlanEvent{
				Event:      stringValue(msg.Values, "event"),
				TenantID:   stringValue(msg.Values, "tenant_id"),
				BuildingID: stringValue(msg.Values, "building_id"),
				PlanID:     stringValue(msg.Values, "plan_id"),
				FloorNo:    intValue(msg.Values, "floor_no"),
				Created:    intValue(msg.Values, "created"),
				Updated:    intValue(msg.Values, "updated"),
				Deleted:    intValue(msg.Values, "deleted"),
			})
			lastID = msg.ID
		}
	}
	return events, lastID, nil
}

func stringValue(values map[string]interface{}, key string) string {
	if s, ok := values[key].(string); ok {
		return s
	}
	return ""
}

func intValue(values map[string]interface{}, key string) int {
	n, _ := strconv.Atoi(stringValue(values, key))
	return n
}
