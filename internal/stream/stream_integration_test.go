// +build integration

package stream

import (
	"context"
	"testing"

	"estate-data/internal/config"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

// setupTestRedis 连接测试 Redis，不可达时跳过
func setupTestRedis(t *testing.T) *redis.Client {
	cfg := config.Load()
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Skipping integration test: redis not available: %v", err)
	}
	return client
}

func TestPublishAndReadFloorPlanEvents(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()
	ctx := context.Background()

	// 干净的流起点
	require.NoError(t, client.Del(ctx, FloorPlanStream).Err())
	defer client.Del(ctx, FloorPlanStream)

	pub := NewPublisher(client, 100)
	ev := FloorPlanEvent{
		Event:      EventFloorPlanSynced,
		TenantID:   "00000000-0000-0000-0000-000000000901",
		BuildingID: "00000000-0000-0000-0000-000000000902",
		PlanID:     "00000000-0000-0000-0000-000000000911",
		FloorNo:    3,
		Created:    2,
		Updated:    1,
	}
	id, err := pub.PublishFloorPlanEvent(ctx, ev)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	// 发布的字段原样读回
	events, lastID, err := ReadEvents(ctx, client, "", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, ev, events[0])
	require.Equal(t, id, lastID)

	// 从游标继续读：没有新事件
	events, lastID, err = ReadEvents(ctx, client, lastID, 10)
	require.NoError(t, err)
	require.Empty(t, events)
	require.Equal(t, id, lastID)

	// 删除事件追加在游标之后
	del := FloorPlanEvent{
		Event:      EventFloorPlanDeleted,
		TenantID:   ev.TenantID,
		BuildingID: ev.BuildingID,
		PlanID:     ev.PlanID,
		FloorNo:    3,
		Deleted:    2,
	}
	_, err = pub.PublishFloorPlanEvent(ctx, del)
	require.NoError(t, err)

	events, _, err = ReadEvents(ctx, client, lastID, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, EventFloorPlanDeleted, events[0].Event)
	require.Equal(t, 2, events[0].Deleted)
}
