package service

import (
	"context"
	"fmt"
	"time"

	"estate-data/internal/domain"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ListingRoom 推送给外部房源服务的房间条目
type ListingRoom struct {
	RoomID     int64   `json:"room_id"`
	FloorNo    int     `json:"floor_no"`
	RoomNumber string  `json:"room_number"`
	FloorArea  float64 `json:"floor_area"`
	MaxTenants int     `json:"max_tenants"`
	Status     string  `json:"status"`
}

// ListingPushRequest 房源推送请求体
type ListingPushRequest struct {
	TenantID   string        `json:"tenant_id"`
	BuildingID string        `json:"building_id"`
	Rooms      []ListingRoom `json:"rooms"`
}

// ListingPushResponse 房源服务响应
type ListingPushResponse struct {
	Status int    `json:"status"`
	Msg    string `json:"msg"`
}

// ListingClient 外部房源服务客户端。
// 已发布楼层的每次成功同步后推送楼栋房间清单；推送在事务之外，
// 失败只记日志，绝不回滚库存写入。
type ListingClient struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewListingClient 创建房源服务客户端
func NewListingClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *ListingClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetHeader("X-Api-Key", apiKey)
	}

	return &ListingClient{
		httpClient: client,
		logger:     logger,
	}
}

// PushBuildingRooms 推送楼栋的激活房间清单
func (c *ListingClient) PushBuildingRooms(ctx context.Context, tenantID, buildingID string, rooms []*domain.Room) error {
	payload := ListingPushRequest{
		TenantID:   tenantID,
		BuildingID: buildingID,
		Rooms:      make([]ListingRoom, 0, len(rooms)),
	}
	for _, room := range rooms {
		payload.Rooms = append(payload.Rooms, ListingRoom{
			RoomID:     room.RoomID,
			FloorNo:    room.FloorNo,
			RoomNumber: room.RoomNumber,
			FloorArea:  room.FloorArea,
			MaxTenants: room.MaxTenants,
			Status:     room.Status,
		})
	}

	var result ListingPushResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&result).
		Post("/api/v1/listings/rooms")
	if err != nil {
		return fmt.Errorf("listing push request failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("listing push rejected: http %d", resp.StatusCode())
	}
	if result.Status != 0 {
		return fmt.Errorf("listing push rejected: %s", result.Msg)
	}

	c.logger.Debug("listing push ok",
		zap.String("building_id", buildingID),
		zap.Int("rooms", len(payload.Rooms)),
	)
	return nil
}
