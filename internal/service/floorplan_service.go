package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"estate-data/internal/domain"
	"estate-data/internal/layout"
	"estate-data/internal/repository"
	"estate-data/internal/store"
	"estate-data/internal/stream"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FloorPlanService 楼层平面图引擎服务接口。
// 房间行只通过这里的写路径变动；每次写入都是一个请求级事务：
// 锁解析、候选调谐、标注回写要么全部提交，要么全部回滚。
type FloorPlanService interface {
	CreateFloorPlan(ctx context.Context, req CreateFloorPlanRequest) (*FloorPlanResponse, error)
	UpdateFloorPlan(ctx context.Context, req UpdateFloorPlanRequest) (*FloorPlanResponse, error)
	DeleteFloorPlan(ctx context.Context, req DeleteFloorPlanRequest) error
	GetFloorPlan(ctx context.Context, req GetFloorPlanRequest) (*GetFloorPlanResponse, error)
	ListFloorPlans(ctx context.Context, req ListFloorPlansRequest) (*ListFloorPlansResponse, error)
	// NextFloorNumber 楼层序列器：下一个可创建的楼层号（现有最大楼层号+1，空楼栋为 1）
	NextFloorNumber(ctx context.Context, tenantID, buildingID string) (int, error)
}

// EventPublisher 同步事件发布（提交后通知，失败不影响写入结果）
type EventPublisher interface {
	PublishFloorPlanEvent(ctx context.Context, ev stream.FloorPlanEvent) (string, error)
}

// floorPlanService 实现
type floorPlanService struct {
	buildings  repository.BuildingsRepository
	rooms      repository.RoomsRepository
	occupancy  repository.OccupancyRepository
	floorPlans repository.FloorPlansRepository
	cache      store.KV       // 可选：楼层列表缓存
	events     EventPublisher // 可选：同步事件流
	listing    *ListingClient // 可选：发布楼层后推送房源
	pxPerMeter float64
	logger     *zap.Logger
}

// NewFloorPlanService 创建楼层平面图服务实例（cache/events/listing 可为 nil）
func NewFloorPlanService(
	buildings repository.BuildingsRepository,
	rooms repository.RoomsRepository,
	occupancy repository.OccupancyRepository,
	floorPlans repository.FloorPlansRepository,
	cache store.KV,
	events EventPublisher,
	listing *ListingClient,
	pxPerMeter float64,
	logger *zap.Logger,
) FloorPlanService {
	if pxPerMeter <= 0 {
		pxPerMeter = layout.DefaultPxPerMeter
	}
	return &floorPlanService{
		buildings:  buildings,
		rooms:      rooms,
		occupancy:  occupancy,
		floorPlans: floorPlans,
		cache:      cache,
		events:     events,
		listing:    listing,
		pxPerMeter: pxPerMeter,
		logger:     logger,
	}
}

// ============================================
// 请求/响应结构
// ============================================

type CreateFloorPlanRequest struct {
	TenantID   string          // 必填
	BuildingID string          // 必填
	FloorNo    int             // 必填，必须等于 NextFloorNumber
	Layout     json.RawMessage // 必填，节点数组
	Published  bool            // 可选（默认 false）
	CreatedBy  string          // 可选
}

type UpdateFloorPlanRequest struct {
	TenantID  string          // 必填
	PlanID    string          // 必填
	Layout    json.RawMessage // 可选（nil 表示不更新布局，不跑调谐）
	Published *bool           // 可选（nil 表示保持现值）
}

type DeleteFloorPlanRequest struct {
	TenantID string // 必填
	PlanID   string // 必填
}

type GetFloorPlanRequest struct {
	TenantID string // 必填
	PlanID   string // 必填
}

type ListFloorPlansRequest struct {
	TenantID   string // 必填
	BuildingID string // 必填
}

// FloorPlanResponse 写路径响应：标注后的布局 + 本次同步的房间变更计数
type FloorPlanResponse struct {
	PlanID       string          `json:"plan_id"`
	BuildingID   string          `json:"building_id"`
	FloorNo      int             `json:"floor_no"`
	Layout       json.RawMessage `json:"layout"`
	Published    bool            `json:"published"`
	RoomsCreated int             `json:"rooms_created"`
	RoomsUpdated int             `json:"rooms_updated"`
	RoomsDeleted int             `json:"rooms_deleted"`
}

// GetFloorPlanResponse 读路径响应：存储的标注布局 + 实时计算的锁定房间ID
type GetFloorPlanResponse struct {
	PlanID        string          `json:"plan_id"`
	BuildingID    string          `json:"building_id"`
	FloorNo       int             `json:"floor_no"`
	Layout        json.RawMessage `json:"layout"`
	Published     bool            `json:"published"`
	LockedRoomIDs []int64         `json:"locked_room_ids"`
}

type ListFloorPlansResponse struct {
	Items []*repository.FloorPlanSummary `json:"items"`
	Total int                            `json:"total"`
}

// ============================================
// 写路径
// ============================================

// CreateFloorPlan 创建楼层平面图（只允许顺序楼层）：
// 解析 → 几何校验 → 楼层顺序检查 → 候选提取 → 同步计划 → 单事务应用
func (s *floorPlanService) CreateFloorPlan(ctx context.Context, req CreateFloorPlanRequest) (*FloorPlanResponse, error) {
	// 1. 参数验证
	if req.TenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}
	if req.BuildingID == "" {
		return nil, fmt.Errorf("building_id is required")
	}
	if req.FloorNo < 1 {
		return nil, fmt.Errorf("floor_no must be >= 1")
	}
	if len(req.Layout) == 0 {
		return nil, fmt.Errorf("layout is required")
	}

	// 2. 楼栋必须存在（楼栋本身由外部协作方管理）
	if _, err := s.buildings.GetBuilding(ctx, req.TenantID, req.BuildingID); err != nil {
		return nil, fmt.Errorf("failed to load building: %w", err)
	}

	// 3. 解析 + 几何校验（任何持久化之前拒绝）
	g, err := layout.Parse(req.Layout)
	if err != nil {
		return nil, err
	}
	if err := layout.Validate(g); err != nil {
		return nil, err
	}

	// 4. 楼层顺序检查（事务内还会复查一次）
	next, err := s.NextFloorNumber(ctx, req.TenantID, req.BuildingID)
	if err != nil {
		return nil, err
	}
	if req.FloorNo != next {
		return nil, &SyncError{Reason: ReasonFloorSequence, Floor: req.FloorNo}
	}

	// 5. 候选提取 + 同步计划（新楼层没有现存房间，计划只含新建）
	candidates := layout.ExtractCandidates(g, s.pxPerMeter)
	buildingRooms, err := s.rooms.ListActiveRooms(ctx, req.TenantID, req.BuildingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list building rooms: %w", err)
	}
	plan, err := buildSyncPlan(candidates, nil, nil, nil, buildingRooms, req.FloorNo)
	if err != nil {
		return nil, err
	}

	// 6. 单事务应用并回写标注布局
	fp := &domain.FloorPlan{
		PlanID:     uuid.NewString(),
		TenantID:   req.TenantID,
		BuildingID: req.BuildingID,
		FloorNo:    req.FloorNo,
		Published:  req.Published,
	}
	if req.CreatedBy != "" {
		fp.CreatedBy.String = req.CreatedBy
		fp.CreatedBy.Valid = true
	}
	layoutJSON, err := s.floorPlans.CreateWithSync(ctx, fp, g, plan)
	if err != nil {
		s.logger.Error("CreateFloorPlan failed",
			zap.String("tenant_id", req.TenantID),
			zap.String("building_id", req.BuildingID),
			zap.Int("floor_no", req.FloorNo),
			zap.Error(err),
		)
		return nil, err
	}

	s.afterWrite(ctx, fp, plan, stream.EventFloorPlanSynced)
	return &FloorPlanResponse{
		PlanID:       fp.PlanID,
		BuildingID:   fp.BuildingID,
		FloorNo:      fp.FloorNo,
		Layout:       json.RawMessage(layoutJSON),
		Published:    fp.Published,
		RoomsCreated: len(plan.Creates),
		RoomsUpdated: len(plan.Updates),
		RoomsDeleted: len(plan.Deletes),
	}, nil
}

// UpdateFloorPlan 更新楼层平面图。带布局时跑完整调谐；
// 只改发布标记时不触碰房间。
func (s *floorPlanService) UpdateFloorPlan(ctx context.Context, req UpdateFloorPlanRequest) (*FloorPlanResponse, error) {
	// 1. 参数验证
	if req.TenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}
	if req.PlanID == "" {
		return nil, fmt.Errorf("plan_id is required")
	}

	// 2. 加载现有平面图
	stored, err := s.floorPlans.GetFloorPlan(ctx, req.TenantID, req.PlanID)
	if err != nil {
		return nil, err
	}

	published := stored.Published
	if req.Published != nil {
		published = *req.Published
	}

	// 3. 不带布局：仅更新发布标记
	if len(req.Layout) == 0 {
		if err := s.floorPlans.UpdateMeta(ctx, req.TenantID, req.PlanID, published); err != nil {
			return nil, err
		}
		s.invalidateList(ctx, req.TenantID, stored.BuildingID)
		var layoutJSON json.RawMessage
		if stored.Layout.Valid {
			layoutJSON = json.RawMessage(stored.Layout.String)
		}
		return &FloorPlanResponse{
			PlanID:     stored.PlanID,
			BuildingID: stored.BuildingID,
			FloorNo:    stored.FloorNo,
			Layout:     layoutJSON,
			Published:  published,
		}, nil
	}

	// 4. 解析 + 几何校验
	g, err := layout.Parse(req.Layout)
	if err != nil {
		return nil, err
	}
	if err := layout.Validate(g); err != nil {
		return nil, err
	}

	// 5. 占用锁解析（每次写入实时计算，从不落库）
	existing, err := s.rooms.GetRoomsByFloor(ctx, req.TenantID, stored.BuildingID, stored.FloorNo)
	if err != nil {
		return nil, fmt.Errorf("failed to load floor rooms: %w", err)
	}
	roomIDs := make([]int64, 0, len(existing))
	for _, room := range existing {
		roomIDs = append(roomIDs, room.RoomID)
	}
	locks, err := s.occupancy.ResolveLocks(ctx, req.TenantID, roomIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve room locks: %w", err)
	}

	// 6. 轮廓/几何锁：楼层存在锁定房间时，楼栋轮廓不可变动
	//    （移动轮廓会使已占用房间的包含保证失效）；锁定房间的
	//    旧矩形同时作为几何比对基准交给同步计划
	var storedRects map[int64]layout.Rect
	if len(lockedRoomIDs(existing, locks)) > 0 && stored.Layout.Valid {
		oldGraph, err := layout.Parse([]byte(stored.Layout.String))
		if err != nil {
			return nil, fmt.Errorf("stored layout is corrupt: %w", err)
		}
		if layout.OutlineChanged(layout.OutlineOf(oldGraph), layout.OutlineOf(g)) {
			return nil, &SyncError{Reason: ReasonOutlinePinned, Floor: stored.FloorNo}
		}
		storedRects = layout.RoomRects(oldGraph)
	}

	// 7. 候选提取 + 同步计划
	candidates := layout.ExtractCandidates(g, s.pxPerMeter)
	buildingRooms, err := s.rooms.ListActiveRooms(ctx, req.TenantID, stored.BuildingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list building rooms: %w", err)
	}
	plan, err := buildSyncPlan(candidates, existing, locks, storedRects, buildingRooms, stored.FloorNo)
	if err != nil {
		return nil, err
	}

	// 8. 单事务应用并回写标注布局
	fp := &domain.FloorPlan{
		PlanID:     stored.PlanID,
		TenantID:   stored.TenantID,
		BuildingID: stored.BuildingID,
		FloorNo:    stored.FloorNo,
		Published:  published,
	}
	layoutJSON, err := s.floorPlans.UpdateWithSync(ctx, fp, g, plan)
	if err != nil {
		s.logger.Error("UpdateFloorPlan failed",
			zap.String("tenant_id", req.TenantID),
			zap.String("plan_id", req.PlanID),
			zap.Int("floor_no", stored.FloorNo),
			zap.Error(err),
		)
		return nil, err
	}

	s.afterWrite(ctx, fp, plan, stream.EventFloorPlanSynced)
	return &FloorPlanResponse{
		PlanID:       fp.PlanID,
		BuildingID:   fp.BuildingID,
		FloorNo:      fp.FloorNo,
		Layout:       json.RawMessage(layoutJSON),
		Published:    fp.Published,
		RoomsCreated: len(plan.Creates),
		RoomsUpdated: len(plan.Updates),
		RoomsDeleted: len(plan.Deletes),
	}, nil
}

// DeleteFloorPlan 删除楼层平面图：级联删除该楼层房间（占用检查先行），
// 楼栋楼层数重算。只允许删除最高楼层，保持楼层序列无缺口。
func (s *floorPlanService) DeleteFloorPlan(ctx context.Context, req DeleteFloorPlanRequest) error {
	// 1. 参数验证
	if req.TenantID == "" {
		return fmt.Errorf("tenant_id is required")
	}
	if req.PlanID == "" {
		return fmt.Errorf("plan_id is required")
	}

	// 2. 加载平面图并检查楼层序列（删中间层会留缺口）
	stored, err := s.floorPlans.GetFloorPlan(ctx, req.TenantID, req.PlanID)
	if err != nil {
		return err
	}
	maxFloor, err := s.floorPlans.MaxFloorNo(ctx, req.TenantID, stored.BuildingID)
	if err != nil {
		return err
	}
	if stored.FloorNo != maxFloor {
		return &SyncError{Reason: ReasonFloorSequence, Floor: stored.FloorNo}
	}

	// 3. 占用/维修/合同检查，指名第一个阻止删除的房间
	rooms, err := s.rooms.GetRoomsByFloor(ctx, req.TenantID, stored.BuildingID, stored.FloorNo)
	if err != nil {
		return fmt.Errorf("failed to load floor rooms: %w", err)
	}
	roomIDs := make([]int64, 0, len(rooms))
	for _, room := range rooms {
		roomIDs = append(roomIDs, room.RoomID)
	}
	locks, err := s.occupancy.ResolveLocks(ctx, req.TenantID, roomIDs)
	if err != nil {
		return fmt.Errorf("failed to resolve room locks: %w", err)
	}
	for _, room := range rooms {
		lock := locks[room.RoomID]
		if lock.Status == domain.RoomStatusUnderRepair || !lock.Deletable() {
			return &SyncError{Reason: ReasonFloorDependency, Room: room.RoomNumber, Floor: stored.FloorNo}
		}
	}

	// 4. 单事务删除
	if err := s.floorPlans.DeleteWithRooms(ctx, req.TenantID, req.PlanID); err != nil {
		s.logger.Error("DeleteFloorPlan failed",
			zap.String("tenant_id", req.TenantID),
			zap.String("plan_id", req.PlanID),
			zap.Int("floor_no", stored.FloorNo),
			zap.Error(err),
		)
		return err
	}

	s.invalidateList(ctx, req.TenantID, stored.BuildingID)
	if s.events != nil {
		_, err := s.events.PublishFloorPlanEvent(ctx, stream.FloorPlanEvent{
			Event:      stream.EventFloorPlanDeleted,
			TenantID:   req.TenantID,
			BuildingID: stored.BuildingID,
			PlanID:     req.PlanID,
			FloorNo:    stored.FloorNo,
			Deleted:    len(rooms),
		})
		if err != nil {
			s.logger.Warn("failed to publish floor plan event", zap.Error(err))
		}
	}
	return nil
}

// ============================================
// 读路径
// ============================================

// GetFloorPlan 返回存储的标注布局，并实时计算锁定房间ID
// 供前端标记不可编辑的房间（锁状态从不缓存、从不落库）
func (s *floorPlanService) GetFloorPlan(ctx context.Context, req GetFloorPlanRequest) (*GetFloorPlanResponse, error) {
	if req.TenantID == "" || req.PlanID == "" {
		return nil, fmt.Errorf("tenant_id and plan_id are required")
	}

	fp, err := s.floorPlans.GetFloorPlan(ctx, req.TenantID, req.PlanID)
	if err != nil {
		return nil, err
	}

	rooms, err := s.rooms.GetRoomsByFloor(ctx, req.TenantID, fp.BuildingID, fp.FloorNo)
	if err != nil {
		return nil, fmt.Errorf("failed to load floor rooms: %w", err)
	}
	roomIDs := make([]int64, 0, len(rooms))
	for _, room := range rooms {
		roomIDs = append(roomIDs, room.RoomID)
	}
	locks, err := s.occupancy.ResolveLocks(ctx, req.TenantID, roomIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve room locks: %w", err)
	}

	resp := &GetFloorPlanResponse{
		PlanID:        fp.PlanID,
		BuildingID:    fp.BuildingID,
		FloorNo:       fp.FloorNo,
		Published:     fp.Published,
		LockedRoomIDs: lockedRoomIDs(rooms, locks),
	}
	if fp.Layout.Valid {
		resp.Layout = json.RawMessage(fp.Layout.String)
	}
	return resp, nil
}

// ListFloorPlans 楼栋的楼层平面图列表（60秒缓存，写路径失效）
func (s *floorPlanService) ListFloorPlans(ctx context.Context, req ListFloorPlansRequest) (*ListFloorPlansResponse, error) {
	if req.TenantID == "" || req.BuildingID == "" {
		return nil, fmt.Errorf("tenant_id and building_id are required")
	}

	cacheKey := listCacheKey(req.TenantID, req.BuildingID)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey); err == nil {
			var resp ListFloorPlansResponse
			if err := json.Unmarshal([]byte(cached), &resp); err == nil {
				return &resp, nil
			}
		}
	}

	items, err := s.floorPlans.ListFloorPlans(ctx, req.TenantID, req.BuildingID)
	if err != nil {
		return nil, err
	}
	resp := &ListFloorPlansResponse{Items: items, Total: len(items)}

	if s.cache != nil {
		if raw, err := json.Marshal(resp); err == nil {
			_ = s.cache.Set(ctx, cacheKey, string(raw), 60*time.Second)
		}
	}
	return resp, nil
}

// NextFloorNumber 楼层序列器
func (s *floorPlanService) NextFloorNumber(ctx context.Context, tenantID, buildingID string) (int, error) {
	max, err := s.floorPlans.MaxFloorNo(ctx, tenantID, buildingID)
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

// ============================================
// 写入后的通知（都在事务提交之后，失败只记日志）
// ============================================

func (s *floorPlanService) afterWrite(ctx context.Context, fp *domain.FloorPlan, plan *repository.SyncPlan, event string) {
	s.invalidateList(ctx, fp.TenantID, fp.BuildingID)

	if s.events != nil {
		_, err := s.events.PublishFloorPlanEvent(ctx, stream.FloorPlanEvent{
			Event:      event,
			TenantID:   fp.TenantID,
			BuildingID: fp.BuildingID,
			PlanID:     fp.PlanID,
			FloorNo:    fp.FloorNo,
			Created:    len(plan.Creates),
			Updated:    len(plan.Updates),
			Deleted:    len(plan.Deletes),
		})
		if err != nil {
			s.logger.Warn("failed to publish floor plan event", zap.Error(err))
		}
	}

	// 已发布楼层的房间清单推送到外部房源服务（尽力而为）
	if s.listing != nil && fp.Published {
		rooms, err := s.rooms.ListActiveRooms(ctx, fp.TenantID, fp.BuildingID)
		if err != nil {
			s.logger.Warn("failed to load rooms for listing push", zap.Error(err))
			return
		}
		if err := s.listing.PushBuildingRooms(ctx, fp.TenantID, fp.BuildingID, rooms); err != nil {
			s.logger.Warn("listing push failed",
				zap.String("building_id", fp.BuildingID),
				zap.Error(err),
			)
		}
	}
}

func (s *floorPlanService) invalidateList(ctx context.Context, tenantID, buildingID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, listCacheKey(tenantID, buildingID)); err != nil {
		s.logger.Warn("failed to invalidate floor plan list cache", zap.Error(err))
	}
}

func listCacheKey(tenantID, buildingID string) string {
	return "estate:floorplans:" + tenantID + ":" + buildingID
}
