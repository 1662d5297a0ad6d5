package repository

import (
	"context"

	"estate-data/internal/domain"
	"estate-data/internal/layout"
)

// RoomLock 单个房间的占用事实（每次读写时实时计算，从不落库）
type RoomLock struct {
	CurrentOccupancies int    // 当前生效的入住记录数
	ContractRefs       int    // 引用该房间的合同总数（不区分状态）
	ActiveContractRefs int    // active 状态的合同数
	Status             string // 房间状态（under_repair 阻止楼层删除）
}

// Locked 房间是否锁定：有人在住，或任何合同（含已终止）引用过该房间。
// 锁定房间的编号与几何信息在合同存续期内必须保持稳定。
func (l RoomLock) Locked() bool {
	return l.CurrentOccupancies > 0 || l.ContractRefs > 0
}

// Deletable 房间能否随布局删除：无人在住且没有 active 合同引用
func (l RoomLock) Deletable() bool {
	return l.CurrentOccupancies == 0 && l.ActiveContractRefs == 0
}

// RoomCreate 同步计划中的新建房间
type RoomCreate struct {
	NodeID     string
	RoomNumber string
	FloorArea  float64
	MaxTenants int
}

// RoomUpdate 同步计划中的房间更新（编号或面积变动）
type RoomUpdate struct {
	RoomID     int64
	RoomNumber string
	FloorArea  float64
	MaxTenants int
}

// RoomDelete 同步计划中的房间移除。
// 被历史合同引用过的房间不能物理删除（合同纸面记录仍指向它），
// 改为置 is_active=false 退出激活库存；其余房间连同入住历史一并删除。
type RoomDelete struct {
	RoomID     int64
	Deactivate bool
}

// SyncPlan 房间同步器的调谐计划：纯计算阶段产出，事务阶段原子应用。
// Bindings 记录既有房间的节点绑定（含更新与未变动的匹配），
// 新建房间的绑定在插入取得ID后由事务阶段补齐。
type SyncPlan struct {
	Creates  []RoomCreate
	Updates  []RoomUpdate
	Deletes  []RoomDelete
	Bindings map[string]layout.Annotation
}

// Empty 计划是否不产生任何房间变更
func (p *SyncPlan) Empty() bool {
	return len(p.Creates) == 0 && len(p.Updates) == 0 && len(p.Deletes) == 0
}

// FloorPlanSummary 楼层平面图列表项
type FloorPlanSummary struct {
	PlanID    string `json:"plan_id"`
	FloorNo   int    `json:"floor_no"`
	Published bool   `json:"published"`
	RoomCount int    `json:"room_count"`
}

// BuildingsRepository 楼栋只读访问（楼栋的创建/管理是外部协作方的职责）
type BuildingsRepository interface {
	GetBuilding(ctx context.Context, tenantID, buildingID string) (*domain.Building, error)
}

// RoomsRepository 房间库存读取
type RoomsRepository interface {
	// GetRoomsByFloor 返回指定楼栋+楼层的激活房间
	GetRoomsByFloor(ctx context.Context, tenantID, buildingID string, floorNo int) ([]*domain.Room, error)
	// ListActiveRooms 返回楼栋全部激活房间（跨楼层，用于编号唯一性检查与清单导出）
	ListActiveRooms(ctx context.Context, tenantID, buildingID string) ([]*domain.Room, error)
}

// OccupancyRepository 占用锁解析器的存储接口
type OccupancyRepository interface {
	// ResolveLocks 批量计算房间的占用事实；结果包含 roomIDs 中的每个房间
	ResolveLocks(ctx context.Context, tenantID string, roomIDs []int64) (map[int64]RoomLock, error)
}

// FloorPlansRepository 楼层平面图存储。CreateWithSync / UpdateWithSync 是
// 房间同步器的事务边界：房间增删改、编号唯一性复查、布局标注与回写
// 在一个事务内完成，任一失败整体回滚。返回标注后的布局JSON。
type FloorPlansRepository interface {
	GetFloorPlan(ctx context.Context, tenantID, planID string) (*domain.FloorPlan, error)
	GetFloorPlanByFloor(ctx context.Context, tenantID, buildingID string, floorNo int) (*domain.FloorPlan, error)
	ListFloorPlans(ctx context.Context, tenantID, buildingID string) ([]*FloorPlanSummary, error)
	// MaxFloorNo 返回楼栋现有楼层平面图的最大楼层号（没有时为 0）
	MaxFloorNo(ctx context.Context, tenantID, buildingID string) (int, error)
	CreateWithSync(ctx context.Context, fp *domain.FloorPlan, g *layout.Graph, plan *SyncPlan) (string, error)
	UpdateWithSync(ctx context.Context, fp *domain.FloorPlan, g *layout.Graph, plan *SyncPlan) (string, error)
	// UpdateMeta 仅更新发布标记（不带布局的更新路径）
	UpdateMeta(ctx context.Context, tenantID, planID string, published bool) error
	// DeleteWithRooms 删除楼层平面图并级联删除该楼层房间及其入住历史，
	// 同时把楼栋 floor_count 重算为剩余最大楼层号
	DeleteWithRooms(ctx context.Context, tenantID, planID string) error
}
