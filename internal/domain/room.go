package domain

// Room 房间领域模型（对应 rooms 表）
// 房间只能通过楼层平面图同步器创建/修改/删除，不提供独立的写入口
type Room struct {
	RoomID     int64   `db:"room_id"`
	TenantID   string  `db:"tenant_id"`
	BuildingID string  `db:"building_id"`
	FloorNo    int     `db:"floor_no"`
	RoomNumber string  `db:"room_number"` // 激活房间在楼栋内唯一（跨楼层）
	FloorArea  float64 `db:"floor_area"`  // 平方米，保留2位小数
	MaxTenants int     `db:"max_tenants"` // 按面积分档：≤15→1, ≤25→2, ≤35→3, 其余→4
	IsActive   bool    `db:"is_active"`
	Status     string  `db:"status"` // available / occupied / under_repair
}

// 房间状态
const (
	RoomStatusAvailable   = "available"
	RoomStatusOccupied    = "occupied"
	RoomStatusUnderRepair = "under_repair"
)

// MaxTenantsForArea 按面积计算房间最大入住人数
func MaxTenantsForArea(area float64) int {
	switch {
	case area <= 15:
		return 1
	case area <= 25:
		return 2
	case area <= 35:
		return 3
	default:
		return 4
	}
}
