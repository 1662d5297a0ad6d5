package domain

import (
	"database/sql"
	"time"
)

// Occupancy 入住记录领域模型（对应 occupancies 表）
// ended_at 为空表示仍在住；历史记录随房间删除一并清理（楼层从属数据）
type Occupancy struct {
	OccupancyID  string       `db:"occupancy_id"`
	TenantID     string       `db:"tenant_id"`
	RoomID       int64        `db:"room_id"`
	ResidentName string       `db:"resident_name"`
	StartedAt    time.Time    `db:"started_at"`
	EndedAt      sql.NullTime `db:"ended_at"` // nullable
}

// IsCurrent 判断该入住记录在 now 时刻是否生效
func (o *Occupancy) IsCurrent(now time.Time) bool {
	if o.StartedAt.After(now) {
		return false
	}
	return !o.EndedAt.Valid || o.EndedAt.Time.After(now)
}
