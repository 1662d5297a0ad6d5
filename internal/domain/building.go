package domain

import (
	"database/sql"
)

// Building 楼栋领域模型（对应 buildings 表）
// floor_count 由楼层序列器维护：等于该楼栋已创建楼层平面图的最大楼层号
type Building struct {
	BuildingID   string       `db:"building_id"`
	TenantID     string       `db:"tenant_id"`
	BuildingName string       `db:"building_name"` // NOT NULL, default '-'
	FloorCount   int          `db:"floor_count"`   // NOT NULL, default 0
	CreatedAt    sql.NullTime `db:"created_at"`    // nullable
	UpdatedAt    sql.NullTime `db:"updated_at"`    // nullable
}
