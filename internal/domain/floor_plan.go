package domain

import (
	"database/sql"
)

// FloorPlan 楼层平面图领域模型（对应 floor_plans 表）
// layout 为 JSONB，存储标注后的布局图（节点数组）
type FloorPlan struct {
	PlanID     string         `db:"plan_id"`
	TenantID   string         `db:"tenant_id"`
	BuildingID string         `db:"building_id"`
	FloorNo    int            `db:"floor_no"`
	Layout     sql.NullString `db:"layout"`    // nullable, JSONB
	Published  bool           `db:"published"` // NOT NULL, default false
	CreatedBy  sql.NullString `db:"created_by"`
	CreatedAt  sql.NullTime   `db:"created_at"`
	UpdatedAt  sql.NullTime   `db:"updated_at"`
}
