package domain

import (
	"time"
)

// Contract 租赁合同领域模型（对应 contracts 表）
// 合同一旦引用过某个房间，该房间的编号与几何信息即被锁定（含已终止合同）；
// 仅 active 状态的合同阻止删除房间
type Contract struct {
	ContractID string    `db:"contract_id"`
	TenantID   string    `db:"tenant_id"`
	RoomID     int64     `db:"room_id"`
	Status     string    `db:"status"` // active / terminated / expired
	SignedAt   time.Time `db:"signed_at"`
}

// 合同状态
const (
	ContractStatusActive     = "active"
	ContractStatusTerminated = "terminated"
	ContractStatusExpired    = "expired"
)
