package service

import (
	"fmt"
)

// 同步失败原因
const (
	ReasonFloorSequence   = "floor_sequence"   // 楼层号不等于当前最大楼层号+1
	ReasonDuplicateRoom   = "duplicate_room"   // 房间号与楼栋内其他激活房间冲突
	ReasonLockedRoom      = "locked_room"      // 锁定房间的编号/几何变更被拒绝
	ReasonOccupiedRoom    = "occupied_room"    // 在住或有 active 合同的房间不能删除
	ReasonOutlinePinned   = "outline_pinned"   // 楼层存在锁定房间时轮廓不可变动
	ReasonFloorDependency = "floor_dependency" // 楼层删除被维修/入住/合同阻止
)

// SyncError 同步器/序列器错误：指名冲突的房间号或楼层，
// 管理端据此修正具体冲突后重新提交
type SyncError struct {
	Reason string
	Room   string // 冲突房间号（与楼层无关的错误为空）
	Floor  int    // 相关楼层号（0 表示不适用）
}

func (e *SyncError) Error() string {
	switch e.Reason {
	case ReasonFloorSequence:
		return fmt.Sprintf("floor %d is out of sequence", e.Floor)
	case ReasonDuplicateRoom:
		return fmt.Sprintf("room number %s already exists in this building", e.Room)
	case ReasonLockedRoom:
		return fmt.Sprintf("room %s is locked by current occupancy or a contract reference", e.Room)
	case ReasonOccupiedRoom:
		return fmt.Sprintf("room %s cannot be removed: it is occupied or under an active contract", e.Room)
	case ReasonOutlinePinned:
		return fmt.Sprintf("building outline on floor %d cannot change while rooms are locked", e.Floor)
	case ReasonFloorDependency:
		return fmt.Sprintf("floor %d has rooms under repair, occupied, or under active contract", e.Floor)
	}
	return "floor plan synchronization failed"
}
