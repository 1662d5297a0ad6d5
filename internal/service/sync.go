package service

import (
	"math"

	"estate-data/internal/domain"
	"estate-data/internal/layout"
	"estate-data/internal/repository"
)

// 面积比较容差（面积统一保留2位小数，numeric 读回的抖动用容差吸收）
const areaEpsilon = 0.005

// buildSyncPlan 房间同步器的纯计算阶段：把候选房间与楼层现存房间调谐为
// 一份同步计划（新建/更新/删除 + 节点绑定），不触碰任何存储。
//
// 匹配规则：候选先按已绑定的房间ID匹配，其次按房间号匹配。
// 未匹配的候选成为新建；编号或面积变动的匹配对成为更新，但锁定房间
// （在住或任何合同引用过）的编号、面积与像素几何（位置、宽高，
// 以 storedRects 中旧布局的矩形为基准）任一变动都整单拒绝；
// 现存房间没有对应候选则删除，在住或有 active 合同的房间阻止删除。
// 跨楼层编号唯一性在这里先查一遍，事务阶段由激活房间部分唯一索引兜底。
func buildSyncPlan(
	candidates []layout.RoomCandidate,
	existing []*domain.Room,
	locks map[int64]repository.RoomLock,
	storedRects map[int64]layout.Rect,
	buildingRooms []*domain.Room,
	floorNo int,
) (*repository.SyncPlan, error) {
	byID := make(map[int64]*domain.Room, len(existing))
	byNumber := make(map[string]*domain.Room, len(existing))
	for _, room := range existing {
		byID[room.RoomID] = room
		byNumber[room.RoomNumber] = room
	}

	// 楼栋内其他楼层的激活房间号（跨楼层唯一性检查对象）
	otherFloorNumbers := make(map[string]bool, len(buildingRooms))
	for _, room := range buildingRooms {
		if room.FloorNo != floorNo {
			otherFloorNumbers[room.RoomNumber] = true
		}
	}

	plan := &repository.SyncPlan{
		Bindings: make(map[string]layout.Annotation),
	}
	matched := make(map[int64]bool, len(existing))
	seenNumbers := make(map[string]bool, len(candidates))

	for _, c := range candidates {
		// 同一布局内的房间号重复
		if seenNumbers[c.RoomNumber] {
			return nil, &SyncError{Reason: ReasonDuplicateRoom, Room: c.RoomNumber}
		}
		seenNumbers[c.RoomNumber] = true

		// 匹配：优先按绑定ID，其次按房间号
		var room *domain.Room
		if c.RoomID > 0 {
			room = byID[c.RoomID]
		}
		if room == nil {
			room = byNumber[c.RoomNumber]
		}

		if room == nil {
			// 新建：房间号不能与楼栋内其他楼层的激活房间冲突
			if otherFloorNumbers[c.RoomNumber] {
				return nil, &SyncError{Reason: ReasonDuplicateRoom, Room: c.RoomNumber}
			}
			plan.Creates = append(plan.Creates, repository.RoomCreate{
				NodeID:     c.NodeID,
				RoomNumber: c.RoomNumber,
				FloorArea:  c.FloorArea,
				MaxTenants: domain.MaxTenantsForArea(c.FloorArea),
			})
			continue
		}

		if matched[room.RoomID] {
			// 两个候选指向同一现存房间，只能是编号重复
			return nil, &SyncError{Reason: ReasonDuplicateRoom, Room: c.RoomNumber}
		}
		matched[room.RoomID] = true
		plan.Bindings[c.NodeID] = layout.Annotation{RoomID: room.RoomID, FloorArea: c.FloorArea}

		numberChanged := room.RoomNumber != c.RoomNumber
		areaChanged := math.Abs(room.FloorArea-c.FloorArea) > areaEpsilon
		rectChanged := roomRectChanged(storedRects, room.RoomID, c)

		// 编号/面积/几何变更要求房间未锁定；面积不变的平移或宽高互换
		// 同样改变了合同指向的几何，一并拒绝
		if locks[room.RoomID].Locked() && (numberChanged || areaChanged || rectChanged) {
			return nil, &SyncError{Reason: ReasonLockedRoom, Room: room.RoomNumber}
		}

		// 纯几何变动不触碰房间行，布局列由事务阶段整体回写
		if !numberChanged && !areaChanged {
			continue
		}
		if numberChanged && otherFloorNumbers[c.RoomNumber] {
			return nil, &SyncError{Reason: ReasonDuplicateRoom, Room: c.RoomNumber}
		}
		plan.Updates = append(plan.Updates, repository.RoomUpdate{
			RoomID:     room.RoomID,
			RoomNumber: c.RoomNumber,
			FloorArea:  c.FloorArea,
			MaxTenants: domain.MaxTenantsForArea(c.FloorArea),
		})
	}

	// 没有候选对应的现存房间移除；在住或 active 合同阻止移除。
	// 被历史合同引用过的房间只停用不删行（合同纸面记录仍指向它）。
	for _, room := range existing {
		if matched[room.RoomID] {
			continue
		}
		lock := locks[room.RoomID]
		if !lock.Deletable() {
			return nil, &SyncError{Reason: ReasonOccupiedRoom, Room: room.RoomNumber}
		}
		plan.Deletes = append(plan.Deletes, repository.RoomDelete{
			RoomID:     room.RoomID,
			Deactivate: lock.ContractRefs > 0,
		})
	}

	return plan, nil
}

// roomRectChanged 房间的像素几何（位置与宽高）相对旧布局是否变动。
// 旧布局里没有该房间的矩形时没有可比对的基准，视为未变动。
func roomRectChanged(storedRects map[int64]layout.Rect, roomID int64, c layout.RoomCandidate) bool {
	stored, ok := storedRects[roomID]
	if !ok {
		return false
	}
	return !c.HasRect || stored != c.Rect
}

// lockedRoomIDs 返回锁定房间的ID列表（升序由调用方保证遍历来源有序）
func lockedRoomIDs(rooms []*domain.Room, locks map[int64]repository.RoomLock) []int64 {
	var ids []int64
	for _, room := range rooms {
		if locks[room.RoomID].Locked() {
			ids = append(ids, room.RoomID)
		}
	}
	return ids
}
