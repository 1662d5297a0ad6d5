package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"estate-data/internal/domain"
	"estate-data/internal/layout"

	"github.com/google/uuid"
)

// MemoryInventory supports the floor-plan engine when DB is disabled.
// 同时充当服务层单元测试的存储替身；锁语义与Postgres实现保持一致。
type MemoryInventory struct {
	mu          sync.Mutex
	buildings   map[string]*domain.Building  // buildingID -> Building
	plans       map[string]*domain.FloorPlan // planID -> FloorPlan
	rooms       map[int64]*domain.Room       // roomID -> Room
	occupancies []*domain.Occupancy
	contracts   []*domain.Contract
	nextRoomID  int64
}

// NewMemoryInventory 创建内存库存
func NewMemoryInventory() *MemoryInventory {
	return &MemoryInventory{
		buildings:  map[string]*domain.Building{},
		plans:      map[string]*domain.FloorPlan{},
		rooms:      map[int64]*domain.Room{},
		nextRoomID: 1,
	}
}

// 确保实现了全部接口
var (
	_ BuildingsRepository  = (*MemoryInventory)(nil)
	_ RoomsRepository      = (*MemoryInventory)(nil)
	_ OccupancyRepository  = (*MemoryInventory)(nil)
	_ FloorPlansRepository = (*MemoryInventory)(nil)
)

// ============================================
// 数据填充（DB禁用模式的引导 + 测试）
// ============================================

// AddBuilding 登记楼栋，返回building_id
func (m *MemoryInventory) AddBuilding(tenantID, name string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := &domain.Building{
		BuildingID:   uuid.NewString(),
		TenantID:     tenantID,
		BuildingName: name,
	}
	m.buildings[b.BuildingID] = b
	return b.BuildingID
}

// AddOccupancy 登记一条当前生效的入住记录
func (m *MemoryInventory) AddOccupancy(tenantID string, roomID int64, residentName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.occupancies = append(m.occupancies, &domain.Occupancy{
		OccupancyID:  uuid.NewString(),
		TenantID:     tenantID,
		RoomID:       roomID,
		ResidentName: residentName,
		StartedAt:    time.Now().Add(-time.Hour),
	})
}

// AddContract 登记一份合同
func (m *MemoryInventory) AddContract(tenantID string, roomID int64, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contracts = append(m.contracts, &domain.Contract{
		ContractID: uuid.NewString(),
		TenantID:   tenantID,
		RoomID:     roomID,
		Status:     status,
		SignedAt:   time.Now(),
	})
}

// SetRoomStatus 修改房间状态（测试维修态等场景）
func (m *MemoryInventory) SetRoomStatus(roomID int64, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if room, ok := m.rooms[roomID]; ok {
		room.Status = status
	}
}

// ============================================
// BuildingsRepository
// ============================================

func (m *MemoryInventory) GetBuilding(_ context.Context, tenantID, buildingID string) (*domain.Building, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buildings[buildingID]
	if !ok || b.TenantID != tenantID {
		return nil, fmt.Errorf("building not found")
	}
	cp := *b
	return &cp, nil
}

// ============================================
// RoomsRepository
// ============================================

func (m *MemoryInventory) GetRoomsByFloor(_ context.Context, tenantID, buildingID string, floorNo int) ([]*domain.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rooms []*domain.Room
	for _, room := range m.rooms {
		if room.TenantID == tenantID && room.BuildingID == buildingID && room.FloorNo == floorNo && room.IsActive {
			cp := *room
			rooms = append(rooms, &cp)
		}
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].RoomNumber < rooms[j].RoomNumber })
	return rooms, nil
}

func (m *MemoryInventory) ListActiveRooms(_ context.Context, tenantID, buildingID string) ([]*domain.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rooms []*domain.Room
	for _, room := range m.rooms {
		if room.TenantID == tenantID && room.BuildingID == buildingID && room.IsActive {
			cp := *room
			rooms = append(rooms, &cp)
		}
	}
	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].FloorNo != rooms[j].FloorNo {
			return rooms[i].FloorNo < rooms[j].FloorNo
		}
		return rooms[i].RoomNumber < rooms[j].RoomNumber
	})
	return rooms, nil
}

// ============================================
// OccupancyRepository
// ============================================

func (m *MemoryInventory) ResolveLocks(_ context.Context, tenantID string, roomIDs []int64) (map[int64]RoomLock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	locks := make(map[int64]RoomLock, len(roomIDs))
	for _, id := range roomIDs {
		lock := RoomLock{}
		if room, ok := m.rooms[id]; ok && room.TenantID == tenantID {
			lock.Status = room.Status
		}
		for _, o := range m.occupancies {
			if o.TenantID == tenantID && o.RoomID == id && o.IsCurrent(now) {
				lock.CurrentOccupancies++
			}
		}
		for _, c := range m.contracts {
			if c.TenantID == tenantID && c.RoomID == id {
				lock.ContractRefs++
				if c.Status == domain.ContractStatusActive {
					lock.ActiveContractRefs++
				}
			}
		}
		locks[id] = lock
	}
	return locks, nil
}

// ============================================
// FloorPlansRepository
// ============================================

func (m *MemoryInventory) GetFloorPlan(_ context.Context, tenantID, planID string) (*domain.FloorPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fp, ok := m.plans[planID]
	if !ok || fp.TenantID != tenantID {
		return nil, fmt.Errorf("floor plan not found")
	}
	cp := *fp
	return &cp, nil
}

func (m *MemoryInventory) GetFloorPlanByFloor(_ context.Context, tenantID, buildingID string, floorNo int) (*domain.FloorPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, fp := range m.plans {
		if fp.TenantID == tenantID && fp.BuildingID == buildingID && fp.FloorNo == floorNo {
			cp := *fp
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("floor plan not found")
}

func (m *MemoryInventory) ListFloorPlans(_ context.Context, tenantID, buildingID string) ([]*FloorPlanSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*FloorPlanSummary
	for _, fp := range m.plans {
		if fp.TenantID != tenantID || fp.BuildingID != buildingID {
			continue
		}
		count := 0
		for _, room := range m.rooms {
			if room.BuildingID == buildingID && room.FloorNo == fp.FloorNo && room.IsActive {
				count++
			}
		}
		items = append(items, &FloorPlanSummary{
			PlanID:    fp.PlanID,
			FloorNo:   fp.FloorNo,
			Published: fp.Published,
			RoomCount: count,
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].FloorNo < items[j].FloorNo })
	return items, nil
}

func (m *MemoryInventory) MaxFloorNo(_ context.Context, tenantID, buildingID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxFloorNoLocked(tenantID, buildingID), nil
}

func (m *MemoryInventory) maxFloorNoLocked(tenantID, buildingID string) int {
	max := 0
	for _, fp := range m.plans {
		if fp.TenantID == tenantID && fp.BuildingID == buildingID && fp.FloorNo > max {
			max = fp.FloorNo
		}
	}
	return max
}

func (m *MemoryInventory) CreateWithSync(_ context.Context, fp *domain.FloorPlan, g *layout.Graph, plan *SyncPlan) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if fp.FloorNo != m.maxFloorNoLocked(fp.TenantID, fp.BuildingID)+1 {
		return "", fmt.Errorf("floor %d is out of sequence", fp.FloorNo)
	}

	stored := *fp
	m.plans[fp.PlanID] = &stored

	layoutJSON, err := m.applySyncLocked(fp, g, plan)
	if err != nil {
		// 回滚：内存模式下创建即插入，失败时撤掉平面图行
		delete(m.plans, fp.PlanID)
		return "", err
	}

	if b, ok := m.buildings[fp.BuildingID]; ok {
		b.FloorCount = fp.FloorNo
	}
	return layoutJSON, nil
}

func (m *MemoryInventory) UpdateWithSync(_ context.Context, fp *domain.FloorPlan, g *layout.Graph, plan *SyncPlan) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.plans[fp.PlanID]
	if !ok || stored.TenantID != fp.TenantID {
		return "", fmt.Errorf("floor plan not found")
	}

	layoutJSON, err := m.applySyncLocked(fp, g, plan)
	if err != nil {
		return "", err
	}
	stored.Published = fp.Published
	return layoutJSON, nil
}

// applySyncLocked 应用同步计划。内存模式下先做全部检查再做变更，
// 保持与Postgres事务一致的"全有或全无"语义。
func (m *MemoryInventory) applySyncLocked(fp *domain.FloorPlan, g *layout.Graph, plan *SyncPlan) (string, error) {
	// 先检查：跨楼层编号唯一性（对应激活房间部分唯一索引）
	for _, c := range plan.Creates {
		for _, room := range m.rooms {
			if room.TenantID == fp.TenantID && room.BuildingID == fp.BuildingID &&
				room.IsActive && room.RoomNumber == c.RoomNumber {
				return "", fmt.Errorf("failed to create room %s: duplicate room number", c.RoomNumber)
			}
		}
	}
	for _, u := range plan.Updates {
		if _, ok := m.rooms[u.RoomID]; !ok {
			return "", fmt.Errorf("room %d disappeared during sync", u.RoomID)
		}
	}

	bindings := make(map[string]layout.Annotation, len(plan.Bindings)+len(plan.Creates))
	for nodeID, a := range plan.Bindings {
		bindings[nodeID] = a
	}

	for _, c := range plan.Creates {
		roomID := m.nextRoomID
		m.nextRoomID++
		m.rooms[roomID] = &domain.Room{
			RoomID:     roomID,
			TenantID:   fp.TenantID,
			BuildingID: fp.BuildingID,
			FloorNo:    fp.FloorNo,
			RoomNumber: c.RoomNumber,
			FloorArea:  c.FloorArea,
			MaxTenants: c.MaxTenants,
			IsActive:   true,
			Status:     domain.RoomStatusAvailable,
		}
		bindings[c.NodeID] = layout.Annotation{RoomID: roomID, FloorArea: c.FloorArea}
	}
	for _, u := range plan.Updates {
		room := m.rooms[u.RoomID]
		room.RoomNumber = u.RoomNumber
		room.FloorArea = u.FloorArea
		room.MaxTenants = u.MaxTenants
	}
	for _, d := range plan.Deletes {
		if d.Deactivate {
			if room, ok := m.rooms[d.RoomID]; ok {
				room.IsActive = false
			}
			continue
		}
		delete(m.rooms, d.RoomID)
		m.deleteOccupanciesLocked(fp.TenantID, d.RoomID)
	}

	layout.Annotate(g, bindings)
	layoutJSON, err := g.Marshal()
	if err != nil {
		return "", fmt.Errorf("failed to marshal annotated layout: %w", err)
	}

	stored := m.plans[fp.PlanID]
	stored.Layout.String = string(layoutJSON)
	stored.Layout.Valid = true
	return string(layoutJSON), nil
}

func (m *MemoryInventory) deleteOccupanciesLocked(tenantID string, roomID int64) {
	kept := m.occupancies[:0]
	for _, o := range m.occupancies {
		if o.TenantID == tenantID && o.RoomID == roomID {
			continue
		}
		kept = append(kept, o)
	}
	m.occupancies = kept
}

func (m *MemoryInventory) UpdateMeta(_ context.Context, tenantID, planID string, published bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	fp, ok := m.plans[planID]
	if !ok || fp.TenantID != tenantID {
		return fmt.Errorf("floor plan not found")
	}
	fp.Published = published
	return nil
}

func (m *MemoryInventory) DeleteWithRooms(_ context.Context, tenantID, planID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	fp, ok := m.plans[planID]
	if !ok || fp.TenantID != tenantID {
		return fmt.Errorf("floor plan not found")
	}

	now := time.Now()
	for _, room := range m.rooms {
		if room.BuildingID != fp.BuildingID || room.FloorNo != fp.FloorNo {
			continue
		}
		if room.Status == domain.RoomStatusUnderRepair {
			return fmt.Errorf("floor %d has rooms under repair, occupied, or under active contract", fp.FloorNo)
		}
		for _, o := range m.occupancies {
			if o.RoomID == room.RoomID && o.IsCurrent(now) {
				return fmt.Errorf("floor %d has rooms under repair, occupied, or under active contract", fp.FloorNo)
			}
		}
		for _, c := range m.contracts {
			if c.RoomID == room.RoomID && c.Status == domain.ContractStatusActive {
				return fmt.Errorf("floor %d has rooms under repair, occupied, or under active contract", fp.FloorNo)
			}
		}
	}

	for id, room := range m.rooms {
		if room.BuildingID != fp.BuildingID || room.FloorNo != fp.FloorNo {
			continue
		}
		hasContract := false
		for _, c := range m.contracts {
			if c.RoomID == id {
				hasContract = true
				break
			}
		}
		if hasContract {
			// 历史合同引用：只停用
			room.IsActive = false
			continue
		}
		delete(m.rooms, id)
		m.deleteOccupanciesLocked(tenantID, id)
	}
	delete(m.plans, planID)

	if b, ok := m.buildings[fp.BuildingID]; ok {
		b.FloorCount = m.maxFloorNoLocked(tenantID, fp.BuildingID)
	}
	return nil
}
