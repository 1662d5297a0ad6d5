package repository

import (
	"context"
	"database/sql"
	"fmt"

	"estate-data/internal/domain"
)

// PostgresRoomsRepository 房间库存Repository实现
type PostgresRoomsRepository struct {
	db *sql.DB
}

// NewPostgresRoomsRepository 创建房间Repository
func NewPostgresRoomsRepository(db *sql.DB) *PostgresRoomsRepository {
	return &PostgresRoomsRepository{db: db}
}

// 确保实现了接口
var _ RoomsRepository = (*PostgresRoomsRepository)(nil)

const roomColumns = `
	room_id,
	tenant_id::text,
	building_id::text,
	floor_no,
	room_number,
	floor_area,
	max_tenants,
	is_active,
	status
`

// GetRoomsByFloor 获取指定楼栋+楼层的激活房间
func (r *PostgresRoomsRepository) GetRoomsByFloor(ctx context.Context, tenantID, buildingID string, floorNo int) ([]*domain.Room, error) {
	if tenantID == "" || buildingID == "" {
		return nil, fmt.Errorf("tenant_id and building_id are required")
	}

	query := `
		SELECT ` + roomColumns + `
		FROM rooms
		WHERE tenant_id = $1 AND building_id = $2 AND floor_no = $3 AND is_active = true
		ORDER BY room_number
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, buildingID, floorNo)
	if err != nil {
		return nil, fmt.Errorf("failed to query rooms: %w", err)
	}
	defer rows.Close()

	return scanRooms(rows)
}

// ListActiveRooms 获取楼栋全部激活房间（跨楼层）
func (r *PostgresRoomsRepository) ListActiveRooms(ctx context.Context, tenantID, buildingID string) ([]*domain.Room, error) {
	if tenantID == "" || buildingID == "" {
		return nil, fmt.Errorf("tenant_id and building_id are required")
	}

	query := `
		SELECT ` + roomColumns + `
		FROM rooms
		WHERE tenant_id = $1 AND building_id = $2 AND is_active = true
		ORDER BY floor_no, room_number
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, buildingID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rooms: %w", err)
	}
	defer rows.Close()

	return scanRooms(rows)
}

func scanRooms(rows *sql.Rows) ([]*domain.Room, error) {
	var rooms []*domain.Room
	for rows.Next() {
		var room domain.Room
		if err := rows.Scan(
			&room.RoomID,
			&room.TenantID,
			&room.BuildingID,
			&room.FloorNo,
			&room.RoomNumber,
			&room.FloorArea,
			&room.MaxTenants,
			&room.IsActive,
			&room.Status,
		); err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, &room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rooms: %w", err)
	}
	return rooms, nil
}
