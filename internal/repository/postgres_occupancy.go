package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// PostgresOccupancyRepository 占用锁解析器的Postgres实现。
// 锁状态从不落库：每次调用都基于当前的入住记录与合同引用实时计算。
type PostgresOccupancyRepository struct {
	db *sql.DB
}

// NewPostgresOccupancyRepository 创建占用Repository
func NewPostgresOccupancyRepository(db *sql.DB) *PostgresOccupancyRepository {
	return &PostgresOccupancyRepository{db: db}
}

// 确保实现了接口
var _ OccupancyRepository = (*PostgresOccupancyRepository)(nil)

// ResolveLocks 批量计算房间的占用事实：
//   - 当前生效的入住记录数（started_at <= now 且未结束或尚未到期）
//   - 合同引用总数（不区分状态：合同一旦引用过房间即锁定其编号与几何）
//   - active 合同数（阻止删除）
//   - 房间状态（under_repair 阻止楼层删除）
func (r *PostgresOccupancyRepository) ResolveLocks(ctx context.Context, tenantID string, roomIDs []int64) (map[int64]RoomLock, error) {
	locks := make(map[int64]RoomLock, len(roomIDs))
	if len(roomIDs) == 0 {
		return locks, nil
	}
	if tenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}

	query := `
		SELECT
			rm.room_id,
			rm.status,
			COALESCE(occ.current_count, 0),
			COALESCE(con.total_count, 0),
			COALESCE(con.active_count, 0)
		FROM rooms rm
		LEFT JOIN (
			SELECT room_id, COUNT(*) AS current_count
			FROM occupancies
			WHERE tenant_id = $1
			  AND room_id = ANY($2)
			  AND started_at <= NOW()
			  AND (ended_at IS NULL OR ended_at > NOW())
			GROUP BY room_id
		) occ ON occ.room_id = rm.room_id
		LEFT JOIN (
			SELECT room_id,
			       COUNT(*) AS total_count,
			       COUNT(*) FILTER (WHERE status = 'active') AS active_count
			FROM contracts
			WHERE tenant_id = $1
			  AND room_id = ANY($2)
			GROUP BY room_id
		) con ON con.room_id = rm.room_id
		WHERE rm.tenant_id = $1 AND rm.room_id = ANY($2)
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, pq.Array(roomIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve room locks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var roomID int64
		var lock RoomLock
		if err := rows.Scan(
			&roomID,
			&lock.Status,
			&lock.CurrentOccupancies,
			&lock.ContractRefs,
			&lock.ActiveContractRefs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan room lock: %w", err)
		}
		locks[roomID] = lock
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate room locks: %w", err)
	}

	// 查不到的房间按无锁处理（可能刚被并发删除，事务阶段会再次兜底）
	for _, id := range roomIDs {
		if _, ok := locks[id]; !ok {
			locks[id] = RoomLock{}
		}
	}

	return locks, nil
}
