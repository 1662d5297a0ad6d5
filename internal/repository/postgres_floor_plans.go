package repository

import (
	"context"
	"database/sql"
	"fmt"

	"estate-data/internal/domain"
	"estate-data/internal/layout"
)

// PostgresFloorPlansRepository 楼层平面图Repository实现。
// 持有房间同步器的事务边界：锁复查、房间增删改、布局标注回写在一个事务内完成。
type PostgresFloorPlansRepository struct {
	db *sql.DB
}

// NewPostgresFloorPlansRepository 创建楼层平面图Repository
func NewPostgresFloorPlansRepository(db *sql.DB) *PostgresFloorPlansRepository {
	return &PostgresFloorPlansRepository{db: db}
}

// 确保实现了接口
var _ FloorPlansRepository = (*PostgresFloorPlansRepository)(nil)

const floorPlanColumns = `
	plan_id::text,
	tenant_id::text,
	building_id::text,
	floor_no,
	layout::text,
	published,
	created_by,
	created_at,
	updated_at
`

// GetFloorPlan 根据plan_id获取楼层平面图
func (r *PostgresFloorPlansRepository) GetFloorPlan(ctx context.Context, tenantID, planID string) (*domain.FloorPlan, error) {
	if tenantID == "" || planID == "" {
		return nil, fmt.Errorf("tenant_id and plan_id are required")
	}

	query := `
		SELECT ` + floorPlanColumns + `
		FROM floor_plans
		WHERE tenant_id = $1 AND plan_id = $2
	`
	return r.scanFloorPlan(r.db.QueryRowContext(ctx, query, tenantID, planID))
}

// GetFloorPlanByFloor 根据楼栋+楼层号获取楼层平面图
func (r *PostgresFloorPlansRepository) GetFloorPlanByFloor(ctx context.Context, tenantID, buildingID string, floorNo int) (*domain.FloorPlan, error) {
	if tenantID == "" || buildingID == "" {
		return nil, fmt.Errorf("tenant_id and building_id are required")
	}

	query := `
		SELECT ` + floorPlanColumns + `
		FROM floor_plans
		WHERE tenant_id = $1 AND building_id = $2 AND floor_no = $3
	`
	return r.scanFloorPlan(r.db.QueryRowContext(ctx, query, tenantID, buildingID, floorNo))
}

func (r *PostgresFloorPlansRepository) scanFloorPlan(row *sql.Row) (*domain.FloorPlan, error) {
	var fp domain.FloorPlan
	err := row.Scan(
		&fp.PlanID,
		&fp.TenantID,
		&fp.BuildingID,
		&fp.FloorNo,
		&fp.Layout,
		&fp.Published,
		&fp.CreatedBy,
		&fp.CreatedAt,
		&fp.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("floor plan not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get floor plan: %w", err)
	}
	return &fp, nil
}

// ListFloorPlans 列出楼栋的全部楼层平面图（含房间数）
func (r *PostgresFloorPlansRepository) ListFloorPlans(ctx context.Context, tenantID, buildingID string) ([]*FloorPlanSummary, error) {
	if tenantID == "" || buildingID == "" {
		return nil, fmt.Errorf("tenant_id and building_id are required")
	}

	query := `
		SELECT
			fp.plan_id::text,
			fp.floor_no,
			fp.published,
			COALESCE(rc.room_count, 0)
		FROM floor_plans fp
		LEFT JOIN (
			SELECT building_id, floor_no, COUNT(*) AS room_count
			FROM rooms
			WHERE tenant_id = $1 AND is_active = true
			GROUP BY building_id, floor_no
		) rc ON rc.building_id = fp.building_id AND rc.floor_no = fp.floor_no
		WHERE fp.tenant_id = $1 AND fp.building_id = $2
		ORDER BY fp.floor_no
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, buildingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list floor plans: %w", err)
	}
	defer rows.Close()

	var items []*FloorPlanSummary
	for rows.Next() {
		var s FloorPlanSummary
		if err := rows.Scan(&s.PlanID, &s.FloorNo, &s.Published, &s.RoomCount); err != nil {
			return nil, fmt.Errorf("failed to scan floor plan summary: %w", err)
		}
		items = append(items, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate floor plans: %w", err)
	}
	return items, nil
}

// MaxFloorNo 返回楼栋现有楼层平面图的最大楼层号（没有时为 0）
func (r *PostgresFloorPlansRepository) MaxFloorNo(ctx context.Context, tenantID, buildingID string) (int, error) {
	var max int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(floor_no), 0) FROM floor_plans WHERE tenant_id = $1 AND building_id = $2`,
		tenantID, buildingID,
	).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to query max floor number: %w", err)
	}
	return max, nil
}

// CreateWithSync 创建楼层平面图并同步房间（单事务）：
//  1. 复查楼层顺序（floor_no 必须等于当前最大楼层号+1，并发兜底）
//  2. 插入 floor_plans 行
//  3. 应用同步计划（此路径只会有新建）
//  4. 标注布局并回写 layout 列
//  5. 楼栋 floor_count 推进到新楼层号
func (r *PostgresFloorPlansRepository) CreateWithSync(ctx context.Context, fp *domain.FloorPlan, g *layout.Graph, plan *SyncPlan) (string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 1. 楼层顺序复查（事务内，防止并发插队）
	var maxFloor int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(floor_no), 0) FROM floor_plans WHERE tenant_id = $1 AND building_id = $2`,
		fp.TenantID, fp.BuildingID,
	).Scan(&maxFloor)
	if err != nil {
		return "", fmt.Errorf("failed to query max floor number: %w", err)
	}
	if fp.FloorNo != maxFloor+1 {
		return "", fmt.Errorf("floor %d is out of sequence: next floor for this building is %d", fp.FloorNo, maxFloor+1)
	}

	// 2. 插入楼层平面图（布局列先空着，标注后统一回写）
	_, err = tx.ExecContext(ctx,
		`INSERT INTO floor_plans (plan_id, tenant_id, building_id, floor_no, published, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		fp.PlanID, fp.TenantID, fp.BuildingID, fp.FloorNo, fp.Published, fp.CreatedBy,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert floor plan: %w", err)
	}

	// 3+4. 应用同步计划并回写标注布局
	layoutJSON, err := r.applySyncTx(ctx, tx, fp, g, plan)
	if err != nil {
		return "", err
	}

	// 5. 推进楼栋楼层数
	_, err = tx.ExecContext(ctx,
		`UPDATE buildings SET floor_count = $3, updated_at = NOW()
		 WHERE tenant_id = $1 AND building_id = $2`,
		fp.TenantID, fp.BuildingID, fp.FloorNo,
	)
	if err != nil {
		return "", fmt.Errorf("failed to advance building floor count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit floor plan creation: %w", err)
	}
	return layoutJSON, nil
}

// UpdateWithSync 更新楼层平面图并同步房间（单事务）
func (r *PostgresFloorPlansRepository) UpdateWithSync(ctx context.Context, fp *domain.FloorPlan, g *layout.Graph, plan *SyncPlan) (string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	layoutJSON, err := r.applySyncTx(ctx, tx, fp, g, plan)
	if err != nil {
		return "", err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE floor_plans SET published = $3, updated_at = NOW()
		 WHERE tenant_id = $1 AND plan_id = $2`,
		fp.TenantID, fp.PlanID, fp.Published,
	)
	if err != nil {
		return "", fmt.Errorf("failed to update floor plan: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit floor plan update: %w", err)
	}
	return layoutJSON, nil
}

// applySyncTx 在事务内应用同步计划并把标注后的布局写回 layout 列
func (r *PostgresFloorPlansRepository) applySyncTx(ctx context.Context, tx *sql.Tx, fp *domain.FloorPlan, g *layout.Graph, plan *SyncPlan) (string, error) {
	bindings := make(map[string]layout.Annotation, len(plan.Bindings)+len(plan.Creates))
	for nodeID, a := range plan.Bindings {
		bindings[nodeID] = a
	}

	// 新建房间：rooms 表的激活房间编号部分唯一索引兜底跨楼层唯一性，
	// 纯计算阶段漏掉的并发重复在这里以约束冲突收场并回滚整个事务
	for _, c := range plan.Creates {
		var roomID int64
		err := tx.QueryRowContext(ctx,
			`INSERT INTO rooms (tenant_id, building_id, floor_no, room_number, floor_area, max_tenants, is_active, status)
			 VALUES ($1, $2, $3, $4, $5, $6, true, $7)
			 RETURNING room_id`,
			fp.TenantID, fp.BuildingID, fp.FloorNo, c.RoomNumber, c.FloorArea, c.MaxTenants, domain.RoomStatusAvailable,
		).Scan(&roomID)
		if err != nil {
			return "", fmt.Errorf("failed to create room %s: %w", c.RoomNumber, err)
		}
		bindings[c.NodeID] = layout.Annotation{RoomID: roomID, FloorArea: c.FloorArea}
	}

	// 更新房间编号/面积并重算最大入住人数
	for _, u := range plan.Updates {
		res, err := tx.ExecContext(ctx,
			`UPDATE rooms SET room_number = $3, floor_area = $4, max_tenants = $5
			 WHERE tenant_id = $1 AND room_id = $2`,
			fp.TenantID, u.RoomID, u.RoomNumber, u.FloorArea, u.MaxTenants,
		)
		if err != nil {
			return "", fmt.Errorf("failed to update room %s: %w", u.RoomNumber, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return "", fmt.Errorf("room %d disappeared during sync", u.RoomID)
		}
	}

	// 移除房间：入住历史是楼层从属数据，随房间删除一并清理；
	// 被历史合同引用过的房间只停用不删行
	for _, d := range plan.Deletes {
		// 事务内兜底：纯计算阶段之后新签的合同或入住会在这里挡下移除
		var blocked bool
		err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(
				SELECT 1 FROM occupancies
				WHERE tenant_id = $1 AND room_id = $2
				  AND started_at <= NOW() AND (ended_at IS NULL OR ended_at > NOW())
			) OR EXISTS(
				SELECT 1 FROM contracts
				WHERE tenant_id = $1 AND room_id = $2 AND status = 'active'
			)`,
			fp.TenantID, d.RoomID,
		).Scan(&blocked)
		if err != nil {
			return "", fmt.Errorf("failed to re-check room %d occupancy: %w", d.RoomID, err)
		}
		if blocked {
			return "", fmt.Errorf("room %d became occupied during sync", d.RoomID)
		}

		if d.Deactivate {
			if _, err := tx.ExecContext(ctx,
				`UPDATE rooms SET is_active = false WHERE tenant_id = $1 AND room_id = $2`,
				fp.TenantID, d.RoomID,
			); err != nil {
				return "", fmt.Errorf("failed to deactivate room %d: %w", d.RoomID, err)
			}
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM occupancies WHERE tenant_id = $1 AND room_id = $2`,
			fp.TenantID, d.RoomID,
		); err != nil {
			return "", fmt.Errorf("failed to delete occupancy history for room %d: %w", d.RoomID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM rooms WHERE tenant_id = $1 AND room_id = $2`,
			fp.TenantID, d.RoomID,
		); err != nil {
			return "", fmt.Errorf("failed to delete room %d: %w", d.RoomID, err)
		}
	}

	// 标注：把持久化房间ID与最终面积写回布局图后整体回写
	layout.Annotate(g, bindings)
	layoutJSON, err := g.Marshal()
	if err != nil {
		return "", fmt.Errorf("failed to marshal annotated layout: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE floor_plans SET layout = $3::jsonb, updated_at = NOW()
		 WHERE tenant_id = $1 AND plan_id = $2`,
		fp.TenantID, fp.PlanID, string(layoutJSON),
	)
	if err != nil {
		return "", fmt.Errorf("failed to write annotated layout: %w", err)
	}

	return string(layoutJSON), nil
}

// UpdateMeta 仅更新发布标记
func (r *PostgresFloorPlansRepository) UpdateMeta(ctx context.Context, tenantID, planID string, published bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE floor_plans SET published = $3, updated_at = NOW()
		 WHERE tenant_id = $1 AND plan_id = $2`,
		tenantID, planID, published,
	)
	if err != nil {
		return fmt.Errorf("failed to update floor plan meta: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("floor plan not found")
	}
	return nil
}

// DeleteWithRooms 删除楼层平面图（单事务）：
// 级联删除该楼层的房间与入住历史，并把楼栋 floor_count 重算为剩余最大楼层号。
// 占用/维修检查由服务层先行完成，这里只做事务内兜底。
func (r *PostgresFloorPlansRepository) DeleteWithRooms(ctx context.Context, tenantID, planID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var buildingID string
	var floorNo int
	err = tx.QueryRowContext(ctx,
		`SELECT building_id::text, floor_no FROM floor_plans WHERE tenant_id = $1 AND plan_id = $2`,
		tenantID, planID,
	).Scan(&buildingID, &floorNo)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("floor plan not found: %w", err)
		}
		return fmt.Errorf("failed to load floor plan: %w", err)
	}

	// 事务内兜底：锁定检查之后出现的新入住/合同/维修状态挡下整个删除
	var blocked bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM rooms rm
			WHERE rm.tenant_id = $1 AND rm.building_id = $2 AND rm.floor_no = $3
			  AND (rm.status = 'under_repair'
			       OR EXISTS(SELECT 1 FROM occupancies o
			                 WHERE o.tenant_id = $1 AND o.room_id = rm.room_id
			                   AND o.started_at <= NOW() AND (o.ended_at IS NULL OR o.ended_at > NOW()))
			       OR EXISTS(SELECT 1 FROM contracts c
			                 WHERE c.tenant_id = $1 AND c.room_id = rm.room_id AND c.status = 'active'))
		)`,
		tenantID, buildingID, floorNo,
	).Scan(&blocked)
	if err != nil {
		return fmt.Errorf("failed to check floor dependencies: %w", err)
	}
	if blocked {
		return fmt.Errorf("floor %d has rooms under repair, occupied, or under active contract", floorNo)
	}

	// 被历史合同引用过的房间只停用不删行，其余连同入住历史删除
	if _, err := tx.ExecContext(ctx,
		`UPDATE rooms SET is_active = false
		 WHERE tenant_id = $1 AND building_id = $2 AND floor_no = $3
		   AND EXISTS(SELECT 1 FROM contracts c WHERE c.tenant_id = $1 AND c.room_id = rooms.room_id)`,
		tenantID, buildingID, floorNo,
	); err != nil {
		return fmt.Errorf("failed to deactivate contracted rooms: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM occupancies WHERE tenant_id = $1 AND room_id IN (
			SELECT room_id FROM rooms
			WHERE tenant_id = $1 AND building_id = $2 AND floor_no = $3 AND is_active = true
		)`,
		tenantID, buildingID, floorNo,
	); err != nil {
		return fmt.Errorf("failed to delete occupancy history: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM rooms
		 WHERE tenant_id = $1 AND building_id = $2 AND floor_no = $3 AND is_active = true`,
		tenantID, buildingID, floorNo,
	); err != nil {
		return fmt.Errorf("failed to delete rooms: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM floor_plans WHERE tenant_id = $1 AND plan_id = $2`,
		tenantID, planID,
	); err != nil {
		return fmt.Errorf("failed to delete floor plan: %w", err)
	}

	// 楼栋楼层数重算为剩余最大楼层号（没有剩余时为 0）
	if _, err := tx.ExecContext(ctx,
		`UPDATE buildings SET floor_count = (
			SELECT COALESCE(MAX(floor_no), 0) FROM floor_plans
			WHERE tenant_id = $1 AND building_id = $2
		), updated_at = NOW()
		WHERE tenant_id = $1 AND building_id = $2`,
		tenantID, buildingID,
	); err != nil {
		return fmt.Errorf("failed to recompute building floor count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit floor plan deletion: %w", err)
	}
	return nil
}
