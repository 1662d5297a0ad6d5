package repository

import (
	"context"
	"database/sql"
	"fmt"

	"estate-data/internal/domain"
)

// PostgresBuildingsRepository 楼栋Repository实现（只读：楼栋由外部协作方管理）
type PostgresBuildingsRepository struct {
	db *sql.DB
}

// NewPostgresBuildingsRepository 创建楼栋Repository
func NewPostgresBuildingsRepository(db *sql.DB) *PostgresBuildingsRepository {
	return &PostgresBuildingsRepository{db: db}
}

// 确保实现了接口
var _ BuildingsRepository = (*PostgresBuildingsRepository)(nil)

// GetBuilding 根据building_id获取楼栋信息
func (r *PostgresBuildingsRepository) GetBuilding(ctx context.Context, tenantID, buildingID string) (*domain.Building, error) {
	if tenantID == "" || buildingID == "" {
		return nil, fmt.Errorf("tenant_id and building_id are required")
	}

	query := `
		SELECT
			building_id::text,
			tenant_id::text,
			building_name,
			floor_count,
			created_at,
			updated_at
		FROM buildings
		WHERE tenant_id = $1 AND building_id = $2
	`

	var b domain.Building
	err := r.db.QueryRowContext(ctx, query, tenantID, buildingID).Scan(
		&b.BuildingID,
		&b.TenantID,
		&b.BuildingName,
		&b.FloorCount,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("building not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get building: %w", err)
	}

	return &b, nil
}
