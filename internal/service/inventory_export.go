package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"estate-data/internal/repository"

	"github.com/xuri/excelize/v2"
)

// RoomInventoryHeader 房间清单导出表头
var RoomInventoryHeader = []string{
	"Floor",
	"Room Number",
	"Floor Area (m²)",
	"Max Tenants",
	"Status",
	"Locked",
	"Room ID",
}

// InventoryExporter 房间清单导出（楼栋维度，含实时锁状态）
type InventoryExporter struct {
	rooms     repository.RoomsRepository
	occupancy repository.OccupancyRepository
}

// NewInventoryExporter 创建导出器
func NewInventoryExporter(rooms repository.RoomsRepository, occupancy repository.OccupancyRepository) *InventoryExporter {
	return &InventoryExporter{rooms: rooms, occupancy: occupancy}
}

// ExportRoomInventory 生成楼栋房间清单 Excel 文件
func (e *InventoryExporter) ExportRoomInventory(ctx context.Context, tenantID, buildingID string) ([]byte, error) {
	if tenantID == "" || buildingID == "" {
		return nil, fmt.Errorf("tenant_id and building_id are required")
	}

	rooms, err := e.rooms.ListActiveRooms(ctx, tenantID, buildingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	roomIDs := make([]int64, 0, len(rooms))
	for _, room := range rooms {
		roomIDs = append(roomIDs, room.RoomID)
	}
	locks, err := e.occupancy.ResolveLocks(ctx, tenantID, roomIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve room locks: %w", err)
	}

	f := excelize.NewFile()

	sheetName := "Room Inventory"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	// 删除默认的 Sheet1
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	// 表头样式
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range RoomInventoryHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to build header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to style header: %w", err)
		}
	}

	for i, room := range rooms {
		locked := "No"
		if locks[room.RoomID].Locked() {
			locked = "Yes"
		}
		values := []any{
			room.FloorNo,
			room.RoomNumber,
			room.FloorArea,
			room.MaxTenants,
			room.Status,
			locked,
			room.RoomID,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to build cell: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to write room row: %w", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportFileName 导出文件名（按楼栋+日期）
func ExportFileName(buildingID string) string {
	return fmt.Sprintf("room-inventory-%s-%s.xlsx", buildingID, time.Now().Format("20060102"))
}
