package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"estate-data/internal/service"

	"go.uber.org/zap"
)

// FloorPlanHandler 楼层平面图引擎 Handler。
// 只做传输层转换：请求解码、租户提取、错误转 Result 封套，
// 引擎逻辑全部在 service 层。
type FloorPlanHandler struct {
	floorPlans service.FloorPlanService
	exporter   *service.InventoryExporter
	logger     *zap.Logger
}

// NewFloorPlanHandler 创建楼层平面图 Handler
func NewFloorPlanHandler(floorPlans service.FloorPlanService, exporter *service.InventoryExporter, logger *zap.Logger) *FloorPlanHandler {
	return &FloorPlanHandler{
		floorPlans: floorPlans,
		exporter:   exporter,
		logger:     logger,
	}
}

// ServeHTTP 实现 http.Handler 接口
func (h *FloorPlanHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// 路由分发
	switch {
	case r.URL.Path == "/estate/api/v1/floor-plans" && r.Method == http.MethodPost:
		h.CreateFloorPlan(w, r)
	case strings.HasPrefix(r.URL.Path, "/estate/api/v1/floor-plans/") && r.Method == http.MethodGet:
		h.GetFloorPlan(w, r)
	case strings.HasPrefix(r.URL.Path, "/estate/api/v1/floor-plans/") && r.Method == http.MethodPut:
		h.UpdateFloorPlan(w, r)
	case strings.HasPrefix(r.URL.Path, "/estate/api/v1/floor-plans/") && r.Method == http.MethodDelete:
		h.DeleteFloorPlan(w, r)

	case strings.HasPrefix(r.URL.Path, "/estate/api/v1/buildings/") && strings.HasSuffix(r.URL.Path, "/floor-plans") && r.Method == http.MethodGet:
		h.ListFloorPlans(w, r)
	case strings.HasPrefix(r.URL.Path, "/estate/api/v1/buildings/") && strings.HasSuffix(r.URL.Path, "/next-floor") && r.Method == http.MethodGet:
		h.NextFloorNumber(w, r)
	case strings.HasPrefix(r.URL.Path, "/estate/api/v1/buildings/") && strings.HasSuffix(r.URL.Path, "/room-inventory.xlsx") && r.Method == http.MethodGet:
		h.ExportRoomInventory(w, r)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// createFloorPlanBody 创建请求体
type createFloorPlanBody struct {
	BuildingID string          `json:"building_id"`
	FloorNo    int             `json:"floor_no"`
	Layout     json.RawMessage `json:"layout"`
	Published  bool            `json:"published"`
	CreatedBy  string          `json:"created_by"`
}

func (h *FloorPlanHandler) CreateFloorPlan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID, ok := h.tenantIDFromReq(w, r)
	if !ok {
		return
	}

	var body createFloorPlanBody
	if err := readBodyJSON(r, 4<<20, &body); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid request body"))
		return
	}

	resp, err := h.floorPlans.CreateFloorPlan(ctx, service.CreateFloorPlanRequest{
		TenantID:   tenantID,
		BuildingID: body.BuildingID,
		FloorNo:    body.FloorNo,
		Layout:     body.Layout,
		Published:  body.Published,
		CreatedBy:  body.CreatedBy,
	})
	if err != nil {
		h.logger.Error("CreateFloorPlan failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

// updateFloorPlanBody 更新请求体（layout/published 均可选）
type updateFloorPlanBody struct {
	Layout    json.RawMessage `json:"layout"`
	Published *bool           `json:"published"`
}

func (h *FloorPlanHandler) UpdateFloorPlan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID, ok := h.tenantIDFromReq(w, r)
	if !ok {
		return
	}
	planID := pathTail(r.URL.Path, "/estate/api/v1/floor-plans/")
	if planID == "" {
		writeJSON(w, http.StatusOK, Fail("plan_id is required"))
		return
	}

	var body updateFloorPlanBody
	if err := readBodyJSON(r, 4<<20, &body); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid request body"))
		return
	}

	resp, err := h.floorPlans.UpdateFloorPlan(ctx, service.UpdateFloorPlanRequest{
		TenantID:  tenantID,
		PlanID:    planID,
		Layout:    body.Layout,
		Published: body.Published,
	})
	if err != nil {
		h.logger.Error("UpdateFloorPlan failed", zap.String("plan_id", planID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

func (h *FloorPlanHandler) DeleteFloorPlan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID, ok := h.tenantIDFromReq(w, r)
	if !ok {
		return
	}
	planID := pathTail(r.URL.Path, "/estate/api/v1/floor-plans/")
	if planID == "" {
		writeJSON(w, http.StatusOK, Fail("plan_id is required"))
		return
	}

	err := h.floorPlans.DeleteFloorPlan(ctx, service.DeleteFloorPlanRequest{
		TenantID: tenantID,
		PlanID:   planID,
	})
	if err != nil {
		h.logger.Error("DeleteFloorPlan failed", zap.String("plan_id", planID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]bool{"success": true}))
}

func (h *FloorPlanHandler) GetFloorPlan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID, ok := h.tenantIDFromReq(w, r)
	if !ok {
		return
	}
	planID := pathTail(r.URL.Path, "/estate/api/v1/floor-plans/")
	if planID == "" {
		writeJSON(w, http.StatusOK, Fail("plan_id is required"))
		return
	}

	resp, err := h.floorPlans.GetFloorPlan(ctx, service.GetFloorPlanRequest{
		TenantID: tenantID,
		PlanID:   planID,
	})
	if err != nil {
		h.logger.Error("GetFloorPlan failed", zap.String("plan_id", planID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

func (h *FloorPlanHandler) ListFloorPlans(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID, ok := h.tenantIDFromReq(w, r)
	if !ok {
		return
	}
	buildingID := buildingIDFromPath(r.URL.Path, "/floor-plans")
	if buildingID == "" {
		writeJSON(w, http.StatusOK, Fail("building_id is required"))
		return
	}

	resp, err := h.floorPlans.ListFloorPlans(ctx, service.ListFloorPlansRequest{
		TenantID:   tenantID,
		BuildingID: buildingID,
	})
	if err != nil {
		h.logger.Error("ListFloorPlans failed", zap.String("building_id", buildingID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

func (h *FloorPlanHandler) NextFloorNumber(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID, ok := h.tenantIDFromReq(w, r)
	if !ok {
		return
	}
	buildingID := buildingIDFromPath(r.URL.Path, "/next-floor")
	if buildingID == "" {
		writeJSON(w, http.StatusOK, Fail("building_id is required"))
		return
	}

	next, err := h.floorPlans.NextFloorNumber(ctx, tenantID, buildingID)
	if err != nil {
		h.logger.Error("NextFloorNumber failed", zap.String("building_id", buildingID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]int{"next_floor": next}))
}

func (h *FloorPlanHandler) ExportRoomInventory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID, ok := h.tenantIDFromReq(w, r)
	if !ok {
		return
	}
	buildingID := buildingIDFromPath(r.URL.Path, "/room-inventory.xlsx")
	if buildingID == "" {
		writeJSON(w, http.StatusOK, Fail("building_id is required"))
		return
	}

	data, err := h.exporter.ExportRoomInventory(ctx, tenantID, buildingID)
	if err != nil {
		h.logger.Error("ExportRoomInventory failed", zap.String("building_id", buildingID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+service.ExportFileName(buildingID)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *FloorPlanHandler) tenantIDFromReq(w http.ResponseWriter, r *http.Request) (string, bool) {
	if tid := r.URL.Query().Get("tenant_id"); tid != "" {
		return tid, true
	}
	// 前端 axios 拦截器登录后为所有请求注入租户头
	if tid := r.Header.Get("X-Tenant-Id"); tid != "" && tid != "null" {
		return tid, true
	}
	writeJSON(w, http.StatusOK, Fail("tenant_id is required"))
	return "", false
}

// pathTail 取前缀之后的路径段（再有斜杠则截断）
func pathTail(path, prefix string) string {
	tail := strings.TrimPrefix(path, prefix)
	if i := strings.IndexByte(tail, '/'); i >= 0 {
		tail = tail[:i]
	}
	return tail
}

// buildingIDFromPath 从 /estate/api/v1/buildings/{id}{suffix} 提取楼栋ID
func buildingIDFromPath(path, suffix string) string {
	tail := strings.TrimPrefix(path, "/estate/api/v1/buildings/")
	return strings.TrimSuffix(tail, suffix)
}
