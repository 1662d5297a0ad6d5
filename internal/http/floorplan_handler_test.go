package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"estate-data/internal/layout"
	"estate-data/internal/repository"
	"estate-data/internal/service"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testTenant = "tenant-http-test"

func setupHandler(t *testing.T) (*Router, *repository.MemoryInventory, string) {
	t.Helper()
	inv := repository.NewMemoryInventory()
	buildingID := inv.AddBuilding(testTenant, "Handler Test Tower")
	logger := zap.NewNop()

	svc := service.NewFloorPlanService(inv, inv, inv, inv, nil, nil, nil, layout.DefaultPxPerMeter, logger)
	exporter := service.NewInventoryExporter(inv, inv)
	router := NewRouter(logger)
	router.RegisterFloorPlanRoutes(NewFloorPlanHandler(svc, exporter, logger))
	return router, inv, buildingID
}

func testLayoutJSON(rooms ...string) json.RawMessage {
	payload := `[{"id":"b1","type":"building","position":{"x":0,"y":0},"data":{"points":[{"x":0,"y":0},{"x":800,"y":0},{"x":800,"y":640},{"x":0,"y":640}]}}`
	for _, r := range rooms {
		payload += "," + r
	}
	return json.RawMessage(payload + "]")
}

func testRoomBlock(id, number string, x, y, w, h float64) string {
	return fmt.Sprintf(
		`{"id":%q,"type":"block","position":{"x":%g,"y":%g},"data":{"icon":"room","room_number":%q,"w":%g,"h":%g}}`,
		id, x, y, number, w, h,
	)
}

func doJSON(t *testing.T, router *Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-Id", testTenant)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// decodeResult 解码 Result 封套
func decodeResult(t *testing.T, rec *httptest.ResponseRecorder, result any) (int, string) {
	t.Helper()
	var envelope struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Result  json.RawMessage `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	if result != nil && len(envelope.Result) > 0 && string(envelope.Result) != "null" {
		require.NoError(t, json.Unmarshal(envelope.Result, result))
	}
	return envelope.Code, envelope.Message
}

func createFloorViaAPI(t *testing.T, router *Router, buildingID string, floorNo int, rooms ...string) *service.FloorPlanResponse {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/estate/api/v1/floor-plans", map[string]any{
		"building_id": buildingID,
		"floor_no":    floorNo,
		"layout":      testLayoutJSON(rooms...),
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp service.FloorPlanResponse
	code, msg := decodeResult(t, rec, &resp)
	require.Equal(t, ResultSuccess, code, msg)
	return &resp
}

func TestFloorPlanHandler_CreateAndGet(t *testing.T) {
	router, _, buildingID := setupHandler(t)

	created := createFloorViaAPI(t, router, buildingID, 1, testRoomBlock("n1", "101", 0, 0, 240, 240))
	require.Equal(t, 1, created.RoomsCreated)
	require.NotEmpty(t, created.PlanID)

	rec := doJSON(t, router, http.MethodGet, "/estate/api/v1/floor-plans/"+created.PlanID, nil)
	var got service.GetFloorPlanResponse
	code, msg := decodeResult(t, rec, &got)
	require.Equal(t, ResultSuccess, code, msg)
	require.Equal(t, created.PlanID, got.PlanID)
	require.Equal(t, 1, got.FloorNo)
	require.Empty(t, got.LockedRoomIDs)
	require.NotEmpty(t, got.Layout)
}

func TestFloorPlanHandler_CreateRejectsOverlap(t *testing.T) {
	router, _, buildingID := setupHandler(t)

	rec := doJSON(t, router, http.MethodPost, "/estate/api/v1/floor-plans", map[string]any{
		"building_id": buildingID,
		"floor_no":    1,
		"layout": testLayoutJSON(
			testRoomBlock("n1", "101", 0, 0, 240, 240),
			testRoomBlock("n2", "102", 0, 0, 160, 160),
		),
	})
	code, msg := decodeResult(t, rec, nil)
	require.Equal(t, ResultError, code)
	require.Contains(t, msg, "101")
	require.Contains(t, msg, "102")
}

func TestFloorPlanHandler_MissingTenant(t *testing.T) {
	router, _, buildingID := setupHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/estate/api/v1/buildings/"+buildingID+"/next-floor", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	code, msg := decodeResult(t, rec, nil)
	require.Equal(t, ResultError, code)
	require.Equal(t, "tenant_id is required", msg)
}

func TestFloorPlanHandler_TenantFromQueryParam(t *testing.T) {
	router, _, buildingID := setupHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/estate/api/v1/buildings/"+buildingID+"/next-floor?tenant_id="+testTenant, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var result map[string]int
	code, msg := decodeResult(t, rec, &result)
	require.Equal(t, ResultSuccess, code, msg)
	require.Equal(t, 1, result["next_floor"])
}

func TestFloorPlanHandler_UpdatePublishOnly(t *testing.T) {
	router, _, buildingID := setupHandler(t)
	created := createFloorViaAPI(t, router, buildingID, 1, testRoomBlock("n1", "101", 0, 0, 240, 240))

	rec := doJSON(t, router, http.MethodPut, "/estate/api/v1/floor-plans/"+created.PlanID, map[string]any{
		"published": true,
	})
	var resp service.FloorPlanResponse
	code, msg := decodeResult(t, rec, &resp)
	require.Equal(t, ResultSuccess, code, msg)
	require.True(t, resp.Published)
	require.Equal(t, 0, resp.RoomsCreated+resp.RoomsUpdated+resp.RoomsDeleted)
}

func TestFloorPlanHandler_Delete(t *testing.T) {
	router, _, buildingID := setupHandler(t)
	created := createFloorViaAPI(t, router, buildingID, 1)

	rec := doJSON(t, router, http.MethodDelete, "/estate/api/v1/floor-plans/"+created.PlanID, nil)
	code, msg := decodeResult(t, rec, nil)
	require.Equal(t, ResultSuccess, code, msg)

	rec = doJSON(t, router, http.MethodGet, "/estate/api/v1/floor-plans/"+created.PlanID, nil)
	code, _ = decodeResult(t, rec, nil)
	require.Equal(t, ResultError, code)
}

func TestFloorPlanHandler_List(t *testing.T) {
	router, _, buildingID := setupHandler(t)
	createFloorViaAPI(t, router, buildingID, 1, testRoomBlock("n1", "101", 0, 0, 240, 240))
	createFloorViaAPI(t, router, buildingID, 2)

	rec := doJSON(t, router, http.MethodGet, "/estate/api/v1/buildings/"+buildingID+"/floor-plans", nil)
	var resp service.ListFloorPlansResponse
	code, msg := decodeResult(t, rec, &resp)
	require.Equal(t, ResultSuccess, code, msg)
	require.Equal(t, 2, resp.Total)
	require.Equal(t, 1, resp.Items[0].RoomCount)
	require.Equal(t, 0, resp.Items[1].RoomCount)
}

func TestFloorPlanHandler_ExportRoomInventory(t *testing.T) {
	router, _, buildingID := setupHandler(t)
	createFloorViaAPI(t, router, buildingID, 1, testRoomBlock("n1", "101", 0, 0, 240, 240))

	rec := doJSON(t, router, http.MethodGet, "/estate/api/v1/buildings/"+buildingID+"/room-inventory.xlsx", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		rec.Header().Get("Content-Type"),
	)
	// xlsx 是 zip 容器，魔数 PK
	body := rec.Body.Bytes()
	require.Greater(t, len(body), 4)
	require.Equal(t, []byte{'P', 'K'}, body[:2])
}

func TestFloorPlanHandler_UnknownRoute(t *testing.T) {
	router, _, _ := setupHandler(t)
	rec := doJSON(t, router, http.MethodPatch, "/estate/api/v1/floor-plans/some-id", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
