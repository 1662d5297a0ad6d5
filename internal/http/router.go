package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler 支持 http.Handler 接口
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterFloorPlanRoutes 注册楼层平面图引擎路由
func (r *Router) RegisterFloorPlanRoutes(h *FloorPlanHandler) {
	r.HandleHandler("/estate/api/v1/floor-plans", h)
	r.HandleHandler("/estate/api/v1/floor-plans/", h)
	r.HandleHandler("/estate/api/v1/buildings/", h)
}
