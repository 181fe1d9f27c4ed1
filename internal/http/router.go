package httpapi

import (
	"net/http"
	"strings"

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

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// methodOnly 限定单一 HTTP 方法
func methodOnly(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != method {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h(w, req)
	}
}

// RegisterTopologyRoutes 注册拓扑/容量/告警路由
func (r *Router) RegisterTopologyRoutes(h *TopologyHandler) {
	// 容量视图
	r.Handle("/topology/api/v1/racks/", methodOnly(http.MethodGet, func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, "/topology/api/v1/racks/")
		id, ok := strings.CutSuffix(rest, "/capacity")
		if !ok || id == "" || strings.Contains(id, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.GetRackCapacity(w, req, id)
	}))

	r.Handle("/topology/api/v1/buildings/", methodOnly(http.MethodGet, func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, "/topology/api/v1/buildings/")
		id, ok := strings.CutSuffix(rest, "/capacity")
		if !ok || id == "" || strings.Contains(id, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.GetBuildingCapacity(w, req, id)
	}))

	r.Handle("/topology/api/v1/equipment/", methodOnly(http.MethodGet, func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, "/topology/api/v1/equipment/")
		switch {
		case strings.HasSuffix(rest, "/poe"):
			id := strings.TrimSuffix(rest, "/poe")
			if id == "" || strings.Contains(id, "/") {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			h.GetPoEUsage(w, req, id)
		case strings.HasSuffix(rest, "/ports/usage"):
			id := strings.TrimSuffix(rest, "/ports/usage")
			if id == "" || strings.Contains(id, "/") {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			h.GetPortUsage(w, req, id)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	// 布线建议
	r.Handle("/topology/api/v1/suggestions", methodOnly(http.MethodGet, h.GetSuggestions))

	// 扫码解析
	r.Handle("/topology/api/v1/scan/resolve", methodOnly(http.MethodPost, h.ResolveScan))

	// 连接
	r.Handle("/topology/api/v1/connections", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			h.ListConnections(w, req)
		case http.MethodPost:
			h.CreateConnection(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	r.Handle("/topology/api/v1/connections/", methodOnly(http.MethodPost, func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, "/topology/api/v1/connections/")
		id, ok := strings.CutSuffix(rest, "/retire")
		if !ok || id == "" || strings.Contains(id, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.RetireConnection(w, req, id)
	}))

	// 告警
	r.Handle("/topology/api/v1/alerts", methodOnly(http.MethodGet, h.ListAlerts))
	r.Handle("/topology/api/v1/alerts/", methodOnly(http.MethodPost, func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, "/topology/api/v1/alerts/")
		switch {
		case strings.HasSuffix(rest, "/acknowledge"):
			id := strings.TrimSuffix(rest, "/acknowledge")
			if id == "" || strings.Contains(id, "/") {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			h.AcknowledgeAlert(w, req, id)
		case strings.HasSuffix(rest, "/resolve"):
			id := strings.TrimSuffix(rest, "/resolve")
			if id == "" || strings.Contains(id, "/") {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			h.ResolveAlert(w, req, id)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	// 手动触发全图评估
	r.Handle("/topology/api/v1/evaluate", methodOnly(http.MethodPost, h.Evaluate))

	// 清单导入/导出
	r.Handle("/topology/api/v1/inventory/template", methodOnly(http.MethodGet, h.GetImportTemplate))
	r.Handle("/topology/api/v1/inventory/export", methodOnly(http.MethodGet, h.ExportInventory))
	r.Handle("/topology/api/v1/inventory/import", methodOnly(http.MethodPost, h.ImportInventory))

	// 健康检查
	r.Handle("/healthz", methodOnly(http.MethodGet, func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}))
}
