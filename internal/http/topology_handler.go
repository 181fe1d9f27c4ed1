package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"rackwise-topology/internal/domain"
	"rackwise-topology/internal/importer"
	"rackwise-topology/internal/repository"
	"rackwise-topology/internal/service"
)

// TopologyHandler 拓扑/容量/告警 HTTP 处理器
type TopologyHandler struct {
	svc    *service.TopologyService
	logger *zap.Logger
}

// NewTopologyHandler 创建处理器
func NewTopologyHandler(svc *service.TopologyService, logger *zap.Logger) *TopologyHandler {
	return &TopologyHandler{
		svc:    svc,
		logger: logger,
	}
}

// GetRackCapacity 机柜容量视图
func (h *TopologyHandler) GetRackCapacity(w http.ResponseWriter, r *http.Request, rackID string) {
	rc, err := h.svc.RackCapacity(r.Context(), rackID)
	if err != nil {
		h.logger.Error("RackCapacity failed", zap.String("rack_id", rackID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(rc))
}

// GetBuildingCapacity 楼栋容量汇总
func (h *TopologyHandler) GetBuildingCapacity(w http.ResponseWriter, r *http.Request, buildingID string) {
	bc, err := h.svc.BuildingCapacity(r.Context(), buildingID)
	if err != nil {
		h.logger.Error("BuildingCapacity failed", zap.String("building_id", buildingID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(bc))
}

// GetPortUsage 设备端口占用
func (h *TopologyHandler) GetPortUsage(w http.ResponseWriter, r *http.Request, equipmentID string) {
	pu, err := h.svc.PortUsage(r.Context(), equipmentID)
	if err != nil {
		h.logger.Error("PortUsage failed", zap.String("equipment_id", equipmentID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(pu))
}

// GetPoEUsage 设备 PoE 功耗
func (h *TopologyHandler) GetPoEUsage(w http.ResponseWriter, r *http.Request, equipmentID string) {
	pu, err := h.svc.PoEUsage(r.Context(), equipmentID)
	if err != nil {
		h.logger.Error("PoEUsage failed", zap.String("equipment_id", equipmentID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(pu))
}

// GetSuggestions 孤立设备布线建议
func (h *TopologyHandler) GetSuggestions(w http.ResponseWriter, r *http.Request) {
	suggestions, err := h.svc.Suggestions(r.Context())
	if err != nil {
		h.logger.Error("Suggestions failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"total":       len(suggestions),
		"suggestions": suggestions,
	}))
}

// ResolveScan 扫码/手输解析
func (h *TopologyHandler) ResolveScan(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Raw string `json:"raw"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid request body"))
		return
	}

	res, err := h.svc.ResolveScan(r.Context(), body.Raw)
	if err != nil {
		h.logger.Error("ResolveScan failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(res.ToJSON()))
}

// connectionRequest 建连请求体
type connectionRequest struct {
	Code        string   `json:"code"`
	PortAID     string   `json:"port_a_id"`
	PortBID     string   `json:"port_b_id"`
	CableType   string   `json:"cable_type"`
	CableLength *float64 `json:"cable_length"`
	CableColor  string   `json:"cable_color"`
}

// CreateConnection 建立连接
func (h *TopologyHandler) CreateConnection(w http.ResponseWriter, r *http.Request) {
	var body connectionRequest
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid request body"))
		return
	}

	c := &domain.Connection{
		Code:    body.Code,
		PortAID: body.PortAID,
		PortBID: body.PortBID,
		Status:  string(domain.ConnectionActive),
	}
	if body.CableType != "" {
		c.CableType.Valid = true
		c.CableType.String = body.CableType
	}
	if body.CableLength != nil {
		c.CableLength.Valid = true
		c.CableLength.Float64 = *body.CableLength
	}
	if body.CableColor != "" {
		c.CableColor.Valid = true
		c.CableColor.String = body.CableColor
	}

	if err := h.svc.CreateConnection(r.Context(), c); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateCode):
			writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("connection code already in use: %s", c.Code)))
		case errors.Is(err, repository.ErrPortConflict):
			writeJSON(w, http.StatusOK, Fail("port already has an active connection"))
		default:
			h.logger.Error("CreateConnection failed", zap.Error(err))
			writeJSON(w, http.StatusOK, Fail(err.Error()))
		}
		return
	}
	writeJSON(w, http.StatusOK, Ok(c.ToJSON()))
}

// ListConnections 连接列表
func (h *TopologyHandler) ListConnections(w http.ResponseWriter, r *http.Request) {
	connections, err := h.svc.ListConnections(r.Context())
	if err != nil {
		h.logger.Error("ListConnections failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	items := make([]map[string]any, 0, len(connections))
	for _, c := range connections {
		items = append(items, c.ToJSON())
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"total": len(items),
		"items": items,
	}))
}

// RetireConnection 连接退役（状态流转）
func (h *TopologyHandler) RetireConnection(w http.ResponseWriter, r *http.Request, connectionID string) {
	var body struct {
		Status string `json:"status"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid request body"))
		return
	}
	if body.Status == "" {
		body.Status = string(domain.ConnectionInactive)
	}

	if err := h.svc.RetireConnection(r.Context(), connectionID, domain.ConnectionStatus(body.Status)); err != nil {
		h.logger.Error("RetireConnection failed", zap.String("connection_id", connectionID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"connection_id": connectionID, "status": body.Status}))
}

// ListAlerts 告警列表（status 可选过滤）
func (h *TopologyHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	status := domain.AlertStatus(r.URL.Query().Get("status"))
	alerts, err := h.svc.ListAlerts(r.Context(), status)
	if err != nil {
		h.logger.Error("ListAlerts failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	items := make([]map[string]any, 0, len(alerts))
	for _, a := range alerts {
		items = append(items, a.ToJSON())
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"total": len(items),
		"items": items,
	}))
}

// AcknowledgeAlert 确认告警
func (h *TopologyHandler) AcknowledgeAlert(w http.ResponseWriter, r *http.Request, alertID string) {
	var body struct {
		Actor string `json:"actor"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid request body"))
		return
	}
	if body.Actor == "" {
		writeJSON(w, http.StatusOK, Fail("actor is required"))
		return
	}

	if err := h.svc.AcknowledgeAlert(r.Context(), alertID, body.Actor); err != nil {
		h.logger.Error("AcknowledgeAlert failed", zap.String("alert_id", alertID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"alert_id": alertID, "status": string(domain.AlertAcknowledged)}))
}

// ResolveAlert 解决告警
func (h *TopologyHandler) ResolveAlert(w http.ResponseWriter, r *http.Request, alertID string) {
	var body struct {
		Actor string `json:"actor"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid request body"))
		return
	}
	if body.Actor == "" {
		writeJSON(w, http.StatusOK, Fail("actor is required"))
		return
	}

	if err := h.svc.ResolveAlert(r.Context(), alertID, body.Actor); err != nil {
		h.logger.Error("ResolveAlert failed", zap.String("alert_id", alertID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"alert_id": alertID, "status": string(domain.AlertResolved)}))
}

// Evaluate 手动触发全图容量评估
func (h *TopologyHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.svc.EvaluateCapacity(r.Context())
	if err != nil {
		h.logger.Error("EvaluateCapacity failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	items := make([]map[string]any, 0, len(alerts))
	for _, a := range alerts {
		items = append(items, a.ToJSON())
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"alert_count": len(items),
		"alerts":      items,
	}))
}

// GetImportTemplate 下载导入模板
func (h *TopologyHandler) GetImportTemplate(w http.ResponseWriter, r *http.Request) {
	data, err := importer.GenerateImportTemplate()
	if err != nil {
		h.logger.Error("GenerateImportTemplate failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to generate template: %v", err)))
		return
	}
	writeExcel(w, "inventory-import-template.xlsx", data)
}

// ExportInventory 导出设备/端口清单
func (h *TopologyHandler) ExportInventory(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.ExportInventory(r.Context())
	if err != nil {
		h.logger.Error("ExportInventory failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to export: %v", err)))
		return
	}
	writeExcel(w, "inventory-export.xlsx", data)
}

// ImportInventory 导入设备/端口清单（multipart 上传）
func (h *TopologyHandler) ImportInventory(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil { // 10MB max
		writeJSON(w, http.StatusOK, Fail("failed to parse form"))
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusOK, Fail("file not found in request"))
		return
	}
	defer file.Close()

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusOK, Fail("failed to read file"))
		return
	}

	summary, err := h.svc.ImportInventory(r.Context(), fileBytes)
	if err != nil {
		h.logger.Error("ImportInventory failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to import: %v", err)))
		return
	}
	writeJSON(w, http.StatusOK, Ok(summary))
}
