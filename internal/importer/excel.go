package importer

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"rackwise-topology/internal/domain"
)

// EquipmentSheetName 设备清单工作表名
const EquipmentSheetName = "Equipment"

// PortSheetName 端口清单工作表名
const PortSheetName = "Ports"

// EquipmentImportHeader 设备导入模板表头
var EquipmentImportHeader = []string{
	"Rack ID",
	"Equipment Name",
	"Equipment Type",
	"Manufacturer",
	"Model",
	"Position U Start",
	"Position U End",
	"Mount Side",
	"PoE Budget (W)",
}

// PortImportHeader 端口导入模板表头
// 端口经 Equipment Name 关联到同文件设备行。
var PortImportHeader = []string{
	"Equipment Name",
	"Port Name",
	"Port Type",
}

// EquipmentRow 解析后的设备导入行
type EquipmentRow struct {
	RowNumber int
	Equipment domain.Equipment
}

// PortRow 解析后的端口导入行
type PortRow struct {
	RowNumber     int
	EquipmentName string
	Port          domain.Port
}

// RowError 单行解析/导入错误（单条坏行不中断整批）
type RowError struct {
	Sheet  string `json:"sheet"`
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ToJSON 转换为JSON格式
func (e *RowError) ToJSON() map[string]any {
	return map[string]any{
		"sheet":  e.Sheet,
		"row":    e.Row,
		"reason": e.Reason,
	}
}

// ParseResult 导入文件解析结果
type ParseResult struct {
	Equipment []EquipmentRow
	Ports     []PortRow
	Errors    []RowError
}

// GenerateImportTemplate 生成设备/端口清单导入模板
func GenerateImportTemplate() ([]byte, error) {
	return generateInventoryExcel(nil, nil)
}

// GenerateInventoryExport 导出设备/端口清单
func GenerateInventoryExport(equipment []map[string]any, ports []map[string]any) ([]byte, error) {
	return generateInventoryExcel(equipment, ports)
}

// generateInventoryExcel 生成清单 Excel 文件（双工作表：设备 + 端口）
func generateInventoryExcel(equipment []map[string]any, ports []map[string]any) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo 之前不能 Close

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	equipmentFields := []string{
		"rack_id", "equipment_name", "equipment_type", "manufacturer", "model",
		"position_u_start", "position_u_end", "mount_side", "poe_budget_watts",
	}
	if err := writeSheet(f, EquipmentSheetName, EquipmentImportHeader, equipmentFields, equipment, headerStyle); err != nil {
		f.Close()
		return nil, err
	}

	portFields := []string{"equipment_name", "port_name", "port_type"}
	if err := writeSheet(f, PortSheetName, PortImportHeader, portFields, ports, headerStyle); err != nil {
		f.Close()
		return nil, err
	}

	// 删除默认的 Sheet1
	f.DeleteSheet("Sheet1")

	idx, err := f.GetSheetIndex(EquipmentSheetName)
	if err == nil {
		f.SetActiveSheet(idx)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}

	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}

	return buf.Bytes(), nil
}

// writeSheet 写入一个工作表：表头 + 数据行 + 冻结首行
func writeSheet(f *excelize.File, sheetName string, headers []string, fields []string, data []map[string]any, headerStyle int) error {
	if _, err := f.NewSheet(sheetName); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheetName, err)
	}

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
		colName, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(sheetName, colName, colName, 20); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for rowIdx, item := range data {
		row := rowIdx + 2 // 第1行是表头
		for colIdx, field := range fields {
			value, ok := item[field]
			if !ok || value == nil || value == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(colIdx+1, row)
			if err != nil {
				return fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return fmt.Errorf("failed to set cell value at %s: %w", cell, err)
			}
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		Split:       false,
		XSplit:      0,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze panes: %w", err)
	}

	return nil
}

// ParseInventory 解析上传的清单 Excel（设备 + 端口两个工作表）
// 逐行解析，单行坏数据进 Errors，不中断整批。
func ParseInventory(fileBytes []byte) (*ParseResult, error) {
	f, err := excelize.OpenReader(bytes.NewReader(fileBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to parse Excel file: %w", err)
	}
	defer f.Close()

	result := &ParseResult{}

	eqRows, err := f.GetRows(EquipmentSheetName)
	if err != nil {
		return nil, fmt.Errorf("missing %s sheet: %w", EquipmentSheetName, err)
	}
	parseEquipmentRows(eqRows, result)

	// 端口表可缺席（只导设备不导端口）
	if portRows, err := f.GetRows(PortSheetName); err == nil {
		parsePortRows(portRows, result)
	}

	return result, nil
}

func parseEquipmentRows(rows [][]string, result *ParseResult) {
	if len(rows) < 2 {
		return
	}

	headerMap := make(map[string]int)
	for i, h := range rows[0] {
		headerMap[strings.TrimSpace(h)] = i
	}

	for rowIdx := 1; rowIdx < len(rows); rowIdx++ {
		row := rows[rowIdx]
		rowNo := rowIdx + 1

		cell := func(name string) string {
			idx, ok := headerMap[name]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		if cell("Equipment Name") == "" && cell("Rack ID") == "" {
			continue // 空行
		}

		eq := domain.Equipment{
			RackID:        cell("Rack ID"),
			EquipmentName: cell("Equipment Name"),
			EquipmentType: string(domain.ParseEquipmentType(cell("Equipment Type"))),
			MountSide:     cell("Mount Side"),
		}
		if eq.RackID == "" {
			result.Errors = append(result.Errors, RowError{Sheet: EquipmentSheetName, Row: rowNo, Reason: "rack id is required"})
			continue
		}
		if eq.EquipmentName == "" {
			result.Errors = append(result.Errors, RowError{Sheet: EquipmentSheetName, Row: rowNo, Reason: "equipment name is required"})
			continue
		}
		if eq.MountSide == "" {
			eq.MountSide = string(domain.MountFront)
		}

		if v := cell("Manufacturer"); v != "" {
			eq.Manufacturer.Valid = true
			eq.Manufacturer.String = v
		}
		if v := cell("Model"); v != "" {
			eq.Model.Valid = true
			eq.Model.String = v
		}

		start, err := strconv.Atoi(cell("Position U Start"))
		if err != nil {
			result.Errors = append(result.Errors, RowError{Sheet: EquipmentSheetName, Row: rowNo, Reason: "invalid position u start"})
			continue
		}
		end, err := strconv.Atoi(cell("Position U End"))
		if err != nil {
			result.Errors = append(result.Errors, RowError{Sheet: EquipmentSheetName, Row: rowNo, Reason: "invalid position u end"})
			continue
		}
		eq.PositionUStart = start
		eq.PositionUEnd = end

		if v := cell("PoE Budget (W)"); v != "" {
			budget, err := strconv.ParseFloat(v, 64)
			if err != nil {
				result.Errors = append(result.Errors, RowError{Sheet: EquipmentSheetName, Row: rowNo, Reason: "invalid poe budget"})
				continue
			}
			eq.PoEBudgetWatts.Valid = true
			eq.PoEBudgetWatts.Float64 = budget
		}

		result.Equipment = append(result.Equipment, EquipmentRow{RowNumber: rowNo, Equipment: eq})
	}
}

func parsePortRows(rows [][]string, result *ParseResult) {
	if len(rows) < 2 {
		return
	}

	headerMap := make(map[string]int)
	for i, h := range rows[0] {
		headerMap[strings.TrimSpace(h)] = i
	}

	for rowIdx := 1; rowIdx < len(rows); rowIdx++ {
		row := rows[rowIdx]
		rowNo := rowIdx + 1

		cell := func(name string) string {
			idx, ok := headerMap[name]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		eqName := cell("Equipment Name")
		portName := cell("Port Name")
		if eqName == "" && portName == "" {
			continue // 空行
		}
		if eqName == "" {
			result.Errors = append(result.Errors, RowError{Sheet: PortSheetName, Row: rowNo, Reason: "equipment name is required"})
			continue
		}
		if portName == "" {
			result.Errors = append(result.Errors, RowError{Sheet: PortSheetName, Row: rowNo, Reason: "port name is required"})
			continue
		}

		result.Ports = append(result.Ports, PortRow{
			RowNumber:     rowNo,
			EquipmentName: eqName,
			Port: domain.Port{
				PortName: portName,
				PortType: string(domain.ParsePortType(cell("Port Type"))),
				Status:   string(domain.PortAvailable),
			},
		})
	}
}
