package api

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"qpcrml/service"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// ExportHandler 导出处理器
type ExportHandler struct {
	pipeline *service.Pipeline
}

// NewExportHandler 创建导出处理器
func NewExportHandler(p *service.Pipeline) *ExportHandler {
	return &ExportHandler{pipeline: p}
}

func formatPercent(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", *v)
}

// ExportSessionCSV 导出会话分类为 CSV
// @Summary 导出会话分类
// @Description 导出会话内全部孔位分类，展示分类以专家修正为准
// @Tags 导出
// @Produce text/csv
// @Security BearerAuth
// @Param session_id path string true "会话ID"
// @Success 200 {file} file "CSV 文件"
// @Failure 400 {object} Response "请求参数错误"
// @Router /ml/sessions/{session_id}/export [get]
func (h *ExportHandler) ExportSessionCSV(c *gin.Context) {
	sessionID := strings.TrimSpace(c.Param("session_id"))
	session, err := h.pipeline.Sessions.LoadSession(c.Request.Context(), sessionID)
	if err != nil {
		handleServiceError(c, err, "查询数据失败")
		return
	}

	keys := make([]string, 0, len(session))
	for key := range session {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	buf := new(bytes.Buffer)
	// 添加 BOM 以支持 Excel 中文显示
	buf.WriteString("\xEF\xBB\xBF")
	writer := csv.NewWriter(buf)

	headers := []string{"孔位键", "孔位", "通道", "病原体", "展示分类", "模型分类", "置信度", "来源", "模型版本", "专家分类", "更新时间"}
	if err := writer.Write(headers); err != nil {
		InternalError(c, "生成 CSV 失败")
		return
	}
	for _, key := range keys {
		rec := session[key]
		expert := ""
		if rec.ExpertClassification != nil {
			expert = string(*rec.ExpertClassification)
		}
		mlLabel := ""
		if rec.MLPrediction != nil {
			mlLabel = string(rec.MLPrediction.Classification)
		}
		row := []string{
			key,
			rec.WellID,
			rec.Fluorophore,
			rec.PathogenCode,
			string(rec.DisplayLabel()),
			mlLabel,
			fmt.Sprintf("%.4f", rec.Confidence),
			string(rec.Method),
			rec.ModelVersion,
			expert,
			rec.UpdatedAt.Format("2006-01-02 15:04:05"),
		}
		if err := writer.Write(row); err != nil {
			InternalError(c, "生成 CSV 失败")
			return
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		InternalError(c, "生成 CSV 失败")
		return
	}

	filename := fmt.Sprintf("session_%s.csv", url.PathEscape(sessionID))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// ExportConfirmedRuns 导出已确认批次为 Excel
// @Summary 导出已确认批次
// @Description 导出已确认批次及准确率，末行为平均值汇总
// @Tags 导出
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Success 200 {file} file "Excel文件"
// @Failure 500 {object} Response
// @Router /ml/runs/confirmed/export [get]
func (h *ExportHandler) ExportConfirmedRuns(c *gin.Context) {
	runs, err := h.pipeline.Runs.ListConfirmed(c.Request.Context())
	if err != nil {
		handleServiceError(c, err, "查询数据失败")
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "已确认批次"
	f.SetSheetName("Sheet1", sheetName)

	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4F81BD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	})
	dataStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	})
	summaryStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"FFC000"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	})

	f.SetColWidth(sheetName, "A", "A", 20)
	f.SetColWidth(sheetName, "B", "B", 30)
	f.SetColWidth(sheetName, "C", "D", 14)
	f.SetColWidth(sheetName, "E", "F", 10)
	f.SetColWidth(sheetName, "G", "I", 14)
	f.SetColWidth(sheetName, "J", "J", 18)
	f.SetColWidth(sheetName, "K", "L", 20)

	headers := []string{"批次ID", "文件名", "会话ID", "病原体", "样本总数", "完成数", "完成率", "一致率", "准确率", "准确率依据", "确认人", "确认时间"}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	var totalAccuracy float64
	for i, run := range runs {
		row := i + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), run.RunID)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), run.FileName)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), run.SessionID)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), run.PathogenCode)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), run.TotalSamples)
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), run.CompletedSamples)
		f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), fmt.Sprintf("%.2f%%", run.CompletionRate))
		f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), formatPercent(run.AgreementRate))
		f.SetCellValue(sheetName, fmt.Sprintf("I%d", row), run.AccuracyScore)
		f.SetCellValue(sheetName, fmt.Sprintf("J%d", row), run.AccuracyBasis)
		f.SetCellValue(sheetName, fmt.Sprintf("K%d", row), run.ConfirmedBy)
		f.SetCellValue(sheetName, fmt.Sprintf("L%d", row), run.ConfirmedAt.Format("2006-01-02 15:04:05"))
		f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("L%d", row), dataStyle)
		totalAccuracy += run.AccuracyScore
	}

	summaryRow := len(runs) + 2
	average := 0.0
	if len(runs) > 0 {
		average = totalAccuracy / float64(len(runs))
	}
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", summaryRow), "平均")
	f.MergeCell(sheetName, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("H%d", summaryRow))
	f.SetCellValue(sheetName, fmt.Sprintf("I%d", summaryRow), fmt.Sprintf("%.2f", average))
	f.SetCellValue(sheetName, fmt.Sprintf("J%d", summaryRow), fmt.Sprintf("共 %d 个批次", len(runs)))
	f.MergeCell(sheetName, fmt.Sprintf("J%d", summaryRow), fmt.Sprintf("L%d", summaryRow))
	f.SetCellStyle(sheetName, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("L%d", summaryRow), summaryStyle)

	filename := url.PathEscape(fmt.Sprintf("已确认批次_%s.xlsx", time.Now().Format("20060102")))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", filename))

	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "生成 Excel 失败")
		return
	}
}
