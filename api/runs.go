package api

import (
	"fmt"
	"strings"

	"qpcrml/middleware"
	"qpcrml/service"

	"github.com/gin-gonic/gin"
)

// RunHandler 批次运行处理器
type RunHandler struct {
	pipeline *service.Pipeline
}

// NewRunHandler 创建批次运行处理器
func NewRunHandler(p *service.Pipeline) *RunHandler {
	return &RunHandler{pipeline: p}
}

// LogRun 登记待确认批次
// @Summary 登记批次运行
// @Description run_id 已存在时返回 409，不覆盖原记录
// @Tags 批次运行
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body LogRunRequest true "批次信息"
// @Success 201 {object} Response
// @Failure 400 {object} Response
// @Failure 409 {object} Response
// @Router /ml/runs [post]
func (h *RunHandler) LogRun(c *gin.Context) {
	var req LogRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, bindError(err))
		return
	}

	run, err := h.pipeline.Runs.LogRun(c.Request.Context(), service.LogRunInput{
		RunID:            req.RunID,
		FileName:         req.FileName,
		SessionID:        req.SessionID,
		PathogenCode:     req.PathogenCode,
		TotalSamples:     req.TotalSamples,
		CompletedSamples: req.CompletedSamples,
		Notes:            req.Notes,
		LoggedBy:         middleware.GetCurrentUsername(c),
	})
	if err != nil {
		handleServiceError(c, err, "登记批次失败")
		return
	}
	Created(c, "批次已登记", gin.H{"log_id": run.ID, "run": run})
}

// ConfirmRun 确认或驳回批次
// @Summary 确认或驳回批次
// @Description 仅待确认批次可操作；确认时计算准确率并生成确认记录，驳回不生成
// @Tags 批次运行
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ConfirmRunRequest true "确认信息"
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Failure 409 {object} Response
// @Router /ml/runs/confirm [post]
func (h *RunHandler) ConfirmRun(c *gin.Context) {
	var req ConfirmRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, bindError(err))
		return
	}
	if req.RunLogID == 0 && strings.TrimSpace(req.RunID) == "" {
		BadRequest(c, "run_log_id 和 run_id 不能同时为空")
		return
	}
	confirmedBy := strings.TrimSpace(req.ConfirmedBy)
	if confirmedBy == "" {
		confirmedBy = middleware.GetCurrentUsername(c)
	}

	res, err := h.pipeline.Runs.ConfirmRun(c.Request.Context(), service.ConfirmRunInput{
		RunLogID:    req.RunLogID,
		RunID:       req.RunID,
		ConfirmedBy: confirmedBy,
		Confirmed:   *req.IsConfirmed,
		Notes:       req.Notes,
	})
	if err != nil {
		handleServiceError(c, err, "确认批次失败")
		return
	}

	if res.Confirmed == nil {
		Success(c, fmt.Sprintf("批次 %s 已驳回", res.Run.RunID), gin.H{"run": res.Run})
		return
	}
	Success(c, fmt.Sprintf("批次 %s 已确认", res.Run.RunID), gin.H{
		"run":            res.Run,
		"confirmed_run":  res.Confirmed,
		"accuracy":       res.Confirmed.AccuracyScore,
		"accuracy_basis": res.Confirmed.AccuracyBasis,
	})
}

// Pending 待确认批次
// @Summary 获取待确认批次
// @Tags 批次运行
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response
// @Router /ml/runs/pending [get]
func (h *RunHandler) Pending(c *gin.Context) {
	runs, err := h.pipeline.Runs.ListPending(c.Request.Context())
	if err != nil {
		handleServiceError(c, err, "获取待确认批次失败")
		return
	}
	Success(c, "获取成功", gin.H{"runs": runs, "total": len(runs)})
}

// Confirmed 已确认批次
// @Summary 获取已确认批次
// @Tags 批次运行
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response
// @Router /ml/runs/confirmed [get]
func (h *RunHandler) Confirmed(c *gin.Context) {
	runs, err := h.pipeline.Runs.ListConfirmed(c.Request.Context())
	if err != nil {
		handleServiceError(c, err, "获取已确认批次失败")
		return
	}
	Success(c, "获取成功", gin.H{"runs": runs, "total": len(runs)})
}

// Statistics 运行统计
// @Summary 获取运行统计
// @Tags 批次运行
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response
// @Router /ml/runs/statistics [get]
func (h *RunHandler) Statistics(c *gin.Context) {
	stats, err := h.pipeline.Runs.Statistics(c.Request.Context())
	if err != nil {
		handleServiceError(c, err, "获取运行统计失败")
		return
	}
	Success(c, "获取成功", gin.H{"statistics": stats})
}

// DeleteRun 删除批次
// @Summary 删除批次
// @Description 删除已确认批次需要管理员权限，会同时删除确认记录
// @Tags 批次运行
// @Produce json
// @Security BearerAuth
// @Param run_id path string true "批次ID"
// @Success 200 {object} Response
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Router /ml/runs/{run_id} [delete]
func (h *RunHandler) DeleteRun(c *gin.Context) {
	runID := c.Param("run_id")
	if err := h.pipeline.Runs.DeleteRun(c.Request.Context(), runID, middleware.IsAdmin(c)); err != nil {
		handleServiceError(c, err, "删除批次失败")
		return
	}
	Success(c, "删除成功", gin.H{"run_id": runID})
}
