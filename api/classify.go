package api

import (
	"qpcrml/models"
	"qpcrml/service"

	"github.com/gin-gonic/gin"
)

// maxBatchWells 单次批量分类上限（一块 384 孔板）
const maxBatchWells = 384

// ClassifyHandler 曲线分类处理器
type ClassifyHandler struct {
	pipeline *service.Pipeline
}

// NewClassifyHandler 创建分类处理器
func NewClassifyHandler(p *service.Pipeline) *ClassifyHandler {
	return &ClassifyHandler{pipeline: p}
}

func classifyPayload(res *service.ClassifyResult) gin.H {
	payload := gin.H{"prediction": res.Prediction}
	if res.Outcome != "" {
		payload["classification"] = res.Record
		payload["display_label"] = res.Record.DisplayLabel()
		payload["outcome"] = res.Outcome
	}
	return payload
}

// Classify 单孔分类
// @Summary 单孔曲线分类
// @Description 按规则或已训练模型分类；提供 session_id 时写入会话记录，已有专家修正不会被覆盖
// @Tags 分类
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ClassifyRequest true "曲线数据"
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Failure 500 {object} Response
// @Router /ml/classify [post]
func (h *ClassifyHandler) Classify(c *gin.Context) {
	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, bindError(err))
		return
	}

	curve, err := toCurve(c.Request.Context(), h.pipeline.Registry, &req.CurveRequest)
	if err != nil {
		handleServiceError(c, err, "分类失败")
		return
	}

	res, err := h.pipeline.ClassifyWell(c.Request.Context(), req.SessionID, curve)
	if err != nil {
		handleServiceError(c, err, "分类失败")
		return
	}
	Success(c, "分类完成", classifyPayload(res))
}

// ClassifyBatch 批量分类
// @Summary 批量曲线分类
// @Description 逐孔独立分类，单孔失败不影响其他孔，可整体重试
// @Tags 分类
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body BatchClassifyRequest true "多孔曲线数据"
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Failure 429 {object} Response
// @Router /ml/classify/batch [post]
func (h *ClassifyHandler) ClassifyBatch(c *gin.Context) {
	var req BatchClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, bindError(err))
		return
	}
	if len(req.Wells) == 0 {
		BadRequest(c, "wells 不能为空")
		return
	}
	if len(req.Wells) > maxBatchWells {
		BadRequest(c, "单次最多分类 384 个孔")
		return
	}

	ctx := c.Request.Context()
	results := make([]gin.H, len(req.Wells))
	var (
		curves  []models.CurveSample
		indexes []int
	)
	for i := range req.Wells {
		curve, err := toCurve(ctx, h.pipeline.Registry, &req.Wells[i])
		if err != nil {
			results[i] = gin.H{
				"index":    i,
				"well_key": req.Wells[i].wellKey(),
				"success":  false,
				"error":    SafeErrorMessage(err, "分类失败"),
			}
			continue
		}
		curves = append(curves, curve)
		indexes = append(indexes, i)
	}

	failed := 0
	for j, item := range h.pipeline.ClassifyBatch(ctx, req.SessionID, curves) {
		i := indexes[j]
		if item.Err() != nil {
			results[i] = gin.H{
				"index":    i,
				"well_key": item.WellKey,
				"success":  false,
				"error":    SafeErrorMessage(item.Err(), "分类失败"),
			}
			continue
		}
		entry := classifyPayload(item.Result)
		entry["index"] = i
		entry["well_key"] = item.WellKey
		entry["success"] = true
		results[i] = entry
	}
	for _, r := range results {
		if r["success"] == false {
			failed++
		}
	}

	Success(c, "批量分类完成", gin.H{
		"results":   results,
		"total":     len(results),
		"succeeded": len(results) - failed,
		"failed":    failed,
	})
}
