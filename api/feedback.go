package api

import (
	"qpcrml/middleware"
	"qpcrml/models"
	"qpcrml/service"

	"github.com/gin-gonic/gin"
)

// FeedbackHandler 专家修正处理器
type FeedbackHandler struct {
	pipeline *service.Pipeline
}

// NewFeedbackHandler 创建专家修正处理器
func NewFeedbackHandler(p *service.Pipeline) *FeedbackHandler {
	return &FeedbackHandler{pipeline: p}
}

// Submit 提交专家修正
// @Summary 提交专家修正
// @Description 同一会话同一孔位重复提交会覆盖之前的修正；标签相同不会重复计入训练样本
// @Tags 专家修正
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body FeedbackRequest true "修正内容"
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Failure 409 {object} Response
// @Failure 500 {object} Response
// @Router /ml/feedback [post]
func (h *FeedbackHandler) Submit(c *gin.Context) {
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, bindError(err))
		return
	}
	label, err := models.ParseLabel(req.ExpertClassification)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	curve, err := toCurve(ctx, h.pipeline.Registry, &req.CurveRequest)
	if err != nil {
		handleServiceError(c, err, "提交修正失败")
		return
	}

	in := service.FeedbackInput{
		SessionID:   req.SessionID,
		WellID:      curve.WellID,
		Curve:       curve,
		ExpertLabel: label,
		Reasoning:   req.Reasoning,
		SubmittedBy: middleware.GetCurrentUsername(c),
	}
	if req.SubmittedAt != nil {
		in.SubmittedAt = *req.SubmittedAt
	}
	res, err := h.pipeline.Feedback.Submit(ctx, in)
	if err != nil {
		handleServiceError(c, err, "提交修正失败")
		return
	}

	Success(c, "修正已保存", gin.H{
		"training_samples": res.TrainingSamplesCount,
		"well_key":         res.WellKey,
		"pathogen_code":    res.PathogenCode,
		"fluorophore":      res.Fluorophore,
		"sample_outcome":   res.SampleOutcome,
		"model_version":    res.ActiveVersion,
		"classification":   res.Record,
	})
}
