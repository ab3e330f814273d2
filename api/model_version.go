package api

import (
	"fmt"
	"strings"

	"qpcrml/middleware"
	"qpcrml/models"
	"qpcrml/service"

	"github.com/gin-gonic/gin"
)

// ModelHandler 模型版本处理器
type ModelHandler struct {
	pipeline *service.Pipeline
}

// NewModelHandler 创建模型版本处理器
func NewModelHandler(p *service.Pipeline) *ModelHandler {
	return &ModelHandler{pipeline: p}
}

// resolveChannel 规范化路径中的病原体和通道名称
func (h *ModelHandler) resolveChannel(c *gin.Context) (models.PathogenChannel, error) {
	pathogen, fluorophore := c.Param("pathogen"), c.Param("fluorophore")
	ch, ok, err := h.pipeline.Registry.Resolve(c.Request.Context(), pathogen, fluorophore)
	if err != nil {
		return ch, err
	}
	if !ok {
		return ch, fmt.Errorf("%w: %s/%s", service.ErrUnknownChannel, pathogen, fluorophore)
	}
	return ch, nil
}

func versionPayload(mv *models.ModelVersion) gin.H {
	return gin.H{
		"version":           mv,
		"version_number":    mv.VersionNumber,
		"teaching_phase":    mv.InTeachingPhase(),
		"effective_samples": mv.EffectiveSamples(),
	}
}

// Channels 已登记的病原体/通道组合
// @Summary 获取病原体通道列表
// @Tags 模型
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response
// @Router /ml/channels [get]
func (h *ModelHandler) Channels(c *gin.Context) {
	channels, err := h.pipeline.Registry.List(c.Request.Context())
	if err != nil {
		handleServiceError(c, err, "获取通道列表失败")
		return
	}
	Success(c, "获取成功", gin.H{"channels": channels})
}

// Versions 模型版本历史
// @Summary 获取模型版本历史
// @Tags 模型
// @Produce json
// @Security BearerAuth
// @Param pathogen query string false "病原体编码"
// @Param fluorophore query string false "通道"
// @Success 200 {object} Response
// @Router /ml/models/versions [get]
func (h *ModelHandler) Versions(c *gin.Context) {
	pathogen := strings.TrimSpace(c.Query("pathogen"))
	fluorophore := strings.TrimSpace(c.Query("fluorophore"))
	versions, err := h.pipeline.Versions.ListVersions(c.Request.Context(), pathogen, fluorophore)
	if err != nil {
		handleServiceError(c, err, "获取模型版本失败")
		return
	}
	Success(c, "获取成功", gin.H{"versions": versions, "total": len(versions)})
}

// ActiveVersion 当前激活版本
// @Summary 获取激活模型版本
// @Description 样本数不足 40 时处于教学期，版本固定为 1.0
// @Tags 模型
// @Produce json
// @Security BearerAuth
// @Param pathogen path string true "病原体编码"
// @Param fluorophore path string true "通道"
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Router /ml/models/{pathogen}/{fluorophore}/version [get]
func (h *ModelHandler) ActiveVersion(c *gin.Context) {
	ch, err := h.resolveChannel(c)
	if err != nil {
		if service.IsConflict(err) {
			NotFound(c, err.Error())
			return
		}
		handleServiceError(c, err, "获取模型版本失败")
		return
	}
	mv, err := h.pipeline.Versions.GetActiveVersion(c.Request.Context(), ch.PathogenCode, ch.Fluorophore)
	if err != nil {
		handleServiceError(c, err, "获取模型版本失败")
		return
	}
	Success(c, "获取成功", versionPayload(mv))
}

// Reset 重置模型版本（管理员）
// @Summary 重置模型版本
// @Description 开启新的主版本并重新进入教学期，写入审计记录
// @Tags 模型
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param pathogen path string true "病原体编码"
// @Param fluorophore path string true "通道"
// @Param request body ResetModelRequest true "重置原因"
// @Success 200 {object} Response
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Router /ml/models/{pathogen}/{fluorophore}/reset [post]
func (h *ModelHandler) Reset(c *gin.Context) {
	var req ResetModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, bindError(err))
		return
	}
	ch, err := h.resolveChannel(c)
	if err != nil {
		handleServiceError(c, err, "重置模型版本失败")
		return
	}
	mv, err := h.pipeline.Versions.Reset(c.Request.Context(), ch.PathogenCode, ch.Fluorophore,
		middleware.GetCurrentUsername(c), strings.TrimSpace(req.Reason))
	if err != nil {
		handleServiceError(c, err, "重置模型版本失败")
		return
	}
	Success(c, "模型版本已重置", versionPayload(mv))
}
