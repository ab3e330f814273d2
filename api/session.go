package api

import (
	"sort"
	"strings"

	"qpcrml/models"
	"qpcrml/service"

	"github.com/gin-gonic/gin"
)

// SessionHandler 会话分类查询处理器
type SessionHandler struct {
	pipeline *service.Pipeline
}

// NewSessionHandler 创建会话处理器
func NewSessionHandler(p *service.Pipeline) *SessionHandler {
	return &SessionHandler{pipeline: p}
}

// sessionWell 会话中的单孔记录，附带当前展示分类
type sessionWell struct {
	models.WellClassification
	DisplayLabel models.Label `json:"display_label"`
}

// Classifications 加载会话全部分类
// @Summary 加载会话分类
// @Description 按孔位键 (孔位_通道) 返回会话内全部分类记录；存在专家修正时 display_label 为专家分类
// @Tags 会话
// @Produce json
// @Security BearerAuth
// @Param session_id path string true "会话ID"
// @Success 200 {object} Response
// @Failure 500 {object} Response
// @Router /ml/sessions/{session_id}/classifications [get]
func (h *SessionHandler) Classifications(c *gin.Context) {
	sessionID := strings.TrimSpace(c.Param("session_id"))
	session, err := h.pipeline.Sessions.LoadSession(c.Request.Context(), sessionID)
	if err != nil {
		handleServiceError(c, err, "加载会话失败")
		return
	}

	wells := make(map[string]sessionWell, len(session))
	overrides := 0
	for key, rec := range session {
		wells[key] = sessionWell{WellClassification: rec, DisplayLabel: rec.DisplayLabel()}
		if rec.HasExpertOverride() {
			overrides++
		}
	}
	keys := make([]string, 0, len(wells))
	for key := range wells {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	Success(c, "获取成功", gin.H{
		"session_id":       sessionID,
		"classifications":  wells,
		"well_keys":        keys,
		"count":            len(wells),
		"expert_overrides": overrides,
	})
}
