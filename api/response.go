package api

import (
	"errors"
	"net/http"

	"qpcrml/service"

	"github.com/gin-gonic/gin"
)

// Response 通用响应结构，业务字段与 success/message 平铺在同一层
type Response struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func respond(c *gin.Context, status int, message string, payload gin.H) {
	body := gin.H{
		"success": status < http.StatusBadRequest,
		"code":    status,
		"message": message,
	}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(status, body)
}

// Success 成功响应
func Success(c *gin.Context, message string, payload gin.H) {
	respond(c, http.StatusOK, message, payload)
}

// Created 创建成功响应
func Created(c *gin.Context, message string, payload gin.H) {
	respond(c, http.StatusCreated, message, payload)
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	respond(c, code, message, nil)
}

// BadRequest 400 错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// Forbidden 403 错误响应
func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, message)
}

// NotFound 404 错误响应
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}

// InternalError 500 错误响应
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, message)
}

// statusOf 业务错误对应的 HTTP 状态码
func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case service.IsConflict(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// handleServiceError 按错误分类返回；存储类错误只返回通用提示
func handleServiceError(c *gin.Context, err error, fallback string) {
	Error(c, statusOf(err), SafeErrorMessage(err, fallback))
}
