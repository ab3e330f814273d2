package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// SafeErrorMessage 生产环境下不向客户端返回内部错误详情
// 业务错误的文本由本服务生成，可以直接返回
func SafeErrorMessage(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	if statusOf(err) != http.StatusInternalServerError {
		return err.Error()
	}
	log.Printf("[api] %s: %v", fallback, err)
	if gin.Mode() == gin.ReleaseMode {
		return fallback
	}
	return fallback + ": " + err.Error()
}
