package router

import (
	"net/http"

	"qpcrml/api"
	"qpcrml/config"
	_ "qpcrml/docs"
	"qpcrml/middleware"
	"qpcrml/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// APIPermissions 接口角色表，按顺序匹配；管理员不受限制
var APIPermissions = []middleware.Permission{
	{Method: "POST", Path: "/api/v1/ml/feedback", Roles: []string{middleware.RoleExpert}},
	{Method: "POST", Path: "/api/v1/ml/runs", Roles: []string{middleware.RoleExpert}},
	{Method: "POST", Path: "/api/v1/ml/runs/confirm", Roles: []string{middleware.RoleExpert}},
	{Method: "DELETE", Path: "/api/v1/ml/runs/:run_id", Roles: []string{middleware.RoleExpert}},
	{Method: "POST", Path: "/api/v1/ml/models/:pathogen/:fluorophore/reset", Roles: []string{middleware.RoleAdmin}},
}

// SetupRouter 设置路由；gatherer 为 nil 时使用默认注册表
func SetupRouter(cfg *config.Config, pipeline *service.Pipeline, gatherer prometheus.Gatherer) *gin.Engine {
	// 设置运行模式
	gin.SetMode(cfg.Server.Mode)

	r := gin.Default()

	r.Use(CORSMiddleware())
	r.Use(middleware.RequestID())

	// Swagger 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	classifyHandler := api.NewClassifyHandler(pipeline)
	feedbackHandler := api.NewFeedbackHandler(pipeline)
	sessionHandler := api.NewSessionHandler(pipeline)
	modelHandler := api.NewModelHandler(pipeline)
	runHandler := api.NewRunHandler(pipeline)
	exportHandler := api.NewExportHandler(pipeline)

	v1 := r.Group("/api/v1")
	ml := v1.Group("/ml")
	ml.Use(middleware.JWTAuth(), middleware.PermissionMiddleware(APIPermissions))
	{
		// 分类
		ml.POST("/classify", classifyHandler.Classify)
		ml.POST("/classify/batch", middleware.RateLimit(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window()), classifyHandler.ClassifyBatch)

		// 专家修正
		ml.POST("/feedback", feedbackHandler.Submit)

		// 会话
		ml.GET("/sessions/:session_id/classifications", sessionHandler.Classifications)
		ml.GET("/sessions/:session_id/export", exportHandler.ExportSessionCSV)

		// 模型版本
		ml.GET("/channels", modelHandler.Channels)
		ml.GET("/models/versions", modelHandler.Versions)
		ml.GET("/models/:pathogen/:fluorophore/version", modelHandler.ActiveVersion)
		ml.POST("/models/:pathogen/:fluorophore/reset", modelHandler.Reset)

		// 批次运行
		runs := ml.Group("/runs")
		{
			runs.POST("", runHandler.LogRun)
			runs.POST("/confirm", runHandler.ConfirmRun)
			runs.GET("/pending", runHandler.Pending)
			runs.GET("/confirmed", runHandler.Confirmed)
			runs.GET("/confirmed/export", exportHandler.ExportConfirmedRuns)
			runs.GET("/statistics", runHandler.Statistics)
			runs.DELETE("/:run_id", runHandler.DeleteRun)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	return r
}

// CORSMiddleware CORS 跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-Request-ID, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
