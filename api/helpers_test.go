package api

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"qpcrml/config"
	"qpcrml/database"
	"qpcrml/middleware"
	"qpcrml/models"
	"qpcrml/service"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var testPathogens = []config.PathogenConfig{
	{Code: "BVAB", Channels: []config.ChannelConfig{
		{Fluorophore: "FAM", Target: "BVAB1"},
		{Fluorophore: "HEX", Target: "BVAB2"},
	}},
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Mode: "test"},
		JWT:    config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour},
		ML: config.MLConfig{
			Enabled:           true,
			ModelType:         models.DefaultModelType,
			Neighbors:         3,
			MinSamples:        3,
			TeachingThreshold: 40,
			PromotionInterval: 40,
		},
		Pathogens: testPathogens,
	}
}

// setupTestDB 内存 sqlite
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:", "silent")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	require.NoError(t, database.SeedPathogenChannels(db, testPathogens))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// setupMockDB sqlmock + mysql 方言，用于模拟存储失败
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return gormDB, mock
}

func setupRouter(p *service.Pipeline) *gin.Engine {
	gin.SetMode(gin.TestMode)
	middleware.InitJWT(testConfig())

	classify := NewClassifyHandler(p)
	feedback := NewFeedbackHandler(p)
	sessions := NewSessionHandler(p)
	modelsHandler := NewModelHandler(p)
	runs := NewRunHandler(p)
	export := NewExportHandler(p)

	r := gin.New()
	ml := r.Group("/api/v1/ml", middleware.JWTAuth())
	ml.POST("/classify", classify.Classify)
	ml.POST("/classify/batch", classify.ClassifyBatch)
	ml.POST("/feedback", feedback.Submit)
	ml.GET("/sessions/:session_id/classifications", sessions.Classifications)
	ml.GET("/sessions/:session_id/export", export.ExportSessionCSV)
	ml.GET("/channels", modelsHandler.Channels)
	ml.GET("/models/versions", modelsHandler.Versions)
	ml.GET("/models/:pathogen/:fluorophore/version", modelsHandler.ActiveVersion)
	ml.POST("/models/:pathogen/:fluorophore/reset", modelsHandler.Reset)
	ml.POST("/runs", runs.LogRun)
	ml.POST("/runs/confirm", runs.ConfirmRun)
	ml.GET("/runs/pending", runs.Pending)
	ml.GET("/runs/confirmed", runs.Confirmed)
	ml.GET("/runs/confirmed/export", export.ExportConfirmedRuns)
	ml.GET("/runs/statistics", runs.Statistics)
	ml.DELETE("/runs/:run_id", runs.DeleteRun)
	return r
}

func newTestServer(t *testing.T) (*gin.Engine, *service.Pipeline) {
	t.Helper()
	p := service.NewPipeline(setupTestDB(t), testConfig(), nil, nil)
	return setupRouter(p), p
}

func tokenFor(t *testing.T, username, role string) string {
	t.Helper()
	middleware.InitJWT(testConfig())
	token, err := middleware.GenerateToken(1, username, role, time.Hour)
	require.NoError(t, err)
	return token
}

func doRequest(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func boolPtr(b bool) *bool {
	return &b
}

// curveBody 单孔请求体
func curveBody(well, channel string, amplitude, r2, snr float64, goodShape bool) gin.H {
	return gin.H{
		"rfu_data": []float64{10, 12, 40, 300, amplitude},
		"cycles":   []float64{1, 2, 3, 4, 5},
		"well_data": gin.H{
			"well":    well,
			"target":  "BVAB1",
			"sample":  "S-0001",
			"channel": channel,
		},
		"existing_metrics": gin.H{
			"r2":             r2,
			"amplitude":      amplitude,
			"steepness":      0.5,
			"snr":            snr,
			"is_good_scurve": goodShape,
			"cqj":            24.5,
			"calcj":          1.2,
		},
		"well_id":       well,
		"pathogen_code": "BVAB",
	}
}

func mustStatus(t *testing.T, w *httptest.ResponseRecorder, status int) map[string]interface{} {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	return decode(t, w)
}
