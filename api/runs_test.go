package api

import (
	"bytes"
	"context"
	"net/http"
	"testing"

	"qpcrml/middleware"
	"qpcrml/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestRunHandler_Lifecycle(t *testing.T) {
	r, _ := newTestServer(t)
	expert := tokenFor(t, "expert1", middleware.RoleExpert)
	admin := tokenFor(t, "admin", middleware.RoleAdmin)

	run := gin.H{"run_id": "RUN-001", "file_name": "plate1.csv", "pathogen_code": "BVAB", "total_samples": 96, "completed_samples": 90}
	resp := mustStatus(t, doRequest(t, r, "POST", "/api/v1/ml/runs", expert, run), http.StatusCreated)
	assert.Equal(t, true, resp["success"])
	logID := resp["log_id"].(float64)
	assert.NotZero(t, logID)

	// run_id 重复
	resp = mustStatus(t, doRequest(t, r, "POST", "/api/v1/ml/runs", expert, run), http.StatusConflict)
	assert.Equal(t, false, resp["success"])

	resp = mustStatus(t, doRequest(t, r, "GET", "/api/v1/ml/runs/pending", expert, nil), http.StatusOK)
	assert.Equal(t, float64(1), resp["total"])

	resp = mustStatus(t, doRequest(t, r, "POST", "/api/v1/ml/runs/confirm", expert, gin.H{"run_log_id": logID, "is_confirmed": true}), http.StatusOK)
	assert.InDelta(t, 93.75, resp["accuracy"].(float64), 1e-9)
	assert.Equal(t, "completion_rate", resp["accuracy_basis"])
	confirmed := resp["confirmed_run"].(map[string]interface{})
	assert.Equal(t, "expert1", confirmed["confirmed_by"])

	// 终态不可再次确认
	mustStatus(t, doRequest(t, r, "POST", "/api/v1/ml/runs/confirm", expert, gin.H{"run_id": "RUN-001", "is_confirmed": false}), http.StatusConflict)

	resp = mustStatus(t, doRequest(t, r, "GET", "/api/v1/ml/runs/confirmed", expert, nil), http.StatusOK)
	assert.Equal(t, float64(1), resp["total"])

	resp = mustStatus(t, doRequest(t, r, "GET", "/api/v1/ml/runs/statistics", expert, nil), http.StatusOK)
	stats := resp["statistics"].(map[string]interface{})
	assert.Equal(t, float64(1), stats["total_runs"])
	assert.Equal(t, float64(1), stats["confirmed_runs"])

	// 已确认批次只有管理员可删除
	resp = mustStatus(t, doRequest(t, r, "DELETE", "/api/v1/ml/runs/RUN-001", expert, nil), http.StatusForbidden)
	assert.Equal(t, false, resp["success"])
	mustStatus(t, doRequest(t, r, "DELETE", "/api/v1/ml/runs/RUN-001", admin, nil), http.StatusOK)
	mustStatus(t, doRequest(t, r, "DELETE", "/api/v1/ml/runs/RUN-001", admin, nil), http.StatusNotFound)
}

func TestRunHandler_Reject(t *testing.T) {
	r, _ := newTestServer(t)
	expert := tokenFor(t, "expert1", middleware.RoleExpert)

	mustStatus(t, doRequest(t, r, "POST", "/api/v1/ml/runs", expert, gin.H{"run_id": "RUN-002", "file_name": "plate2.csv", "total_samples": 10, "completed_samples": 4}), http.StatusCreated)
	resp := mustStatus(t, doRequest(t, r, "POST", "/api/v1/ml/runs/confirm", expert, gin.H{"run_id": "RUN-002", "is_confirmed": false}), http.StatusOK)
	assert.NotContains(t, resp, "accuracy")
	assert.Equal(t, "rejected", resp["run"].(map[string]interface{})["status"])

	resp = mustStatus(t, doRequest(t, r, "GET", "/api/v1/ml/runs/confirmed", expert, nil), http.StatusOK)
	assert.Equal(t, float64(0), resp["total"])

	// 驳回的批次普通专家可以删除
	mustStatus(t, doRequest(t, r, "DELETE", "/api/v1/ml/runs/RUN-002", expert, nil), http.StatusOK)
}

func TestRunHandler_Validation(t *testing.T) {
	r, _ := newTestServer(t)
	expert := tokenFor(t, "expert1", middleware.RoleExpert)

	tests := []struct {
		name string
		path string
		body gin.H
	}{
		{"缺少 run_id", "/api/v1/ml/runs", gin.H{"file_name": "a.csv"}},
		{"完成数大于总数", "/api/v1/ml/runs", gin.H{"run_id": "R", "file_name": "a.csv", "total_samples": 1, "completed_samples": 2}},
		{"缺少 is_confirmed", "/api/v1/ml/runs/confirm", gin.H{"run_id": "R"}},
		{"缺少批次标识", "/api/v1/ml/runs/confirm", gin.H{"is_confirmed": true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := mustStatus(t, doRequest(t, r, "POST", tt.path, expert, tt.body), http.StatusBadRequest)
			assert.Equal(t, false, resp["success"])
		})
	}

	mustStatus(t, doRequest(t, r, "POST", "/api/v1/ml/runs/confirm", expert, gin.H{"run_id": "NOPE", "is_confirmed": true}), http.StatusNotFound)
}

func TestExportHandler_ConfirmedRuns(t *testing.T) {
	r, p := newTestServer(t)
	expert := tokenFor(t, "expert1", middleware.RoleExpert)

	for _, id := range []string{"RUN-A", "RUN-B"} {
		resp := mustStatus(t, doRequest(t, r, "POST", "/api/v1/ml/runs", expert, gin.H{"run_id": id, "file_name": id + ".csv", "total_samples": 10, "completed_samples": 5}), http.StatusCreated)
		_, err := p.Runs.ConfirmRun(context.Background(), service.ConfirmRunInput{RunLogID: uint(resp["log_id"].(float64)), ConfirmedBy: "expert1", Confirmed: true})
		require.NoError(t, err)
	}

	w := doRequest(t, r, "GET", "/api/v1/ml/runs/confirmed/export", expert, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment; filename*=UTF-8''")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("已确认批次")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "批次ID", rows[0][0])
	assert.ElementsMatch(t, []string{"RUN-A", "RUN-B"}, []string{rows[1][0], rows[2][0]})
	assert.Equal(t, "平均", rows[3][0])
	assert.Equal(t, "50.00", rows[3][8])
}

func TestExportHandler_SessionCSV(t *testing.T) {
	r, _ := newTestServer(t)
	token := tokenFor(t, "viewer1", middleware.RoleViewer)

	for _, ch := range []string{"HEX", "FAM"} {
		body := curveBody("A1", ch, 7012.8, 0.9967, 20, true)
		body["session_id"] = "s1"
		mustStatus(t, doRequest(t, r, "POST", "/api/v1/ml/classify", token, body), http.StatusOK)
	}

	w := doRequest(t, r, "GET", "/api/v1/ml/sessions/s1/export", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	lines := bytes.Split(bytes.TrimSpace(w.Body.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)
	assert.True(t, bytes.HasPrefix(lines[1], []byte("A1_FAM,A1,FAM,BVAB,STRONG_POSITIVE")))
	assert.True(t, bytes.HasPrefix(lines[2], []byte("A1_HEX,")))
}
