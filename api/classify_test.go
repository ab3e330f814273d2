package api

import (
	"net/http"
	"testing"

	"qpcrml/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyHandler_Classify(t *testing.T) {
	r, _ := newTestServer(t)
	token := tokenFor(t, "viewer1", middleware.RoleViewer)

	t.Run("无会话只返回预测", func(t *testing.T) {
		w := doRequest(t, r, "POST", "/api/v1/ml/classify", token, curveBody("A1", "FAM", 7012.8, 0.9967, 20, true))
		resp := mustStatus(t, w, http.StatusOK)
		assert.Equal(t, true, resp["success"])
		prediction := resp["prediction"].(map[string]interface{})
		assert.Equal(t, "STRONG_POSITIVE", prediction["classification"])
		assert.Equal(t, "rule_based", prediction["method"])
		assert.Equal(t, "1.0", prediction["model_version"])
		assert.NotContains(t, resp, "classification")
	})

	t.Run("形状差的曲线不会判为阳性", func(t *testing.T) {
		w := doRequest(t, r, "POST", "/api/v1/ml/classify", token, curveBody("A2", "FAM", 1491.0, 0.9964, 20, false))
		resp := mustStatus(t, w, http.StatusOK)
		prediction := resp["prediction"].(map[string]interface{})
		assert.NotContains(t, []string{"STRONG_POSITIVE", "POSITIVE", "WEAK_POSITIVE"}, prediction["classification"])
	})

	t.Run("写入会话", func(t *testing.T) {
		body := curveBody("A1", "FAM", 7012.8, 0.9967, 20, true)
		body["session_id"] = "s1"
		resp := mustStatus(t, doRequest(t, r, "POST", "/api/v1/ml/classify", token, body), http.StatusOK)
		assert.Equal(t, "created", resp["outcome"])
		assert.Equal(t, "STRONG_POSITIVE", resp["display_label"])

		// 重试不会新增记录
		resp = mustStatus(t, doRequest(t, r, "POST", "/api/v1/ml/classify", token, body), http.StatusOK)
		assert.Equal(t, "updated", resp["outcome"])

		resp = mustStatus(t, doRequest(t, r, "GET", "/api/v1/ml/sessions/s1/classifications", token, nil), http.StatusOK)
		assert.Equal(t, float64(1), resp["count"])
		wells := resp["classifications"].(map[string]interface{})
		well := wells["A1_FAM"].(map[string]interface{})
		assert.Equal(t, "STRONG_POSITIVE", well["display_label"])
		assert.Equal(t, "FAM", well["fluorophore"])
		require.NotNil(t, well["ml_prediction"])
	})

	t.Run("按靶标解析病原体", func(t *testing.T) {
		body := curveBody("B1", "HEX", 700, 0.99, 10, true)
		delete(body, "pathogen_code")
		body["well_data"].(gin.H)["target"] = "BVAB2"
		body["session_id"] = "s2"
		resp := mustStatus(t, doRequest(t, r, "POST", "/api/v1/ml/classify", token, body), http.StatusOK)
		record := resp["classification"].(map[string]interface{})
		assert.Equal(t, "BVAB", record["pathogen_code"])
		assert.Equal(t, "B1", record["well_id"])
	})

	t.Run("缺少 is_good_scurve", func(t *testing.T) {
		body := curveBody("A3", "FAM", 7012.8, 0.9967, 20, true)
		delete(body["existing_metrics"].(gin.H), "is_good_scurve")
		resp := mustStatus(t, doRequest(t, r, "POST", "/api/v1/ml/classify", token, body), http.StatusBadRequest)
		assert.Equal(t, false, resp["success"])
		assert.Contains(t, resp["message"], "is_good_scurve")
	})

	t.Run("曲线数据不合法返回 UNKNOWN", func(t *testing.T) {
		body := curveBody("A4", "FAM", 7012.8, 0.9967, 20, true)
		body["cycles"] = []float64{1, 2}
		resp := mustStatus(t, doRequest(t, r, "POST", "/api/v1/ml/classify", token, body), http.StatusOK)
		prediction := resp["prediction"].(map[string]interface{})
		assert.Equal(t, "UNKNOWN", prediction["classification"])
		assert.Equal(t, "error", prediction["method"])
		assert.Equal(t, float64(0), prediction["confidence"])
	})

	t.Run("未登录", func(t *testing.T) {
		w := doRequest(t, r, "POST", "/api/v1/ml/classify", "", curveBody("A1", "FAM", 1, 1, 1, true))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestClassifyHandler_Batch(t *testing.T) {
	r, _ := newTestServer(t)
	token := tokenFor(t, "viewer1", middleware.RoleViewer)

	missing := curveBody("A2", "FAM", 100, 0.9, 2, true)
	delete(missing["existing_metrics"].(gin.H), "is_good_scurve")
	body := gin.H{
		"session_id": "plate-1",
		"wells": []gin.H{
			curveBody("A1", "FAM", 7012.8, 0.9967, 20, true),
			missing,
			curveBody("A1", "HEX", 100, 0.9, 2, true),
		},
	}

	resp := mustStatus(t, doRequest(t, r, "POST", "/api/v1/ml/classify/batch", token, body), http.StatusOK)
	assert.Equal(t, float64(3), resp["total"])
	assert.Equal(t, float64(2), resp["succeeded"])
	assert.Equal(t, float64(1), resp["failed"])

	results := resp["results"].([]interface{})
	require.Len(t, results, 3)
	assert.Equal(t, true, results[0].(map[string]interface{})["success"])
	failed := results[1].(map[string]interface{})
	assert.Equal(t, false, failed["success"])
	assert.Equal(t, "A2_FAM", failed["well_key"])
	assert.Equal(t, "A1_HEX", results[2].(map[string]interface{})["well_key"])

	// 整批重试，已成功的孔位不产生重复记录
	mustStatus(t, doRequest(t, r, "POST", "/api/v1/ml/classify/batch", token, body), http.StatusOK)
	resp = mustStatus(t, doRequest(t, r, "GET", "/api/v1/ml/sessions/plate-1/classifications", token, nil), http.StatusOK)
	assert.Equal(t, float64(2), resp["count"])

	empty := mustStatus(t, doRequest(t, r, "POST", "/api/v1/ml/classify/batch", token, gin.H{"wells": []gin.H{}}), http.StatusBadRequest)
	assert.Equal(t, false, empty["success"])
}
