package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	"qpcrml/models"
	"qpcrml/service"
)

// WellData 孔位信息
type WellData struct {
	Well    string `json:"well" example:"A1"`
	Target  string `json:"target" example:"BVAB1"`
	Sample  string `json:"sample" example:"S-0001"`
	Channel string `json:"channel" example:"FAM"`
}

// ExistingMetrics 特征提取服务给出的曲线指标
type ExistingMetrics struct {
	R2           float64 `json:"r2" example:"0.9967"`
	Amplitude    float64 `json:"amplitude" example:"7012.8"`
	Steepness    float64 `json:"steepness"`
	SNR          float64 `json:"snr" example:"20"`
	Baseline     float64 `json:"baseline"`
	Midpoint     float64 `json:"midpoint"`
	Cqj          float64 `json:"cqj"`
	CalcJ        float64 `json:"calcj"`
	IsGoodSCurve *bool   `json:"is_good_scurve"`
}

// CurveRequest 单孔曲线
type CurveRequest struct {
	RFUData         []float64       `json:"rfu_data"`
	Cycles          []float64       `json:"cycles"`
	WellData        WellData        `json:"well_data"`
	ExistingMetrics ExistingMetrics `json:"existing_metrics"`
	WellID          string          `json:"well_id" example:"A1_FAM"`
	PathogenCode    string          `json:"pathogen_code" example:"BVAB"`
}

// ClassifyRequest 单孔分类请求
type ClassifyRequest struct {
	CurveRequest
	SessionID string `json:"session_id"`
}

// BatchClassifyRequest 批量分类请求
type BatchClassifyRequest struct {
	SessionID string         `json:"session_id"`
	Wells     []CurveRequest `json:"wells" binding:"required"`
}

// FeedbackRequest 专家修正请求
type FeedbackRequest struct {
	CurveRequest
	SessionID            string `json:"session_id" binding:"required"`
	ExpertClassification string `json:"expert_classification" binding:"required" example:"NEGATIVE"`
	Reasoning            string `json:"reasoning"`

	// 客户端提交时间（RFC3339），缺省取服务器时间；早于已存修正时拒绝
	SubmittedAt *time.Time `json:"submitted_at"`
}

// LogRunRequest 登记批次请求
type LogRunRequest struct {
	RunID            string `json:"run_id" binding:"required"`
	FileName         string `json:"file_name" binding:"required"`
	SessionID        string `json:"session_id"`
	PathogenCode     string `json:"pathogen_code"`
	TotalSamples     int    `json:"total_samples"`
	CompletedSamples int    `json:"completed_samples"`
	Notes            string `json:"notes"`
}

// ConfirmRunRequest 确认/驳回请求，run_log_id 与 run_id 二选一
type ConfirmRunRequest struct {
	RunLogID    uint   `json:"run_log_id"`
	RunID       string `json:"run_id"`
	ConfirmedBy string `json:"confirmed_by"`
	IsConfirmed *bool  `json:"is_confirmed" binding:"required"`
	Notes       string `json:"notes"`
}

// ResetModelRequest 重置模型版本请求
type ResetModelRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (r *CurveRequest) wellKey() string {
	wellID := strings.TrimSpace(r.WellID)
	if wellID == "" {
		wellID = r.WellData.Well
	}
	return models.WellKey(wellID, r.WellData.Channel)
}

var errMissingShape = fmt.Errorf("%w: existing_metrics.is_good_scurve 不能为空", service.ErrInvalidInput)

// toCurve 转换为领域曲线；病原体优先取请求值，否则按靶标查询登记表
func toCurve(ctx context.Context, registry *service.ChannelRegistry, req *CurveRequest) (models.CurveSample, error) {
	if req.ExistingMetrics.IsGoodSCurve == nil {
		return models.CurveSample{}, errMissingShape
	}

	wellID := strings.TrimSpace(req.WellID)
	if wellID == "" {
		wellID = strings.TrimSpace(req.WellData.Well)
	}
	well, fluorophore := models.SplitWellKey(wellID, strings.TrimSpace(req.WellData.Channel))

	pathogen := strings.TrimSpace(req.PathogenCode)
	if pathogen == "" {
		target := strings.TrimSpace(req.WellData.Target)
		ch, ok, err := registry.ResolveTarget(ctx, target, fluorophore)
		if err != nil {
			return models.CurveSample{}, err
		}
		if ok {
			pathogen = ch.PathogenCode
		} else {
			pathogen = target
		}
	}

	m := req.ExistingMetrics
	return models.CurveSample{
		WellID:       well,
		Fluorophore:  fluorophore,
		PathogenCode: pathogen,
		Cycles:       req.Cycles,
		RFU:          req.RFUData,
		IsGoodSCurve: *m.IsGoodSCurve,
		Metrics: models.Metrics{
			Amplitude: m.Amplitude,
			R2:        m.R2,
			SNR:       m.SNR,
			Steepness: m.Steepness,
			Baseline:  m.Baseline,
			Midpoint:  m.Midpoint,
			Cq:        m.Cqj,
			CalcJ:     m.CalcJ,
		},
	}, nil
}

func bindError(err error) string {
	return fmt.Sprintf("请求参数错误: %v", err)
}
