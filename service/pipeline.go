package service

import (
	"context"

	"qpcrml/config"
	"qpcrml/models"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// Pipeline 组装分类流水线的全部服务，由 main 显式构造后注入 handler
type Pipeline struct {
	Metrics    *Metrics
	Registry   *ChannelRegistry
	Sessions   *SessionStore
	Versions   *VersionManager
	Models     *CurveModelCache
	Classifier *Classifier
	Feedback   *FeedbackService
	Runs       *RunService
}

// NewPipeline 创建流水线；reg 为 nil 时不注册指标，notifier 为 nil 时不发送晋级通知
func NewPipeline(db *gorm.DB, cfg *config.Config, reg prometheus.Registerer, notifier Notifier) *Pipeline {
	metrics := NewMetrics(reg)
	registry := NewChannelRegistry(db)
	sessions := NewSessionStore(db)

	policy := DefaultVersionPolicy()
	if cfg.ML.ModelType != "" {
		policy.ModelType = cfg.ML.ModelType
	}
	if cfg.ML.TeachingThreshold > 0 {
		policy.TeachingThreshold = cfg.ML.TeachingThreshold
	}
	if cfg.ML.PromotionInterval > 0 {
		policy.PromotionInterval = cfg.ML.PromotionInterval
	}
	versions := NewVersionManager(db, policy, metrics, notifier)
	cache := NewCurveModelCache(db, cfg.ML.Neighbors, cfg.ML.MinSamples)

	return &Pipeline{
		Metrics:    metrics,
		Registry:   registry,
		Sessions:   sessions,
		Versions:   versions,
		Models:     cache,
		Classifier: NewClassifier(ClassifierConfig{MLEnabled: cfg.ML.Enabled}, versions, cache, registry, metrics),
		Feedback:   NewFeedbackService(db, registry, sessions, versions, cache, metrics),
		Runs:       NewRunService(db, metrics),
	}
}

// ClassifyResult 单孔分类结果
type ClassifyResult struct {
	Prediction models.MLPrediction        `json:"prediction"`
	Record     *models.WellClassification `json:"record,omitempty"`
	Outcome    MergeOutcome               `json:"outcome,omitempty"`
}

// ClassifyWell 分类并在提供会话时写入会话记录
// 已有专家覆盖时记录保持不变，Prediction 仍返回本次模型结论
func (p *Pipeline) ClassifyWell(ctx context.Context, sessionID string, curve models.CurveSample) (*ClassifyResult, error) {
	rec := p.Classifier.Classify(ctx, curve)
	result := &ClassifyResult{Prediction: *rec.MLPrediction, Record: &rec}
	if sessionID == "" {
		return result, nil
	}
	if rec.WellID == "" || rec.Fluorophore == "" {
		return nil, invalidInput("写入会话需要孔位和通道")
	}
	stored, outcome, err := p.Sessions.MergeAndStore(ctx, sessionID, rec)
	if err != nil {
		return nil, err
	}
	result.Record = stored
	result.Outcome = outcome
	return result, nil
}

// BatchItem 批量分类中单孔的结果，失败不影响其他孔
type BatchItem struct {
	Index   int             `json:"index"`
	WellKey string          `json:"well_key"`
	Result  *ClassifyResult `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
	err     error
}

// Err 原始错误
func (b BatchItem) Err() error {
	return b.err
}

// ClassifyBatch 逐孔独立分类，可整体重试
func (p *Pipeline) ClassifyBatch(ctx context.Context, sessionID string, curves []models.CurveSample) []BatchItem {
	items := make([]BatchItem, len(curves))
	for i := range curves {
		items[i] = BatchItem{Index: i, WellKey: models.WellKey(curves[i].WellID, curves[i].Fluorophore)}
		res, err := p.ClassifyWell(ctx, sessionID, curves[i])
		if err != nil {
			items[i].err = err
			items[i].Error = err.Error()
			continue
		}
		items[i].Result = res
	}
	return items
}
