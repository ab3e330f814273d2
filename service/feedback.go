package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"qpcrml/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 训练样本写入结果
const (
	SampleCreated   = "created"
	SampleRelabeled = "relabeled"
	SampleUnchanged = "unchanged"
)

// FeedbackInput 专家修正
type FeedbackInput struct {
	SessionID   string
	WellID      string // A1 或 A1_FAM
	Curve       models.CurveSample
	ExpertLabel models.Label
	Reasoning   string
	SubmittedBy string
	SubmittedAt time.Time // 为零时取服务器时间
}

// FeedbackResult 修正结果
type FeedbackResult struct {
	WellKey              string                     `json:"well_key"`
	PathogenCode         string                     `json:"pathogen_code"`
	Fluorophore          string                     `json:"fluorophore"`
	SampleOutcome        string                     `json:"sample_outcome"`
	TrainingSamplesCount int                        `json:"training_samples"`
	ActiveVersion        string                     `json:"model_version"`
	Record               *models.WellClassification `json:"classification"`
}

// FeedbackService 专家修正入库与训练集维护
type FeedbackService struct {
	db       *gorm.DB
	registry *ChannelRegistry
	sessions *SessionStore
	versions *VersionManager
	models   *CurveModelCache
	metrics  *Metrics
	now      func() time.Time
}

// NewFeedbackService 创建修正服务
// cache 为 nil 时不做缓存失效
func NewFeedbackService(db *gorm.DB, registry *ChannelRegistry, sessions *SessionStore, versions *VersionManager, cache *CurveModelCache, metrics *Metrics) *FeedbackService {
	return &FeedbackService{db: db, registry: registry, sessions: sessions, versions: versions, models: cache, metrics: metrics, now: time.Now}
}

func (s *FeedbackService) normalize(in *FeedbackInput) error {
	in.SessionID = strings.TrimSpace(in.SessionID)
	if in.SessionID == "" {
		return invalidInput("session_id 不能为空")
	}
	if !in.ExpertLabel.Valid() || in.ExpertLabel == models.LabelUnknown {
		return invalidInput("专家分类不合法: %q", in.ExpertLabel)
	}
	well, fluorophore := models.SplitWellKey(in.WellID, in.Curve.Fluorophore)
	if well == "" || fluorophore == "" {
		return invalidInput("无法确定孔位或通道: %q", in.WellID)
	}
	in.Curve.WellID, in.Curve.Fluorophore = well, fluorophore
	in.Curve.PathogenCode = strings.TrimSpace(in.Curve.PathogenCode)
	if in.Curve.PathogenCode == "" {
		return invalidInput("病原体编码不能为空")
	}
	// 修正可以只带指标；带了原始曲线则完整校验
	validate := in.Curve.ValidateMetrics
	if len(in.Curve.Cycles) > 0 || len(in.Curve.RFU) > 0 {
		validate = in.Curve.Validate
	}
	if err := validate(); err != nil {
		return invalidInput("%v", err)
	}
	if in.SubmittedAt.IsZero() {
		in.SubmittedAt = s.now()
	}
	return nil
}

// Submit 提交专家修正
// 同一 (会话, 孔位键) 重复提交会覆盖修正记录；标签相同不重复计数，标签变化则原地更新训练样本
func (s *FeedbackService) Submit(ctx context.Context, in FeedbackInput) (*FeedbackResult, error) {
	if err := s.normalize(&in); err != nil {
		return nil, err
	}

	ch, known, err := s.registry.Resolve(ctx, in.Curve.PathogenCode, in.Curve.Fluorophore)
	if err != nil {
		return nil, err
	}
	if !known {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownChannel, in.Curve.PathogenCode, in.Curve.Fluorophore)
	}
	in.Curve.PathogenCode, in.Curve.Fluorophore = ch.PathogenCode, ch.Fluorophore
	wellKey := in.Curve.WellKey()

	result := &FeedbackResult{WellKey: wellKey, PathogenCode: ch.PathogenCode, Fluorophore: ch.Fluorophore}
	err = withDuplicateRetry(func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return s.submitTx(tx, &in, wellKey, result)
		})
	})
	if err != nil {
		return nil, storageError("保存专家修正", err)
	}
	s.metrics.observeFeedback(ch.PathogenCode, ch.Fluorophore, result.SampleOutcome)
	if result.SampleOutcome == SampleRelabeled && s.models != nil {
		s.models.Invalidate(ch.PathogenCode, ch.Fluorophore)
	}

	// 版本检查在修正提交之后执行，失败不影响修正本身
	version, err := s.versions.OnSampleCountChange(ctx, ch.PathogenCode, ch.Fluorophore)
	if err != nil {
		log.Printf("[feedback] %s/%s 版本检查失败: %v", ch.PathogenCode, ch.Fluorophore, err)
		version, err = s.versions.GetActiveVersion(ctx, ch.PathogenCode, ch.Fluorophore)
		if err != nil {
			log.Printf("[feedback] %s/%s 查询激活版本失败: %v", ch.PathogenCode, ch.Fluorophore, err)
			return result, nil
		}
	}
	result.TrainingSamplesCount = version.TrainingSamplesCount
	result.ActiveVersion = version.VersionNumber
	return result, nil
}

func (s *FeedbackService) submitTx(tx *gorm.DB, in *FeedbackInput, wellKey string, result *FeedbackResult) error {
	curve := &in.Curve

	var entry models.ExpertFeedback
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("session_id = ? AND well_key = ?", in.SessionID, wellKey).
		First(&entry).Error
	found := err == nil
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if found && entry.Timestamp.After(in.SubmittedAt) {
		return fmt.Errorf("%w: %s 已有 %s 的修正", ErrStaleFeedback, wellKey, entry.Timestamp.Format(time.RFC3339))
	}

	// 修正时刻的模型预测
	current, err := s.sessions.findForUpdate(tx, in.SessionID, curve.WellID, curve.Fluorophore)
	if err != nil {
		return err
	}
	var (
		mlLabel      *models.Label
		mlConfidence *float64
	)
	if current != nil && current.MLPrediction != nil {
		label, confidence := current.MLPrediction.Classification, current.MLPrediction.Confidence
		mlLabel, mlConfidence = &label, &confidence
	}

	entry.SessionID = in.SessionID
	entry.WellKey = wellKey
	entry.PathogenCode = curve.PathogenCode
	entry.Fluorophore = curve.Fluorophore
	entry.ExpertClassification = in.ExpertLabel
	entry.MLPredictionAtTime = mlLabel
	entry.ConfidenceAtTime = mlConfidence
	entry.Reasoning = in.Reasoning
	entry.SubmittedBy = in.SubmittedBy
	entry.Timestamp = in.SubmittedAt
	if found {
		err = tx.Save(&entry).Error
	} else {
		err = tx.Create(&entry).Error
	}
	if err != nil {
		return err
	}

	outcome, err := s.upsertSample(tx, in, wellKey)
	if err != nil {
		return err
	}
	result.SampleOutcome = outcome
	count, err := s.versions.countSamples(tx, curve.PathogenCode, curve.Fluorophore)
	if err != nil {
		return err
	}
	result.TrainingSamplesCount = int(count)

	expert := in.ExpertLabel
	rec, _, err := s.sessions.mergeTx(tx, in.SessionID, models.WellClassification{
		WellID:               curve.WellID,
		Fluorophore:          curve.Fluorophore,
		PathogenCode:         curve.PathogenCode,
		Label:                expert,
		Confidence:           1,
		Method:               models.MethodExpertOverride,
		Reason:               string(models.MethodExpertOverride),
		ExpertClassification: &expert,
	})
	if err != nil {
		return err
	}
	result.Record = rec
	return nil
}

func (s *FeedbackService) upsertSample(tx *gorm.DB, in *FeedbackInput, wellKey string) (string, error) {
	curve := &in.Curve
	var sample models.TrainingSample
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("pathogen_code = ? AND fluorophore = ? AND session_id = ? AND well_key = ?",
			curve.PathogenCode, curve.Fluorophore, in.SessionID, wellKey).
		First(&sample).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		sample = models.TrainingSample{
			PathogenCode: curve.PathogenCode,
			Fluorophore:  curve.Fluorophore,
			SessionID:    in.SessionID,
			WellKey:      wellKey,
			Label:        in.ExpertLabel,
			AddedAt:      s.now(),
		}
		if err := sample.SetFeatures(models.NewSampleFeatures(curve)); err != nil {
			return "", err
		}
		return SampleCreated, tx.Create(&sample).Error
	}
	if err != nil {
		return "", err
	}
	if sample.Label == in.ExpertLabel {
		return SampleUnchanged, nil
	}
	sample.Label = in.ExpertLabel
	if err := sample.SetFeatures(models.NewSampleFeatures(curve)); err != nil {
		return "", err
	}
	return SampleRelabeled, tx.Save(&sample).Error
}
