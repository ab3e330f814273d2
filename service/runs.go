package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"qpcrml/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LogRunInput 登记批次
type LogRunInput struct {
	RunID            string
	FileName         string
	SessionID        string
	PathogenCode     string
	TotalSamples     int
	CompletedSamples int
	Notes            string
	LoggedBy         string
}

// ConfirmRunInput 确认或驳回；RunLogID 与 RunID 二选一
type ConfirmRunInput struct {
	RunLogID    uint
	RunID       string
	ConfirmedBy string
	Confirmed   bool
	Notes       string
}

// ConfirmRunResult 确认结果，驳回时 Confirmed 为空
type ConfirmRunResult struct {
	Run       models.RunLog        `json:"run"`
	Confirmed *models.ConfirmedRun `json:"confirmed_run,omitempty"`
}

// ValidationResults 确认时记录的准确率快照
type ValidationResults struct {
	TotalSamples       int      `json:"total_samples"`
	CompletedSamples   int      `json:"completed_samples"`
	CompletionRate     float64  `json:"completion_rate"`
	ClassifiedWells    int      `json:"classified_wells"`
	ExpertDisagreement int      `json:"expert_disagreements"`
	AgreementRate      *float64 `json:"agreement_rate"`
	AccuracyBasis      string   `json:"accuracy_basis"`
	PathogenCode       string   `json:"pathogen_code"`
	SessionID          string   `json:"session_id"`
	AccuracyRecordedAt string   `json:"accuracy_recorded_at"`
}

// ChannelSampleCount 各通道训练样本数
type ChannelSampleCount struct {
	PathogenCode string `json:"pathogen_code"`
	Fluorophore  string `json:"fluorophore"`
	Count        int64  `json:"count"`
}

// RunStatistics 运行统计
type RunStatistics struct {
	TotalRuns         int64                `json:"total_runs"`
	PendingRuns       int64                `json:"pending_runs"`
	ConfirmedRuns     int64                `json:"confirmed_runs"`
	RejectedRuns      int64                `json:"rejected_runs"`
	AverageAccuracy   float64              `json:"average_accuracy"`
	AverageCompletion float64              `json:"average_completion"`
	ExpertFeedback    int64                `json:"expert_feedback"`
	TrainingSamples   []ChannelSampleCount `json:"training_samples"`
}

// RunService 批次运行状态机：pending -> confirmed | rejected
type RunService struct {
	db      *gorm.DB
	metrics *Metrics
	now     func() time.Time
}

// NewRunService 创建运行服务
func NewRunService(db *gorm.DB, metrics *Metrics) *RunService {
	return &RunService{db: db, metrics: metrics, now: time.Now}
}

// LogRun 登记待确认批次，run_id 已存在时失败且不覆盖
func (s *RunService) LogRun(ctx context.Context, in LogRunInput) (*models.RunLog, error) {
	in.RunID = strings.TrimSpace(in.RunID)
	in.FileName = strings.TrimSpace(in.FileName)
	switch {
	case in.RunID == "":
		return nil, invalidInput("run_id 不能为空")
	case in.FileName == "":
		return nil, invalidInput("file_name 不能为空")
	case in.TotalSamples < 0 || in.CompletedSamples < 0:
		return nil, invalidInput("样本数不能为负数")
	case in.CompletedSamples > in.TotalSamples:
		return nil, invalidInput("完成数 %d 大于样本总数 %d", in.CompletedSamples, in.TotalSamples)
	}

	run := models.RunLog{
		RunID:            in.RunID,
		FileName:         in.FileName,
		SessionID:        strings.TrimSpace(in.SessionID),
		PathogenCode:     strings.TrimSpace(in.PathogenCode),
		TotalSamples:     in.TotalSamples,
		CompletedSamples: in.CompletedSamples,
		Status:           models.RunStatusPending,
		Notes:            in.Notes,
		LoggedBy:         in.LoggedBy,
		LoggedAt:         s.now(),
	}

	var count int64
	db := s.db.WithContext(ctx)
	if err := db.Model(&models.RunLog{}).Where("run_id = ?", run.RunID).Count(&count).Error; err != nil {
		return nil, storageError("查询运行记录", err)
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunExists, run.RunID)
	}
	if err := db.Create(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: %s", ErrRunExists, run.RunID)
		}
		return nil, storageError("登记运行记录", err)
	}
	s.metrics.observeRun(models.RunStatusPending)
	return &run, nil
}

func (s *RunService) lockRun(tx *gorm.DB, runLogID uint, runID string) (*models.RunLog, error) {
	q := tx.Clauses(clause.Locking{Strength: "UPDATE"})
	if runLogID != 0 {
		q = q.Where("id = ?", runLogID)
	} else {
		q = q.Where("run_id = ?", runID)
	}
	var run models.RunLog
	if err := q.First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: 运行记录 %s", ErrNotFound, runRef(runLogID, runID))
		}
		return nil, err
	}
	return &run, nil
}

func runRef(runLogID uint, runID string) string {
	if runLogID != 0 {
		return fmt.Sprintf("#%d", runLogID)
	}
	return runID
}

// ConfirmRun 确认或驳回待确认批次，终态不可再次变更
func (s *RunService) ConfirmRun(ctx context.Context, in ConfirmRunInput) (*ConfirmRunResult, error) {
	in.RunID = strings.TrimSpace(in.RunID)
	if in.RunLogID == 0 && in.RunID == "" {
		return nil, invalidInput("run_log_id 或 run_id 必须提供一个")
	}

	result := &ConfirmRunResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		run, err := s.lockRun(tx, in.RunLogID, in.RunID)
		if err != nil {
			return err
		}
		if run.Status != models.RunStatusPending {
			return fmt.Errorf("%w: %s 当前状态 %s", ErrRunNotPending, run.RunID, run.Status)
		}

		now := s.now()
		run.ResolvedBy = in.ConfirmedBy
		run.ResolvedAt = &now
		if in.Notes != "" {
			run.Notes = in.Notes
		}
		if !in.Confirmed {
			run.Status = models.RunStatusRejected
			result.Run = *run
			return tx.Save(run).Error
		}

		confirmed, err := s.buildConfirmedRun(tx, run, in.ConfirmedBy, now)
		if err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(confirmed).Error; err != nil {
			return err
		}
		run.Status = models.RunStatusConfirmed
		if err := tx.Save(run).Error; err != nil {
			return err
		}
		result.Run = *run
		result.Confirmed = confirmed
		return nil
	})
	if err != nil {
		return nil, storageError("确认运行记录", err)
	}

	s.metrics.observeRun(result.Run.Status)
	if result.Confirmed != nil {
		log.Printf("[runs] %s 已确认，准确率 %.2f (%s)", result.Run.RunID,
			result.Confirmed.AccuracyScore, result.Confirmed.AccuracyBasis)
	} else {
		log.Printf("[runs] %s 已驳回", result.Run.RunID)
	}
	return result, nil
}

func (s *RunService) buildConfirmedRun(tx *gorm.DB, run *models.RunLog, confirmedBy string, now time.Time) (*models.ConfirmedRun, error) {
	total := run.TotalSamples
	if total < 1 {
		total = 1
	}
	completion := float64(run.CompletedSamples) / float64(total) * 100

	classified, disagreements, err := s.sessionAgreement(tx, run.SessionID)
	if err != nil {
		return nil, err
	}
	vr := ValidationResults{
		TotalSamples:       run.TotalSamples,
		CompletedSamples:   run.CompletedSamples,
		CompletionRate:     completion,
		ClassifiedWells:    classified,
		ExpertDisagreement: disagreements,
		AccuracyBasis:      models.AccuracyBasisCompletion,
		PathogenCode:       run.PathogenCode,
		SessionID:          run.SessionID,
		AccuracyRecordedAt: now.Format(time.RFC3339),
	}
	score := completion
	if classified > 0 {
		agree := classified - disagreements
		if agree < 0 {
			agree = 0
		}
		rate := float64(agree) / float64(classified) * 100
		vr.AgreementRate = &rate
		vr.AccuracyBasis = models.AccuracyBasisAgreement
		score = rate
	}

	raw, err := json.Marshal(vr)
	if err != nil {
		return nil, err
	}
	return &models.ConfirmedRun{
		RunLogID:          run.ID,
		RunID:             run.RunID,
		FileName:          run.FileName,
		SessionID:         run.SessionID,
		PathogenCode:      run.PathogenCode,
		TotalSamples:      run.TotalSamples,
		CompletedSamples:  run.CompletedSamples,
		CompletionRate:    completion,
		AgreementRate:     vr.AgreementRate,
		AccuracyScore:     score,
		AccuracyBasis:     vr.AccuracyBasis,
		ValidationResults: datatypes.JSON(raw),
		ConfirmedBy:       confirmedBy,
		LoggedAt:          run.LoggedAt,
		ConfirmedAt:       now,
	}, nil
}

// sessionAgreement 会话内带有效模型预测的孔位数，以及其中被专家推翻的数量
// 模型报错的孔位不计入分母，对它们的修正也不算推翻
func (s *RunService) sessionAgreement(tx *gorm.DB, sessionID string) (classified, disagreements int, err error) {
	if sessionID == "" {
		return 0, 0, nil
	}
	var records []models.WellClassification
	if err := tx.Where("session_id = ?", sessionID).Find(&records).Error; err != nil {
		return 0, 0, err
	}
	predicted := make(map[string]bool, len(records))
	for i := range records {
		if records[i].MLPrediction != nil && records[i].MLPrediction.Method != models.MethodError {
			predicted[records[i].WellKey()] = true
		}
	}
	var feedback []models.ExpertFeedback
	if err := tx.Where("session_id = ?", sessionID).Find(&feedback).Error; err != nil {
		return 0, 0, err
	}
	for i := range feedback {
		if predicted[feedback[i].WellKey] && feedback[i].Disagrees() {
			disagreements++
		}
	}
	return len(predicted), disagreements, nil
}

// DeleteRun 删除运行记录；已确认的记录需要管理员权限，并连同确认记录一起删除
func (s *RunService) DeleteRun(ctx context.Context, runID string, isAdmin bool) error {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return invalidInput("run_id 不能为空")
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		run, err := s.lockRun(tx, 0, runID)
		if err != nil {
			return err
		}
		if run.Status == models.RunStatusConfirmed {
			if !isAdmin {
				return fmt.Errorf("%w: 删除已确认的运行记录需要管理员权限", ErrForbidden)
			}
			if err := tx.Where("run_log_id = ?", run.ID).Delete(&models.ConfirmedRun{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(run).Error
	})
	if err != nil {
		return storageError("删除运行记录", err)
	}
	log.Printf("[runs] %s 已删除", runID)
	return nil
}

// ListPending 待确认批次，按登记时间倒序
func (s *RunService) ListPending(ctx context.Context) ([]models.RunLog, error) {
	var runs []models.RunLog
	err := s.db.WithContext(ctx).Where("status = ?", models.RunStatusPending).
		Order("logged_at DESC, id DESC").Find(&runs).Error
	if err != nil {
		return nil, storageError("查询待确认批次", err)
	}
	return runs, nil
}

// ListConfirmed 已确认批次，按确认时间倒序
func (s *RunService) ListConfirmed(ctx context.Context) ([]models.ConfirmedRun, error) {
	var runs []models.ConfirmedRun
	err := s.db.WithContext(ctx).Order("confirmed_at DESC, id DESC").Find(&runs).Error
	if err != nil {
		return nil, storageError("查询已确认批次", err)
	}
	return runs, nil
}

// Statistics 汇总统计
func (s *RunService) Statistics(ctx context.Context) (*RunStatistics, error) {
	db := s.db.WithContext(ctx)
	stats := &RunStatistics{TrainingSamples: []ChannelSampleCount{}}

	var byStatus []struct {
		Status string
		Count  int64
	}
	if err := db.Model(&models.RunLog{}).Select("status, COUNT(*) AS count").Group("status").Scan(&byStatus).Error; err != nil {
		return nil, storageError("统计运行记录", err)
	}
	for _, row := range byStatus {
		stats.TotalRuns += row.Count
		switch row.Status {
		case models.RunStatusPending:
			stats.PendingRuns = row.Count
		case models.RunStatusConfirmed:
			stats.ConfirmedRuns = row.Count
		case models.RunStatusRejected:
			stats.RejectedRuns = row.Count
		}
	}

	var avg struct {
		AvgAccuracy   float64
		AvgCompletion float64
	}
	err := db.Model(&models.ConfirmedRun{}).
		Select("COALESCE(AVG(accuracy_score), 0) AS avg_accuracy, COALESCE(AVG(completion_rate), 0) AS avg_completion").
		Scan(&avg).Error
	if err != nil {
		return nil, storageError("统计准确率", err)
	}
	stats.AverageAccuracy = avg.AvgAccuracy
	stats.AverageCompletion = avg.AvgCompletion

	if err := db.Model(&models.ExpertFeedback{}).Count(&stats.ExpertFeedback).Error; err != nil {
		return nil, storageError("统计专家修正", err)
	}
	err = db.Model(&models.TrainingSample{}).
		Select("pathogen_code, fluorophore, COUNT(*) AS count").
		Group("pathogen_code, fluorophore").
		Order("pathogen_code, fluorophore").
		Scan(&stats.TrainingSamples).Error
	if err != nil {
		return nil, storageError("统计训练样本", err)
	}
	return stats, nil
}
