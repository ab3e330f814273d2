package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	// RunStatusPending 待确认
	RunStatusPending = "pending"
	// RunStatusConfirmed 已确认（终态）
	RunStatusConfirmed = "confirmed"
	// RunStatusRejected 已驳回（终态）
	RunStatusRejected = "rejected"
)

const (
	// AccuracyBasisAgreement 以专家与模型一致率作为准确率
	AccuracyBasisAgreement = "expert_agreement"
	// AccuracyBasisCompletion 以完成率作为准确率（无专家数据时的替代）
	AccuracyBasisCompletion = "completion_rate"
)

// RunLog 批次运行日志
type RunLog struct {
	ID               uint       `json:"id" gorm:"primaryKey"`
	RunID            string     `json:"run_id" gorm:"size:128;not null;uniqueIndex"`
	FileName         string     `json:"file_name" gorm:"size:255;not null"`
	SessionID        string     `json:"session_id" gorm:"size:64;index"`
	PathogenCode     string     `json:"pathogen_code" gorm:"size:64"`
	TotalSamples     int        `json:"total_samples" gorm:"not null;default:0"`
	CompletedSamples int        `json:"completed_samples" gorm:"not null;default:0"`
	Status           string     `json:"status" gorm:"size:20;not null;default:pending;index"`
	Notes            string     `json:"notes" gorm:"size:1024"`
	LoggedBy         string     `json:"logged_by" gorm:"size:64"`
	LoggedAt         time.Time  `json:"logged_at" gorm:"not null"`
	ResolvedBy       string     `json:"resolved_by" gorm:"size:64"`
	ResolvedAt       *time.Time `json:"resolved_at"`
}

// TableName 设置表名
func (RunLog) TableName() string {
	return "ml_run_logs"
}

// IsTerminal 是否已处于终态
func (r *RunLog) IsTerminal() bool {
	return r.Status == RunStatusConfirmed || r.Status == RunStatusRejected
}

// ConfirmedRun 已确认批次，仅在确认时创建
type ConfirmedRun struct {
	ID                uint           `json:"id" gorm:"primaryKey"`
	RunLogID          uint           `json:"run_log_id" gorm:"not null;uniqueIndex"`
	RunID             string         `json:"run_id" gorm:"size:128;not null;uniqueIndex"`
	FileName          string         `json:"file_name" gorm:"size:255;not null"`
	SessionID         string         `json:"session_id" gorm:"size:64;index"`
	PathogenCode      string         `json:"pathogen_code" gorm:"size:64"`
	TotalSamples      int            `json:"total_samples" gorm:"not null"`
	CompletedSamples  int            `json:"completed_samples" gorm:"not null"`
	CompletionRate    float64        `json:"completion_rate" gorm:"not null"`
	AgreementRate     *float64       `json:"agreement_rate"`
	AccuracyScore     float64        `json:"accuracy_score" gorm:"not null"`
	AccuracyBasis     string         `json:"accuracy_basis" gorm:"size:32;not null"`
	ValidationResults datatypes.JSON `json:"validation_results"`
	ConfirmedBy       string         `json:"confirmed_by" gorm:"size:64"`
	LoggedAt          time.Time      `json:"logged_at"`
	ConfirmedAt       time.Time      `json:"confirmed_at" gorm:"not null"`

	RunLog RunLog `json:"-" gorm:"foreignKey:RunLogID"`
}

// TableName 设置表名
func (ConfirmedRun) TableName() string {
	return "ml_confirmed_runs"
}
