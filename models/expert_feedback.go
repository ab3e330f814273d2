package models

import (
	"time"
)

// ExpertFeedback 专家修正记录，同一会话同一孔位只保留最新一条
type ExpertFeedback struct {
	ID                   uint      `json:"id" gorm:"primaryKey"`
	SessionID            string    `json:"session_id" gorm:"size:64;not null;uniqueIndex:idx_ef_session_well"`
	WellKey              string    `json:"well_key" gorm:"size:64;not null;uniqueIndex:idx_ef_session_well"`
	PathogenCode         string    `json:"pathogen_code" gorm:"size:64;index"`
	Fluorophore          string    `json:"fluorophore" gorm:"size:32"`
	ExpertClassification Label     `json:"expert_classification" gorm:"size:32;not null"`
	MLPredictionAtTime   *Label    `json:"ml_prediction_at_time" gorm:"size:32"`
	ConfidenceAtTime     *float64  `json:"confidence_at_time"`
	Reasoning            string    `json:"reasoning" gorm:"size:1024"`
	SubmittedBy          string    `json:"submitted_by" gorm:"size:64"`
	Timestamp            time.Time `json:"timestamp" gorm:"not null"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// TableName 设置表名
func (ExpertFeedback) TableName() string {
	return "ml_expert_feedback"
}

// Disagrees 专家是否推翻了当时的模型预测
func (f *ExpertFeedback) Disagrees() bool {
	return f.MLPredictionAtTime != nil && *f.MLPredictionAtTime != f.ExpertClassification
}
