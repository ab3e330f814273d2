package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// MLPrediction 模型原始预测，专家覆盖后仍保留
type MLPrediction struct {
	Classification Label   `json:"classification"`
	Confidence     float64 `json:"confidence"`
	Method         Method  `json:"method"`
	ModelVersion   string  `json:"model_version"`
}

// WellClassification 每个 (会话, 孔位, 通道) 唯一的分类记录
type WellClassification struct {
	ID                   uint          `json:"id" gorm:"primaryKey"`
	SessionID            string        `json:"session_id" gorm:"size:64;not null;uniqueIndex:idx_wc_session_well"`
	WellID               string        `json:"well_id" gorm:"size:32;not null;uniqueIndex:idx_wc_session_well"`
	Fluorophore          string        `json:"fluorophore" gorm:"size:32;not null;uniqueIndex:idx_wc_session_well"`
	PathogenCode         string        `json:"pathogen_code" gorm:"size:64;index"`
	Label                Label         `json:"label" gorm:"size:32;not null"`
	Confidence           float64       `json:"confidence" gorm:"not null"`
	Method               Method        `json:"method" gorm:"size:32;not null"`
	ModelVersion         string        `json:"model_version" gorm:"size:16"`
	Reason               string        `json:"reason" gorm:"size:64"`
	MLPrediction         *MLPrediction `json:"ml_prediction" gorm:"serializer:json;type:text"`
	ExpertClassification *Label        `json:"expert_classification" gorm:"size:32"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
}

// TableName 设置表名
func (WellClassification) TableName() string {
	return "ml_well_classifications"
}

// WellKey 孔位键
func (w WellClassification) WellKey() string {
	return WellKey(w.WellID, w.Fluorophore)
}

// DisplayLabel 展示给用户的当前分类：存在专家分类时以专家为准
func (w WellClassification) DisplayLabel() Label {
	if w.ExpertClassification != nil {
		return *w.ExpertClassification
	}
	return w.Label
}

// HasExpertOverride 是否已有专家覆盖
func (w WellClassification) HasExpertOverride() bool {
	return w.ExpertClassification != nil
}

// BeforeSave 存储边界校验，防止非法标签/来源写入
func (w *WellClassification) BeforeSave(tx *gorm.DB) error {
	if w.SessionID == "" || w.WellID == "" || w.Fluorophore == "" {
		return fmt.Errorf("分类记录缺少会话/孔位/通道")
	}
	if !w.Label.Valid() {
		return fmt.Errorf("非法分类标签: %q", w.Label)
	}
	if !w.Method.Valid() {
		return fmt.Errorf("非法分类来源: %q", w.Method)
	}
	if w.Confidence < 0 || w.Confidence > 1 {
		return fmt.Errorf("置信度超出范围: %v", w.Confidence)
	}
	if w.ExpertClassification != nil && !w.ExpertClassification.Valid() {
		return fmt.Errorf("非法专家分类: %q", *w.ExpertClassification)
	}
	if w.MLPrediction != nil && !w.MLPrediction.Classification.Valid() {
		return fmt.Errorf("非法模型预测: %q", w.MLPrediction.Classification)
	}
	return nil
}
