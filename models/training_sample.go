package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// TrainingSample 训练样本，只追加不删除；标签随专家修正原地更新
type TrainingSample struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	PathogenCode string         `json:"pathogen_code" gorm:"size:64;not null;uniqueIndex:idx_ts_channel_well;index:idx_ts_channel"`
	Fluorophore  string         `json:"fluorophore" gorm:"size:32;not null;uniqueIndex:idx_ts_channel_well;index:idx_ts_channel"`
	SessionID    string         `json:"session_id" gorm:"size:64;not null;uniqueIndex:idx_ts_channel_well"`
	WellKey      string         `json:"well_key" gorm:"size:64;not null;uniqueIndex:idx_ts_channel_well"`
	Features     datatypes.JSON `json:"features" gorm:"not null"`
	Label        Label          `json:"label" gorm:"size:32;not null"`
	AddedAt      time.Time      `json:"added_at" gorm:"not null"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// TableName 设置表名
func (TrainingSample) TableName() string {
	return "ml_training_samples"
}

// SampleFeatures 训练样本的特征（曲线指标的拷贝）
type SampleFeatures struct {
	Metrics
	IsGoodSCurve bool `json:"is_good_scurve"`
}

// NewSampleFeatures 从曲线复制特征
func NewSampleFeatures(c *CurveSample) SampleFeatures {
	return SampleFeatures{Metrics: c.Metrics, IsGoodSCurve: c.IsGoodSCurve}
}

// Vector 模型输入向量，形状标志以 0/1 追加在末尾
func (f SampleFeatures) Vector() []float64 {
	shape := 0.0
	if f.IsGoodSCurve {
		shape = 1
	}
	return append(f.Metrics.Vector(), shape)
}

// SetFeatures 写入特征 JSON
func (s *TrainingSample) SetFeatures(f SampleFeatures) error {
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}
	s.Features = datatypes.JSON(b)
	return nil
}

// DecodeFeatures 读取特征 JSON
func (s *TrainingSample) DecodeFeatures() (SampleFeatures, error) {
	var f SampleFeatures
	err := json.Unmarshal(s.Features, &f)
	return f, err
}
