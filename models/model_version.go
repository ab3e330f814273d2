package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultModelType 曲线分类模型类型
const DefaultModelType = "curve_classifier"

// TeachingVersion 教学期固定版本号
const TeachingVersion = "1.0"

// ModelVersion 模型版本，每个 (模型类型, 病原体, 通道) 仅有一个激活版本
type ModelVersion struct {
	ID                   uint      `json:"id" gorm:"primaryKey"`
	ModelType            string    `json:"model_type" gorm:"size:64;not null;uniqueIndex:idx_mv_version"`
	PathogenCode         string    `json:"pathogen_code" gorm:"size:64;not null;uniqueIndex:idx_mv_version"`
	Fluorophore          string    `json:"fluorophore" gorm:"size:32;not null;uniqueIndex:idx_mv_version"`
	VersionNumber        string    `json:"version_number" gorm:"size:16;not null;uniqueIndex:idx_mv_version"`
	TrainingSamplesCount int       `json:"training_samples_count" gorm:"not null;default:0"`
	SampleBaseline       int       `json:"sample_baseline" gorm:"not null;default:0"`
	PerformanceNotes     string    `json:"performance_notes" gorm:"size:1024"`
	IsActive             bool      `json:"is_active" gorm:"not null;default:false;index"`
	CreationDate         time.Time `json:"creation_date" gorm:"not null"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// TableName 设置表名
func (ModelVersion) TableName() string {
	return "ml_model_versions"
}

// Major 主版本号
func (m *ModelVersion) Major() int {
	major, _, _ := ParseVersion(m.VersionNumber)
	return major
}

// Minor 次版本号，0 表示教学期
func (m *ModelVersion) Minor() int {
	_, minor, _ := ParseVersion(m.VersionNumber)
	return minor
}

// InTeachingPhase 是否处于教学期
func (m *ModelVersion) InTeachingPhase() bool {
	return m.Minor() == 0
}

// EffectiveSamples 自上次重置以来累计的样本数
func (m *ModelVersion) EffectiveSamples() int {
	n := m.TrainingSamplesCount - m.SampleBaseline
	if n < 0 {
		return 0
	}
	return n
}

// ParseVersion 解析 "major.minor" 形式的版本号
func ParseVersion(v string) (major, minor int, err error) {
	parts := strings.SplitN(strings.TrimSpace(v), ".", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("版本号格式错误: %q", v)
	}
	if major, err = strconv.Atoi(parts[0]); err != nil {
		return 0, 0, fmt.Errorf("版本号格式错误: %q", v)
	}
	if minor, err = strconv.Atoi(parts[1]); err != nil {
		return 0, 0, fmt.Errorf("版本号格式错误: %q", v)
	}
	return major, minor, nil
}

// FormatVersion 生成版本号
func FormatVersion(major, minor int) string {
	return fmt.Sprintf("%d.%d", major, minor)
}

// ModelReset 管理员重置模型版本的审计记录
type ModelReset struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	ModelType    string    `json:"model_type" gorm:"size:64;not null"`
	PathogenCode string    `json:"pathogen_code" gorm:"size:64;not null;index"`
	Fluorophore  string    `json:"fluorophore" gorm:"size:32;not null"`
	FromVersion  string    `json:"from_version" gorm:"size:16;not null"`
	ToVersion    string    `json:"to_version" gorm:"size:16;not null"`
	SampleCount  int       `json:"sample_count" gorm:"not null"`
	RequestedBy  string    `json:"requested_by" gorm:"size:64;not null"`
	Reason       string    `json:"reason" gorm:"size:1024"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName 设置表名
func (ModelReset) TableName() string {
	return "ml_model_resets"
}
