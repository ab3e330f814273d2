package models

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Label 曲线分类标签
type Label string

const (
	LabelStrongPositive Label = "STRONG_POSITIVE"
	LabelPositive       Label = "POSITIVE"
	LabelWeakPositive   Label = "WEAK_POSITIVE"
	LabelSuspicious     Label = "SUSPICIOUS"
	LabelNegative       Label = "NEGATIVE"
	LabelIndeterminate  Label = "INDETERMINATE"
	LabelUnknown        Label = "UNKNOWN"
)

// GetLabels 获取所有分类标签
func GetLabels() []Label {
	return []Label{
		LabelStrongPositive,
		LabelPositive,
		LabelWeakPositive,
		LabelSuspicious,
		LabelNegative,
		LabelIndeterminate,
		LabelUnknown,
	}
}

// Valid 是否为已知标签
func (l Label) Valid() bool {
	for _, v := range GetLabels() {
		if l == v {
			return true
		}
	}
	return false
}

// IsPositive 是否属于阳性族（强阳/阳性/弱阳）
func (l Label) IsPositive() bool {
	return l == LabelStrongPositive || l == LabelPositive || l == LabelWeakPositive
}

// ParseLabel 解析标签，大小写和空格/连字符不敏感
func ParseLabel(s string) (Label, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	l := Label(norm)
	if !l.Valid() {
		return "", fmt.Errorf("未知的分类标签: %q", s)
	}
	return l, nil
}

// Method 分类来源
type Method string

const (
	MethodRuleBased      Method = "rule_based"
	MethodMLModel        Method = "ml_model"
	MethodExpertOverride Method = "expert_override"
	MethodError          Method = "error"
)

// Valid 是否为已知分类来源
func (m Method) Valid() bool {
	switch m {
	case MethodRuleBased, MethodMLModel, MethodExpertOverride, MethodError:
		return true
	}
	return false
}

// Metrics 曲线拟合得出的指标（由外部特征提取服务提供）
type Metrics struct {
	Amplitude float64 `json:"amplitude"`
	R2        float64 `json:"r2"`
	SNR       float64 `json:"snr"`
	Steepness float64 `json:"steepness"`
	Baseline  float64 `json:"baseline"`
	Midpoint  float64 `json:"midpoint"`
	Cq        float64 `json:"cq"`
	CalcJ     float64 `json:"calcj"`
}

// Vector 按固定顺序展开为特征向量
func (m Metrics) Vector() []float64 {
	return []float64{m.Amplitude, m.R2, m.SNR, m.Steepness, m.Baseline, m.Midpoint, m.Cq, m.CalcJ}
}

// CurveSample 单孔单通道的扩增曲线，生成后不可变
type CurveSample struct {
	WellID       string    `json:"well_id"`
	Fluorophore  string    `json:"fluorophore"`
	PathogenCode string    `json:"pathogen_code"`
	Cycles       []float64 `json:"cycles"`
	RFU          []float64 `json:"rfu"`
	Metrics      Metrics   `json:"metrics"`
	IsGoodSCurve bool      `json:"is_good_scurve"`
}

// ErrMalformedCurve 曲线数据不合法
var ErrMalformedCurve = errors.New("曲线数据不合法")

// Validate 校验曲线数组与指标
func (c *CurveSample) Validate() error {
	if len(c.Cycles) == 0 || len(c.RFU) == 0 {
		return fmt.Errorf("%w: 循环数或荧光值为空", ErrMalformedCurve)
	}
	if len(c.Cycles) != len(c.RFU) {
		return fmt.Errorf("%w: 循环数(%d)与荧光值(%d)长度不一致", ErrMalformedCurve, len(c.Cycles), len(c.RFU))
	}
	for i := range c.Cycles {
		if !finite(c.Cycles[i]) || !finite(c.RFU[i]) {
			return fmt.Errorf("%w: 第 %d 个点包含 NaN/Inf", ErrMalformedCurve, i)
		}
	}
	return c.ValidateMetrics()
}

// ValidateMetrics 只校验指标，用于不携带原始曲线的专家修正
func (c *CurveSample) ValidateMetrics() error {
	for _, v := range c.Metrics.Vector() {
		if !finite(v) {
			return fmt.Errorf("%w: 指标包含 NaN/Inf", ErrMalformedCurve)
		}
	}
	return nil
}

// WellKey 当前曲线的孔位键
func (c *CurveSample) WellKey() string {
	return WellKey(c.WellID, c.Fluorophore)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// WellKey 组合孔位键，如 A1 + FAM => A1_FAM
// 已带通道后缀的孔位不会重复拼接
func WellKey(wellID, fluorophore string) string {
	wellID = strings.TrimSpace(wellID)
	fluorophore = strings.TrimSpace(fluorophore)
	if fluorophore == "" {
		return wellID
	}
	if strings.HasSuffix(wellID, "_"+fluorophore) {
		return wellID
	}
	return wellID + "_" + fluorophore
}

// SplitWellKey 拆分孔位键；channel 为空时取最后一个下划线之后的部分作为通道
func SplitWellKey(wellID, channel string) (well, fluorophore string) {
	wellID = strings.TrimSpace(wellID)
	channel = strings.TrimSpace(channel)
	if channel != "" {
		return strings.TrimSuffix(wellID, "_"+channel), channel
	}
	if i := strings.LastIndex(wellID, "_"); i > 0 && i < len(wellID)-1 {
		return wellID[:i], wellID[i+1:]
	}
	return wellID, ""
}
