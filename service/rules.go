package service

import (
	"context"

	"qpcrml/models"
)

// 规则阈值
const (
	strongAmplitude = 1000.0
	strongSNR       = 15.0
	positiveAmp     = 500.0
	positiveSNR     = 8.0
	weakAmplitude   = 300.0
	weakSNR         = 4.0

	// 拟合差/噪声大：幅度够高但 R² 或信噪比不达标
	suspiciousAmplitude = 500.0
	suspiciousR2        = 0.8
	suspiciousSNR       = 3.0

	// 形状不佳但指标良好，归入可疑而非阴性
	shapeFlagAmplitude = 300.0
	shapeFlagR2        = 0.9

	borderlineAmplitude = 200.0
	borderlineSNR       = 2.0
)

// 规则名称，同时记录在分类结果的 reason 字段
const (
	RuleShapeGuard             = "shape_guard"
	RuleCurveModel             = "curve_model"
	RuleSuspiciousFit          = "suspicious_fit"
	RuleStrongPositive         = "strong_positive"
	RulePositive               = "positive"
	RuleWeakPositive           = "weak_positive"
	RuleBorderline             = "borderline"
	RuleNegative               = "negative"
	ReasonGoodMetricsPoorShape = "good_metrics_poor_shape"
	ReasonMalformedCurve       = "malformed_curve"
	ReasonModelLoadFailed      = "model_load_failed"
)

// Decision 规则给出的分类结论
type Decision struct {
	Label      models.Label
	Confidence float64
	Method     models.Method
	Reason     string
}

// RuleInput 规则输入
type RuleInput struct {
	Curve   *models.CurveSample
	Version *models.ModelVersion
}

// Rule 有序规则；ok=false 表示不表态，交给下一条
type Rule struct {
	Name     string
	Evaluate func(ctx context.Context, in *RuleInput) (d Decision, ok bool)
}

// shapeGuardRule 形状检查最先执行：非 S 形曲线永远不会得到阳性族标签
func shapeGuardRule() Rule {
	return Rule{Name: RuleShapeGuard, Evaluate: func(_ context.Context, in *RuleInput) (Decision, bool) {
		if in.Curve.IsGoodSCurve {
			return Decision{}, false
		}
		m := in.Curve.Metrics
		if m.Amplitude > shapeFlagAmplitude && m.R2 >= shapeFlagR2 {
			return Decision{Label: models.LabelSuspicious, Confidence: 0.65, Method: models.MethodRuleBased, Reason: ReasonGoodMetricsPoorShape}, true
		}
		return Decision{Label: models.LabelNegative, Confidence: 0.9, Method: models.MethodRuleBased, Reason: RuleShapeGuard}, true
	}}
}

// suspiciousFitRule 在阳性分级之前执行，拟合差的曲线不会被判为阳性
func suspiciousFitRule() Rule {
	return Rule{Name: RuleSuspiciousFit, Evaluate: func(_ context.Context, in *RuleInput) (Decision, bool) {
		m := in.Curve.Metrics
		if m.Amplitude > suspiciousAmplitude && (m.R2 < suspiciousR2 || m.SNR < suspiciousSNR) {
			return Decision{Label: models.LabelSuspicious, Confidence: 0.6, Method: models.MethodRuleBased, Reason: RuleSuspiciousFit}, true
		}
		return Decision{}, false
	}}
}

func thresholdRule(name string, label models.Label, confidence, amplitude, snr float64) Rule {
	return Rule{Name: name, Evaluate: func(_ context.Context, in *RuleInput) (Decision, bool) {
		m := in.Curve.Metrics
		if m.Amplitude > amplitude && m.SNR > snr {
			return Decision{Label: label, Confidence: confidence, Method: models.MethodRuleBased, Reason: name}, true
		}
		return Decision{}, false
	}}
}

func negativeRule() Rule {
	return Rule{Name: RuleNegative, Evaluate: func(_ context.Context, in *RuleInput) (Decision, bool) {
		return Decision{Label: models.LabelNegative, Confidence: 0.85, Method: models.MethodRuleBased, Reason: RuleNegative}, true
	}}
}

// thresholdRules 阈值规则（兜底层），按优先级排列，最后一条总会给出结论
func thresholdRules() []Rule {
	return []Rule{
		suspiciousFitRule(),
		thresholdRule(RuleStrongPositive, models.LabelStrongPositive, 0.95, strongAmplitude, strongSNR),
		thresholdRule(RulePositive, models.LabelPositive, 0.85, positiveAmp, positiveSNR),
		thresholdRule(RuleWeakPositive, models.LabelWeakPositive, 0.7, weakAmplitude, weakSNR),
		thresholdRule(RuleBorderline, models.LabelIndeterminate, 0.5, borderlineAmplitude, borderlineSNR),
		negativeRule(),
	}
}

// evaluateRules 自上而下执行，返回第一条表态的结论
func evaluateRules(ctx context.Context, rules []Rule, in *RuleInput) Decision {
	for _, r := range rules {
		if d, ok := r.Evaluate(ctx, in); ok {
			if d.Reason == "" {
				d.Reason = r.Name
			}
			return d
		}
	}
	return Decision{Label: models.LabelNegative, Confidence: 0.5, Method: models.MethodRuleBased, Reason: RuleNegative}
}
