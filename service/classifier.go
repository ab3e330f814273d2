package service

import (
	"context"
	"log"
	"strings"

	"qpcrml/models"
)

// ClassifierConfig 分类引擎配置
type ClassifierConfig struct {
	MLEnabled bool
}

// Classifier 混合分类引擎：有序规则链，模型可用时由模型给出结论，否则走阈值规则
type Classifier struct {
	cfg      ClassifierConfig
	versions *VersionManager
	models   *CurveModelCache
	registry *ChannelRegistry
	metrics  *Metrics
	rules    []Rule
}

// NewClassifier 创建分类引擎
func NewClassifier(cfg ClassifierConfig, versions *VersionManager, cache *CurveModelCache, registry *ChannelRegistry, metrics *Metrics) *Classifier {
	c := &Classifier{cfg: cfg, versions: versions, models: cache, registry: registry, metrics: metrics}
	c.rules = append([]Rule{shapeGuardRule(), c.curveModelRule()}, thresholdRules()...)
	return c
}

// RuleNames 规则执行顺序，供审计
func (c *Classifier) RuleNames() []string {
	names := make([]string, len(c.rules))
	for i, r := range c.rules {
		names[i] = r.Name
	}
	return names
}

// curveModelRule 教学期结束且样本足够时使用模型
func (c *Classifier) curveModelRule() Rule {
	return Rule{Name: RuleCurveModel, Evaluate: func(ctx context.Context, in *RuleInput) (Decision, bool) {
		if !c.cfg.MLEnabled || c.models == nil || in.Version == nil || in.Version.InTeachingPhase() {
			return Decision{}, false
		}
		model, err := c.models.Get(ctx, in.Version)
		if err != nil {
			log.Printf("[classifier] 加载模型 %s/%s@%s 失败: %v",
				in.Version.PathogenCode, in.Version.Fluorophore, in.Version.VersionNumber, err)
			return errorDecision(ReasonModelLoadFailed), true
		}
		if model == nil {
			return Decision{}, false
		}
		label, confidence, err := model.Predict(models.NewSampleFeatures(in.Curve).Vector())
		if err != nil {
			log.Printf("[classifier] 模型预测失败: %v", err)
			return errorDecision(ReasonModelLoadFailed), true
		}
		return Decision{Label: label, Confidence: confidence, Method: models.MethodMLModel, Reason: RuleCurveModel}, true
	}}
}

func errorDecision(reason string) Decision {
	return Decision{Label: models.LabelUnknown, Confidence: 0, Method: models.MethodError, Reason: reason}
}

// Classify 对单条曲线分类，不返回错误：任何故障都降级为 UNKNOWN/error
// 返回的记录尚未绑定会话
func (c *Classifier) Classify(ctx context.Context, curve models.CurveSample) models.WellClassification {
	rec := models.WellClassification{
		WellID:       strings.TrimSpace(curve.WellID),
		Fluorophore:  strings.TrimSpace(curve.Fluorophore),
		PathogenCode: strings.TrimSpace(curve.PathogenCode),
	}

	decision, version := c.decide(ctx, &curve, &rec)
	rec.Label = decision.Label
	rec.Confidence = decision.Confidence
	rec.Method = decision.Method
	rec.Reason = decision.Reason
	if version != nil {
		rec.ModelVersion = version.VersionNumber
	}
	rec.MLPrediction = &models.MLPrediction{
		Classification: rec.Label,
		Confidence:     rec.Confidence,
		Method:         rec.Method,
		ModelVersion:   rec.ModelVersion,
	}
	c.metrics.observeClassification(&rec)
	return rec
}

func (c *Classifier) decide(ctx context.Context, curve *models.CurveSample, rec *models.WellClassification) (Decision, *models.ModelVersion) {
	if err := curve.Validate(); err != nil {
		return errorDecision(ReasonMalformedCurve), nil
	}

	in := &RuleInput{Curve: curve}
	if rec.PathogenCode != "" && rec.Fluorophore != "" && c.registry != nil && c.versions != nil {
		ch, known, err := c.registry.Resolve(ctx, rec.PathogenCode, rec.Fluorophore)
		if err != nil {
			log.Printf("[classifier] 查询通道登记失败: %v", err)
			return errorDecision(ReasonModelLoadFailed), nil
		}
		if known {
			rec.PathogenCode, rec.Fluorophore = ch.PathogenCode, ch.Fluorophore
			version, err := c.versions.GetActiveVersion(ctx, ch.PathogenCode, ch.Fluorophore)
			if err != nil {
				log.Printf("[classifier] 查询激活版本失败: %v", err)
				return errorDecision(ReasonModelLoadFailed), nil
			}
			in.Version = version
		}
	}
	return evaluateRules(ctx, c.rules, in), in.Version
}
