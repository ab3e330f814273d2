package service

import (
	"qpcrml/models"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 分类流水线指标
type Metrics struct {
	Classifications *prometheus.CounterVec
	Feedback        *prometheus.CounterVec
	Promotions      *prometheus.CounterVec
	RunTransitions  *prometheus.CounterVec
}

// NewMetrics 创建指标；reg 为 nil 时不注册（测试用）
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qpcrml",
			Name:      "classifications_total",
			Help:      "Curve classifications by method and label.",
		}, []string{"method", "label"}),
		Feedback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qpcrml",
			Name:      "expert_feedback_total",
			Help:      "Accepted expert corrections by training sample outcome.",
		}, []string{"pathogen_code", "fluorophore", "outcome"}),
		Promotions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qpcrml",
			Name:      "model_promotions_total",
			Help:      "Model version promotions.",
		}, []string{"pathogen_code", "fluorophore"}),
		RunTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qpcrml",
			Name:      "run_transitions_total",
			Help:      "Run log state transitions.",
		}, []string{"status"}),
	}
	if reg != nil {
		reg.MustRegister(m.Classifications, m.Feedback, m.Promotions, m.RunTransitions)
	}
	return m
}

func (m *Metrics) observeClassification(rec *models.WellClassification) {
	if m == nil {
		return
	}
	m.Classifications.WithLabelValues(string(rec.Method), string(rec.Label)).Inc()
}

func (m *Metrics) observeFeedback(pathogen, fluorophore, outcome string) {
	if m == nil {
		return
	}
	m.Feedback.WithLabelValues(pathogen, fluorophore, outcome).Inc()
}

func (m *Metrics) observePromotion(pathogen, fluorophore string) {
	if m == nil {
		return
	}
	m.Promotions.WithLabelValues(pathogen, fluorophore).Inc()
}

func (m *Metrics) observeRun(status string) {
	if m == nil {
		return
	}
	m.RunTransitions.WithLabelValues(status).Inc()
}
