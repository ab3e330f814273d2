package service

import (
	"context"
	"testing"

	"qpcrml/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_PipelineCounters(t *testing.T) {
	db := newTestDB(t)
	reg := prometheus.NewRegistry()
	p := NewPipeline(db, testConfig(), reg, nil)
	ctx := context.Background()

	p.Classifier.Classify(ctx, testCurve("A1", "FAM", 7012.8, 0.9967, 20, true))
	p.Classifier.Classify(ctx, testCurve("A2", "FAM", 7012.8, 0.9967, 20, true))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.Metrics.Classifications.WithLabelValues("rule_based", "STRONG_POSITIVE")))

	_, err := p.Feedback.Submit(ctx, feedbackInput("s1", "A1", "FAM", models.LabelNegative))
	require.NoError(t, err)
	_, err = p.Feedback.Submit(ctx, feedbackInput("s1", "A1", "FAM", models.LabelNegative))
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(p.Metrics.Feedback.WithLabelValues("BVAB", "FAM", SampleCreated)))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.Metrics.Feedback.WithLabelValues("BVAB", "FAM", SampleUnchanged)))

	_, err = p.Runs.LogRun(ctx, LogRunInput{RunID: "r1", FileName: "r1.csv", TotalSamples: 1, CompletedSamples: 1})
	require.NoError(t, err)
	_, err = p.Runs.ConfirmRun(ctx, ConfirmRunInput{RunID: "r1", Confirmed: true})
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(p.Metrics.RunTransitions.WithLabelValues(models.RunStatusPending)))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.Metrics.RunTransitions.WithLabelValues(models.RunStatusConfirmed)))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "qpcrml_classifications_total")
	assert.Contains(t, names, "qpcrml_expert_feedback_total")
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.observeClassification(&models.WellClassification{})
		m.observeFeedback("BVAB", "FAM", SampleCreated)
		m.observePromotion("BVAB", "FAM")
		m.observeRun(models.RunStatusPending)
	})
}
