package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"qpcrml/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedbackInput(session, well, fluorophore string, label models.Label) FeedbackInput {
	return FeedbackInput{
		SessionID:   session,
		WellID:      well,
		Curve:       testCurve(well, fluorophore, 1491.0, 0.9964, 20, false),
		ExpertLabel: label,
		Reasoning:   "形状不典型",
		SubmittedBy: "expert1",
	}
}

func countSamples(t *testing.T, p *Pipeline) int64 {
	t.Helper()
	var n int64
	require.NoError(t, p.Sessions.db.Model(&models.TrainingSample{}).Count(&n).Error)
	return n
}

func TestFeedback_IdempotentPerWell(t *testing.T) {
	p, _ := newTestPipeline(t)
	ctx := context.Background()

	first, err := p.Feedback.Submit(ctx, feedbackInput("s1", "A1", "FAM", models.LabelNegative))
	require.NoError(t, err)
	assert.Equal(t, SampleCreated, first.SampleOutcome)
	assert.Equal(t, 1, first.TrainingSamplesCount)
	assert.Equal(t, "A1_FAM", first.WellKey)
	assert.Equal(t, models.TeachingVersion, first.ActiveVersion)

	second, err := p.Feedback.Submit(ctx, feedbackInput("s1", "A1", "FAM", models.LabelNegative))
	require.NoError(t, err)
	assert.Equal(t, SampleUnchanged, second.SampleOutcome)
	assert.Equal(t, 1, second.TrainingSamplesCount)
	assert.Equal(t, int64(1), countSamples(t, p))

	var entries int64
	require.NoError(t, p.Sessions.db.Model(&models.ExpertFeedback{}).Count(&entries).Error)
	assert.Equal(t, int64(1), entries)
}

func TestFeedback_RelabelUpdatesInPlace(t *testing.T) {
	p, db := newTestPipeline(t)
	ctx := context.Background()

	_, err := p.Feedback.Submit(ctx, feedbackInput("s1", "A1", "FAM", models.LabelNegative))
	require.NoError(t, err)
	res, err := p.Feedback.Submit(ctx, feedbackInput("s1", "A1_FAM", "", models.LabelSuspicious))
	require.NoError(t, err)
	assert.Equal(t, SampleRelabeled, res.SampleOutcome)
	assert.Equal(t, 1, res.TrainingSamplesCount)

	var sample models.TrainingSample
	require.NoError(t, db.First(&sample).Error)
	assert.Equal(t, models.LabelSuspicious, sample.Label)
	features, err := sample.DecodeFeatures()
	require.NoError(t, err)
	assert.Equal(t, 1491.0, features.Amplitude)
	assert.False(t, features.IsGoodSCurve)

	var entry models.ExpertFeedback
	require.NoError(t, db.First(&entry).Error)
	assert.Equal(t, models.LabelSuspicious, entry.ExpertClassification)
}

func TestFeedback_KeepsMLPredictionAndOverrides(t *testing.T) {
	p, db := newTestPipeline(t)
	ctx := context.Background()

	classified, err := p.ClassifyWell(ctx, "s1", testCurve("A1", "FAM", 7012.8, 0.9967, 20, true))
	require.NoError(t, err)
	before := *classified.Record.MLPrediction

	_, err = p.Feedback.Submit(ctx, feedbackInput("s1", "A1", "FAM", models.LabelWeakPositive))
	require.NoError(t, err)

	session, err := p.Sessions.LoadSession(ctx, "s1")
	require.NoError(t, err)
	rec := session["A1_FAM"]
	require.NotNil(t, rec.ExpertClassification)
	assert.Equal(t, models.LabelWeakPositive, *rec.ExpertClassification)
	assert.Equal(t, models.LabelWeakPositive, rec.DisplayLabel())
	assert.Equal(t, models.MethodExpertOverride, rec.Method)
	require.NotNil(t, rec.MLPrediction)
	assert.Equal(t, before, *rec.MLPrediction)

	var entry models.ExpertFeedback
	require.NoError(t, db.First(&entry).Error)
	require.NotNil(t, entry.MLPredictionAtTime)
	assert.Equal(t, models.LabelStrongPositive, *entry.MLPredictionAtTime)
	assert.True(t, entry.Disagrees())
}

func TestFeedback_MultichannelWellsAreIndependent(t *testing.T) {
	p, _ := newTestPipeline(t)
	ctx := context.Background()

	_, err := p.Feedback.Submit(ctx, feedbackInput("s1", "A1", "FAM", models.LabelPositive))
	require.NoError(t, err)
	res, err := p.Feedback.Submit(ctx, feedbackInput("s1", "A1", "HEX", models.LabelNegative))
	require.NoError(t, err)
	assert.Equal(t, "A1_HEX", res.WellKey)
	assert.Equal(t, 1, res.TrainingSamplesCount)

	session, err := p.Sessions.LoadSession(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, session, 2)
	assert.Equal(t, models.LabelPositive, session["A1_FAM"].DisplayLabel())
	assert.Equal(t, models.LabelNegative, session["A1_HEX"].DisplayLabel())
	assert.Nil(t, session["A1_FAM"].MLPrediction)
	assert.Equal(t, int64(2), countSamples(t, p))
}

func TestFeedback_StaleSubmissionRejected(t *testing.T) {
	p, _ := newTestPipeline(t)
	ctx := context.Background()
	now := time.Now()

	newer := feedbackInput("s1", "A1", "FAM", models.LabelNegative)
	newer.SubmittedAt = now
	_, err := p.Feedback.Submit(ctx, newer)
	require.NoError(t, err)

	older := feedbackInput("s1", "A1", "FAM", models.LabelPositive)
	older.SubmittedAt = now.Add(-time.Minute)
	_, err = p.Feedback.Submit(ctx, older)
	assert.ErrorIs(t, err, ErrStaleFeedback)
	assert.True(t, IsConflict(err))

	session, err := p.Sessions.LoadSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.LabelNegative, session["A1_FAM"].DisplayLabel())
}

func TestFeedback_Rejections(t *testing.T) {
	p, _ := newTestPipeline(t)
	ctx := context.Background()

	unknown := feedbackInput("s1", "A1", "ROX", models.LabelNegative)
	_, err := p.Feedback.Submit(ctx, unknown)
	assert.ErrorIs(t, err, ErrUnknownChannel)

	tests := []struct {
		name   string
		mutate func(in *FeedbackInput)
	}{
		{"缺少会话", func(in *FeedbackInput) { in.SessionID = " " }},
		{"UNKNOWN 标签", func(in *FeedbackInput) { in.ExpertLabel = models.LabelUnknown }},
		{"非法标签", func(in *FeedbackInput) { in.ExpertLabel = "MAYBE" }},
		{"无法确定通道", func(in *FeedbackInput) { in.WellID = "A1"; in.Curve.Fluorophore = "" }},
		{"缺少病原体", func(in *FeedbackInput) { in.Curve.PathogenCode = "" }},
		{"曲线长度不一致", func(in *FeedbackInput) { in.Curve.RFU = in.Curve.RFU[:1] }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := feedbackInput("s1", "A1", "FAM", models.LabelNegative)
			tt.mutate(&in)
			_, err := p.Feedback.Submit(ctx, in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
	assert.Equal(t, int64(0), countSamples(t, p))
}

func TestFeedback_PromotesOnFortiethSample(t *testing.T) {
	db := newTestDB(t)
	notifier := &recordingNotifier{}
	p := NewPipeline(db, testConfig(), nil, notifier)
	ctx := context.Background()

	var last *FeedbackResult
	for i := 0; i < 40; i++ {
		res, err := p.Feedback.Submit(ctx, feedbackInput("s1", fmt.Sprintf("W%d", i), "Cy5", models.LabelNegative))
		require.NoError(t, err)
		if i < 39 {
			assert.Equal(t, "1.0", res.ActiveVersion)
		}
		last = res
	}
	assert.Equal(t, "1.1", last.ActiveVersion)
	assert.Equal(t, 40, last.TrainingSamplesCount)
	require.Len(t, notifier.events, 1)
	assert.Equal(t, "Cy5", notifier.events[0].Fluorophore)
}

func TestFeedback_VersionLookupFailureAfterCommit(t *testing.T) {
	p, db := newTestPipeline(t)
	ctx := context.Background()

	_, err := p.Feedback.Submit(ctx, feedbackInput("s1", "A1", "FAM", models.LabelNegative))
	require.NoError(t, err)
	require.NoError(t, db.Migrator().DropTable(&models.ModelVersion{}))

	res, err := p.Feedback.Submit(ctx, feedbackInput("s1", "A2", "FAM", models.LabelNegative))
	require.NoError(t, err)
	assert.Equal(t, SampleCreated, res.SampleOutcome)
	assert.Equal(t, 2, res.TrainingSamplesCount)
	assert.Empty(t, res.ActiveVersion)
	require.NotNil(t, res.Record)
	assert.Equal(t, models.LabelNegative, res.Record.DisplayLabel())
	assert.Equal(t, int64(2), countSamples(t, p))
}

func TestFeedback_MetricsOnly(t *testing.T) {
	p, _ := newTestPipeline(t)
	in := feedbackInput("s1", "C7", "FAM", models.LabelPositive)
	in.Curve.Cycles, in.Curve.RFU = nil, nil

	res, err := p.Feedback.Submit(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, SampleCreated, res.SampleOutcome)
	assert.Equal(t, 1, res.TrainingSamplesCount)
}
