package service

import (
	"context"
	"testing"

	"qpcrml/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrainCurveModel(t *testing.T) {
	_, err := TrainCurveModel(nil, 3)
	assert.Error(t, err)

	_, err = TrainCurveModel([]LabeledVector{{Features: []float64{1}}}, 0)
	assert.Error(t, err)

	_, err = TrainCurveModel([]LabeledVector{
		{Features: []float64{1, 2}, Label: models.LabelNegative},
		{Features: []float64{1}, Label: models.LabelNegative},
	}, 1)
	assert.Error(t, err)
}

func TestCurveModel_Predict(t *testing.T) {
	samples := []LabeledVector{
		{Features: []float64{10, 0.2}, Label: models.LabelNegative},
		{Features: []float64{12, 0.3}, Label: models.LabelNegative},
		{Features: []float64{15, 0.1}, Label: models.LabelNegative},
		{Features: []float64{5000, 0.99}, Label: models.LabelStrongPositive},
		{Features: []float64{5200, 0.98}, Label: models.LabelStrongPositive},
		{Features: []float64{4800, 0.99}, Label: models.LabelStrongPositive},
	}
	m, err := TrainCurveModel(samples, 3)
	require.NoError(t, err)
	assert.Equal(t, 6, m.Size())

	label, confidence, err := m.Predict([]float64{5100, 0.97})
	require.NoError(t, err)
	assert.Equal(t, models.LabelStrongPositive, label)
	assert.InDelta(t, 1.0, confidence, 1e-9)

	label, _, err = m.Predict([]float64{11, 0.25})
	require.NoError(t, err)
	assert.Equal(t, models.LabelNegative, label)

	_, _, err = m.Predict([]float64{1})
	assert.Error(t, err)
}

func TestCurveModel_MixedVoteConfidence(t *testing.T) {
	samples := []LabeledVector{
		{Features: []float64{0}, Label: models.LabelNegative},
		{Features: []float64{2}, Label: models.LabelPositive},
		{Features: []float64{4}, Label: models.LabelPositive},
	}
	m, err := TrainCurveModel(samples, 3)
	require.NoError(t, err)

	label, confidence, err := m.Predict([]float64{1.9})
	require.NoError(t, err)
	assert.Equal(t, models.LabelPositive, label)
	assert.Greater(t, confidence, 0.5)
	assert.Less(t, confidence, 1.0)
}

func TestCurveModelCache(t *testing.T) {
	p, _ := newTestPipeline(t)
	ctx := context.Background()

	cache := NewCurveModelCache(p.Sessions.db, 3, 10)
	version := &models.ModelVersion{PathogenCode: "BVAB", Fluorophore: "FAM", VersionNumber: "1.1", TrainingSamplesCount: 5}

	seedSamples(t, p, 5)
	m, err := cache.Get(ctx, version)
	require.NoError(t, err)
	assert.Nil(t, m, "样本不足时不建模")

	seedMore := func(n int) {
		for i := 0; i < n; i++ {
			curve := testCurve("X", "FAM", 900+float64(i), 0.99, 12, true)
			curve.WellID = curve.WellID + string(rune('a'+i))
			s := models.TrainingSample{PathogenCode: "BVAB", Fluorophore: "FAM", SessionID: "more", WellKey: curve.WellKey(), Label: models.LabelPositive}
			require.NoError(t, s.SetFeatures(models.NewSampleFeatures(&curve)))
			require.NoError(t, p.Sessions.db.Create(&s).Error)
		}
	}
	seedMore(6)

	// 样本数未变时命中缓存
	m, err = cache.Get(ctx, version)
	require.NoError(t, err)
	assert.Nil(t, m)

	version.TrainingSamplesCount = 11
	m, err = cache.Get(ctx, version)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, 11, m.Size())

	again, err := cache.Get(ctx, version)
	require.NoError(t, err)
	assert.Same(t, m, again)
}
