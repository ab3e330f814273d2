package service

import (
	"testing"

	"qpcrml/config"
	"qpcrml/database"
	"qpcrml/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testPathogens = []config.PathogenConfig{
	{Code: "BVAB", Channels: []config.ChannelConfig{
		{Fluorophore: "FAM", Target: "BVAB1"},
		{Fluorophore: "HEX", Target: "BVAB2"},
		{Fluorophore: "Cy5", Target: "BVAB3"},
	}},
	{Code: "Calb", Channels: []config.ChannelConfig{{Fluorophore: "FAM", Target: "Candida albicans"}}},
}

// newTestDB 内存 sqlite，已建表并登记测试通道
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:", "silent")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	require.NoError(t, database.SeedPathogenChannels(db, testPathogens))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		ML: config.MLConfig{
			Enabled:           true,
			ModelType:         models.DefaultModelType,
			Neighbors:         3,
			MinSamples:        3,
			TeachingThreshold: 40,
			PromotionInterval: 40,
		},
		Pathogens: testPathogens,
	}
}

func newTestPipeline(t *testing.T) (*Pipeline, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	return NewPipeline(db, testConfig(), nil, nil), db
}

func testCurve(well, fluorophore string, amplitude, r2, snr float64, goodShape bool) models.CurveSample {
	return models.CurveSample{
		WellID:       well,
		Fluorophore:  fluorophore,
		PathogenCode: "BVAB",
		Cycles:       []float64{1, 2, 3, 4, 5},
		RFU:          []float64{10, 12, 40, 300, amplitude},
		Metrics: models.Metrics{
			Amplitude: amplitude,
			R2:        r2,
			SNR:       snr,
			Steepness: 0.5,
			Baseline:  10,
			Midpoint:  25,
			Cq:        24.5,
			CalcJ:     1.2,
		},
		IsGoodSCurve: goodShape,
	}
}

// recordingNotifier 记录晋级事件
type recordingNotifier struct {
	events []PromotionEvent
}

func (n *recordingNotifier) NotifyPromotion(ev PromotionEvent) error {
	n.events = append(n.events, ev)
	return nil
}
