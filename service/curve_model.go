package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"qpcrml/models"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gorm.io/gorm"
)

// CurveModel 基于训练样本的 k 近邻分类器，特征先做 z-score 标准化
type CurveModel struct {
	k      int
	means  []float64
	stds   []float64
	points [][]float64
	labels []models.Label
}

// LabeledVector 带标签的特征向量
type LabeledVector struct {
	Features []float64
	Label    models.Label
}

// TrainCurveModel 训练模型
func TrainCurveModel(samples []LabeledVector, k int) (*CurveModel, error) {
	if k <= 0 {
		return nil, errors.New("k 必须大于 0")
	}
	if len(samples) == 0 {
		return nil, errors.New("没有训练样本")
	}
	dim := len(samples[0].Features)
	for i, s := range samples {
		if len(s.Features) != dim {
			return nil, fmt.Errorf("第 %d 个样本特征维度为 %d，期望 %d", i, len(s.Features), dim)
		}
	}

	m := &CurveModel{
		k:     k,
		means: make([]float64, dim),
		stds:  make([]float64, dim),
	}
	col := make([]float64, len(samples))
	for j := 0; j < dim; j++ {
		for i, s := range samples {
			col[i] = s.Features[j]
		}
		mean, std := stat.MeanStdDev(col, nil)
		if std == 0 || len(samples) == 1 {
			std = 1
		}
		m.means[j], m.stds[j] = mean, std
	}
	for _, s := range samples {
		m.points = append(m.points, m.standardize(s.Features))
		m.labels = append(m.labels, s.Label)
	}
	return m, nil
}

func (m *CurveModel) standardize(x []float64) []float64 {
	out := make([]float64, len(x))
	for j := range x {
		out[j] = (x[j] - m.means[j]) / m.stds[j]
	}
	return out
}

// Size 样本数
func (m *CurveModel) Size() int {
	return len(m.points)
}

// Predict 距离倒数加权投票；置信度为胜出标签的权重占比
func (m *CurveModel) Predict(x []float64) (models.Label, float64, error) {
	if len(x) != len(m.means) {
		return models.LabelUnknown, 0, fmt.Errorf("特征维度为 %d，期望 %d", len(x), len(m.means))
	}
	q := m.standardize(x)

	type neighbor struct {
		dist  float64
		label models.Label
	}
	neighbors := make([]neighbor, len(m.points))
	for i, p := range m.points {
		neighbors[i] = neighbor{dist: floats.Distance(q, p, 2), label: m.labels[i]}
	}
	sort.SliceStable(neighbors, func(a, b int) bool { return neighbors[a].dist < neighbors[b].dist })

	k := m.k
	if k > len(neighbors) {
		k = len(neighbors)
	}
	weights := make(map[models.Label]float64)
	var total float64
	for _, n := range neighbors[:k] {
		w := 1 / (n.dist + 1e-9)
		weights[n.label] += w
		total += w
	}

	best, bestWeight := models.LabelUnknown, -1.0
	for _, l := range models.GetLabels() {
		if w, ok := weights[l]; ok && w > bestWeight {
			best, bestWeight = l, w
		}
	}
	return best, bestWeight / total, nil
}

// CurveModelCache 按 (病原体, 通道) 缓存模型，版本或样本数变化时重建
// 样本改标签不改变计数，需由调用方 Invalidate
type CurveModelCache struct {
	db         *gorm.DB
	k          int
	minSamples int

	mu      sync.RWMutex
	entries map[string]*cachedModel
}

type cachedModel struct {
	version string
	samples int
	model   *CurveModel
}

// NewCurveModelCache 创建模型缓存
func NewCurveModelCache(db *gorm.DB, k, minSamples int) *CurveModelCache {
	return &CurveModelCache{db: db, k: k, minSamples: minSamples, entries: make(map[string]*cachedModel)}
}

// Get 返回可用模型；样本不足时返回 nil, nil
func (c *CurveModelCache) Get(ctx context.Context, version *models.ModelVersion) (*CurveModel, error) {
	key := channelKey(version.PathogenCode, version.Fluorophore)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && entry.version == version.VersionNumber && entry.samples == version.TrainingSamplesCount {
		return entry.model, nil
	}

	var rows []models.TrainingSample
	if err := c.db.WithContext(ctx).
		Where("pathogen_code = ? AND fluorophore = ?", version.PathogenCode, version.Fluorophore).
		Order("id").
		Find(&rows).Error; err != nil {
		return nil, storageError("加载训练样本", err)
	}

	var model *CurveModel
	if len(rows) >= c.minSamples {
		samples := make([]LabeledVector, 0, len(rows))
		for _, row := range rows {
			f, err := row.DecodeFeatures()
			if err != nil {
				return nil, fmt.Errorf("解析训练样本 %d 特征失败: %w", row.ID, err)
			}
			samples = append(samples, LabeledVector{Features: f.Vector(), Label: row.Label})
		}
		var err error
		if model, err = TrainCurveModel(samples, c.k); err != nil {
			return nil, err
		}
	}

	c.mu.Lock()
	c.entries[key] = &cachedModel{version: version.VersionNumber, samples: version.TrainingSamplesCount, model: model}
	c.mu.Unlock()
	return model, nil
}

// Invalidate 丢弃某通道的缓存模型，下次 Get 时按当前训练集重建
func (c *CurveModelCache) Invalidate(pathogen, fluorophore string) {
	c.mu.Lock()
	delete(c.entries, channelKey(pathogen, fluorophore))
	c.mu.Unlock()
}
