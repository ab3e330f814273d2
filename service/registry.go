package service

import (
	"context"
	"strings"
	"sync"

	"qpcrml/models"

	"gorm.io/gorm"
)

// ChannelRegistry 已登记病原体/通道的只读缓存
type ChannelRegistry struct {
	db *gorm.DB

	mu       sync.RWMutex
	loaded   bool
	channels map[string]models.PathogenChannel
}

// NewChannelRegistry 创建通道登记
func NewChannelRegistry(db *gorm.DB) *ChannelRegistry {
	return &ChannelRegistry{db: db}
}

func channelKey(pathogen, fluorophore string) string {
	return strings.ToLower(strings.TrimSpace(pathogen)) + "|" + strings.ToLower(strings.TrimSpace(fluorophore))
}

// Reload 从数据库重新加载
func (r *ChannelRegistry) Reload(ctx context.Context) error {
	var rows []models.PathogenChannel
	if err := r.db.WithContext(ctx).Where("enabled = ?", true).Find(&rows).Error; err != nil {
		return storageError("加载病原体通道", err)
	}
	channels := make(map[string]models.PathogenChannel, len(rows))
	for _, row := range rows {
		channels[channelKey(row.PathogenCode, row.Fluorophore)] = row
	}

	r.mu.Lock()
	r.channels = channels
	r.loaded = true
	r.mu.Unlock()
	return nil
}

// Resolve 查找登记的组合，返回规范化后的病原体/通道名称
func (r *ChannelRegistry) Resolve(ctx context.Context, pathogen, fluorophore string) (models.PathogenChannel, bool, error) {
	r.mu.RLock()
	loaded := r.loaded
	r.mu.RUnlock()
	if !loaded {
		if err := r.Reload(ctx); err != nil {
			return models.PathogenChannel{}, false, err
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.channels[channelKey(pathogen, fluorophore)]
	return ch, ok, nil
}

// ResolveTarget 按检测靶标查找组合，如 BVAB1 + FAM
func (r *ChannelRegistry) ResolveTarget(ctx context.Context, target, fluorophore string) (models.PathogenChannel, bool, error) {
	if _, _, err := r.Resolve(ctx, "", ""); err != nil {
		return models.PathogenChannel{}, false, err
	}
	target = strings.ToLower(strings.TrimSpace(target))
	fluorophore = strings.ToLower(strings.TrimSpace(fluorophore))

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ch := range r.channels {
		if strings.ToLower(ch.Target) == target && strings.ToLower(ch.Fluorophore) == fluorophore {
			return ch, true, nil
		}
	}
	return models.PathogenChannel{}, false, nil
}

// List 所有已登记组合
func (r *ChannelRegistry) List(ctx context.Context) ([]models.PathogenChannel, error) {
	var rows []models.PathogenChannel
	if err := r.db.WithContext(ctx).Order("pathogen_code, fluorophore").Find(&rows).Error; err != nil {
		return nil, storageError("查询病原体通道", err)
	}
	return rows, nil
}
