package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"qpcrml/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VersionPolicy 教学期与晋级里程碑
type VersionPolicy struct {
	ModelType         string
	TeachingThreshold int
	PromotionInterval int
}

// DefaultVersionPolicy 默认策略：40 个样本结束教学期，此后每 40 个样本晋级一次
func DefaultVersionPolicy() VersionPolicy {
	return VersionPolicy{ModelType: models.DefaultModelType, TeachingThreshold: 40, PromotionInterval: 40}
}

// TargetMinor 由有效样本数确定的次版本号，教学期为 0
func (p VersionPolicy) TargetMinor(effectiveSamples int) int {
	if effectiveSamples < p.TeachingThreshold {
		return 0
	}
	interval := p.PromotionInterval
	if interval <= 0 {
		interval = p.TeachingThreshold
	}
	return 1 + (effectiveSamples-p.TeachingThreshold)/interval
}

// PromotionEvent 版本晋级事件
type PromotionEvent struct {
	ModelType    string
	PathogenCode string
	Fluorophore  string
	FromVersion  string
	ToVersion    string
	SampleCount  int
	At           time.Time
}

// Notifier 晋级通知
type Notifier interface {
	NotifyPromotion(ev PromotionEvent) error
}

type nopNotifier struct{}

func (nopNotifier) NotifyPromotion(PromotionEvent) error { return nil }

// NopNotifier 不发送任何通知
func NopNotifier() Notifier { return nopNotifier{} }

// VersionManager 维护每个 (病原体, 通道) 唯一的激活版本
type VersionManager struct {
	db       *gorm.DB
	policy   VersionPolicy
	metrics  *Metrics
	notifier Notifier
	now      func() time.Time
}

// NewVersionManager 创建版本管理器
func NewVersionManager(db *gorm.DB, policy VersionPolicy, metrics *Metrics, notifier Notifier) *VersionManager {
	if policy.ModelType == "" {
		policy.ModelType = models.DefaultModelType
	}
	if notifier == nil {
		notifier = NopNotifier()
	}
	return &VersionManager{db: db, policy: policy, metrics: metrics, notifier: notifier, now: time.Now}
}

// Policy 当前策略
func (v *VersionManager) Policy() VersionPolicy {
	return v.policy
}

func (v *VersionManager) countSamples(tx *gorm.DB, pathogen, fluorophore string) (int64, error) {
	var count int64
	err := tx.Model(&models.TrainingSample{}).
		Where("pathogen_code = ? AND fluorophore = ?", pathogen, fluorophore).
		Count(&count).Error
	return count, err
}

func (v *VersionManager) activeQuery(tx *gorm.DB, pathogen, fluorophore string) *gorm.DB {
	return tx.Where("model_type = ? AND pathogen_code = ? AND fluorophore = ? AND is_active = ?",
		v.policy.ModelType, pathogen, fluorophore, true)
}

// GetActiveVersion 获取激活版本；尚无版本记录时返回未落库的教学期版本
func (v *VersionManager) GetActiveVersion(ctx context.Context, pathogen, fluorophore string) (*models.ModelVersion, error) {
	db := v.db.WithContext(ctx)
	var active models.ModelVersion
	err := v.activeQuery(db, pathogen, fluorophore).First(&active).Error
	if err == nil {
		return &active, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storageError("查询激活版本", err)
	}

	count, err := v.countSamples(db, pathogen, fluorophore)
	if err != nil {
		return nil, storageError("统计训练样本", err)
	}
	return &models.ModelVersion{
		ModelType:            v.policy.ModelType,
		PathogenCode:         pathogen,
		Fluorophore:          fluorophore,
		VersionNumber:        models.TeachingVersion,
		TrainingSamplesCount: int(count),
		IsActive:             true,
		CreationDate:         v.now(),
	}, nil
}

// OnSampleCountChange 样本数变化后重写计数并检查是否跨过里程碑
// 版本号只增不减；重置只能通过 Reset
func (v *VersionManager) OnSampleCountChange(ctx context.Context, pathogen, fluorophore string) (*models.ModelVersion, error) {
	var (
		result   *models.ModelVersion
		promoted *PromotionEvent
	)
	err := v.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		count, err := v.countSamples(tx, pathogen, fluorophore)
		if err != nil {
			return err
		}
		now := v.now()

		var active models.ModelVersion
		err = v.activeQuery(tx.Clauses(clause.Locking{Strength: "UPDATE"}), pathogen, fluorophore).First(&active).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			active = models.ModelVersion{
				ModelType:            v.policy.ModelType,
				PathogenCode:         pathogen,
				Fluorophore:          fluorophore,
				VersionNumber:        models.TeachingVersion,
				TrainingSamplesCount: int(count),
				PerformanceNotes:     fmt.Sprintf("教学期：样本数未达到 %d，版本固定为 %s", v.policy.TeachingThreshold, models.TeachingVersion),
				IsActive:             true,
				CreationDate:         now,
			}
			if err := tx.Create(&active).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		active.TrainingSamplesCount = int(count)
		target := v.policy.TargetMinor(active.EffectiveSamples())
		if target <= active.Minor() {
			result = &active
			return tx.Model(&active).Update("training_samples_count", active.TrainingSamplesCount).Error
		}

		if err := tx.Model(&active).Updates(map[string]interface{}{
			"is_active":              false,
			"training_samples_count": active.TrainingSamplesCount,
		}).Error; err != nil {
			return err
		}

		next := models.ModelVersion{
			ModelType:            v.policy.ModelType,
			PathogenCode:         pathogen,
			Fluorophore:          fluorophore,
			VersionNumber:        models.FormatVersion(active.Major(), target),
			TrainingSamplesCount: int(count),
			SampleBaseline:       active.SampleBaseline,
			PerformanceNotes:     promotionNotes(active.VersionNumber, active.InTeachingPhase(), int(count), v.policy.TeachingThreshold),
			IsActive:             true,
			CreationDate:         now,
		}
		if err := v.activateVersion(tx, &next); err != nil {
			return err
		}

		result = &next
		promoted = &PromotionEvent{
			ModelType:    v.policy.ModelType,
			PathogenCode: pathogen,
			Fluorophore:  fluorophore,
			FromVersion:  active.VersionNumber,
			ToVersion:    next.VersionNumber,
			SampleCount:  int(count),
			At:           now,
		}
		return nil
	})
	if err != nil {
		return nil, storageError("检查版本里程碑", err)
	}

	if promoted != nil {
		log.Printf("[version] %s/%s 晋级 %s -> %s (样本数 %d)",
			pathogen, fluorophore, promoted.FromVersion, promoted.ToVersion, promoted.SampleCount)
		v.metrics.observePromotion(pathogen, fluorophore)
		if err := v.notifier.NotifyPromotion(*promoted); err != nil {
			log.Printf("[version] 晋级通知发送失败: %v", err)
		}
	}
	return result, nil
}

// activateVersion 激活指定版本号；同号记录已存在时复用，保证版本号唯一
func (v *VersionManager) activateVersion(tx *gorm.DB, mv *models.ModelVersion) error {
	var existing models.ModelVersion
	err := tx.Where("model_type = ? AND pathogen_code = ? AND fluorophore = ? AND version_number = ?",
		mv.ModelType, mv.PathogenCode, mv.Fluorophore, mv.VersionNumber).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return tx.Create(mv).Error
	}
	if err != nil {
		return err
	}
	mv.ID = existing.ID
	mv.CreationDate = existing.CreationDate
	return tx.Save(mv).Error
}

func promotionNotes(from string, wasTeaching bool, count, threshold int) string {
	if wasTeaching {
		return fmt.Sprintf("教学期结束：样本数 %d 达到 %d，由 %s 晋级", count, threshold, from)
	}
	return fmt.Sprintf("样本数达到 %d，由 %s 晋级", count, from)
}

// Reset 管理员重置：开启新的主版本教学期，并写审计记录
func (v *VersionManager) Reset(ctx context.Context, pathogen, fluorophore, requestedBy, reason string) (*models.ModelVersion, error) {
	requestedBy = strings.TrimSpace(requestedBy)
	if requestedBy == "" {
		return nil, invalidInput("重置必须指明操作人")
	}

	var result *models.ModelVersion
	err := v.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var active models.ModelVersion
		err := v.activeQuery(tx.Clauses(clause.Locking{Strength: "UPDATE"}), pathogen, fluorophore).First(&active).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s/%s 尚无模型版本", ErrNotFound, pathogen, fluorophore)
		}
		if err != nil {
			return err
		}

		count, err := v.countSamples(tx, pathogen, fluorophore)
		if err != nil {
			return err
		}
		if err := tx.Model(&active).Update("is_active", false).Error; err != nil {
			return err
		}

		now := v.now()
		next := models.ModelVersion{
			ModelType:            v.policy.ModelType,
			PathogenCode:         pathogen,
			Fluorophore:          fluorophore,
			VersionNumber:        models.FormatVersion(active.Major()+1, 0),
			TrainingSamplesCount: int(count),
			SampleBaseline:       int(count),
			PerformanceNotes:     fmt.Sprintf("管理员重置：%s，原因：%s，自 %s 重新进入教学期", requestedBy, reason, active.VersionNumber),
			IsActive:             true,
			CreationDate:         now,
		}
		if err := v.activateVersion(tx, &next); err != nil {
			return err
		}

		audit := models.ModelReset{
			ModelType:    v.policy.ModelType,
			PathogenCode: pathogen,
			Fluorophore:  fluorophore,
			FromVersion:  active.VersionNumber,
			ToVersion:    next.VersionNumber,
			SampleCount:  int(count),
			RequestedBy:  requestedBy,
			Reason:       reason,
		}
		if err := tx.Create(&audit).Error; err != nil {
			return err
		}
		result = &next
		return nil
	})
	if err != nil {
		return nil, storageError("重置模型版本", err)
	}
	log.Printf("[version] %s/%s 已由 %s 重置为 %s", pathogen, fluorophore, requestedBy, result.VersionNumber)
	return result, nil
}

// ListVersions 版本历史；pathogen 为空时返回全部
func (v *VersionManager) ListVersions(ctx context.Context, pathogen, fluorophore string) ([]models.ModelVersion, error) {
	q := v.db.WithContext(ctx).Where("model_type = ?", v.policy.ModelType)
	if pathogen != "" {
		q = q.Where("pathogen_code = ?", pathogen)
	}
	if fluorophore != "" {
		q = q.Where("fluorophore = ?", fluorophore)
	}
	var versions []models.ModelVersion
	if err := q.Order("pathogen_code, fluorophore, id").Find(&versions).Error; err != nil {
		return nil, storageError("查询模型版本", err)
	}
	return versions, nil
}
