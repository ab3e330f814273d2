package service

import (
	"context"
	"errors"
	"strings"

	"qpcrml/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MergeOutcome 写入结果
type MergeOutcome string

const (
	MergeCreated MergeOutcome = "created"
	MergeUpdated MergeOutcome = "updated"
	// MergeKeptOverride 已有专家覆盖，模型重试不会覆盖
	MergeKeptOverride MergeOutcome = "kept_expert_override"
)

// SessionStore 会话分类持久化：每个 (会话, 孔位, 通道) 一条记录，原地合并
type SessionStore struct {
	db *gorm.DB
}

// NewSessionStore 创建会话存储
func NewSessionStore(db *gorm.DB) *SessionStore {
	return &SessionStore{db: db}
}

// MergeAndStore 合并写入一条分类记录
func (s *SessionStore) MergeAndStore(ctx context.Context, sessionID string, rec models.WellClassification) (*models.WellClassification, MergeOutcome, error) {
	var (
		stored  *models.WellClassification
		outcome MergeOutcome
	)
	err := withDuplicateRetry(func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			stored, outcome, err = s.mergeTx(tx, sessionID, rec)
			return err
		})
	})
	if err != nil {
		return nil, "", storageError("保存分类记录", err)
	}
	return stored, outcome, nil
}

func (s *SessionStore) findForUpdate(tx *gorm.DB, sessionID, wellID, fluorophore string) (*models.WellClassification, error) {
	var existing models.WellClassification
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("session_id = ? AND well_id = ? AND fluorophore = ?", sessionID, wellID, fluorophore).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &existing, nil
}

// mergeTx 在调用方事务内合并
// 模型结果覆盖旧的模型结果；专家覆盖一旦存在，只能被新的专家覆盖替换
func (s *SessionStore) mergeTx(tx *gorm.DB, sessionID string, rec models.WellClassification) (*models.WellClassification, MergeOutcome, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, "", invalidInput("session_id 不能为空")
	}
	rec.WellID, rec.Fluorophore = models.SplitWellKey(rec.WellID, rec.Fluorophore)
	if rec.WellID == "" || rec.Fluorophore == "" {
		return nil, "", invalidInput("孔位和通道不能为空")
	}
	rec.SessionID = sessionID
	rec.ID = 0

	existing, err := s.findForUpdate(tx, sessionID, rec.WellID, rec.Fluorophore)
	if err != nil {
		return nil, "", err
	}
	if existing == nil {
		if rec.Method == models.MethodExpertOverride && rec.ExpertClassification != nil {
			rec.Label = *rec.ExpertClassification
		}
		if err := tx.Create(&rec).Error; err != nil {
			return nil, "", err
		}
		return &rec, MergeCreated, nil
	}

	if rec.Method == models.MethodExpertOverride {
		if rec.ExpertClassification == nil {
			return nil, "", invalidInput("专家覆盖缺少专家分类")
		}
		expert := *rec.ExpertClassification
		existing.ExpertClassification = &expert
		existing.Label = expert
		existing.Confidence = 1
		existing.Method = models.MethodExpertOverride
		existing.Reason = string(models.MethodExpertOverride)
	} else {
		if existing.HasExpertOverride() {
			return existing, MergeKeptOverride, nil
		}
		existing.Label = rec.Label
		existing.Confidence = rec.Confidence
		existing.Method = rec.Method
		existing.ModelVersion = rec.ModelVersion
		existing.Reason = rec.Reason
		existing.MLPrediction = rec.MLPrediction
	}
	if rec.PathogenCode != "" {
		existing.PathogenCode = rec.PathogenCode
	}
	if err := tx.Save(existing).Error; err != nil {
		return nil, "", err
	}
	return existing, MergeUpdated, nil
}

// LoadSession 读取会话内全部分类，键为孔位键（如 A1_FAM）
func (s *SessionStore) LoadSession(ctx context.Context, sessionID string) (map[string]models.WellClassification, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, invalidInput("session_id 不能为空")
	}
	var rows []models.WellClassification
	if err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("id").Find(&rows).Error; err != nil {
		return nil, storageError("读取会话分类", err)
	}
	out := make(map[string]models.WellClassification, len(rows))
	for _, row := range rows {
		out[row.WellKey()] = row
	}
	return out, nil
}

// withDuplicateRetry 并发首次插入撞上唯一索引时重试一次，第二次会走更新路径
func withDuplicateRetry(fn func() error) error {
	err := fn()
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		err = fn()
	}
	return err
}
