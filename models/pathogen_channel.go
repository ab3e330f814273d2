package models

import (
	"time"
)

// PathogenChannel 已登记的病原体/通道组合
type PathogenChannel struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	PathogenCode string    `json:"pathogen_code" gorm:"size:64;not null;uniqueIndex:idx_pc_channel"`
	Fluorophore  string    `json:"fluorophore" gorm:"size:32;not null;uniqueIndex:idx_pc_channel"`
	Target       string    `json:"target" gorm:"size:128"`
	Enabled      bool      `json:"enabled" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName 设置表名
func (PathogenChannel) TableName() string {
	return "ml_pathogen_channels"
}
