package database

import (
	"fmt"
	"log"
	"strings"

	"qpcrml/config"
	"qpcrml/models"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open 按配置打开数据库连接并完成迁移与种子数据
// mysql 走版本化迁移；sqlite 用于本地开发，走 AutoMigrate
func Open(cfg *config.Config) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Database.Driver {
	case "sqlite":
		db, err = OpenSQLite(cfg.Database.SQLitePath, cfg.Database.LogLevel)
		if err != nil {
			return nil, err
		}
		if err := AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("自动迁移失败: %w", err)
		}
	case "mysql":
		db, err = gorm.Open(mysql.Open(cfg.Database.DSN()), gormConfig(cfg.Database.LogLevel))
		if err != nil {
			return nil, fmt.Errorf("连接数据库失败: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)

		if err := MigrateUp(sqlDB); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("不支持的数据库驱动: %s", cfg.Database.Driver)
	}

	if err := SeedPathogenChannels(db, cfg.Pathogens); err != nil {
		return nil, fmt.Errorf("初始化病原体通道失败: %w", err)
	}

	log.Println("数据库初始化成功")
	return db, nil
}

// OpenSQLite 打开 sqlite 数据库（纯 Go 实现，无需 cgo）
// sqlite 不支持行级锁，限制为单连接以串行化写入
func OpenSQLite(path, logLevel string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), gormConfig(logLevel))
	if err != nil {
		return nil, fmt.Errorf("打开 sqlite 失败: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// AutoMigrate 按模型建表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.PathogenChannel{},
		&models.WellClassification{},
		&models.ExpertFeedback{},
		&models.TrainingSample{},
		&models.ModelVersion{},
		&models.ModelReset{},
		&models.RunLog{},
		&models.ConfirmedRun{},
	)
}

// SeedPathogenChannels 初始化病原体通道登记（仅当表为空时）
func SeedPathogenChannels(db *gorm.DB, pathogens []config.PathogenConfig) error {
	var count int64
	if err := db.Model(&models.PathogenChannel{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	var channels []models.PathogenChannel
	for _, p := range pathogens {
		for _, ch := range p.Channels {
			channels = append(channels, models.PathogenChannel{
				PathogenCode: p.Code,
				Fluorophore:  ch.Fluorophore,
				Target:       ch.Target,
				Enabled:      true,
			})
		}
	}
	if len(channels) == 0 {
		return nil
	}
	return db.Create(&channels).Error
}

func gormConfig(level string) *gorm.Config {
	return &gorm.Config{
		Logger:         logger.Default.LogMode(parseLogLevel(level)),
		TranslateError: true,
	}
}

func parseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
