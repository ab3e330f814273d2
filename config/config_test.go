package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, 24*time.Hour, cfg.JWT.ExpireTime)
	assert.Equal(t, 40, cfg.ML.TeachingThreshold)
	assert.Equal(t, 40, cfg.ML.PromotionInterval)
	assert.Equal(t, 5, cfg.ML.Neighbors)
	assert.True(t, cfg.ML.Enabled)
	require.NotEmpty(t, cfg.Pathogens)
	assert.Equal(t, "BVAB", cfg.Pathogens[0].Code)
	assert.Equal(t, "FAM", cfg.Pathogens[0].Channels[0].Fluorophore)
}

func TestLoadConfig_ExternalFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "database:\n  driver: sqlite\n  sqlite_path: /tmp/x.db\nml:\n  teaching_threshold: 10\n  neighbors: 3\n  min_samples: 1\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/x.db", cfg.Database.SQLitePath)
	assert.Equal(t, 10, cfg.ML.TeachingThreshold)
	assert.Equal(t, 3, cfg.ML.Neighbors)
	// min_samples 不得小于邻居数
	assert.Equal(t, 3, cfg.ML.MinSamples)
	// 未覆盖的字段保持默认
	assert.Equal(t, "utf8mb4", cfg.Database.Charset)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("QPCRML_SERVER_MODE", "release")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "release", cfg.Server.Mode)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Username: "u", Password: "p", Host: "db", Port: "3306", DBName: "qpcrml", Charset: "utf8mb4"}
	assert.Equal(t, "u:p@tcp(db:3306)/qpcrml?charset=utf8mb4&parseTime=True&loc=Local&multiStatements=true", d.DSN())
}
