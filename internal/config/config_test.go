package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefault 测试默认配置
func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "tasks.db", cfg.Database.Path)

	// 任务引擎的两个关键常量
	assert.Equal(t, 12, cfg.Tasks.MaxPerDay)
	assert.Equal(t, 8, cfg.Tasks.VisiblePerPage)
	assert.Equal(t, "blue", cfg.Tasks.GroupColor)

	assert.True(t, cfg.Browser.Enabled)
	assert.Equal(t, 3, cfg.Browser.CallTimeoutSec)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
}

// TestLoad_FromFile 测试从配置文件加载
func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
env: production
server:
  port: 9090
database:
  driver: postgres
  host: db.internal
tasks:
  max_per_day: 5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5, cfg.Tasks.MaxPerDay)

	// 未覆盖的键保持默认值
	assert.Equal(t, 8, cfg.Tasks.VisiblePerPage)
}

// TestLoad_MissingFile 测试显式指定的配置文件不存在时报错
func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

// TestLoad_EnvOverride 测试环境变量覆盖
func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("APP_SERVER_PORT", "7070")
	t.Setenv("APP_TASKS_MAX_PER_DAY", "3")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("env: development\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Tasks.MaxPerDay)
}

// TestIsProduction 测试环境判断
func TestIsProduction(t *testing.T) {
	assert.False(t, IsProduction(nil))
	assert.False(t, IsProduction(&Config{Env: "development"}))
	assert.True(t, IsProduction(&Config{Env: "production"}))
}
