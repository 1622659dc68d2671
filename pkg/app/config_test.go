package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/xdooria-persist/pkg/config"
)

type toolConfig struct {
	Log struct {
		Level      string `mapstructure:"level"`
		OutputPath string `mapstructure:"output_path"`
		EnableFile bool   `mapstructure:"enable_file"`
	} `mapstructure:"log"`
	Catalog struct {
		DataDir string `mapstructure:"data_dir" validate:"required"`
	} `mapstructure:"catalog"`
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigFlag(t *testing.T) {
	path := writeConfig(t, "log:\n  level: debug\ncatalog:\n  data_dir: ./data\n")
	logPath := filepath.Join(t.TempDir(), "logs", "savetool.log")

	fs := pflag.NewFlagSet("savetool", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"-c", path, "--log.path", logPath}))

	var cfg toolConfig
	used, err := LoadConfig(fs, &cfg)
	require.NoError(t, err)
	assert.Equal(t, path, used)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "./data", cfg.Catalog.DataDir)
	assert.Equal(t, logPath, cfg.Log.OutputPath)
	assert.True(t, cfg.Log.EnableFile)
	assert.DirExists(t, filepath.Dir(logPath))
}

func TestLoadConfigEnvPath(t *testing.T) {
	path := writeConfig(t, "catalog:\n  data_dir: /srv/catalog\n")
	t.Setenv(ConfigEnv, path)
	t.Setenv("XDOORIA_LOG_LEVEL", "warn")

	fs := pflag.NewFlagSet("savetool", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(nil))

	var cfg toolConfig
	used, err := LoadConfig(fs, &cfg, config.WithDefaults(map[string]any{"log.level": "info"}))
	require.NoError(t, err)
	assert.Equal(t, path, used)
	assert.Equal(t, "/srv/catalog", cfg.Catalog.DataDir)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadConfigErrors(t *testing.T) {
	fs := pflag.NewFlagSet("savetool", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}))

	var cfg toolConfig
	_, err := LoadConfig(fs, &cfg)
	assert.ErrorIs(t, err, config.ErrConfigFileNotFound)

	fs = pflag.NewFlagSet("savetool", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--config", writeConfig(t, "log:\n  level: info\n")}))
	_, err = LoadConfig(fs, &cfg)
	assert.ErrorIs(t, err, config.ErrValidationFailed)

	_, err = LoadConfig(fs, nil)
	assert.ErrorIs(t, err, config.ErrNilConfig)
}

func TestVersionInfo(t *testing.T) {
	info := GetInfo()
	assert.NotEmpty(t, info.AppName)
	assert.Contains(t, info.String(), info.GoVersion)
}
