package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// 环境变量覆盖
const (
	EnvPassword      = "SENTRY_ENCRYPTION_PASSWORD"
	EnvDBPath        = "SENTRY_DB_PATH"
	EnvLogLevel      = "SENTRY_LOG_LEVEL"
	EnvMetricsListen = "SENTRY_METRICS_LISTEN"
	EnvKeywordsFile  = "SENTRY_KEYWORDS_FILE"
)

// Load 读取配置文件 (不存在时使用默认值)，加载 .env，应用环境变量覆盖并校验
func Load(path string) (*Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg, err := loadConfigFromFile(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv 加载 .env，已存在的环境变量不会被覆盖；文件不存在不是错误
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

func loadConfigFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode YAML: %w", err)
		}
	default:
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("decode TOML: %w", err)
		}
	}
	return cfg, nil
}

// ApplyEnvOverrides 用 SENTRY_* 环境变量覆盖配置
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv(EnvPassword); v != "" {
		c.Storage.EncryptionPassword = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		c.Storage.DBPath = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvMetricsListen); v != "" {
		c.Metrics.Listen = v
	}
	if v := os.Getenv(EnvKeywordsFile); v != "" {
		c.Detection.KeywordsFile = v
	}
}
