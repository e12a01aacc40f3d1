// Package config 代理配置：默认值、文件加载 (TOML/YAML)、环境变量覆盖与校验。
package config

import (
	"time"
)

// Config 代理的完整配置
type Config struct {
	Agent     AgentConfig     `toml:"agent" yaml:"agent"`
	Storage   StorageConfig   `toml:"storage" yaml:"storage"`
	Producers ProducersConfig `toml:"producers" yaml:"producers"`
	Detection DetectionConfig `toml:"detection" yaml:"detection"`
	Capture   CaptureConfig   `toml:"capture" yaml:"capture"`
	Hotplug   HotplugConfig   `toml:"hotplug" yaml:"hotplug"`
	Metrics   MetricsConfig   `toml:"metrics" yaml:"metrics"`
	Logging   LoggingConfig   `toml:"logging" yaml:"logging"`
}

type AgentConfig struct {
	// 记录归属的用户 ID
	UserID int64 `toml:"user_id" yaml:"user_id"`
}

type StorageConfig struct {
	DBPath string `toml:"db_path" yaml:"db_path"`
	// 通常通过 SENTRY_ENCRYPTION_PASSWORD 或 .env 提供，不写在配置文件里
	EncryptionPassword string `toml:"encryption_password" yaml:"encryption_password"`
	// 剪贴板内容加密前的字节上限，0 表示不限制
	MaxTextBytes int `toml:"max_text_bytes" yaml:"max_text_bytes"`
}

type ProducersConfig struct {
	Keystroke bool `toml:"keystroke" yaml:"keystroke"`
	Pointer   bool `toml:"pointer" yaml:"pointer"`
	Clipboard bool `toml:"clipboard" yaml:"clipboard"`
	AppFocus  bool `toml:"app_focus" yaml:"app_focus"`

	ClipboardIntervalMs int `toml:"clipboard_interval_ms" yaml:"clipboard_interval_ms"`
	FocusIntervalMs     int `toml:"focus_interval_ms" yaml:"focus_interval_ms"`
	// 每个采集器在内存中保留的最近事件数，0 表示关闭
	AuditLogSize int `toml:"audit_log_size" yaml:"audit_log_size"`
	// 指针坐标上限，0 表示不限制
	ScreenWidth  int `toml:"screen_width" yaml:"screen_width"`
	ScreenHeight int `toml:"screen_height" yaml:"screen_height"`
}

type DetectionConfig struct {
	WindowSize          int     `toml:"window_size" yaml:"window_size"`
	SpeedThreshold      float64 `toml:"speed_threshold" yaml:"speed_threshold"`
	UniformityThreshold float64 `toml:"uniformity_threshold" yaml:"uniformity_threshold"`
	KeywordsFile        string  `toml:"keywords_file" yaml:"keywords_file"`
	// 关键词文件变化时自动重载
	WatchKeywords bool `toml:"watch_keywords" yaml:"watch_keywords"`
}

type CaptureConfig struct {
	Enabled     bool   `toml:"enabled" yaml:"enabled"`
	Dir         string `toml:"dir" yaml:"dir"`
	IntervalSec int    `toml:"interval_sec" yaml:"interval_sec"`
}

type HotplugConfig struct {
	Enabled bool `toml:"enabled" yaml:"enabled"`
	// 命中黑名单或疑似 BadUSB 的设备写 authorized=0
	Enforce bool `toml:"enforce" yaml:"enforce"`
}

type MetricsConfig struct {
	// 为空时不启动 /metrics
	Listen string `toml:"listen" yaml:"listen"`
}

type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"` // console, json
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{UserID: 1},
		Storage: StorageConfig{
			DBPath: "data/activity.db",
		},
		Producers: ProducersConfig{
			Keystroke:           true,
			Pointer:             true,
			Clipboard:           true,
			AppFocus:            true,
			ClipboardIntervalMs: 1000,
			FocusIntervalMs:     5000,
		},
		Detection: DetectionConfig{
			WindowSize:          10,
			SpeedThreshold:      0.05,
			UniformityThreshold: 0.01,
			KeywordsFile:        "data/keywords.txt",
			WatchKeywords:       true,
		},
		Capture: CaptureConfig{
			Enabled:     true,
			Dir:         "logs/screenshots",
			IntervalSec: 60,
		},
		Hotplug: HotplugConfig{Enabled: true},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func (c *ProducersConfig) ClipboardInterval() time.Duration {
	return time.Duration(c.ClipboardIntervalMs) * time.Millisecond
}

func (c *ProducersConfig) FocusInterval() time.Duration {
	return time.Duration(c.FocusIntervalMs) * time.Millisecond
}

func (c *CaptureConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSec) * time.Second
}
