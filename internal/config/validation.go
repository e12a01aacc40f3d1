package config

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidConfig = errors.New("invalid config")

// ValidationError 单个字段的校验错误
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors 所有校验错误，errors.Is 可匹配 ErrInvalidConfig
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

func (e ValidationErrors) Is(target error) bool {
	return target == ErrInvalidConfig
}

// Validate 检查配置
func (c *Config) Validate() error {
	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if c.Agent.UserID <= 0 {
		add("agent.user_id", "must be positive, got %d", c.Agent.UserID)
	}

	if c.Storage.DBPath == "" {
		add("storage.db_path", "is required")
	}
	if c.Storage.EncryptionPassword == "" {
		add("storage.encryption_password", "is required (set %s)", EnvPassword)
	}
	if c.Storage.MaxTextBytes < 0 {
		add("storage.max_text_bytes", "must not be negative")
	}

	if c.Producers.ClipboardIntervalMs <= 0 {
		add("producers.clipboard_interval_ms", "must be positive")
	}
	if c.Producers.FocusIntervalMs <= 0 {
		add("producers.focus_interval_ms", "must be positive")
	}
	if c.Producers.AuditLogSize < 0 {
		add("producers.audit_log_size", "must not be negative")
	}

	if c.Detection.WindowSize < 2 {
		add("detection.window_size", "must be at least 2, got %d", c.Detection.WindowSize)
	}
	if c.Detection.SpeedThreshold <= 0 {
		add("detection.speed_threshold", "must be positive")
	}
	if c.Detection.UniformityThreshold <= 0 {
		add("detection.uniformity_threshold", "must be positive")
	}

	if c.Capture.Enabled {
		if c.Capture.Dir == "" {
			add("capture.dir", "is required when capture is enabled")
		}
		if c.Capture.IntervalSec <= 0 {
			add("capture.interval_sec", "must be positive")
		}
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		add("logging.format", "must be console or json, got %q", c.Logging.Format)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
