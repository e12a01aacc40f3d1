package model

import (
	"fmt"
	"strings"
	"time"
)

type AlertType string

const (
	AlertAnomaly AlertType = "anomaly_detection"
	AlertScript  AlertType = "script_detection"
)

type Severity string

const (
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// TimingEvidence 时序异常检测的全部统计量，足以复现触发条件
type TimingEvidence struct {
	AvgInterval  float64 `json:"avg_interval"` // 秒
	StdDev       float64 `json:"stddev"`
	IsFast       bool    `json:"is_fast"`
	IsUniform    bool    `json:"is_uniform"`
	IsRepetitive bool    `json:"is_repetitive"`
	MLFlag       bool    `json:"ml_flag"`
}

// SignatureEvidence 命中的全部关键词
type SignatureEvidence struct {
	Matches []string `json:"matches"`
	MLFlag  bool     `json:"ml_flag"`
}

// Alert 检测器对某一个事件的判定
type Alert struct {
	Timestamp time.Time          `json:"timestamp"`
	Type      AlertType          `json:"type"`
	Timing    *TimingEvidence    `json:"timing,omitempty"`
	Signature *SignatureEvidence `json:"signature,omitempty"`
	Source    Event              `json:"event"`
}

// Severity 由告警类型决定
func (a Alert) Severity() Severity {
	if a.Type == AlertScript {
		return SeverityHigh
	}
	return SeverityMedium
}

// Message 人类可读的告警摘要
func (a Alert) Message() string {
	switch {
	case a.Timing != nil:
		t := a.Timing
		return fmt.Sprintf("suspicious typing rhythm: avg=%.4fs stddev=%.4f fast=%t uniform=%t repetitive=%t ml=%t",
			t.AvgInterval, t.StdDev, t.IsFast, t.IsUniform, t.IsRepetitive, t.MLFlag)
	case a.Signature != nil:
		if len(a.Signature.Matches) == 0 {
			return "classifier flagged input"
		}
		return "matched keywords: " + strings.Join(a.Signature.Matches, ", ")
	}
	return string(a.Type)
}
