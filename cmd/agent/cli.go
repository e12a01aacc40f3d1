package main

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/Hara602/activitySentry/internal/store"
	"github.com/Hara602/activitySentry/internal/sysutil"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const recentAlertLimit = 20

var usbID = regexp.MustCompile(`^[0-9a-f]{4}$`)

type statsReport struct {
	Stats  *store.DashboardStats `yaml:"stats"`
	Usage  []store.AppUsage      `yaml:"app_usage"`
	Alerts []alertLine           `yaml:"recent_alerts"`
}

type alertLine struct {
	ID        int64  `yaml:"id"`
	Timestamp string `yaml:"timestamp"`
	Type      string `yaml:"type"`
	Severity  string `yaml:"severity"`
	Message   string `yaml:"message"`
	Resolved  bool   `yaml:"resolved"`
}

// printStats 输出仪表盘汇总、应用使用时长和最近告警
func printStats(w io.Writer, db *store.Store) error {
	stats, err := db.DashboardStats()
	if err != nil {
		return err
	}
	usage, err := db.AppUsageSummary(db.UserID())
	if err != nil {
		return err
	}
	alerts, err := db.RecentAlerts(recentAlertLimit)
	if err != nil {
		return err
	}

	report := statsReport{Stats: stats, Usage: usage, Alerts: make([]alertLine, 0, len(alerts))}
	for _, a := range alerts {
		report.Alerts = append(report.Alerts, alertLine{
			ID:        a.ID,
			Timestamp: a.Timestamp.Format("2006-01-02 15:04:05"),
			Type:      string(a.Type),
			Severity:  string(a.Severity),
			Message:   a.Message,
			Resolved:  a.IsResolved,
		})
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(report)
}

// parseBlockRule 解析 vid:pid[:serial]
func parseBlockRule(rule string) (vid, pid, serial string, err error) {
	parts := strings.SplitN(strings.TrimSpace(rule), ":", 3)
	if len(parts) < 2 {
		return "", "", "", fmt.Errorf("invalid rule %q: want vid:pid[:serial]", rule)
	}
	vid, pid = strings.ToLower(parts[0]), strings.ToLower(parts[1])
	if !usbID.MatchString(vid) || !usbID.MatchString(pid) {
		return "", "", "", fmt.Errorf("invalid rule %q: vid and pid must be 4 hex digits", rule)
	}
	if len(parts) == 3 {
		serial = parts[2]
	}
	return vid, pid, serial, nil
}

func addBlockRule(db *store.Store, rule, reason string) error {
	vid, pid, serial, err := parseBlockRule(rule)
	if err != nil {
		return err
	}
	if err := db.AddBlockRule(vid, pid, serial, reason); err != nil {
		return err
	}
	sysutil.Log.Info("⛔ Block rule added",
		zap.String("vid", vid), zap.String("pid", pid), zap.String("serial", serial))
	return nil
}
