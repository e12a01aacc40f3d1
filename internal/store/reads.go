package store

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/Hara602/activitySentry/internal/model"
)

// KeystrokeRecord 解密后的按键记录
type KeystrokeRecord struct {
	ID          int64
	Timestamp   time.Time
	Key         string
	KeyCode     int
	WindowTitle string
	Application string
}

type UserActivity struct {
	KeystrokesCount int64
	RecentActivity  []KeystrokeRecord
}

type DashboardStats struct {
	TodayKeystrokes int64
	ActiveAlerts    int64
	TotalAlerts     int64
	ClipboardEvents int64
	PointerEvents   int64
	ScreenCaptures  int64
}

type AlertRecord struct {
	ID         int64
	EventUID   string
	Type       model.AlertType
	Severity   model.Severity
	Message    string
	Timestamp  time.Time
	IsResolved bool
	ResolvedBy *int64
	ResolvedAt *time.Time
}

type ClipboardRecord struct {
	ID          int64
	Timestamp   time.Time
	Content     string
	Preview     string
	WindowTitle string
}

// AppUsage 按应用汇总的前台时长
type AppUsage struct {
	Application string
	Sessions    int
	Total       time.Duration
}

// UserActivity 用户按键总数及最近的按键记录
func (s *Store) UserActivity(userID int64, limit int) (*UserActivity, error) {
	out := &UserActivity{RecentActivity: []KeystrokeRecord{}}

	err := s.read(func(db *sql.DB) error {
		if err := db.QueryRow(`SELECT COUNT(*) FROM keystrokes WHERE user_id = ?`, userID).Scan(&out.KeystrokesCount); err != nil {
			return err
		}

		rows, err := db.Query(`
			SELECT id, timestamp, key_pressed, key_code, window_title, application_name
			FROM keystrokes
			WHERE user_id = ?
			ORDER BY timestamp DESC, id DESC
			LIMIT ?`, userID, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var r KeystrokeRecord
			var ts string
			var key, title, app sql.NullString
			var code sql.NullInt64
			if err := rows.Scan(&r.ID, &ts, &key, &code, &title, &app); err != nil {
				return err
			}
			r.Timestamp = model.ParseTimestamp(ts)
			r.KeyCode = int(code.Int64)
			if r.Key, err = s.decrypt(key); err != nil {
				return fmt.Errorf("keystroke %d: %w", r.ID, err)
			}
			if r.WindowTitle, err = s.decrypt(title); err != nil {
				return fmt.Errorf("keystroke %d: %w", r.ID, err)
			}
			if r.Application, err = s.decrypt(app); err != nil {
				return fmt.Errorf("keystroke %d: %w", r.ID, err)
			}
			out.RecentActivity = append(out.RecentActivity, r)
		}
		return rows.Err()
	})
	if isMissingTable(err) {
		return &UserActivity{RecentActivity: []KeystrokeRecord{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("user activity: %w", err)
	}
	return out, nil
}

// DashboardStats 仪表盘汇总，表为空或尚未创建时全部为 0
func (s *Store) DashboardStats() (*DashboardStats, error) {
	out := &DashboardStats{}
	today := s.now().UTC().Format("2006-01-02")

	queries := []struct {
		dst   *int64
		query string
		args  []any
	}{
		{&out.TodayKeystrokes, `SELECT COUNT(*) FROM keystrokes WHERE substr(timestamp, 1, 10) = ?`, []any{today}},
		{&out.ActiveAlerts, `SELECT COUNT(*) FROM alerts WHERE is_resolved = 0`, nil},
		{&out.TotalAlerts, `SELECT COUNT(*) FROM alerts`, nil},
		{&out.ClipboardEvents, `SELECT COUNT(*) FROM clipboard_events`, nil},
		{&out.PointerEvents, `SELECT COUNT(*) FROM mouse_events`, nil},
		{&out.ScreenCaptures, `SELECT COUNT(*) FROM screen_captures`, nil},
	}

	err := s.read(func(db *sql.DB) error {
		for _, q := range queries {
			err := db.QueryRow(q.query, q.args...).Scan(q.dst)
			if isMissingTable(err) {
				continue
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}
	return out, nil
}

// RecentAlerts 最近的告警，按时间倒序
func (s *Store) RecentAlerts(limit int) ([]AlertRecord, error) {
	out := []AlertRecord{}

	err := s.read(func(db *sql.DB) error {
		rows, err := db.Query(`
			SELECT id, event_uid, alert_type, severity, message, timestamp, is_resolved, resolved_by, resolved_at
			FROM alerts
			ORDER BY timestamp DESC, id DESC
			LIMIT ?`, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var r AlertRecord
			var alertType, severity, ts string
			var msg, resolvedAt sql.NullString
			var resolvedBy sql.NullInt64
			if err := rows.Scan(&r.ID, &r.EventUID, &alertType, &severity, &msg, &ts, &r.IsResolved, &resolvedBy, &resolvedAt); err != nil {
				return err
			}
			r.Type = model.AlertType(alertType)
			r.Severity = model.Severity(severity)
			r.Timestamp = model.ParseTimestamp(ts)
			if resolvedBy.Valid {
				by := resolvedBy.Int64
				r.ResolvedBy = &by
			}
			if resolvedAt.Valid {
				at := model.ParseTimestamp(resolvedAt.String)
				r.ResolvedAt = &at
			}
			if r.Message, err = s.decrypt(msg); err != nil {
				return fmt.Errorf("alert %d: %w", r.ID, err)
			}
			out = append(out, r)
		}
		return rows.Err()
	})
	if isMissingTable(err) {
		return []AlertRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("recent alerts: %w", err)
	}
	return out, nil
}

// ListClipboard 用户最近的剪贴板记录
func (s *Store) ListClipboard(userID int64, limit int) ([]ClipboardRecord, error) {
	out := []ClipboardRecord{}

	err := s.read(func(db *sql.DB) error {
		rows, err := db.Query(`
			SELECT id, timestamp, content, content_preview, window_title
			FROM clipboard_events
			WHERE user_id = ?
			ORDER BY timestamp DESC, id DESC
			LIMIT ?`, userID, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var r ClipboardRecord
			var ts string
			var content, prev, title sql.NullString
			if err := rows.Scan(&r.ID, &ts, &content, &prev, &title); err != nil {
				return err
			}
			r.Timestamp = model.ParseTimestamp(ts)
			if r.Content, err = s.decrypt(content); err != nil {
				return fmt.Errorf("clipboard %d: %w", r.ID, err)
			}
			if r.Preview, err = s.decrypt(prev); err != nil {
				return fmt.Errorf("clipboard %d: %w", r.ID, err)
			}
			if r.WindowTitle, err = s.decrypt(title); err != nil {
				return fmt.Errorf("clipboard %d: %w", r.ID, err)
			}
			out = append(out, r)
		}
		return rows.Err()
	})
	if isMissingTable(err) {
		return []ClipboardRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list clipboard: %w", err)
	}
	return out, nil
}

// AppUsageSummary 按应用汇总前台时长。
// 应用名是随机 IV 加密的，不能在 SQL 里 GROUP BY，只能解密后在内存汇总。
func (s *Store) AppUsageSummary(userID int64) ([]AppUsage, error) {
	totals := map[string]*AppUsage{}

	err := s.read(func(db *sql.DB) error {
		rows, err := db.Query(`SELECT application_name, duration_seconds FROM app_usage WHERE user_id = ?`, userID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var enc sql.NullString
			var secs float64
			if err := rows.Scan(&enc, &secs); err != nil {
				return err
			}
			app, err := s.decrypt(enc)
			if err != nil {
				return err
			}
			u, ok := totals[app]
			if !ok {
				u = &AppUsage{Application: app}
				totals[app] = u
			}
			u.Sessions++
			u.Total += time.Duration(secs * float64(time.Second))
		}
		return rows.Err()
	})
	if err != nil && !isMissingTable(err) {
		return nil, fmt.Errorf("app usage summary: %w", err)
	}

	out := make([]AppUsage, 0, len(totals))
	for _, u := range totals {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Application < out[j].Application
	})
	return out, nil
}
