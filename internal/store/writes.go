package store

import (
	"fmt"

	"github.com/Hara602/activitySentry/internal/model"
	"go.uber.org/zap"
)

func checkKind(ev model.Event, kinds ...model.Kind) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	for _, k := range kinds {
		if ev.Kind == k {
			return nil
		}
	}
	return fmt.Errorf("%w: unexpected kind %s", model.ErrInvalidEvent, ev.Kind)
}

// InsertKeystroke 写入一条按键记录
func (s *Store) InsertKeystroke(ev model.Event) error {
	if err := checkKind(ev, model.KindKeystroke); err != nil {
		return err
	}
	ctxData, err := s.encryptJSON(ev)
	if err != nil {
		return err
	}
	f, err := s.encrypt(
		ev.Key.Symbol,
		model.Deref(ev.Context.Title, ""),
		model.Deref(ev.Context.Process, ""),
		model.Deref(ev.Context.User, ""),
	)
	if err != nil {
		return err
	}

	_, err = s.exec("keystrokes", `
		INSERT INTO keystrokes (event_uid, user_id, key_pressed, key_code, window_title, application_name, os_user, timestamp, is_sensitive, context_data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID.String(), s.userID, f[0], ev.Key.Code, f[1], f[2], f[3], model.FormatTimestamp(ev.Timestamp), false, ctxData,
	)
	return err
}

// InsertPointer 写入移动/点击/滚轮事件，坐标明文保存
func (s *Store) InsertPointer(ev model.Event) error {
	if err := checkKind(ev, model.KindPointerMove, model.KindPointerClick, model.KindPointerScroll); err != nil {
		return err
	}
	f, err := s.encrypt(model.Deref(ev.Context.Title, ""))
	if err != nil {
		return err
	}

	p := ev.Pointer
	_, err = s.exec("mouse_events", `
		INSERT INTO mouse_events (event_uid, user_id, event_type, x_position, y_position, button, pressed, scroll_dx, scroll_dy, window_title, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID.String(), s.userID, string(ev.Kind), p.X, p.Y, p.Button, p.Pressed, p.DX, p.DY, f[0], model.FormatTimestamp(ev.Timestamp),
	)
	return err
}

// InsertClipboard 写入剪贴板内容及其预览
func (s *Store) InsertClipboard(ev model.Event) error {
	if err := checkKind(ev, model.KindClipboard); err != nil {
		return err
	}
	text := ev.Clipboard.Text
	if cut := truncate(text, s.maxText); len(cut) != len(text) {
		s.log.Warn("✂️ Clipboard content truncated before storage",
			zap.Int("bytes", len(text)), zap.Int("limit", s.maxText))
		text = cut
	}
	f, err := s.encrypt(text, preview(text), model.Deref(ev.Context.Title, ""))
	if err != nil {
		return err
	}

	_, err = s.exec("clipboard_events", `
		INSERT INTO clipboard_events (event_uid, user_id, content, content_preview, window_title, timestamp, is_sensitive)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID.String(), s.userID, f[0], f[1], f[2], model.FormatTimestamp(ev.Timestamp), false,
	)
	return err
}

// InsertScreenCapture 写入截图元数据 (文件路径加密)
func (s *Store) InsertScreenCapture(ev model.Event) error {
	if err := checkKind(ev, model.KindScreenCapture); err != nil {
		return err
	}
	f, err := s.encrypt(ev.Capture.Path, model.Deref(ev.Context.Title, ""))
	if err != nil {
		return err
	}

	_, err = s.exec("screen_captures", `
		INSERT INTO screen_captures (event_uid, user_id, file_path, file_size, window_title, timestamp, trigger_type)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID.String(), s.userID, f[0], ev.Capture.Size, f[1], model.FormatTimestamp(ev.Timestamp), "scheduled",
	)
	return err
}

// InsertAppUsage 写入一个已结束的前台应用会话
func (s *Store) InsertAppUsage(ev model.Event) error {
	if err := checkKind(ev, model.KindAppFocusChange); err != nil {
		return err
	}
	f, err := s.encrypt(ev.Focus.Process, model.Deref(ev.Context.Title, ""))
	if err != nil {
		return err
	}

	_, err = s.exec("app_usage", `
		INSERT INTO app_usage (event_uid, user_id, application_name, window_title, session_start, session_end, duration_seconds)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID.String(), s.userID, f[0], f[1],
		model.FormatTimestamp(ev.Focus.Start), model.FormatTimestamp(ev.Focus.End), ev.Focus.Duration.Seconds(),
	)
	return err
}

// InsertAlert 写入告警，证据连同源事件一起加密保存
func (s *Store) InsertAlert(a model.Alert) error {
	if a.Type != model.AlertAnomaly && a.Type != model.AlertScript {
		return fmt.Errorf("%w: unknown alert type %q", model.ErrInvalidEvent, a.Type)
	}
	ctxData, err := s.encryptJSON(a)
	if err != nil {
		return err
	}
	f, err := s.encrypt(a.Message())
	if err != nil {
		return err
	}

	_, err = s.exec("alerts", `
		INSERT INTO alerts (event_uid, user_id, alert_type, severity, message, context_data, timestamp, is_resolved)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Source.ID.String(), s.userID, string(a.Type), string(a.Severity()), f[0], ctxData, model.FormatTimestamp(a.Timestamp), false,
	)
	return err
}

// ResolveAlert 只更新告警的处理信息
func (s *Store) ResolveAlert(id, resolvedBy int64) error {
	n, err := s.exec("alerts", `
		UPDATE alerts SET is_resolved = 1, resolved_by = ?, resolved_at = ?
		WHERE id = ? AND is_resolved = 0`,
		resolvedBy, model.FormatTimestamp(s.now()), id,
	)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAlertNotFound
	}
	return nil
}
