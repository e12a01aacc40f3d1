package store

import "fmt"

// 自由文本列保存的都是 fieldcrypt 的密文，数值/布尔/时间戳列为明文
const schema = `
CREATE TABLE IF NOT EXISTS keystrokes (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	event_uid        TEXT NOT NULL,
	user_id          INTEGER NOT NULL,
	key_pressed      TEXT,
	key_code         INTEGER,
	window_title     TEXT,
	application_name TEXT,
	os_user          TEXT,
	timestamp        TEXT NOT NULL,
	is_sensitive     BOOLEAN DEFAULT FALSE,
	context_data     TEXT
);
CREATE INDEX IF NOT EXISTS idx_keystrokes_user_ts ON keystrokes(user_id, timestamp);

CREATE TABLE IF NOT EXISTS mouse_events (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	event_uid    TEXT NOT NULL,
	user_id      INTEGER NOT NULL,
	event_type   TEXT,
	x_position   INTEGER,
	y_position   INTEGER,
	button       TEXT,
	pressed      BOOLEAN,
	scroll_dx    INTEGER,
	scroll_dy    INTEGER,
	window_title TEXT,
	timestamp    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS clipboard_events (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	event_uid       TEXT NOT NULL,
	user_id         INTEGER NOT NULL,
	content         TEXT,
	content_preview TEXT,
	window_title    TEXT,
	timestamp       TEXT NOT NULL,
	is_sensitive    BOOLEAN DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS screen_captures (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	event_uid    TEXT NOT NULL,
	user_id      INTEGER NOT NULL,
	file_path    TEXT,
	file_size    INTEGER,
	window_title TEXT,
	timestamp    TEXT NOT NULL,
	trigger_type TEXT
);

CREATE TABLE IF NOT EXISTS app_usage (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	event_uid        TEXT NOT NULL,
	user_id          INTEGER NOT NULL,
	application_name TEXT,
	window_title     TEXT,
	session_start    TEXT NOT NULL,
	session_end      TEXT NOT NULL,
	duration_seconds REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS alerts (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	event_uid    TEXT NOT NULL,
	user_id      INTEGER NOT NULL,
	alert_type   TEXT,
	severity     TEXT,
	message      TEXT,
	context_data TEXT,
	timestamp    TEXT NOT NULL,
	is_resolved  BOOLEAN DEFAULT FALSE,
	resolved_by  INTEGER,
	resolved_at  TEXT
);
CREATE INDEX IF NOT EXISTS idx_alerts_resolved ON alerts(is_resolved);

-- 联合主键 (vid, pid, serial) 防止重复
CREATE TABLE IF NOT EXISTS device_blocklist (
	vid        TEXT,
	pid        TEXT,
	serial     TEXT,
	reason     TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (vid, pid, serial)
);
`

// EnsureSchema 建表 (幂等)
func (s *Store) EnsureSchema() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.connect()
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}
