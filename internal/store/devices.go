package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// AddBlockRule 添加设备黑名单
func (s *Store) AddBlockRule(vid, pid, serial, reason string) error {
	_, err := s.exec("device_blocklist",
		"INSERT OR IGNORE INTO device_blocklist(vid, pid, serial, reason) VALUES (?, ?, ?, ?)",
		vid, pid, serial, reason,
	)
	return err
}

// IsDeviceBlocked 查黑名单，命中时返回原因
func (s *Store) IsDeviceBlocked(vid, pid, serial string) (bool, string, error) {
	var reason sql.NullString
	err := s.read(func(db *sql.DB) error {
		return db.QueryRow(
			"SELECT reason FROM device_blocklist WHERE vid = ? AND pid = ? AND serial = ?",
			vid, pid, serial,
		).Scan(&reason)
	})
	if errors.Is(err, sql.ErrNoRows) || isMissingTable(err) {
		// 默认放行
		return false, "", nil
	}
	if err != nil {
		return false, "", fmt.Errorf("query blocklist: %w", err)
	}
	if !reason.Valid || reason.String == "" {
		return true, "Device is in blacklist", nil
	}
	return true, reason.String, nil
}
