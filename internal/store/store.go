// Package store 加密持久化层。
//
// 所有写操作由同一把互斥锁串行化：每次写入都是 打开连接 → 单条 INSERT → 提交 → 关闭，
// 不存在跨事件的长事务。读操作也在同一把锁下执行以获得一致快照。
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/Hara602/activitySentry/internal/fieldcrypt"
	"github.com/Hara602/activitySentry/internal/sysutil"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const (
	DefaultUserID = 1
	previewRunes  = 255
)

var ErrAlertNotFound = errors.New("alert not found or already resolved")

// ConnFactory 每次调用返回一个新的数据库连接，调用方负责关闭
type ConnFactory func() (*sql.DB, error)

// SQLiteFactory 打开 path 处的 sqlite 数据库
func SQLiteFactory(path string) ConnFactory {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	return func() (*sql.DB, error) {
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, err
		}
		db.SetMaxOpenConns(1)
		return db, nil
	}
}

// Store 唯一的写入者，持有一把锁和一个连接工厂
type Store struct {
	mu      sync.Mutex
	connect ConnFactory
	codec   *fieldcrypt.Codec

	userID  int64
	maxText int
	log     *zap.Logger
	now     func() time.Time
}

type Option func(*Store)

// WithUserID 记录归属的用户 ID (外键)
func WithUserID(id int64) Option {
	return func(s *Store) { s.userID = id }
}

// WithMaxTextBytes 剪贴板内容加密前的长度上限，0 表示不限制
func WithMaxTextBytes(n int) Option {
	return func(s *Store) { s.maxText = n }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(connect ConnFactory, codec *fieldcrypt.Codec, opts ...Option) *Store {
	s := &Store{
		connect: connect,
		codec:   codec,
		userID:  DefaultUserID,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = sysutil.OrNop(s.log)
	return s
}

// Open 打开 (必要时创建) path 处的数据库并建表
func Open(path string, codec *fieldcrypt.Codec, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	s := New(SQLiteFactory(path), codec, opts...)
	if err := s.EnsureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

// UserID 写入记录使用的用户 ID
func (s *Store) UserID() int64 { return s.userID }

// exec 在锁内执行一条写语句并提交，返回影响的行数
func (s *Store) exec(table, query string, args ...any) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.connect()
	if err != nil {
		return 0, fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("write %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit %s: %w", table, err)
	}
	return n, nil
}

// read 在锁内打开连接执行只读查询
func (s *Store) read(fn func(db *sql.DB) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.connect()
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	return fn(db)
}

// encrypt 按顺序加密多个自由文本字段
func (s *Store) encrypt(values ...string) ([]string, error) {
	out := make([]string, len(values))
	for i, v := range values {
		enc, err := s.codec.EncryptField(v)
		if err != nil {
			return nil, fmt.Errorf("encrypt field: %w", err)
		}
		out[i] = enc
	}
	return out, nil
}

func (s *Store) decrypt(v sql.NullString) (string, error) {
	if !v.Valid {
		return "", nil
	}
	return s.codec.DecryptField(v.String)
}

func (s *Store) encryptJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode context: %w", err)
	}
	return s.codec.EncryptField(string(b))
}

// truncate 按字节上限截断，保证不截断在 UTF-8 字符中间
func truncate(text string, max int) string {
	if max <= 0 || len(text) <= max {
		return text
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

func preview(text string) string {
	if utf8.RuneCountInString(text) <= previewRunes {
		return text
	}
	return string([]rune(text)[:previewRunes])
}

// isMissingTable 表还没建好时读接口返回默认值
func isMissingTable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}
