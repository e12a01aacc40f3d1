package store

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Hara602/activitySentry/internal/fieldcrypt"
	"github.com/Hara602/activitySentry/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassword = "correct horse battery staple"

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestStore(t *testing.T, opts ...Option) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "activity.db")
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	s, err := Open(path, fieldcrypt.NewCodec(testPassword), opts...)
	require.NoError(t, err)
	return s, path
}

func ctxOf(title, process string) model.WindowContext {
	return model.WindowContext{Title: model.Known(title), Process: model.Known(process), User: model.Known("alice")}
}

// rawColumn 直接读数据库中的原始列值
func rawColumn(t *testing.T, path, query string) string {
	t.Helper()
	db, err := SQLiteFactory(path)()
	require.NoError(t, err)
	defer db.Close()
	var v sql.NullString
	require.NoError(t, db.QueryRow(query).Scan(&v))
	return v.String
}

func TestKeystrokeRoundTripIsEncrypted(t *testing.T) {
	s, path := newTestStore(t)

	ev := model.NewKeystroke(fixedNow, ctxOf("Terminal", "bash"), "s", 31)
	require.NoError(t, s.InsertKeystroke(ev))

	raw := rawColumn(t, path, "SELECT key_pressed FROM keystrokes")
	assert.NotEqual(t, "s", raw)
	plain, err := fieldcrypt.Decrypt(raw, testPassword)
	require.NoError(t, err)
	assert.Equal(t, "s", plain)

	act, err := s.UserActivity(DefaultUserID, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, act.KeystrokesCount)
	require.Len(t, act.RecentActivity, 1)
	got := act.RecentActivity[0]
	assert.Equal(t, "s", got.Key)
	assert.Equal(t, 31, got.KeyCode)
	assert.Equal(t, "Terminal", got.WindowTitle)
	assert.Equal(t, "bash", got.Application)
	assert.True(t, got.Timestamp.Equal(fixedNow))
}

func TestInsertRejectsWrongKind(t *testing.T) {
	s, _ := newTestStore(t)

	ev := model.NewClipboardChange(fixedNow, model.WindowContext{}, "x")
	err := s.InsertKeystroke(ev)
	assert.ErrorIs(t, err, model.ErrInvalidEvent)
}

func TestConcurrentWritersKeepEveryRow(t *testing.T) {
	s, _ := newTestStore(t)

	const writers, perWriter = 8, 25
	var wg sync.WaitGroup
	errs := make(chan error, writers*perWriter)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				key := fmt.Sprintf("w%d-%d", w, i)
				ev := model.NewKeystroke(fixedNow.Add(time.Duration(i)*time.Millisecond), ctxOf("win", "proc"), key, i)
				errs <- s.InsertKeystroke(ev)
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	act, err := s.UserActivity(DefaultUserID, writers*perWriter)
	require.NoError(t, err)
	assert.EqualValues(t, writers*perWriter, act.KeystrokesCount)
	require.Len(t, act.RecentActivity, writers*perWriter)

	seen := map[string]bool{}
	for _, r := range act.RecentActivity {
		assert.True(t, strings.HasPrefix(r.Key, "w"), "corrupted key %q", r.Key)
		assert.Equal(t, "win", r.WindowTitle)
		seen[r.Key] = true
	}
	assert.Len(t, seen, writers*perWriter)
}

func TestReadsOnMissingTablesReturnDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	s := New(SQLiteFactory(path), fieldcrypt.NewCodec(testPassword))

	stats, err := s.DashboardStats()
	require.NoError(t, err)
	assert.Equal(t, &DashboardStats{}, stats)

	act, err := s.UserActivity(DefaultUserID, 5)
	require.NoError(t, err)
	assert.Zero(t, act.KeystrokesCount)
	assert.Empty(t, act.RecentActivity)

	alerts, err := s.RecentAlerts(5)
	require.NoError(t, err)
	assert.Empty(t, alerts)

	clips, err := s.ListClipboard(DefaultUserID, 5)
	require.NoError(t, err)
	assert.Empty(t, clips)

	usage, err := s.AppUsageSummary(DefaultUserID)
	require.NoError(t, err)
	assert.Empty(t, usage)

	blocked, _, err := s.IsDeviceBlocked("1234", "abcd", "")
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestDashboardStats(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := ctxOf("Editor", "code")

	require.NoError(t, s.InsertKeystroke(model.NewKeystroke(fixedNow, ctx, "a", 30)))
	require.NoError(t, s.InsertKeystroke(model.NewKeystroke(fixedNow.Add(-48*time.Hour), ctx, "b", 48)))
	require.NoError(t, s.InsertPointer(model.NewPointerMove(fixedNow, ctx, 10, 20)))
	require.NoError(t, s.InsertPointer(model.NewPointerClick(fixedNow, ctx, 10, 20, "left", true)))
	require.NoError(t, s.InsertClipboard(model.NewClipboardChange(fixedNow, ctx, "copied")))
	require.NoError(t, s.InsertScreenCapture(model.NewScreenCapture(fixedNow, ctx, "/tmp/x.png", 1024)))

	src := model.NewKeystroke(fixedNow, ctx, "sudo", 0)
	require.NoError(t, s.InsertAlert(model.Alert{
		Timestamp: fixedNow, Type: model.AlertScript, Source: src,
		Signature: &model.SignatureEvidence{Matches: []string{"sudo"}},
	}))
	require.NoError(t, s.InsertAlert(model.Alert{
		Timestamp: fixedNow, Type: model.AlertAnomaly, Source: src,
		Timing: &model.TimingEvidence{AvgInterval: 0.01, IsFast: true, IsUniform: true},
	}))

	stats, err := s.DashboardStats()
	require.NoError(t, err)
	assert.Equal(t, &DashboardStats{
		TodayKeystrokes: 1,
		ActiveAlerts:    2,
		TotalAlerts:     2,
		ClipboardEvents: 1,
		PointerEvents:   2,
		ScreenCaptures:  1,
	}, stats)
}

func TestAlertsResolve(t *testing.T) {
	s, _ := newTestStore(t)

	src := model.NewKeystroke(fixedNow, model.WindowContext{}, "rm -rf", 0)
	require.NoError(t, s.InsertAlert(model.Alert{
		Timestamp: fixedNow, Type: model.AlertScript, Source: src,
		Signature: &model.SignatureEvidence{Matches: []string{"rm -rf"}},
	}))

	alerts, err := s.RecentAlerts(10)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	a := alerts[0]
	assert.Equal(t, model.AlertScript, a.Type)
	assert.Equal(t, model.SeverityHigh, a.Severity)
	assert.Equal(t, src.ID.String(), a.EventUID)
	assert.Contains(t, a.Message, "rm -rf")
	assert.False(t, a.IsResolved)
	assert.Nil(t, a.ResolvedBy)

	require.NoError(t, s.ResolveAlert(a.ID, 7))
	assert.ErrorIs(t, s.ResolveAlert(a.ID, 7), ErrAlertNotFound)
	assert.ErrorIs(t, s.ResolveAlert(999, 7), ErrAlertNotFound)

	alerts, err = s.RecentAlerts(10)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.True(t, alerts[0].IsResolved)
	require.NotNil(t, alerts[0].ResolvedBy)
	assert.EqualValues(t, 7, *alerts[0].ResolvedBy)
	require.NotNil(t, alerts[0].ResolvedAt)
	assert.True(t, alerts[0].ResolvedAt.Equal(fixedNow))

	stats, err := s.DashboardStats()
	require.NoError(t, err)
	assert.Zero(t, stats.ActiveAlerts)
	assert.EqualValues(t, 1, stats.TotalAlerts)
}

func TestInsertAlertRejectsUnknownType(t *testing.T) {
	s, _ := newTestStore(t)
	err := s.InsertAlert(model.Alert{Type: "other", Source: model.NewKeystroke(fixedNow, model.WindowContext{}, "a", 0)})
	assert.ErrorIs(t, err, model.ErrInvalidEvent)
}

func TestClipboardTruncationAndPreview(t *testing.T) {
	s, _ := newTestStore(t, WithMaxTextBytes(400))

	long := strings.Repeat("é", 300) // 600 字节
	require.NoError(t, s.InsertClipboard(model.NewClipboardChange(fixedNow, ctxOf("Mail", "thunderbird"), long)))

	clips, err := s.ListClipboard(DefaultUserID, 10)
	require.NoError(t, err)
	require.Len(t, clips, 1)
	assert.Equal(t, strings.Repeat("é", 200), clips[0].Content)
	assert.Equal(t, strings.Repeat("é", 200), clips[0].Preview)
	assert.Equal(t, "Mail", clips[0].WindowTitle)
}

func TestClipboardPreviewIsBounded(t *testing.T) {
	s, _ := newTestStore(t)

	long := strings.Repeat("x", 1000)
	require.NoError(t, s.InsertClipboard(model.NewClipboardChange(fixedNow, model.WindowContext{}, long)))

	clips, err := s.ListClipboard(DefaultUserID, 10)
	require.NoError(t, err)
	require.Len(t, clips, 1)
	assert.Equal(t, long, clips[0].Content)
	assert.Len(t, clips[0].Preview, previewRunes)
}

func TestAppUsageSummary(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := ctxOf("", "")

	insert := func(app string, d time.Duration) {
		require.NoError(t, s.InsertAppUsage(model.NewAppFocusChange(ctx, app, fixedNow, fixedNow.Add(d))))
	}
	insert("firefox", 30*time.Second)
	insert("bash", 90*time.Second)
	insert("firefox", 90*time.Second)

	usage, err := s.AppUsageSummary(DefaultUserID)
	require.NoError(t, err)
	assert.Equal(t, []AppUsage{
		{Application: "firefox", Sessions: 2, Total: 120 * time.Second},
		{Application: "bash", Sessions: 1, Total: 90 * time.Second},
	}, usage)
}

func TestUserIDScopesReads(t *testing.T) {
	s, _ := newTestStore(t, WithUserID(42))
	require.NoError(t, s.InsertKeystroke(model.NewKeystroke(fixedNow, model.WindowContext{}, "k", 37)))

	act, err := s.UserActivity(DefaultUserID, 10)
	require.NoError(t, err)
	assert.Zero(t, act.KeystrokesCount)

	act, err = s.UserActivity(42, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, act.KeystrokesCount)
}

func TestDeviceBlocklist(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.AddBlockRule("1a86", "7523", "", "Rubber Ducky"))
	// 重复添加不报错
	require.NoError(t, s.AddBlockRule("1a86", "7523", "", "Rubber Ducky"))
	require.NoError(t, s.AddBlockRule("dead", "beef", "SN1", ""))

	blocked, reason, err := s.IsDeviceBlocked("1a86", "7523", "")
	require.NoError(t, err)
	assert.True(t, blocked)
	assert.Equal(t, "Rubber Ducky", reason)

	blocked, reason, err = s.IsDeviceBlocked("dead", "beef", "SN1")
	require.NoError(t, err)
	assert.True(t, blocked)
	assert.Equal(t, "Device is in blacklist", reason)

	blocked, _, err = s.IsDeviceBlocked("046d", "c52b", "")
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestTruncateKeepsRuneBoundary(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 0))
	assert.Equal(t, "ab", truncate("abc", 2))
	assert.Equal(t, "a", truncate("aé", 2))
	assert.Equal(t, "aé", truncate("aé", 3))
}
