package producer

import (
	"errors"
	"image"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/Hara602/activitySentry/internal/capability"
	"github.com/Hara602/activitySentry/internal/hook"
	"github.com/Hara602/activitySentry/internal/metrics"
	"github.com/Hara602/activitySentry/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

// collector 线程安全地收集事件
type collector struct {
	mu     sync.Mutex
	events []model.Event
}

func (c *collector) callback(ev model.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func (c *collector) snapshot() []model.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Event(nil), c.events...)
}

func fixedClock() Option {
	return WithClock(func() time.Time { return t0 })
}

func TestClipboardEdgeTriggered(t *testing.T) {
	reads := []string{"x", "x", "y", "x"}
	i := 0
	reader := ClipboardReaderFunc(func() (string, error) {
		v := reads[i]
		i++
		return v, nil
	})

	var got collector
	c := NewClipboard(reader, capability.Static{Title: "Editor"}, time.Second, fixedClock())
	c.SetCallback(got.callback)
	for range reads {
		c.Poll()
	}

	events := got.snapshot()
	require.Len(t, events, 3)
	var texts []string
	for _, ev := range events {
		require.NoError(t, ev.Validate())
		assert.Equal(t, model.KindClipboard, ev.Kind)
		assert.Equal(t, "Editor", model.Deref(ev.Context.Title, ""))
		texts = append(texts, ev.Clipboard.Text)
	}
	assert.Equal(t, []string{"x", "y", "x"}, texts)
}

func TestClipboardFirstReadAlwaysEmits(t *testing.T) {
	var got collector
	c := NewClipboard(ClipboardReaderFunc(func() (string, error) { return "", nil }), nil, 0)
	c.SetCallback(got.callback)
	c.Poll()
	c.Poll()
	assert.Len(t, got.snapshot(), 1)
}

func TestClipboardReadErrorIsSwallowed(t *testing.T) {
	fail := true
	reader := ClipboardReaderFunc(func() (string, error) {
		if fail {
			return "", errors.New("no X display")
		}
		return "ok", nil
	})

	var got collector
	c := NewClipboard(reader, nil, 0)
	c.SetCallback(got.callback)
	c.Poll()
	assert.Empty(t, got.snapshot())

	fail = false
	c.Poll()
	assert.Len(t, got.snapshot(), 1)
}

func TestAppFocusSessions(t *testing.T) {
	apps := []string{"A", "A", "B", "B", "C"}
	i := 0
	window := capability.Func(func() model.WindowContext {
		return model.WindowContext{Process: model.Known(apps[i])}
	})

	var got collector
	a := NewAppFocus(window, time.Second)
	a.SetCallback(got.callback)
	for i = range apps {
		a.Poll(t0.Add(time.Duration(i) * 5 * time.Second))
	}

	events := got.snapshot()
	require.Len(t, events, 2)
	assert.Equal(t, "A", events[0].Focus.Process)
	assert.Equal(t, 10*time.Second, events[0].Focus.Duration)
	assert.Equal(t, "B", events[1].Focus.Process)
	assert.Equal(t, 10*time.Second, events[1].Focus.Duration)
	for _, ev := range events {
		require.NoError(t, ev.Validate())
		assert.GreaterOrEqual(t, ev.Focus.Duration, time.Duration(0))
		assert.Equal(t, ev.Focus.End, ev.Timestamp)
	}

	// 最后一个会话 (C) 在 Stop 时不会上报
	a.Stop()
	assert.Len(t, got.snapshot(), 2)
}

func TestAppFocusUnknownProcessIsNotReported(t *testing.T) {
	apps := []string{"", "A", "", "B"}
	i := 0
	window := capability.Func(func() model.WindowContext {
		return model.WindowContext{Process: model.Known(apps[i])}
	})

	var got collector
	a := NewAppFocus(window, time.Second)
	a.SetCallback(got.callback)
	for i = range apps {
		a.Poll(t0.Add(time.Duration(i) * time.Second))
	}

	events := got.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, "A", events[0].Focus.Process)
	assert.Equal(t, time.Second, events[0].Focus.Duration)
}

func TestCallbackFailuresDoNotStopProducer(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)

	k := NewKeystroke(nil, capability.Static{}, WithMetrics(m), fixedClock())
	calls := 0
	k.SetCallback(func(ev model.Event) error {
		calls++
		switch calls {
		case 1:
			return errors.New("disk full")
		case 2:
			panic("boom")
		}
		return nil
	})

	assert.NotPanics(t, func() {
		k.HandleKey("a", 30)
		k.HandleKey("b", 48)
		k.HandleKey("c", 46)
	})
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CallbackFailuresTotal.WithLabelValues("keystroke")))
}

func TestNoCallbackDropsEvent(t *testing.T) {
	k := NewKeystroke(nil, nil, WithAuditLog(10))
	assert.NotPanics(t, func() { k.HandleKey("a", 30) })
	assert.Len(t, k.Log(), 1)
}

func TestAuditLogIsBounded(t *testing.T) {
	k := NewKeystroke(nil, nil, WithAuditLog(3))
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		k.HandleKey(s, 0)
	}
	log := k.Log()
	require.Len(t, log, 3)
	assert.Equal(t, "c", log[0].Key.Symbol)
	assert.Equal(t, "e", log[2].Key.Symbol)

	// 返回的是副本
	log[0].Key = nil
	assert.NotNil(t, k.Log()[0].Key)

	off := NewKeystroke(nil, nil)
	off.HandleKey("a", 30)
	assert.Empty(t, off.Log())
}

// fakeKeySource 在 Listen 中回放按键，然后阻塞到 Close
type fakeKeySource struct {
	keys   []string
	closed chan struct{}
	once   sync.Once
}

func (f *fakeKeySource) Listen(h hook.KeyHandler) error {
	for i, k := range f.keys {
		h(k, i)
	}
	<-f.closed
	return nil
}

func (f *fakeKeySource) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func TestKeystrokeFromSource(t *testing.T) {
	src := &fakeKeySource{keys: []string{"h", "i"}, closed: make(chan struct{})}
	var got collector
	k := NewKeystroke(src, capability.Static{Title: "Terminal", Process: "bash", User: "alice"}, fixedClock())
	k.SetCallback(got.callback)
	k.Start()

	assert.Eventually(t, func() bool { return len(got.snapshot()) == 2 }, time.Second, 10*time.Millisecond)
	k.Stop()

	events := got.snapshot()
	assert.Equal(t, "h", events[0].Key.Symbol)
	assert.Equal(t, "i", events[1].Key.Symbol)
	assert.Equal(t, "bash", model.Deref(events[0].Context.Process, ""))
	assert.Equal(t, t0, events[0].Timestamp)

	// 停止后的通知被忽略
	k.HandleKey("x", 45)
	assert.Len(t, got.snapshot(), 2)
}

func TestPointerHandlers(t *testing.T) {
	var got collector
	p := NewPointer(nil, nil, fixedClock())
	p.SetCallback(got.callback)

	hooks := pointerHooks{p}
	hooks.OnMove(1, 2)
	hooks.OnClick(1, 2, "Button.left", true)
	hooks.OnScroll(1, 2, 0, -1)

	events := got.snapshot()
	require.Len(t, events, 3)
	assert.Equal(t, model.KindPointerMove, events[0].Kind)
	assert.Equal(t, model.KindPointerClick, events[1].Kind)
	assert.Equal(t, "Button.left", events[1].Pointer.Button)
	assert.True(t, events[1].Pointer.Pressed)
	assert.Equal(t, model.KindPointerScroll, events[2].Kind)
	assert.Equal(t, -1, events[2].Pointer.DY)
}

func TestScreenCaptureOnce(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shots")
	grabber := GrabberFunc(func() (image.Image, error) {
		return image.NewRGBA(image.Rect(0, 0, 8, 8)), nil
	})

	var got collector
	s := NewScreen(grabber, capability.Static{Process: "fire fox/bin"}, dir, time.Minute, fixedClock())
	s.SetCallback(got.callback)
	require.NoError(t, s.CaptureOnce())

	events := got.snapshot()
	require.Len(t, events, 1)
	ev := events[0]
	require.NoError(t, ev.Validate())
	assert.Equal(t, filepath.Join(dir, "20260501_080000_fire_fox_bin.png"), ev.Capture.Path)

	info, err := os.Stat(ev.Capture.Path)
	require.NoError(t, err)
	assert.Equal(t, info.Size(), ev.Capture.Size)
}

func TestScreenCaptureUnknownProcess(t *testing.T) {
	dir := t.TempDir()
	grabber := GrabberFunc(func() (image.Image, error) {
		return image.NewGray(image.Rect(0, 0, 2, 2)), nil
	})

	var got collector
	s := NewScreen(grabber, nil, dir, 0)
	s.SetCallback(got.callback)
	require.NoError(t, s.CaptureOnce())

	require.Len(t, got.snapshot(), 1)
	assert.Regexp(t, regexp.MustCompile(`^\d{8}_\d{6}_unknown\.png$`), filepath.Base(got.snapshot()[0].Capture.Path))
}

func TestScreenCaptureGrabFailure(t *testing.T) {
	grabber := GrabberFunc(func() (image.Image, error) { return nil, ErrNoDisplay })

	var got collector
	s := NewScreen(grabber, nil, t.TempDir(), 0)
	s.SetCallback(got.callback)
	assert.ErrorIs(t, s.CaptureOnce(), ErrNoDisplay)
	assert.Empty(t, got.snapshot())
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "unknown", slug(""))
	assert.Equal(t, "unknown", slug("  "))
	assert.Equal(t, "code", slug("code"))
	assert.Equal(t, "chrome.exe", slug("chrome.exe"))
	assert.Equal(t, "a_b_c", slug("a/b c"))
	assert.Equal(t, "etc_passwd", slug("../etc/passwd"))
}

func TestPollingLoopStops(t *testing.T) {
	var got collector
	n := 0
	var mu sync.Mutex
	reader := ClipboardReaderFunc(func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return string(rune('a' + n%26)), nil
	})

	c := NewClipboard(reader, nil, 5*time.Millisecond)
	c.SetCallback(got.callback)
	c.Start()
	assert.Eventually(t, func() bool { return len(got.snapshot()) >= 3 }, time.Second, 5*time.Millisecond)
	c.Stop()

	time.Sleep(30 * time.Millisecond)
	settled := len(got.snapshot())
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, settled, len(got.snapshot()))
}
