package producer

import (
	"time"

	"github.com/Hara602/activitySentry/internal/capability"
	"github.com/Hara602/activitySentry/internal/model"
)

const DefaultFocusInterval = 5 * time.Second

// AppFocus 跟踪前台应用，应用切换时结束上一个会话并上报时长。
// Stop 时尚未结束的会话不会上报
type AppFocus struct {
	base
	interval time.Duration

	current string
	ctx     model.WindowContext
	start   time.Time
	seen    bool
}

func NewAppFocus(window capability.WindowSource, interval time.Duration, opts ...Option) *AppFocus {
	if interval <= 0 {
		interval = DefaultFocusInterval
	}
	a := &AppFocus{interval: interval}
	a.init("app-focus", window, opts)
	return a
}

func (a *AppFocus) Start() {
	a.poll(a.interval, func() { a.Poll(a.timestamp()) })
}

// Poll 观察一次前台应用。第一次观察只开启会话；进程未知的会话结束时不上报
func (a *AppFocus) Poll(now time.Time) {
	ctx := a.window.ActiveWindow()
	app := model.Deref(ctx.Process, "")
	if a.seen && app == a.current {
		return
	}
	if a.seen && a.current != "" {
		a.deliver(model.NewAppFocusChange(a.ctx, a.current, a.start, now))
	}
	a.current, a.ctx, a.start, a.seen = app, ctx, now, true
}
