// Package producer 后台事件采集器。
//
// 每个采集器一个 goroutine，事件在该 goroutine 内同步交给回调；
// 回调返回错误或 panic 都只记录日志和计数，不会让采集器停下。
package producer

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Hara602/activitySentry/internal/capability"
	"github.com/Hara602/activitySentry/internal/metrics"
	"github.com/Hara602/activitySentry/internal/model"
	"github.com/Hara602/activitySentry/internal/sysutil"
	"go.uber.org/zap"
)

// Callback 事件消费者
type Callback func(model.Event) error

type Producer interface {
	Name() string
	// Start 启动后台 goroutine 并立即返回，重复调用的行为未定义
	Start()
	// Stop 设置停止标志，下一个 tick 生效，正在处理的事件会处理完
	Stop()
	SetCallback(cb Callback)
}

type Option func(*base)

func WithLogger(l *zap.Logger) Option {
	return func(b *base) { b.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *base) { b.metrics = m }
}

// WithAuditLog 在内存中保留最近 n 个事件，0 表示关闭
func WithAuditLog(n int) Option {
	return func(b *base) { b.auditCap = n }
}

func WithClock(now func() time.Time) Option {
	return func(b *base) { b.now = now }
}

type base struct {
	name    string
	window  capability.WindowSource
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	stopped atomic.Bool

	mu       sync.Mutex
	cb       Callback
	audit    []model.Event
	auditCap int
}

func (b *base) init(name string, window capability.WindowSource, opts []Option) {
	b.name, b.window, b.now = name, window, time.Now
	for _, opt := range opts {
		opt(b)
	}
	if b.window == nil {
		b.window = capability.Static{}
	}
	b.log = sysutil.OrNop(b.log).With(zap.String("producer", name))
}

func (b *base) Name() string { return b.name }

func (b *base) SetCallback(cb Callback) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cb = cb
}

// Log 审计日志的副本
func (b *base) Log() []model.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.Event(nil), b.audit...)
}

func (b *base) timestamp() time.Time {
	return b.now().UTC()
}

func (b *base) record(ev model.Event) Callback {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.auditCap > 0 {
		if len(b.audit) >= b.auditCap {
			b.audit = append(b.audit[:0], b.audit[len(b.audit)-b.auditCap+1:]...)
		}
		b.audit = append(b.audit, ev)
	}
	return b.cb
}

// deliver 同步调用回调，吞掉回调的错误和 panic
func (b *base) deliver(ev model.Event) {
	cb := b.record(ev)
	if cb == nil {
		b.log.Debug("No consumer registered, event dropped", zap.String("kind", string(ev.Kind)))
		return
	}

	defer func() {
		if r := recover(); r != nil {
			b.log.Error("💥 Event callback panicked",
				zap.String("kind", string(ev.Kind)),
				zap.Error(fmt.Errorf("panic: %v", r)))
			b.metrics.IncrementCallbackFailures(b.name)
		}
	}()
	if err := cb(ev); err != nil {
		b.log.Warn("Event callback failed",
			zap.String("kind", string(ev.Kind)),
			zap.String("event_id", ev.ID.String()),
			zap.Error(err))
		b.metrics.IncrementCallbackFailures(b.name)
	}
}

// poll 每个 interval 执行一次 tick，首个 tick 立即执行
func (b *base) poll(interval time.Duration, tick func()) {
	b.stopped.Store(false)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			if b.stopped.Load() {
				b.log.Info("⏹️ Producer stopped")
				return
			}
			tick()
			<-ticker.C
		}
	}()
}

func (b *base) Stop() {
	b.stopped.Store(true)
}
