// Package pipeline 把采集器的事件分发给检测器和存储层。
//
// 检测器只处理按键事件，而按键事件只来自按键采集器的 goroutine，
// 所以检测器的内部状态不需要加锁。
package pipeline

import (
	"errors"
	"fmt"

	"github.com/Hara602/activitySentry/internal/metrics"
	"github.com/Hara602/activitySentry/internal/model"
	"github.com/Hara602/activitySentry/internal/sysutil"
	"go.uber.org/zap"
)

// Sink 持久化接口，由 store.Store 实现
type Sink interface {
	InsertKeystroke(ev model.Event) error
	InsertPointer(ev model.Event) error
	InsertClipboard(ev model.Event) error
	InsertScreenCapture(ev model.Event) error
	InsertAppUsage(ev model.Event) error
	InsertAlert(a model.Alert) error
}

// Detector 对单个事件给出判定，无告警时返回 nil
type Detector interface {
	Process(ev model.Event) *model.Alert
}

type Pipeline struct {
	sink      Sink
	detectors []Detector
	log       *zap.Logger
	metrics   *metrics.Metrics
}

type Option func(*Pipeline)

func WithDetectors(ds ...Detector) Option {
	return func(p *Pipeline) { p.detectors = append(p.detectors, ds...) }
}

func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

func New(sink Sink, opts ...Option) *Pipeline {
	p := &Pipeline{sink: sink}
	for _, opt := range opts {
		opt(p)
	}
	p.log = sysutil.OrNop(p.log)
	return p
}

// HandleEvent 写入事件；按键事件再交给检测器。
// 写入失败的记录被丢弃并计数，错误返回给采集器记录日志
func (p *Pipeline) HandleEvent(ev model.Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	p.metrics.IncrementEvents(string(ev.Kind))

	var errs []error
	table, write := p.route(ev)
	if write == nil {
		return fmt.Errorf("%w: no table for %s", model.ErrInvalidEvent, ev.Kind)
	}
	if err := write(ev); err != nil {
		p.metrics.IncrementStoreWriteErrors(table)
		errs = append(errs, fmt.Errorf("drop %s event %s: %w", ev.Kind, ev.ID, err))
	}

	if ev.Kind == model.KindKeystroke {
		for _, d := range p.detectors {
			if a := d.Process(ev); a != nil {
				if err := p.HandleAlert(*a); err != nil {
					errs = append(errs, err)
				}
			}
		}
	}
	return errors.Join(errs...)
}

// HandleAlert 记录并保存告警
func (p *Pipeline) HandleAlert(a model.Alert) error {
	p.metrics.IncrementAlerts(string(a.Type))
	p.log.Warn("🚨 ALERT: "+a.Message(),
		zap.String("type", string(a.Type)),
		zap.String("severity", string(a.Severity())),
		zap.String("event_id", a.Source.ID.String()),
		zap.String("window", model.Deref(a.Source.Context.Title, "unknown")),
		zap.String("process", model.Deref(a.Source.Context.Process, "unknown")))

	if err := p.sink.InsertAlert(a); err != nil {
		p.metrics.IncrementStoreWriteErrors("alerts")
		return fmt.Errorf("drop %s alert: %w", a.Type, err)
	}
	return nil
}

func (p *Pipeline) route(ev model.Event) (string, func(model.Event) error) {
	switch ev.Kind {
	case model.KindKeystroke:
		return "keystrokes", p.sink.InsertKeystroke
	case model.KindPointerMove, model.KindPointerClick, model.KindPointerScroll:
		return "mouse_events", p.sink.InsertPointer
	case model.KindClipboard:
		return "clipboard_events", p.sink.InsertClipboard
	case model.KindScreenCapture:
		return "screen_captures", p.sink.InsertScreenCapture
	case model.KindAppFocusChange:
		return "app_usage", p.sink.InsertAppUsage
	}
	return "", nil
}
