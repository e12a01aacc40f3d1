package producer

import (
	"github.com/Hara602/activitySentry/internal/capability"
	"github.com/Hara602/activitySentry/internal/hook"
	"github.com/Hara602/activitySentry/internal/model"
	"go.uber.org/zap"
)

// Pointer 移动、点击、滚轮
type Pointer struct {
	base
	source hook.PointerSource
}

func NewPointer(source hook.PointerSource, window capability.WindowSource, opts ...Option) *Pointer {
	p := &Pointer{source: source}
	p.init("pointer", window, opts)
	return p
}

func (p *Pointer) Start() {
	p.stopped.Store(false)
	if p.source == nil {
		p.log.Warn("No pointer source available, pointer capture disabled")
		return
	}
	go func() {
		if err := p.source.Listen(pointerHooks{p}); err != nil {
			p.log.Error("Pointer source stopped", zap.Error(err))
		}
	}()
}

func (p *Pointer) Stop() {
	p.stopped.Store(true)
	if p.source != nil {
		_ = p.source.Close()
	}
}

func (p *Pointer) HandleMove(x, y int) {
	if p.stopped.Load() {
		return
	}
	p.deliver(model.NewPointerMove(p.timestamp(), p.window.ActiveWindow(), x, y))
}

func (p *Pointer) HandleClick(x, y int, button string, pressed bool) {
	if p.stopped.Load() {
		return
	}
	p.deliver(model.NewPointerClick(p.timestamp(), p.window.ActiveWindow(), x, y, button, pressed))
}

func (p *Pointer) HandleScroll(x, y, dx, dy int) {
	if p.stopped.Load() {
		return
	}
	p.deliver(model.NewPointerScroll(p.timestamp(), p.window.ActiveWindow(), x, y, dx, dy))
}

// pointerHooks 适配 hook.PointerHandler
type pointerHooks struct{ p *Pointer }

func (h pointerHooks) OnMove(x, y int) { h.p.HandleMove(x, y) }

func (h pointerHooks) OnClick(x, y int, button string, pressed bool) {
	h.p.HandleClick(x, y, button, pressed)
}

func (h pointerHooks) OnScroll(x, y, dx, dy int) { h.p.HandleScroll(x, y, dx, dy) }
