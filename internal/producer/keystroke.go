package producer

import (
	"github.com/Hara602/activitySentry/internal/capability"
	"github.com/Hara602/activitySentry/internal/hook"
	"github.com/Hara602/activitySentry/internal/model"
	"go.uber.org/zap"
)

// Keystroke 每次按键产生一个事件，不做缓冲
type Keystroke struct {
	base
	source hook.KeySource
}

func NewKeystroke(source hook.KeySource, window capability.WindowSource, opts ...Option) *Keystroke {
	k := &Keystroke{source: source}
	k.init("keystroke", window, opts)
	return k
}

func (k *Keystroke) Start() {
	k.stopped.Store(false)
	if k.source == nil {
		k.log.Warn("No key source available, keystroke capture disabled")
		return
	}
	go func() {
		if err := k.source.Listen(k.HandleKey); err != nil {
			k.log.Error("Key source stopped", zap.Error(err))
		}
	}()
}

// Stop 关闭按键源，Listen 随之返回
func (k *Keystroke) Stop() {
	k.stopped.Store(true)
	if k.source != nil {
		_ = k.source.Close()
	}
}

// HandleKey 按键通知入口
func (k *Keystroke) HandleKey(symbol string, code int) {
	if k.stopped.Load() {
		return
	}
	ev := model.NewKeystroke(k.timestamp(), k.window.ActiveWindow(), symbol, code)
	k.deliver(ev)
}
