package producer

import (
	"time"

	"github.com/Hara602/activitySentry/internal/capability"
	"github.com/Hara602/activitySentry/internal/model"
	"github.com/atotto/clipboard"
	"go.uber.org/zap"
)

const DefaultClipboardInterval = time.Second

// ClipboardReader 读取当前剪贴板文本
type ClipboardReader interface {
	ReadText() (string, error)
}

// SystemClipboard 系统剪贴板 (Linux 下依赖 xclip/xsel 或 wl-paste)
type SystemClipboard struct{}

func (SystemClipboard) ReadText() (string, error) {
	return clipboard.ReadAll()
}

type ClipboardReaderFunc func() (string, error)

func (f ClipboardReaderFunc) ReadText() (string, error) { return f() }

// Clipboard 轮询剪贴板，只在内容变化时产生事件
type Clipboard struct {
	base
	reader   ClipboardReader
	interval time.Duration

	last string
	seen bool
}

func NewClipboard(reader ClipboardReader, window capability.WindowSource, interval time.Duration, opts ...Option) *Clipboard {
	if reader == nil {
		reader = SystemClipboard{}
	}
	if interval <= 0 {
		interval = DefaultClipboardInterval
	}
	c := &Clipboard{reader: reader, interval: interval}
	c.init("clipboard", window, opts)
	return c
}

func (c *Clipboard) Start() {
	c.poll(c.interval, c.Poll)
}

// Poll 读取一次剪贴板。第一次读取总会产生事件
func (c *Clipboard) Poll() {
	text, err := c.reader.ReadText()
	if err != nil {
		c.log.Debug("Clipboard read failed", zap.Error(err))
		return
	}
	if c.seen && text == c.last {
		return
	}
	c.last, c.seen = text, true
	c.deliver(model.NewClipboardChange(c.timestamp(), c.window.ActiveWindow(), text))
}
