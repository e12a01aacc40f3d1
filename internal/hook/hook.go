// Package hook 全局输入通知源。
//
// Linux 下直接读取 /dev/input/event* (evdev)，需要 root 或 input 组权限；
// 其它平台返回 ErrNotAvailable，对应的采集器不会启动。
package hook

import (
	"errors"

	"go.uber.org/zap"
)

var (
	ErrNotAvailable = errors.New("input hook not available on this platform")
	ErrClosed       = errors.New("input source closed")
)

// KeyHandler 每次按键调用一次，symbol 为可打印字符或 "Key.<name>"
type KeyHandler func(symbol string, code int)

// PointerHandler 指针通知，坐标为累计后的屏幕位置
type PointerHandler interface {
	OnMove(x, y int)
	OnClick(x, y int, button string, pressed bool)
	OnScroll(x, y, dx, dy int)
}

// KeySource 阻塞直到 Close，handler 只在一个 goroutine 中被调用
type KeySource interface {
	Listen(h KeyHandler) error
	Close() error
}

type PointerSource interface {
	Listen(h PointerHandler) error
	Close() error
}

// Attacher 热插拔时追加设备节点，Detach 停止读取某个节点 (未附加时为空操作)
type Attacher interface {
	Attach(devPath string) error
	Detach(devPath string) error
}

type KeyDevice interface {
	KeySource
	Attacher
}

type PointerDevice interface {
	PointerSource
	Attacher
}

type Options struct {
	Log *zap.Logger
	// 指针坐标上限，0 表示不限制
	ScreenWidth  int
	ScreenHeight int
}

// CapturesPointer 键鼠复合设备只作为键盘读取，同一个节点不会被两个源同时读
func CapturesPointer(keyboard, pointer bool) bool {
	return pointer && !keyboard
}
