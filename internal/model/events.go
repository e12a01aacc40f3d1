package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind 事件类型
type Kind string

const (
	KindKeystroke      Kind = "keystroke"
	KindPointerMove    Kind = "pointer-move"
	KindPointerClick   Kind = "pointer-click"
	KindPointerScroll  Kind = "pointer-scroll"
	KindClipboard      Kind = "clipboard-change"
	KindAppFocusChange Kind = "app-focus-change"
	KindScreenCapture  Kind = "screen-capture"
)

var ErrInvalidEvent = errors.New("invalid event")

// WindowContext 观察时刻的前台窗口信息，三个字段都可能未知 (nil)
type WindowContext struct {
	Title   *string `json:"window,omitempty"`
	Process *string `json:"process,omitempty"`
	User    *string `json:"user,omitempty"`
}

// Known 空字符串视为未知
func Known(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Deref 未知时返回 def
func Deref(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}

type KeyPayload struct {
	Symbol string `json:"key"`
	Code   int    `json:"key_code"`
}

type PointerPayload struct {
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Button  string `json:"button,omitempty"`
	Pressed bool   `json:"pressed,omitempty"`
	DX      int    `json:"dx,omitempty"`
	DY      int    `json:"dy,omitempty"`
}

type ClipboardPayload struct {
	Text string `json:"clipboard"`
}

// FocusPayload 一次前台应用会话 (已结束)
type FocusPayload struct {
	Process  string        `json:"app"`
	Start    time.Time     `json:"start_time"`
	End      time.Time     `json:"end_time"`
	Duration time.Duration `json:"duration"`
}

type CapturePayload struct {
	Path string `json:"filepath"`
	Size int64  `json:"file_size"`
}

// Event 采集到的一次观察。Kind 决定哪个 payload 非空，只能通过 New* 构造
type Event struct {
	ID        uuid.UUID     `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Kind      Kind          `json:"kind"`
	Context   WindowContext `json:"context"`

	Key       *KeyPayload       `json:"keystroke,omitempty"`
	Pointer   *PointerPayload   `json:"pointer,omitempty"`
	Clipboard *ClipboardPayload `json:"clipboard,omitempty"`
	Focus     *FocusPayload     `json:"focus,omitempty"`
	Capture   *CapturePayload   `json:"capture,omitempty"`
}

func newEvent(ts time.Time, kind Kind, ctx WindowContext) Event {
	return Event{ID: uuid.New(), Timestamp: ts, Kind: kind, Context: ctx}
}

func NewKeystroke(ts time.Time, ctx WindowContext, symbol string, code int) Event {
	e := newEvent(ts, KindKeystroke, ctx)
	e.Key = &KeyPayload{Symbol: symbol, Code: code}
	return e
}

func NewPointerMove(ts time.Time, ctx WindowContext, x, y int) Event {
	e := newEvent(ts, KindPointerMove, ctx)
	e.Pointer = &PointerPayload{X: x, Y: y}
	return e
}

func NewPointerClick(ts time.Time, ctx WindowContext, x, y int, button string, pressed bool) Event {
	e := newEvent(ts, KindPointerClick, ctx)
	e.Pointer = &PointerPayload{X: x, Y: y, Button: button, Pressed: pressed}
	return e
}

func NewPointerScroll(ts time.Time, ctx WindowContext, x, y, dx, dy int) Event {
	e := newEvent(ts, KindPointerScroll, ctx)
	e.Pointer = &PointerPayload{X: x, Y: y, DX: dx, DY: dy}
	return e
}

func NewClipboardChange(ts time.Time, ctx WindowContext, text string) Event {
	e := newEvent(ts, KindClipboard, ctx)
	e.Clipboard = &ClipboardPayload{Text: text}
	return e
}

// NewAppFocusChange 结束一个应用会话，时间戳为会话结束时刻
func NewAppFocusChange(ctx WindowContext, process string, start, end time.Time) Event {
	e := newEvent(end, KindAppFocusChange, ctx)
	e.Focus = &FocusPayload{Process: process, Start: start, End: end, Duration: end.Sub(start)}
	return e
}

func NewScreenCapture(ts time.Time, ctx WindowContext, path string, size int64) Event {
	e := newEvent(ts, KindScreenCapture, ctx)
	e.Capture = &CapturePayload{Path: path, Size: size}
	return e
}

// Validate 检查 Kind 和 payload 是否一致 (有且仅有一个匹配的 payload)
func (e Event) Validate() error {
	set := 0
	for _, p := range []bool{e.Key != nil, e.Pointer != nil, e.Clipboard != nil, e.Focus != nil, e.Capture != nil} {
		if p {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("%w: %s carries %d payloads", ErrInvalidEvent, e.Kind, set)
	}

	var ok bool
	switch e.Kind {
	case KindKeystroke:
		ok = e.Key != nil
	case KindPointerMove, KindPointerClick, KindPointerScroll:
		ok = e.Pointer != nil
	case KindClipboard:
		ok = e.Clipboard != nil
	case KindAppFocusChange:
		ok = e.Focus != nil
	case KindScreenCapture:
		ok = e.Capture != nil
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, e.Kind)
	}
	if !ok {
		return fmt.Errorf("%w: payload does not match kind %s", ErrInvalidEvent, e.Kind)
	}
	return nil
}

// Text 签名检测扫描的文本
func (e Event) Text() string {
	if e.Key != nil {
		return e.Key.Symbol
	}
	if e.Clipboard != nil {
		return e.Clipboard.Text
	}
	return ""
}

// InputDeviceEvent 输入设备热插拔事件
type InputDeviceEvent struct {
	Action     string // "add", "remove"
	DevicePath string // e.g., /dev/input/event5
	Name       string
	BusID      string // e.g., 1-1.2
	VendorID   string
	ProductID  string
	Serial     string
	DeviceType string // "hid", "other", "BADUSB_SUSPECT"
	Keyboard   bool
	Pointer    bool
	Blocked    bool
	TimeStamp  time.Time
}
