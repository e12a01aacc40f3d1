package hook

import "github.com/Hara602/activitySentry/internal/model"

// keyDispatcher 跟踪修饰键状态，把 EV_KEY 转成按键通知
type keyDispatcher struct {
	leftShift, rightShift bool
	caps                  bool
}

func (d *keyDispatcher) feed(ev model.InputEvent, h KeyHandler) {
	if ev.Type != model.EvKey || ev.Code >= btnMisc {
		return
	}
	code := int(ev.Code)
	switch code {
	case keyLeftShift:
		d.leftShift = ev.Value != model.KeyRelease
	case keyRightShift:
		d.rightShift = ev.Value != model.KeyRelease
	case keyCapsLock:
		if ev.Value == model.KeyPress {
			d.caps = !d.caps
		}
	}
	// 长按的自动重复也算按键
	if ev.Value == model.KeyRelease {
		return
	}
	h(KeySymbol(code, d.leftShift || d.rightShift, d.caps), code)
}

// pointerDispatcher 累计相对位移，在 EV_SYN 时上报一次移动
type pointerDispatcher struct {
	x, y          int
	width, height int
	moved         bool
}

var buttonNames = map[uint16]string{
	model.BtnLeft:   "Button.left",
	model.BtnRight:  "Button.right",
	model.BtnMiddle: "Button.middle",
}

func clamp(v, max int) int {
	if v < 0 {
		return 0
	}
	if max > 0 && v >= max {
		return max - 1
	}
	return v
}

func (d *pointerDispatcher) feed(ev model.InputEvent, h PointerHandler) {
	switch ev.Type {
	case model.EvRel:
		switch ev.Code {
		case model.RelX:
			d.x = clamp(d.x+int(ev.Value), d.width)
			d.moved = true
		case model.RelY:
			d.y = clamp(d.y+int(ev.Value), d.height)
			d.moved = true
		case model.RelWheel:
			h.OnScroll(d.x, d.y, 0, int(ev.Value))
		case model.RelHWheel:
			h.OnScroll(d.x, d.y, int(ev.Value), 0)
		}
	case model.EvKey:
		name, ok := buttonNames[ev.Code]
		if !ok || ev.Value == model.KeyRepeat {
			return
		}
		h.OnClick(d.x, d.y, name, ev.Value == model.KeyPress)
	case model.EvSyn:
		if d.moved {
			d.moved = false
			h.OnMove(d.x, d.y)
		}
	}
}
