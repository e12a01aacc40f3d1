package hook

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/Hara602/activitySentry/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encode(t *testing.T, events ...model.InputEvent) []byte {
	t.Helper()
	var buf bytes.Buffer
	for _, ev := range events {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, ev))
	}
	return buf.Bytes()
}

func key(code uint16, value int32) model.InputEvent {
	return model.InputEvent{Type: model.EvKey, Code: code, Value: value}
}

func rel(code uint16, value int32) model.InputEvent {
	return model.InputEvent{Type: model.EvRel, Code: code, Value: value}
}

var syn = model.InputEvent{Type: model.EvSyn}

func TestDecodeInputEvents(t *testing.T) {
	in := []model.InputEvent{
		{Sec: 1700000000, Usec: 42, Type: model.EvKey, Code: 30, Value: model.KeyPress},
		{Sec: 1700000000, Usec: 43, Type: model.EvRel, Code: model.RelX, Value: -5},
	}
	buf := encode(t, in...)
	require.Len(t, buf, 2*model.InputEventSize)

	// 末尾残缺的部分被忽略
	buf = append(buf, 0x01, 0x02)
	got, err := DecodeInputEvents(buf)
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestKeySymbol(t *testing.T) {
	assert.Equal(t, "a", KeySymbol(30, false, false))
	assert.Equal(t, "A", KeySymbol(30, true, false))
	assert.Equal(t, "A", KeySymbol(30, false, true))
	assert.Equal(t, "a", KeySymbol(30, true, true))
	assert.Equal(t, "1", KeySymbol(2, false, true))
	assert.Equal(t, "!", KeySymbol(2, true, false))
	assert.Equal(t, "Key.enter", KeySymbol(28, false, false))
	assert.Equal(t, "Key.space", KeySymbol(57, true, false))
	assert.Equal(t, "<240>", KeySymbol(240, false, false))
}

type pressed struct {
	symbol string
	code   int
}

func TestKeyDispatcherTracksModifiers(t *testing.T) {
	var got []pressed
	h := func(symbol string, code int) { got = append(got, pressed{symbol, code}) }

	var d keyDispatcher
	for _, ev := range []model.InputEvent{
		key(30, model.KeyPress), key(30, model.KeyRelease),
		key(keyLeftShift, model.KeyPress),
		key(30, model.KeyPress), key(30, model.KeyRepeat), key(30, model.KeyRelease),
		key(keyLeftShift, model.KeyRelease),
		key(keyCapsLock, model.KeyPress), key(keyCapsLock, model.KeyRelease),
		key(31, model.KeyPress),
		key(model.BtnLeft, model.KeyPress),
		rel(model.RelX, 3),
	} {
		d.feed(ev, h)
	}

	assert.Equal(t, []pressed{
		{"a", 30},
		{"Key.shift", keyLeftShift},
		{"A", 30},
		{"A", 30},
		{"Key.caps_lock", keyCapsLock},
		{"S", 31},
	}, got)
}

type pointerRecorder struct {
	calls []string
	last  [4]int
}

func (r *pointerRecorder) OnMove(x, y int) {
	r.calls = append(r.calls, "move")
	r.last = [4]int{x, y}
}

func (r *pointerRecorder) OnClick(x, y int, button string, pressed bool) {
	state := "up"
	if pressed {
		state = "down"
	}
	r.calls = append(r.calls, button+" "+state)
	r.last = [4]int{x, y}
}

func (r *pointerRecorder) OnScroll(x, y, dx, dy int) {
	r.calls = append(r.calls, "scroll")
	r.last = [4]int{x, y, dx, dy}
}

func TestPointerDispatcher(t *testing.T) {
	rec := &pointerRecorder{}
	d := pointerDispatcher{width: 100, height: 50}

	feed := func(evs ...model.InputEvent) {
		for _, ev := range evs {
			d.feed(ev, rec)
		}
	}

	feed(rel(model.RelX, 10), rel(model.RelY, 20), syn)
	assert.Equal(t, []string{"move"}, rec.calls)
	assert.Equal(t, [4]int{10, 20}, rec.last)

	// 没有位移的 SYN 不产生移动
	feed(syn)
	assert.Len(t, rec.calls, 1)

	feed(key(model.BtnLeft, model.KeyPress), syn, key(model.BtnLeft, model.KeyRelease), syn)
	assert.Equal(t, []string{"move", "Button.left down", "Button.left up"}, rec.calls)

	feed(rel(model.RelWheel, -1))
	assert.Equal(t, [4]int{10, 20, 0, -1}, rec.last)

	// 坐标被限制在屏幕范围内
	feed(rel(model.RelX, 500), rel(model.RelY, -500), syn)
	assert.Equal(t, [4]int{99, 0}, rec.last)
}

func TestCapturesPointer(t *testing.T) {
	assert.True(t, CapturesPointer(false, true))
	assert.False(t, CapturesPointer(true, true))
	assert.False(t, CapturesPointer(true, false))
	assert.False(t, CapturesPointer(false, false))
}
