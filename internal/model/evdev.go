package model

// Linux input 子系统 (evdev) 的事件结构，64 位平台
const (
	InputEventSize = 24

	EvSyn = 0x00
	EvKey = 0x01
	EvRel = 0x02

	RelX      = 0x00
	RelY      = 0x01
	RelHWheel = 0x06
	RelWheel  = 0x08

	BtnLeft   = 0x110
	BtnRight  = 0x111
	BtnMiddle = 0x112

	// Value 字段
	KeyRelease = 0
	KeyPress   = 1
	KeyRepeat  = 2
)

// InputEvent 对应 C 结构体 input_event
/*
struct input_event {
	struct timeval time;
	__u16 type;
	__u16 code;
	__s32 value;
};
*/
type InputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}
