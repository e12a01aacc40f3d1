package main

import (
	"testing"

	"github.com/Hara602/activitySentry/internal/hook"
	"github.com/Hara602/activitySentry/internal/model"
	"github.com/stretchr/testify/assert"
)

// fakeDevice 记录 Attach/Detach 过的节点
type fakeDevice struct {
	attached []string
	detached []string
}

func (f *fakeDevice) Attach(devPath string) error {
	f.attached = append(f.attached, devPath)
	return nil
}

func (f *fakeDevice) Detach(devPath string) error {
	f.detached = append(f.detached, devPath)
	return nil
}

func (f *fakeDevice) Close() error { return nil }

type fakeKeyboards struct{ fakeDevice }

func (f *fakeKeyboards) Listen(hook.KeyHandler) error { return nil }

type fakePointers struct{ fakeDevice }

func (f *fakePointers) Listen(hook.PointerHandler) error { return nil }

func TestHandleDeviceBlockedDetachesAttachedNode(t *testing.T) {
	kb, pt := &fakeKeyboards{}, &fakePointers{}
	handleDevice(model.InputDeviceEvent{
		Action:     "add",
		DevicePath: "/dev/input/event7",
		DeviceType: "BADUSB_SUSPECT",
		Keyboard:   true,
		Blocked:    true,
	}, kb, pt)

	assert.Empty(t, kb.attached)
	assert.Empty(t, pt.attached)
	assert.Equal(t, []string{"/dev/input/event7"}, kb.detached)
	assert.Equal(t, []string{"/dev/input/event7"}, pt.detached)
}

func TestHandleDeviceCompositeReadOnlyAsKeyboard(t *testing.T) {
	kb, pt := &fakeKeyboards{}, &fakePointers{}
	handleDevice(model.InputDeviceEvent{
		Action:     "add",
		DevicePath: "/dev/input/event8",
		Keyboard:   true,
		Pointer:    true,
	}, kb, pt)
	assert.Equal(t, []string{"/dev/input/event8"}, kb.attached)
	assert.Empty(t, pt.attached)

	handleDevice(model.InputDeviceEvent{
		Action:     "add",
		DevicePath: "/dev/input/event9",
		Pointer:    true,
	}, kb, pt)
	assert.Equal(t, []string{"/dev/input/event9"}, pt.attached)
	assert.Empty(t, kb.detached)
	assert.Empty(t, pt.detached)
}

func TestHandleDeviceWithoutSources(t *testing.T) {
	assert.NotPanics(t, func() {
		handleDevice(model.InputDeviceEvent{Action: "add", DevicePath: "/dev/input/event3", Keyboard: true, Blocked: true}, nil, nil)
		handleDevice(model.InputDeviceEvent{Action: "remove", DevicePath: "/dev/input/event3"}, nil, nil)
	})
}
