//go:build !linux

package watcher

import "github.com/Hara602/activitySentry/internal/model"

type unsupportedWatcher struct{}

func newWatcher(Options) DeviceWatcher { return unsupportedWatcher{} }

func (unsupportedWatcher) Start() (<-chan model.InputDeviceEvent, error) {
	return nil, ErrNotSupported
}

func (unsupportedWatcher) Stop() {}
