// Package watcher 输入设备热插拔监控。
//
// 新插入的键盘/鼠标先做 BadUSB 分析和黑名单检查，放行的设备交给 hook 追加读取。
package watcher

import (
	"errors"

	"github.com/Hara602/activitySentry/internal/model"
	"go.uber.org/zap"
)

var ErrNotSupported = errors.New("device hotplug watching is not supported on this platform")

// DeviceWatcher 定义接口
type DeviceWatcher interface {
	Start() (<-chan model.InputDeviceEvent, error)
	Stop()
}

type Options struct {
	Blocklist Blocklist
	// 命中策略的设备写 authorized=0
	Enforce bool
	Log     *zap.Logger
}

func New(opts Options) DeviceWatcher {
	return newWatcher(opts)
}
