package watcher

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Hara602/activitySentry/internal/analysis"
	"github.com/Hara602/activitySentry/internal/model"
)

// Blocklist 设备黑名单，由 store.Store 实现
type Blocklist interface {
	IsDeviceBlocked(vid, pid, serial string) (bool, string, error)
}

// Evaluate 判断是否应阻断设备：黑名单命中，或同时带存储接口的 HID 设备
func Evaluate(bl Blocklist, ev model.InputDeviceEvent) (bool, string, error) {
	if ev.DeviceType == analysis.DeviceBadUSB {
		return true, "HID device exposes a mass-storage interface", nil
	}
	if bl == nil || ev.VendorID == "" {
		return false, "", nil
	}
	return bl.IsDeviceBlocked(ev.VendorID, ev.ProductID, ev.Serial)
}

// BlockDevice 通过 Sysfs 禁用设备
// busID 类似于 "1-1.2"，路径: <root>/bus/usb/devices/1-1.2/authorized
func BlockDevice(root, busID string) error {
	if busID == "" {
		return fmt.Errorf("block failed: device is not on the USB bus")
	}
	path := filepath.Join(root, "bus/usb/devices", busID, "authorized")
	// 写入 "0" 代表物理层级禁用
	if err := os.WriteFile(path, []byte("0"), 0644); err != nil {
		return fmt.Errorf("block failed: %w", err)
	}
	return nil
}
