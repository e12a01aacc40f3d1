package watcher

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Hara602/activitySentry/internal/analysis"
	"github.com/Hara602/activitySentry/internal/model"
)

const sysRoot = "/sys"

// describe 根据 uevent 环境变量和 sysfs 采集设备信息
// UEvent Env 示例: DEVNAME=input/event5, DEVPATH=/devices/.../input/input12/event5
func describe(root string, env map[string]string) model.InputDeviceEvent {
	devName := env["DEVNAME"]
	if devName != "" && !strings.HasPrefix(devName, "/dev") {
		devName = "/dev/" + devName
	}
	sysPath := filepath.Join(root, env["DEVPATH"])
	return inspect(devName, sysPath, env["ID_INPUT_KEYBOARD"] == "1", env["ID_INPUT_MOUSE"] == "1")
}

// inspect 向上找到 USB 设备根目录，读取 VID/PID/序列号并做 BadUSB 分析
func inspect(devName, sysPath string, keyboard, pointer bool) model.InputDeviceEvent {
	ev := model.InputDeviceEvent{
		Action:     "add",
		DevicePath: devName,
		Name:       readFile(filepath.Join(filepath.Dir(sysPath), "name")),
		Keyboard:   keyboard,
		Pointer:    pointer,
		DeviceType: analysis.DeviceOther,
		TimeStamp:  time.Now(),
	}
	if ev.Name == "unknown" {
		ev.Name = readFile(filepath.Join(sysPath, "name"))
	}

	usbRoot, ok := findUSBRoot(sysPath)
	if !ok {
		// 非 USB 设备 (内置键盘、虚拟设备)
		return ev
	}
	ev.BusID = filepath.Base(usbRoot)
	ev.VendorID = readFile(filepath.Join(usbRoot, "idVendor"))
	ev.ProductID = readFile(filepath.Join(usbRoot, "idProduct"))
	ev.Serial = readOptional(filepath.Join(usbRoot, "serial"))
	_, ev.DeviceType = analysis.CheckBadUSB(usbRoot)
	return ev
}

// findUSBRoot 递归向上查找包含 idVendor 的目录（即 USB Device 根目录）
func findUSBRoot(path string) (string, bool) {
	dir := path
	// 输入设备的 event 节点离 USB 设备根目录通常有 4~6 层
	for i := 0; i < 10; i++ {
		dir = filepath.Dir(dir)
		if dir == "/" || dir == "." {
			break
		}
		if _, err := os.Stat(filepath.Join(dir, "idVendor")); err == nil {
			return dir, true
		}
	}
	return path, false
}

func readFile(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(b))
}

// readOptional 很多键盘没有序列号，黑名单里记为空串
func readOptional(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}
