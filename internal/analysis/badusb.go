package analysis

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	DeviceHID        = "hid"
	DeviceStorage    = "udisk"
	DeviceOther      = "other"
	DeviceBadUSB     = "BADUSB_SUSPECT"
	DeviceUnknownUSB = "unknown"
)

// USBProfile USB 设备各接口的类别汇总
type USBProfile struct {
	HID      bool // bInterfaceClass 03
	Keyboard bool // HID boot protocol 01
	Storage  bool // bInterfaceClass 08
}

// ProfileUSB 遍历 USB 设备根目录下的接口目录 (例如 1-1:1.0)
func ProfileUSB(sysPath string) (USBProfile, bool) {
	files, err := os.ReadDir(sysPath)
	if err != nil {
		return USBProfile{}, false
	}
	var p USBProfile
	for _, f := range files {
		if !strings.Contains(f.Name(), ":") {
			continue
		}
		dir := filepath.Join(sysPath, f.Name())
		switch readAttr(dir, "bInterfaceClass") {
		case "03":
			p.HID = true
			if readAttr(dir, "bInterfaceProtocol") == "01" {
				p.Keyboard = true
			}
		case "08":
			p.Storage = true
		}
	}
	return p, true
}

// CheckBadUSB 一个 USB 设备同时拥有 HID 和存储接口，判定为 BadUSB。
// 新插入的"键盘"同时带一个 U 盘，是典型的注入工具形态
func CheckBadUSB(sysPath string) (bool, string) {
	p, ok := ProfileUSB(sysPath)
	if !ok {
		return false, DeviceUnknownUSB
	}
	switch {
	case p.HID && p.Storage:
		return true, DeviceBadUSB
	case p.HID:
		return false, DeviceHID
	case p.Storage:
		return false, DeviceStorage
	}
	return false, DeviceOther
}

func readAttr(dir, name string) string {
	b, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}
