package sysutil

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"
)

const procInputDevices = "/proc/bus/input/devices"

// InputDevice /proc/bus/input/devices 中的一个设备块
type InputDevice struct {
	Name     string
	Sysfs    string
	Handler  string // e.g., /dev/input/event3
	Keyboard bool
	Pointer  bool
}

// FindInputDevices 列出所有带 event 节点的输入设备
func FindInputDevices() ([]InputDevice, error) {
	f, err := os.Open(procInputDevices)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseInputDevices(f)
}

// ParseInputDevices 解析 /proc/bus/input/devices 格式，设备块之间以空行分隔
//
//	N: Name="AT Translated Set 2 keyboard"
//	H: Handlers=sysrq kbd event3 leds
//	B: EV=120013
func ParseInputDevices(r io.Reader) ([]InputDevice, error) {
	var devices []InputDevice
	var cur InputDevice
	var evBits uint64
	var handlers []string

	flush := func() {
		if cur.Handler != "" {
			hasKbd, hasMouse := false, false
			for _, h := range handlers {
				if h == "kbd" {
					hasKbd = true
				}
				if strings.HasPrefix(h, "mouse") {
					hasMouse = true
				}
			}
			// EV_KEY = bit 1, EV_REL = bit 2, EV_REP = bit 20 (键盘自动重复)
			cur.Keyboard = hasKbd && evBits&(1<<1) != 0 && evBits&(1<<20) != 0
			cur.Pointer = hasMouse || evBits&(1<<2) != 0
			devices = append(devices, cur)
		}
		cur = InputDevice{}
		evBits = 0
		handlers = nil
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "N: Name="):
			cur.Name = strings.Trim(strings.TrimPrefix(line, "N: Name="), `"`)
		case strings.HasPrefix(line, "S: Sysfs="):
			cur.Sysfs = "/sys" + strings.TrimPrefix(line, "S: Sysfs=")
		case strings.HasPrefix(line, "H: Handlers="):
			handlers = strings.Fields(strings.TrimPrefix(line, "H: Handlers="))
			for _, h := range handlers {
				if strings.HasPrefix(h, "event") {
					cur.Handler = "/dev/input/" + h
				}
			}
		case strings.HasPrefix(line, "B: EV="):
			evBits, _ = strconv.ParseUint(strings.TrimPrefix(line, "B: EV="), 16, 64)
		}
	}
	// 文件末尾可能没有空行
	flush()
	return devices, scanner.Err()
}
