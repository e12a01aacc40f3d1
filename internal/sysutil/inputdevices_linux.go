//go:build linux

package sysutil

import (
	"time"

	"golang.org/x/sys/unix"
)

// WaitForInputNode 轮询等待设备节点可读
func WaitForInputNode(devPath string) bool {
	// 尝试 3 秒，因为 Udev event 触发时，udev 规则可能还没设置好权限
	for i := 0; i < 30; i++ {
		if unix.Access(devPath, unix.R_OK) == nil {
			return true
		}
		time.Sleep(100 * time.Millisecond)
	}
	return false
}
