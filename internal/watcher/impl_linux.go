//go:build linux

package watcher

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/Hara602/activitySentry/internal/model"
	"github.com/Hara602/activitySentry/internal/sysutil"
	"github.com/pilebones/go-udev/netlink"
	"go.uber.org/zap"
)

type linuxWatcher struct {
	opts   Options
	log    *zap.Logger
	events chan model.InputDeviceEvent
	stop   chan struct{}
}

func newWatcher(opts Options) DeviceWatcher {
	return &linuxWatcher{
		opts:   opts,
		log:    sysutil.OrNop(opts.Log),
		events: make(chan model.InputDeviceEvent, 10),
		stop:   make(chan struct{}),
	}
}

func (w *linuxWatcher) Start() (<-chan model.InputDeviceEvent, error) {
	// 监听 UDEV 事件,连接 NETLINK_KOBJECT_UEVENT
	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		return nil, err
	}
	queue := make(chan netlink.UEvent)
	errChan := make(chan error)

	quit := conn.Monitor(queue, errChan, nil)

	go func() {
		defer conn.Close()

		// 在处理新事件前，先检查已存在的设备
		go w.scanExisting()

		for {
			select {
			case <-w.stop:
				close(quit)
				return

			case err := <-errChan:
				// 忽略底层网络错误，继续尝试
				w.log.Debug("uevent monitor error", zap.Error(err))
				continue

			case uevent := <-queue:
				w.handleUdevEvent(uevent)
			}
		}
	}()
	return w.events, nil
}

func (w *linuxWatcher) Stop() {
	close(w.stop)
}

func (w *linuxWatcher) handleUdevEvent(uevent netlink.UEvent) {
	if uevent.Env["SUBSYSTEM"] != "input" || !strings.Contains(uevent.Env["DEVNAME"], "input/event") {
		return
	}
	switch uevent.Action {
	case "add":
		go w.handleAdd(uevent)
	case "remove":
		w.emit(model.InputDeviceEvent{
			Action:     "remove",
			DevicePath: "/dev/" + strings.TrimPrefix(uevent.Env["DEVNAME"], "/dev/"),
			TimeStamp:  time.Now(),
		})
	}
}

func (w *linuxWatcher) handleAdd(uevent netlink.UEvent) {
	ev := describe(sysRoot, uevent.Env)
	if !ev.Keyboard && !ev.Pointer {
		return
	}
	w.log.Info("device information:",
		zap.String("dev", ev.DevicePath),
		zap.String("name", ev.Name),
		zap.String("vid", ev.VendorID),
		zap.String("pid", ev.ProductID),
		zap.String("serial", ev.Serial),
		zap.String("type", ev.DeviceType))

	w.apply(&ev)
	if !ev.Blocked && !sysutil.WaitForInputNode(ev.DevicePath) {
		w.log.Warn("Device detected but input node not readable (timeout)", zap.String("dev", ev.DevicePath))
		return
	}
	w.emit(ev)
}

// apply 执行阻断策略
func (w *linuxWatcher) apply(ev *model.InputDeviceEvent) {
	block, reason, err := Evaluate(w.opts.Blocklist, *ev)
	if err != nil {
		w.log.Error("Blocklist lookup failed", zap.Error(err))
		return
	}
	if !block {
		return
	}
	w.log.Warn("🚨 POTENTIAL BADUSB DETECTED",
		zap.String("dev", ev.DevicePath),
		zap.String("bus", ev.BusID),
		zap.String("reason", reason))

	ev.Blocked = true
	if !w.opts.Enforce {
		return
	}
	if err := BlockDevice(sysRoot, ev.BusID); err != nil {
		w.log.Error("Failed to block device", zap.String("bus", ev.BusID), zap.Error(err))
		return
	}
	w.log.Warn("⛔ Device blocked", zap.String("bus", ev.BusID), zap.String("reason", reason))
}

func (w *linuxWatcher) emit(ev model.InputDeviceEvent) {
	select {
	case w.events <- ev:
	case <-w.stop:
	}
}

// scanExisting 检查启动前已经接入的输入设备
func (w *linuxWatcher) scanExisting() {
	devices, err := sysutil.FindInputDevices()
	if err != nil {
		w.log.Error("Failed to scan existing input devices", zap.Error(err))
		return
	}
	for _, d := range devices {
		if !d.Keyboard && !d.Pointer {
			continue
		}
		sysPath := filepath.Join(d.Sysfs, filepath.Base(d.Handler))
		ev := inspect(d.Handler, sysPath, d.Keyboard, d.Pointer)
		if ev.Name == "unknown" {
			ev.Name = d.Name
		}
		w.log.Info("🔍 Found existing input device during scan",
			zap.String("dev", d.Handler),
			zap.String("name", ev.Name),
			zap.String("type", ev.DeviceType))
		w.apply(&ev)
		w.emit(ev)
	}
}
