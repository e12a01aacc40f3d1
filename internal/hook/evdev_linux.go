//go:build linux

package hook

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/Hara602/activitySentry/internal/model"
	"github.com/Hara602/activitySentry/internal/sysutil"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// evdev 多个设备节点各自一个读 goroutine，事件汇入同一个 channel，
// 由 Listen 所在的 goroutine 单独分发
type evdev struct {
	log    *zap.Logger
	mu     sync.Mutex
	files  map[string]*os.File
	events chan model.InputEvent
	done   chan struct{}
	once   sync.Once
}

func newEvdev(log *zap.Logger) *evdev {
	return &evdev{
		log:    sysutil.OrNop(log),
		files:  make(map[string]*os.File),
		events: make(chan model.InputEvent, 256),
		done:   make(chan struct{}),
	}
}

func (e *evdev) Attach(devPath string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	select {
	case <-e.done:
		return ErrClosed
	default:
	}
	if _, ok := e.files[devPath]; ok {
		return nil
	}

	// O_NONBLOCK 让 fd 进入 runtime poller，Close 能打断阻塞中的 Read
	fd, err := unix.Open(devPath, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", devPath, err)
	}
	f := os.NewFile(uintptr(fd), devPath)
	e.files[devPath] = f
	go e.readLoop(devPath, f)

	e.log.Info("⌨️ Input device attached", zap.String("dev", devPath))
	return nil
}

func (e *evdev) readLoop(devPath string, f *os.File) {
	defer e.detach(devPath, f)

	buf := make([]byte, model.InputEventSize*64)
	for {
		n, err := f.Read(buf)
		if err != nil {
			if !errors.Is(err, os.ErrClosed) {
				// 设备拔出时 read 返回 ENODEV
				e.log.Info("🔌 Input device detached", zap.String("dev", devPath), zap.Error(err))
			}
			return
		}
		events, err := DecodeInputEvents(buf[:n])
		if err != nil {
			e.log.Warn("Malformed input event", zap.String("dev", devPath), zap.Error(err))
		}
		for _, ev := range events {
			select {
			case e.events <- ev:
			case <-e.done:
				return
			}
		}
	}
}

func (e *evdev) detach(devPath string, f *os.File) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.files[devPath] == f {
		delete(e.files, devPath)
	}
	_ = f.Close()
}

// Detach 关闭节点，对应的 readLoop 随之退出
func (e *evdev) Detach(devPath string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	f, ok := e.files[devPath]
	if !ok {
		return nil
	}
	delete(e.files, devPath)
	e.log.Info("⛔ Input device detached", zap.String("dev", devPath))
	return f.Close()
}

func (e *evdev) Close() error {
	e.once.Do(func() {
		close(e.done)
		e.mu.Lock()
		defer e.mu.Unlock()
		for path, f := range e.files {
			_ = f.Close()
			delete(e.files, path)
		}
	})
	return nil
}

// attachAll 打开所有匹配的设备，全部失败时返回错误
func (e *evdev) attachAll(match func(sysutil.InputDevice) bool) error {
	devices, err := sysutil.FindInputDevices()
	if err != nil {
		return errors.Join(ErrNotAvailable, err)
	}
	var errs []error
	attached := 0
	for _, d := range devices {
		if !match(d) {
			continue
		}
		if err := e.Attach(d.Handler); err != nil {
			errs = append(errs, err)
			continue
		}
		attached++
	}
	if attached == 0 && len(errs) > 0 {
		return errors.Join(append([]error{ErrNotAvailable}, errs...)...)
	}
	return nil
}

type keyboard struct {
	*evdev
}

// OpenKeyboards 打开当前所有键盘，之后可通过 Attach 追加热插拔的设备
func OpenKeyboards(opts Options) (KeyDevice, error) {
	k := &keyboard{evdev: newEvdev(opts.Log)}
	if err := k.attachAll(func(d sysutil.InputDevice) bool { return d.Keyboard }); err != nil {
		return nil, err
	}
	return k, nil
}

func (k *keyboard) Listen(h KeyHandler) error {
	var d keyDispatcher
	for {
		select {
		case <-k.done:
			return nil
		case ev := <-k.events:
			d.feed(ev, h)
		}
	}
}

type pointer struct {
	*evdev
	width, height int
}

func OpenPointers(opts Options) (PointerDevice, error) {
	p := &pointer{evdev: newEvdev(opts.Log), width: opts.ScreenWidth, height: opts.ScreenHeight}
	if err := p.attachAll(func(d sysutil.InputDevice) bool { return CapturesPointer(d.Keyboard, d.Pointer) }); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *pointer) Listen(h PointerHandler) error {
	d := pointerDispatcher{width: p.width, height: p.height}
	for {
		select {
		case <-p.done:
			return nil
		case ev := <-p.events:
			d.feed(ev, h)
		}
	}
}
