package producer

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Hara602/activitySentry/internal/analysis"
	"github.com/Hara602/activitySentry/internal/capability"
	"github.com/Hara602/activitySentry/internal/model"
	"github.com/kbinani/screenshot"
	"go.uber.org/zap"
)

const (
	DefaultCaptureInterval = 60 * time.Second
	captureTimeLayout      = "20060102_150405"
)

var ErrNoDisplay = errors.New("no active display")

// Grabber 抓取主显示器
type Grabber interface {
	Grab() (image.Image, error)
}

// PrimaryDisplay 通过 kbinani/screenshot 抓取第 0 个显示器
type PrimaryDisplay struct{}

func (PrimaryDisplay) Grab() (image.Image, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return nil, ErrNoDisplay
	}
	return screenshot.CaptureRect(screenshot.GetDisplayBounds(0))
}

type GrabberFunc func() (image.Image, error)

func (f GrabberFunc) Grab() (image.Image, error) { return f() }

// Screen 定时截图，文件名 <UTC时间>_<进程名>.png
type Screen struct {
	base
	grabber   Grabber
	dir       string
	interval  time.Duration
	inspector *analysis.ArtifactInspector
}

func NewScreen(grabber Grabber, window capability.WindowSource, dir string, interval time.Duration, opts ...Option) *Screen {
	if grabber == nil {
		grabber = PrimaryDisplay{}
	}
	if interval <= 0 {
		interval = DefaultCaptureInterval
	}
	s := &Screen{
		grabber:   grabber,
		dir:       dir,
		interval:  interval,
		inspector: analysis.NewArtifactInspector(),
	}
	s.init("screen-capture", window, opts)
	return s
}

func (s *Screen) Start() {
	s.poll(s.interval, func() {
		if err := s.CaptureOnce(); err != nil {
			s.log.Warn("Screen capture failed", zap.Error(err))
		}
	})
}

// CaptureOnce 截图、写盘、校验文件头，成功后上报事件
func (s *Screen) CaptureOnce() error {
	img, err := s.grabber.Grab()
	if err != nil {
		return fmt.Errorf("grab display: %w", err)
	}
	ts := s.timestamp()
	ctx := s.window.ActiveWindow()

	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("create capture directory: %w", err)
	}
	name := fmt.Sprintf("%s_%s.png", ts.Format(captureTimeLayout), slug(model.Deref(ctx.Process, "")))
	path := filepath.Join(s.dir, name)

	if err := writePNG(path, img); err != nil {
		return err
	}

	verdict, err := s.inspector.Inspect(path)
	if err != nil {
		if verdict != nil {
			s.log.Error("🚨 Capture artifact failed verification",
				zap.String("path", path),
				zap.String("real", verdict.RealExt),
				zap.String("message", verdict.Message))
		}
		_ = os.Remove(path)
		return fmt.Errorf("verify %s: %w", name, err)
	}

	s.log.Debug("📸 Screen captured", zap.String("path", path), zap.Int64("size", verdict.Size))
	s.deliver(model.NewScreenCapture(ts, ctx, path, verdict.Size))
	return nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("create capture file: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	return f.Close()
}

// slug 进程名里只保留文件名安全的字符
func slug(process string) string {
	s := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.', r == '_':
			return r
		}
		return '_'
	}, strings.TrimSpace(process))
	s = strings.Trim(s, "._")
	if s == "" {
		return "unknown"
	}
	return s
}
