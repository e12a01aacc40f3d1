package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Hara602/activitySentry/internal/capability"
	"github.com/Hara602/activitySentry/internal/config"
	"github.com/Hara602/activitySentry/internal/detection"
	"github.com/Hara602/activitySentry/internal/fieldcrypt"
	"github.com/Hara602/activitySentry/internal/hook"
	"github.com/Hara602/activitySentry/internal/metrics"
	"github.com/Hara602/activitySentry/internal/model"
	"github.com/Hara602/activitySentry/internal/pipeline"
	"github.com/Hara602/activitySentry/internal/producer"
	"github.com/Hara602/activitySentry/internal/store"
	"github.com/Hara602/activitySentry/internal/sysutil"
	"github.com/Hara602/activitySentry/internal/watcher"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "configs/agent.toml", "agent config file (toml or yaml)")
	showStats := flag.Bool("stats", false, "print dashboard statistics and recent alerts, then exit")
	blockRule := flag.String("block", "", "add a device blocklist rule vid:pid[:serial], then exit")
	blockReason := flag.String("reason", "", "reason stored with -block")
	resolveID := flag.Int64("resolve", 0, "mark the alert with this id as resolved, then exit")
	flag.Parse()

	// 初始化日志
	sysutil.InitLogger("info", "console")
	cfg, err := config.Load(*configPath)
	if err != nil {
		sysutil.Log.Fatal("Config load failed", zap.String("path", *configPath), zap.Error(err))
	}
	sysutil.InitLogger(cfg.Logging.Level, cfg.Logging.Format)
	defer sysutil.Log.Sync()

	codec := fieldcrypt.NewCodec(cfg.Storage.EncryptionPassword)
	db, err := store.Open(cfg.Storage.DBPath, codec,
		store.WithUserID(cfg.Agent.UserID),
		store.WithMaxTextBytes(cfg.Storage.MaxTextBytes),
		store.WithLogger(sysutil.Log),
	)
	if err != nil {
		sysutil.Log.Fatal("Store init failed", zap.String("db", cfg.Storage.DBPath), zap.Error(err))
	}

	// 管理命令执行完直接退出
	switch {
	case *showStats:
		exitOn(printStats(os.Stdout, db))
		return
	case *blockRule != "":
		exitOn(addBlockRule(db, *blockRule, *blockReason))
		return
	case *resolveID != 0:
		exitOn(db.ResolveAlert(*resolveID, cfg.Agent.UserID))
		return
	}

	run(cfg, db)
}

func exitOn(err error) {
	if err != nil {
		sysutil.Log.Fatal("Command failed", zap.Error(err))
	}
}

func run(cfg *config.Config, db *store.Store) {
	sysutil.Log.Info("🛡️ Activity Sentry Agent Starting...",
		zap.String("db", cfg.Storage.DBPath),
		zap.Int64("user_id", cfg.Agent.UserID))

	if os.Geteuid() != 0 {
		sysutil.Log.Warn("Not running as root, input devices and netlink may be unavailable")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	if cfg.Metrics.Listen != "" {
		go serveMetrics(ctx, cfg.Metrics.Listen, reg)
	}

	// 检测器
	timing := detection.NewTimingDetector(
		detection.WithWindowSize(cfg.Detection.WindowSize),
		detection.WithSpeedThreshold(cfg.Detection.SpeedThreshold),
		detection.WithUniformityThreshold(cfg.Detection.UniformityThreshold),
	)
	signature := detection.NewSignatureDetector(cfg.Detection.KeywordsFile, detection.WithSignatureLogger(sysutil.Log))
	if cfg.Detection.WatchKeywords && cfg.Detection.KeywordsFile != "" {
		go func() {
			if err := signature.Watch(ctx); err != nil {
				sysutil.Log.Warn("Keyword watcher stopped", zap.Error(err))
			}
		}()
	}

	pipe := pipeline.New(db,
		pipeline.WithDetectors(timing, signature),
		pipeline.WithLogger(sysutil.Log),
		pipeline.WithMetrics(m),
	)

	// 采集器 (依赖注入)
	window := capability.New()
	opts := []producer.Option{
		producer.WithLogger(sysutil.Log),
		producer.WithMetrics(m),
		producer.WithAuditLog(cfg.Producers.AuditLogSize),
	}
	hookOpts := hook.Options{
		Log:          sysutil.Log,
		ScreenWidth:  cfg.Producers.ScreenWidth,
		ScreenHeight: cfg.Producers.ScreenHeight,
	}

	var producers []producer.Producer
	var keyboards hook.KeyDevice
	var pointers hook.PointerDevice

	if cfg.Producers.Keystroke {
		kb, err := hook.OpenKeyboards(hookOpts)
		if err != nil {
			sysutil.Log.Warn("Keystroke capture disabled", zap.Error(err))
		} else {
			keyboards = kb
			producers = append(producers, producer.NewKeystroke(kb, window, opts...))
		}
	}
	if cfg.Producers.Pointer {
		pt, err := hook.OpenPointers(hookOpts)
		if err != nil {
			sysutil.Log.Warn("Pointer capture disabled", zap.Error(err))
		} else {
			pointers = pt
			producers = append(producers, producer.NewPointer(pt, window, opts...))
		}
	}
	if cfg.Producers.Clipboard {
		producers = append(producers, producer.NewClipboard(producer.SystemClipboard{}, window, cfg.Producers.ClipboardInterval(), opts...))
	}
	if cfg.Producers.AppFocus {
		producers = append(producers, producer.NewAppFocus(window, cfg.Producers.FocusInterval(), opts...))
	}
	if cfg.Capture.Enabled {
		producers = append(producers, producer.NewScreen(producer.PrimaryDisplay{}, window, cfg.Capture.Dir, cfg.Capture.Interval(), opts...))
	}

	for _, p := range producers {
		p.SetCallback(pipe.HandleEvent)
		p.Start()
		sysutil.Log.Info("▶️ Producer started", zap.String("producer", p.Name()))
	}
	defer func() {
		for _, p := range producers {
			p.Stop()
		}
	}()

	// 热插拔
	var devEvents <-chan model.InputDeviceEvent
	if cfg.Hotplug.Enabled {
		devWatcher := watcher.New(watcher.Options{Blocklist: db, Enforce: cfg.Hotplug.Enforce, Log: sysutil.Log})
		events, err := devWatcher.Start()
		if err != nil {
			sysutil.Log.Warn("Hotplug watcher unavailable", zap.Error(err))
		} else {
			devEvents = events
			defer devWatcher.Stop()
		}
	}

	// 捕获操作系统信号，优雅关闭服务
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case dev := <-devEvents:
			handleDevice(dev, keyboards, pointers)

		case <-sigCh:
			sysutil.Log.Info("Shutting down...")
			return
		}
	}
}

func handleDevice(dev model.InputDeviceEvent, keyboards hook.KeyDevice, pointers hook.PointerDevice) {
	if dev.Action == "remove" {
		sysutil.Log.Info("❌ Input device removed", zap.String("dev", dev.DevicePath))
		return
	}

	sysutil.Log.Info("✅ Input device connected",
		zap.String("dev", dev.DevicePath),
		zap.String("name", dev.Name),
		zap.String("vid", dev.VendorID),
		zap.String("pid", dev.ProductID),
		zap.String("type", dev.DeviceType),
	)
	if dev.Blocked {
		// 启动时已附加的设备也要停止读取
		if keyboards != nil {
			if err := keyboards.Detach(dev.DevicePath); err != nil {
				sysutil.Log.Warn("Failed to detach keyboard", zap.Error(err))
			}
		}
		if pointers != nil {
			if err := pointers.Detach(dev.DevicePath); err != nil {
				sysutil.Log.Warn("Failed to detach pointer", zap.Error(err))
			}
		}
		sysutil.Log.Error("🚨 Device blocked, input not captured", zap.String("serial", dev.Serial))
		return
	}

	if dev.Keyboard && keyboards != nil {
		if err := keyboards.Attach(dev.DevicePath); err != nil {
			sysutil.Log.Error("Failed to attach keyboard", zap.Error(err))
		}
	}
	if hook.CapturesPointer(dev.Keyboard, dev.Pointer) && pointers != nil {
		if err := pointers.Attach(dev.DevicePath); err != nil {
			sysutil.Log.Error("Failed to attach pointer", zap.Error(err))
		}
	}
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	sysutil.Log.Info("📈 Metrics endpoint listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		sysutil.Log.Error("Metrics server failed", zap.Error(err))
	}
}
