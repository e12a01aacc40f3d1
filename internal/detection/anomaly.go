package detection

import (
	"math"
	"time"

	"github.com/Hara602/activitySentry/internal/model"
)

const (
	DefaultWindowSize          = 10
	DefaultSpeedThreshold      = 0.05 // 秒，低于此平均间隔视为非人类速度
	DefaultUniformityThreshold = 0.01 // 间隔标准差低于此值视为过于均匀
)

type sample struct {
	at  time.Time
	key string
}

// TimingDetector 滑动窗口统计按键节奏。
// 脚本注入的按键间隔又快又均匀；重复键 (连按、回放) 不看节奏单独判定。
// 只由键盘采集 goroutine 调用，不加锁。
type TimingDetector struct {
	windowSize          int
	speedThreshold      float64
	uniformityThreshold float64
	classifier          Classifier
	now                 func() time.Time

	window []sample
}

type TimingOption func(*TimingDetector)

func WithWindowSize(n int) TimingOption {
	return func(d *TimingDetector) {
		if n >= 2 {
			d.windowSize = n
		}
	}
}

func WithSpeedThreshold(sec float64) TimingOption {
	return func(d *TimingDetector) { d.speedThreshold = sec }
}

func WithUniformityThreshold(v float64) TimingOption {
	return func(d *TimingDetector) { d.uniformityThreshold = v }
}

func WithTimingClassifier(c Classifier) TimingOption {
	return func(d *TimingDetector) {
		if c != nil {
			d.classifier = c
		}
	}
}

func NewTimingDetector(opts ...TimingOption) *TimingDetector {
	d := &TimingDetector{
		windowSize:          DefaultWindowSize,
		speedThreshold:      DefaultSpeedThreshold,
		uniformityThreshold: DefaultUniformityThreshold,
		classifier:          NeverSuspicious{},
		now:                 time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.window = make([]sample, 0, d.windowSize+1)
	return d
}

// Process 处理一个按键事件，可疑时返回告警，否则 nil
func (d *TimingDetector) Process(ev model.Event) *model.Alert {
	if ev.Key == nil {
		return nil
	}

	at := ev.Timestamp
	if at.IsZero() {
		at = d.now()
	}

	// 严格 FIFO，只按数量淘汰
	d.window = append(d.window, sample{at: at, key: ev.Key.Symbol})
	if len(d.window) > d.windowSize {
		copy(d.window, d.window[1:])
		d.window = d.window[:d.windowSize]
	}
	if len(d.window) < 2 {
		return nil
	}

	intervals := make([]float64, 0, len(d.window)-1)
	for i := 1; i < len(d.window); i++ {
		intervals = append(intervals, d.window[i].at.Sub(d.window[i-1].at).Seconds())
	}
	avg, stddev := meanStdDev(intervals)

	distinct := make(map[string]struct{}, len(d.window))
	for _, s := range d.window {
		distinct[s.key] = struct{}{}
	}

	evidence := model.TimingEvidence{
		AvgInterval:  avg,
		StdDev:       stddev,
		IsFast:       avg < d.speedThreshold,
		IsUniform:    stddev < d.uniformityThreshold,
		IsRepetitive: len(distinct) < d.windowSize/2,
		MLFlag:       d.classifier.Suspicious(ev, intervals),
	}
	if !(evidence.IsFast && evidence.IsUniform) && !evidence.IsRepetitive && !evidence.MLFlag {
		return nil
	}

	return &model.Alert{
		Timestamp: at,
		Type:      model.AlertAnomaly,
		Timing:    &evidence,
		Source:    ev,
	}
}

// meanStdDev 总体标准差 (除以 n)
func meanStdDev(xs []float64) (mean, stddev float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	var sq float64
	for _, x := range xs {
		sq += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(sq / float64(len(xs)))
}
