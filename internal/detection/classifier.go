package detection

import "github.com/Hara602/activitySentry/internal/model"

// Classifier 可插拔的二分类器，返回 true 表示可疑
// intervals 仅时序检测器提供 (秒)，签名检测器传 nil
type Classifier interface {
	Suspicious(ev model.Event, intervals []float64) bool
}

// NeverSuspicious 默认实现，始终返回 false
type NeverSuspicious struct{}

func (NeverSuspicious) Suspicious(model.Event, []float64) bool { return false }

// ClassifierFunc 函数适配器
type ClassifierFunc func(ev model.Event, intervals []float64) bool

func (f ClassifierFunc) Suspicious(ev model.Event, intervals []float64) bool {
	return f(ev, intervals)
}
