// Package capability 前台窗口查询。平台相关实现通过 build tag 选择，
// 上层只依赖 WindowSource 接口。
package capability

import "github.com/Hara602/activitySentry/internal/model"

// WindowSource 返回当前前台窗口 {标题, 进程名, 用户}，不会失败：
// 平台查询出错时所有字段为 nil
type WindowSource interface {
	ActiveWindow() model.WindowContext
}

// New 当前平台的实现
func New() WindowSource {
	return newPlatformSource()
}

// Static 固定返回同一个窗口，用于无桌面环境和测试
type Static struct {
	Title   string
	Process string
	User    string
}

func (s Static) ActiveWindow() model.WindowContext {
	return model.WindowContext{
		Title:   model.Known(s.Title),
		Process: model.Known(s.Process),
		User:    model.Known(s.User),
	}
}

// Func 函数适配器
type Func func() model.WindowContext

func (f Func) ActiveWindow() model.WindowContext {
	if f == nil {
		return model.WindowContext{}
	}
	return f()
}
