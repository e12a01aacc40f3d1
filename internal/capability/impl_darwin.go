//go:build darwin

package capability

import (
	"os/exec"
	"strings"

	"github.com/Hara602/activitySentry/internal/model"
	"github.com/Hara602/activitySentry/internal/sysutil"
)

const (
	frontAppScript   = `tell application "System Events" to get name of first application process whose frontmost is true`
	frontTitleScript = `tell application "System Events" to get name of front window of (first application process whose frontmost is true)`
)

// appleScriptSource 通过 osascript 查询，需要辅助功能权限
type appleScriptSource struct{}

func newPlatformSource() WindowSource { return appleScriptSource{} }

func (appleScriptSource) ActiveWindow() model.WindowContext {
	app, err := osascript(frontAppScript)
	if err != nil {
		return model.WindowContext{}
	}
	title, _ := osascript(frontTitleScript)
	return model.WindowContext{
		Title:   model.Known(title),
		Process: model.Known(app),
		User:    sysutil.CurrentUser(),
	}
}

func osascript(script string) (string, error) {
	out, err := exec.Command("osascript", "-e", script).Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
