//go:build linux

package capability

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Hara602/activitySentry/internal/model"
	"github.com/Hara602/activitySentry/internal/sysutil"
	"golang.org/x/sys/unix"
)

// x11Source 通过 xdotool 查询 X11 前台窗口，进程信息从 /proc 读取
type x11Source struct{}

func newPlatformSource() WindowSource { return x11Source{} }

func (x11Source) ActiveWindow() model.WindowContext {
	winID, err := xdotool("getactivewindow")
	if err != nil {
		return model.WindowContext{}
	}
	title, _ := xdotool("getwindowname", winID)
	pidStr, err := xdotool("getwindowpid", winID)
	if err != nil {
		return model.WindowContext{Title: model.Known(title)}
	}
	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return model.WindowContext{Title: model.Known(title)}
	}

	return model.WindowContext{
		Title:   model.Known(title),
		Process: getProcName(pid),
		User:    getProcOwner(pid),
	}
}

func xdotool(args ...string) (string, error) {
	out, err := exec.Command("xdotool", args...).Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func getProcName(pid int) *string {
	b, err := os.ReadFile(filepath.Join("/proc", strconv.Itoa(pid), "comm"))
	if err != nil {
		// 进程已经退出
		return nil
	}
	return model.Known(string(b))
}

// getProcOwner /proc/<pid> 目录的属主即进程的 uid
func getProcOwner(pid int) *string {
	var st unix.Stat_t
	if err := unix.Stat(filepath.Join("/proc", strconv.Itoa(pid)), &st); err != nil {
		return nil
	}
	return sysutil.LookupUser(strconv.FormatUint(uint64(st.Uid), 10))
}
