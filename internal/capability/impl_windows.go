//go:build windows

package capability

import (
	"path/filepath"
	"unsafe"

	"github.com/Hara602/activitySentry/internal/model"
	"golang.org/x/sys/windows"
)

var (
	user32             = windows.NewLazySystemDLL("user32.dll")
	procGetWindowTextW = user32.NewProc("GetWindowTextW")
)

type win32Source struct{}

func newPlatformSource() WindowSource { return win32Source{} }

func (win32Source) ActiveWindow() model.WindowContext {
	hwnd := windows.GetForegroundWindow()
	if hwnd == 0 {
		return model.WindowContext{}
	}

	ctx := model.WindowContext{Title: model.Known(windowText(hwnd))}

	var pid uint32
	if _, err := windows.GetWindowThreadProcessId(hwnd, &pid); err != nil || pid == 0 {
		return ctx
	}
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return ctx
	}
	defer windows.CloseHandle(h)

	buf := make([]uint16, windows.MAX_PATH)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(h, 0, &buf[0], &size); err == nil {
		ctx.Process = model.Known(filepath.Base(windows.UTF16ToString(buf[:size])))
	}
	ctx.User = processUser(h)
	return ctx
}

func windowText(hwnd windows.HWND) string {
	buf := make([]uint16, 512)
	n, _, _ := procGetWindowTextW.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	return windows.UTF16ToString(buf[:n])
}

func processUser(h windows.Handle) *string {
	var token windows.Token
	if err := windows.OpenProcessToken(h, windows.TOKEN_QUERY, &token); err != nil {
		return nil
	}
	defer token.Close()

	tu, err := token.GetTokenUser()
	if err != nil {
		return nil
	}
	account, domain, _, err := tu.User.Sid.LookupAccount("")
	if err != nil {
		return nil
	}
	return model.Known(domain + `\` + account)
}
