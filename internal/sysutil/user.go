package sysutil

import (
	"os/user"

	"github.com/Hara602/activitySentry/internal/model"
)

// CurrentUser 当前 OS 用户，失败时为未知
func CurrentUser() *string {
	u, err := user.Current()
	if err != nil {
		return nil
	}
	return model.Known(u.Username)
}

// LookupUser 通过 uid 查询用户名
func LookupUser(uid string) *string {
	u, err := user.LookupId(uid)
	if err != nil {
		return nil
	}
	return model.Known(u.Username)
}
