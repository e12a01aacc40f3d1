//go:build !linux && !windows && !darwin

package capability

import "github.com/Hara602/activitySentry/internal/model"

type unsupportedSource struct{}

func newPlatformSource() WindowSource { return unsupportedSource{} }

func (unsupportedSource) ActiveWindow() model.WindowContext { return model.WindowContext{} }
