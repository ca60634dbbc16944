package greeter

import (
	"go.uber.org/zap"
)

// Renderer receives every visible state change. Drawing is left to the
// implementation.
type Renderer interface {
	ShowScreen(kind ScreenKind)
	HideScreen(kind ScreenKind)
	SetFormEnabled(kind ScreenKind, enabled bool)
	SetSubmitEnabled(kind ScreenKind, enabled bool)
	SetStatus(kind ScreenKind, text string)
	SetMessage(text string)
	Alert(text string)
	Debug(text string)
}

// LogRenderer writes state changes to a zap logger. It is used when the
// client runs without a display.
type LogRenderer struct {
	logger *zap.Logger
}

// NewLogRenderer returns a renderer logging to l.
func NewLogRenderer(l *zap.Logger) *LogRenderer {
	if l == nil {
		l = zap.NewNop()
	}
	return &LogRenderer{logger: l.Named("ui")}
}

func (r *LogRenderer) ShowScreen(kind ScreenKind) {
	r.logger.Info("screen shown", zap.Stringer("screen", kind))
}

func (r *LogRenderer) HideScreen(kind ScreenKind) {
	r.logger.Info("screen hidden", zap.Stringer("screen", kind))
}

func (r *LogRenderer) SetFormEnabled(kind ScreenKind, enabled bool) {
	r.logger.Debug("form state", zap.Stringer("screen", kind), zap.Bool("enabled", enabled))
}

func (r *LogRenderer) SetSubmitEnabled(kind ScreenKind, enabled bool) {
	r.logger.Debug("submit state", zap.Stringer("screen", kind), zap.Bool("enabled", enabled))
}

func (r *LogRenderer) SetStatus(kind ScreenKind, text string) {
	r.logger.Info("status", zap.Stringer("screen", kind), zap.String("text", text))
}

func (r *LogRenderer) SetMessage(text string) {
	r.logger.Info("message", zap.String("text", text))
}

func (r *LogRenderer) Alert(text string) {
	r.logger.Warn("alert", zap.String("text", text))
}

func (r *LogRenderer) Debug(text string) {
	r.logger.Debug("debug info", zap.String("text", text))
}
