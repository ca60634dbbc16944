package greeter

import (
	"context"
	"sync"

	"github.com/codam/web-greeter/internal/greeter/auth"
)

// ScreenKind identifies one of the greeter screens.
type ScreenKind int

const (
	ScreenLogin ScreenKind = iota
	ScreenLock
	ScreenExamMode
)

func (k ScreenKind) String() string {
	switch k {
	case ScreenLogin:
		return "login"
	case ScreenLock:
		return "lock"
	case ScreenExamMode:
		return "exam-mode"
	default:
		return "unknown"
	}
}

// Screen is a form that can be shown and connected to the authenticator.
type Screen interface {
	Kind() ScreenKind
	Show()
	Hide()
	Shown() bool
	// FocusTarget names the input that should receive focus when shown.
	FocusTarget() string
	EnableSubmit(enabled bool)
	Events() auth.Events
}

// loginer is the part of the authenticator a screen submits to.
type loginer interface {
	Login(ctx context.Context, username, password string) error
}

// form carries the visibility and enablement state shared by all screens.
type form struct {
	kind     ScreenKind
	renderer Renderer

	mu      sync.Mutex
	shown   bool
	enabled bool
	submit  bool
}

func (f *form) init(kind ScreenKind, renderer Renderer) {
	f.kind = kind
	f.renderer = renderer
	f.enabled = true
}

func (f *form) Kind() ScreenKind { return f.kind }

func (f *form) Shown() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shown
}

func (f *form) show() bool {
	f.mu.Lock()
	if f.shown {
		f.mu.Unlock()
		return false
	}
	f.shown = true
	f.mu.Unlock()
	f.renderer.ShowScreen(f.kind)
	return true
}

func (f *form) hide() bool {
	f.mu.Lock()
	if !f.shown {
		f.mu.Unlock()
		return false
	}
	f.shown = false
	f.mu.Unlock()
	f.renderer.HideScreen(f.kind)
	return true
}

// FormEnabled reports whether the inputs accept interaction.
func (f *form) FormEnabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enabled
}

// SubmitEnabled reports whether the submit action is available.
func (f *form) SubmitEnabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submit
}

func (f *form) setFormEnabled(enabled bool) {
	f.mu.Lock()
	changed := f.enabled != enabled
	f.enabled = enabled
	f.mu.Unlock()
	if changed {
		f.renderer.SetFormEnabled(f.kind, enabled)
	}
}

func (f *form) EnableSubmit(enabled bool) {
	f.mu.Lock()
	changed := f.submit != enabled
	f.submit = enabled
	f.mu.Unlock()
	if changed {
		f.renderer.SetSubmitEnabled(f.kind, enabled)
	}
}

// formEvents is the default reaction of a form to authentication progress.
type formEvents struct {
	f        *form
	renderer Renderer
	onFail   func()
}

func (e formEvents) AuthenticationStart() {
	e.f.setFormEnabled(false)
}

func (e formEvents) AuthenticationComplete(context.Context) bool {
	return true
}

func (e formEvents) AuthenticationFailure() {
	if e.onFail != nil {
		e.onFail()
	}
	e.f.setFormEnabled(true)
}

func (e formEvents) ErrorMessage(message string) {
	e.renderer.Alert(message)
	e.f.setFormEnabled(true)
}

func (e formEvents) InfoMessage(message string) {
	e.renderer.Alert(message)
}
