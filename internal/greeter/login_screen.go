package greeter

import (
	"context"
	"strings"

	"github.com/codam/web-greeter/internal/greeter/auth"
)

// LoginScreen asks for a username and password.
type LoginScreen struct {
	form
	auth loginer

	events auth.Events

	username string
	password string
}

// NewLoginScreen constructs a hidden login screen.
func NewLoginScreen(a loginer, renderer Renderer) *LoginScreen {
	s := &LoginScreen{auth: a}
	s.init(ScreenLogin, renderer)
	s.events = &formEvents{f: &s.form, renderer: renderer, onFail: func() {
		// the username stays so only the password needs retyping
		s.mu.Lock()
		s.password = ""
		s.mu.Unlock()
		s.refreshSubmit()
	}}
	return s
}

func (s *LoginScreen) Show() {
	if s.show() {
		s.refreshSubmit()
	}
}

func (s *LoginScreen) Hide() { s.hide() }

func (s *LoginScreen) FocusTarget() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.username == "" {
		return "username"
	}
	return "password"
}

// SetCredentials mirrors the current input values.
func (s *LoginScreen) SetCredentials(username, password string) {
	s.mu.Lock()
	s.username = username
	s.password = password
	s.mu.Unlock()
	s.refreshSubmit()
}

// Credentials returns the current input values.
func (s *LoginScreen) Credentials() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username, s.password
}

// Submit starts a login with the current inputs.
func (s *LoginScreen) Submit(ctx context.Context) error {
	username, password := s.Credentials()
	return s.auth.Login(ctx, username, password)
}

func (s *LoginScreen) refreshSubmit() {
	s.mu.Lock()
	ready := strings.TrimSpace(s.username) != "" && s.password != ""
	s.mu.Unlock()
	s.EnableSubmit(ready)
}

func (s *LoginScreen) Events() auth.Events { return s.events }
