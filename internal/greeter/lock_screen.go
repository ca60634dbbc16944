package greeter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/codam/web-greeter/internal/greeter/auth"
)

const (
	// AutoLogoutAfter is how long a session may stay locked before the
	// idle service logs it out.
	AutoLogoutAfter = 42 * time.Minute
	// AutoLogoutGrace is how long past the deadline the form stays disabled.
	AutoLogoutGrace = 5 * time.Minute
	// LockTimerInterval is how often the remaining time is re-evaluated.
	LockTimerInterval = 10 * time.Second

	logoutImminent = 15 * time.Second

	logoutInProgressText = "Automated logout in progress..."
	logoutStuckText      = "Automated logout appears to take a while. Is the systemd idling service from codam-web-greeter installed and enabled?"
)

// LockScreen unlocks the session of the user that locked it.
type LockScreen struct {
	form
	auth   loginer
	events auth.Events

	user         string
	lockedAt     time.Time
	examUsername string
	examPassword string

	password string

	timerMu     sync.Mutex
	diagnosed   bool
	lastMessage string
}

// LockScreenConfig configures a LockScreen.
type LockScreenConfig struct {
	User     string
	LockedAt time.Time
	// ExamUsername has no password field; ExamPassword is submitted instead.
	ExamUsername string
	ExamPassword string
}

// NewLockScreen constructs a hidden lock screen for cfg.User.
func NewLockScreen(a loginer, renderer Renderer, cfg LockScreenConfig) *LockScreen {
	s := &LockScreen{
		auth:         a,
		user:         cfg.User,
		lockedAt:     cfg.LockedAt,
		examUsername: cfg.ExamUsername,
		examPassword: cfg.ExamPassword,
	}
	s.init(ScreenLock, renderer)
	s.events = &formEvents{f: &s.form, renderer: renderer, onFail: func() {
		s.mu.Lock()
		s.password = ""
		s.mu.Unlock()
		s.refreshSubmit()
	}}
	return s
}

func (s *LockScreen) Show() {
	if s.show() {
		s.refreshSubmit()
	}
}

func (s *LockScreen) Hide() { s.hide() }

// User returns the login of the locked session.
func (s *LockScreen) User() string { return s.user }

func (s *LockScreen) isExamUser() bool {
	return s.examUsername != "" && s.user == s.examUsername
}

func (s *LockScreen) FocusTarget() string {
	if s.isExamUser() {
		return "unlock"
	}
	return "password"
}

// SetPassword mirrors the password input.
func (s *LockScreen) SetPassword(password string) {
	s.mu.Lock()
	s.password = password
	s.mu.Unlock()
	s.refreshSubmit()
}

// Submit unlocks with the typed password, or the fixed exam password for
// the exam user.
func (s *LockScreen) Submit(ctx context.Context) error {
	password := s.examPassword
	if !s.isExamUser() {
		s.mu.Lock()
		password = s.password
		s.mu.Unlock()
	}
	return s.auth.Login(ctx, s.user, password)
}

func (s *LockScreen) refreshSubmit() {
	s.mu.Lock()
	ready := s.isExamUser() || s.password != ""
	s.mu.Unlock()
	s.EnableSubmit(ready)
}

func (s *LockScreen) Events() auth.Events { return s.events }

// Remaining returns the time left before the automated logout; negative
// once the deadline has passed.
func (s *LockScreen) Remaining(now time.Time) time.Duration {
	return AutoLogoutAfter - now.Sub(s.lockedAt)
}

// CheckTimer updates the logout countdown and returns the text shown. An
// unknown lock time disables the countdown.
func (s *LockScreen) CheckTimer(now time.Time) string {
	if s.lockedAt.IsZero() {
		return ""
	}
	remaining := s.Remaining(now)

	var text string
	if remaining <= logoutImminent {
		text = logoutInProgressText
		if remaining < -AutoLogoutGrace {
			// logout never happened, let the user unlock again
			s.setFormEnabled(true)
			s.timerMu.Lock()
			first := !s.diagnosed
			s.diagnosed = true
			s.timerMu.Unlock()
			if first {
				s.renderer.Debug(logoutStuckText)
			}
		} else {
			s.setFormEnabled(false)
		}
	} else {
		minutes := int(remaining / time.Minute)
		unit := "minutes"
		if minutes == 1 {
			unit = "minute"
		}
		text = fmt.Sprintf("Automated logout occurs in %d %s", minutes, unit)
	}

	s.timerMu.Lock()
	changed := text != s.lastMessage
	s.lastMessage = text
	s.timerMu.Unlock()
	if changed {
		s.renderer.SetStatus(ScreenLock, text)
	}
	return text
}

// RunTimer evaluates CheckTimer every interval until ctx is done.
func (s *LockScreen) RunTimer(ctx context.Context, interval time.Duration, now func() time.Time) {
	if interval <= 0 {
		interval = LockTimerInterval
	}
	if now == nil {
		now = time.Now
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.CheckTimer(now())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CheckTimer(now())
		}
	}
}
