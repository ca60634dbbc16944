package greeter

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/codam/web-greeter/internal/greeter/auth"
	"github.com/codam/web-greeter/internal/models"
)

// ErrExamNotStarted is returned by Start before the earliest exam begins
// or when no exam is displayed.
var ErrExamNotStarted = errors.New("exam has not started yet")

// AfterFunc schedules f after d and returns a function cancelling it.
type AfterFunc func(d time.Duration, f func()) (stop func() bool)

func timeAfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// ExamScreen offers a single button starting the shared exam session.
type ExamScreen struct {
	form
	auth     loginer
	username string
	password string
	after    AfterFunc
	events   auth.Events

	exams      []models.ExamForHost
	cancelWait func() bool
	// gen changes whenever the displayed exams do; a start timer only
	// fires for the generation that scheduled it.
	gen uint64
}

// ExamScreenConfig configures an ExamScreen.
type ExamScreenConfig struct {
	Username string
	Password string
	// AfterFunc defaults to time.AfterFunc.
	AfterFunc AfterFunc
}

// NewExamScreen constructs a hidden exam-mode screen.
func NewExamScreen(a loginer, renderer Renderer, cfg ExamScreenConfig) *ExamScreen {
	if cfg.AfterFunc == nil {
		cfg.AfterFunc = timeAfterFunc
	}
	s := &ExamScreen{
		auth:     a,
		username: cfg.Username,
		password: cfg.Password,
		after:    cfg.AfterFunc,
	}
	s.init(ScreenExamMode, renderer)
	s.events = &examEvents{formEvents{f: &s.form, renderer: renderer}, s}
	return s
}

func (s *ExamScreen) Show() { s.show() }

func (s *ExamScreen) Hide() { s.hide() }

func (s *ExamScreen) FocusTarget() string { return "start" }

// Exams returns the exams currently displayed.
func (s *ExamScreen) Exams() []models.ExamForHost {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ExamForHost(nil), s.exams...)
}

// SetExams displays exams. The start button stays disabled until the
// earliest begin time and is re-enabled by a timer at exactly that moment.
// details supplies project names; exams missing from it are shown by name.
func (s *ExamScreen) SetExams(exams []models.ExamForHost, details []models.Exam, now time.Time) {
	sorted := append([]models.ExamForHost(nil), exams...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].BeginAt.Before(sorted[j].BeginAt) })

	s.mu.Lock()
	if s.cancelWait != nil {
		s.cancelWait()
		s.cancelWait = nil
	}
	s.gen++
	gen := s.gen
	s.exams = sorted
	s.mu.Unlock()

	s.renderer.SetStatus(ScreenExamMode, describeExams(sorted, details))
	if len(sorted) == 0 {
		s.EnableSubmit(false)
		return
	}

	wait := sorted[0].BeginAt.Sub(now)
	if wait <= 0 {
		s.EnableSubmit(true)
		return
	}
	s.EnableSubmit(false)
	stop := s.after(wait, func() { s.enableFor(gen) })
	s.mu.Lock()
	s.cancelWait = stop
	s.mu.Unlock()
}

// Clear removes the displayed exams and cancels the pending start timer.
func (s *ExamScreen) Clear() {
	s.mu.Lock()
	if s.cancelWait != nil {
		s.cancelWait()
		s.cancelWait = nil
	}
	s.gen++
	s.exams = nil
	s.mu.Unlock()
	s.EnableSubmit(false)
	s.renderer.SetStatus(ScreenExamMode, "")
}

// enableFor enables the start button unless the exams changed since gen.
func (s *ExamScreen) enableFor(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.submit {
		s.mu.Unlock()
		return
	}
	s.submit = true
	s.mu.Unlock()
	s.renderer.SetSubmitEnabled(ScreenExamMode, true)
}

// Start logs in with the shared exam account.
func (s *ExamScreen) Start(ctx context.Context) error {
	s.mu.Lock()
	ready := len(s.exams) > 0 && s.submit
	s.mu.Unlock()
	if !ready {
		s.renderer.Debug(ErrExamNotStarted.Error())
		return ErrExamNotStarted
	}
	return s.auth.Login(ctx, s.username, s.password)
}

func (s *ExamScreen) Events() auth.Events { return s.events }

type examEvents struct {
	formEvents
	s *ExamScreen
}

// AuthenticationFailure only reports: the exam account is not expected to fail.
func (e examEvents) AuthenticationFailure() {
	e.f.setFormEnabled(true)
	e.s.renderer.Debug(fmt.Sprintf("Failed to login with username %q and password %q to start an exam session",
		e.s.username, e.s.password))
}

func (e examEvents) ErrorMessage(message string) {
	e.formEvents.ErrorMessage(message)
	e.renderer.Debug(message)
}

func describeExams(exams []models.ExamForHost, details []models.Exam) string {
	if len(exams) == 0 {
		return ""
	}
	byID := make(map[int]models.Exam, len(details))
	for _, d := range details {
		byID[d.ID] = d
	}

	lines := make([]string, 0, len(exams))
	for _, e := range exams {
		name := e.Name
		if d, ok := byID[e.ID]; ok && len(d.Projects) > 0 {
			projects := make([]string, 0, len(d.Projects))
			for _, p := range d.Projects {
				projects = append(projects, p.Name)
			}
			name = strings.Join(projects, ", ")
		}
		lines = append(lines, fmt.Sprintf("%s (%s - %s)", name,
			e.BeginAt.Local().Format("15:04"), e.EndAt.Local().Format("15:04")))
	}
	return strings.Join(lines, "\n")
}
