package greeter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/codam/web-greeter/internal/greeter/auth"
	"github.com/codam/web-greeter/internal/models"
)

var testNow = time.Date(2024, 11, 10, 12, 0, 0, 0, time.UTC)

type recordingRenderer struct {
	mu     sync.Mutex
	calls  []string
	status map[ScreenKind]string
	debug  []string
	msg    string
}

func newRecordingRenderer() *recordingRenderer {
	return &recordingRenderer{status: map[ScreenKind]string{}}
}

func (r *recordingRenderer) add(format string, args ...interface{}) {
	r.mu.Lock()
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
	r.mu.Unlock()
}

func (r *recordingRenderer) ShowScreen(k ScreenKind) { r.add("show %s", k) }
func (r *recordingRenderer) HideScreen(k ScreenKind) { r.add("hide %s", k) }
func (r *recordingRenderer) SetFormEnabled(k ScreenKind, on bool) {
	r.add("form %s %t", k, on)
}
func (r *recordingRenderer) SetSubmitEnabled(k ScreenKind, on bool) {
	r.add("submit %s %t", k, on)
}
func (r *recordingRenderer) SetStatus(k ScreenKind, text string) {
	r.mu.Lock()
	r.status[k] = text
	r.mu.Unlock()
}
func (r *recordingRenderer) SetMessage(text string) {
	r.mu.Lock()
	r.msg = text
	r.mu.Unlock()
}
func (r *recordingRenderer) Alert(text string) { r.add("alert %s", text) }
func (r *recordingRenderer) Debug(text string) {
	r.mu.Lock()
	r.debug = append(r.debug, text)
	r.mu.Unlock()
}

func (r *recordingRenderer) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recordingRenderer) Debugs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.debug...)
}

func (r *recordingRenderer) Status(k ScreenKind) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status[k]
}

func (r *recordingRenderer) Message() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.msg
}

// recordingAuth records subscriber changes and login attempts.
type recordingAuth struct {
	mu      sync.Mutex
	events  auth.Events
	history []auth.Events
	logins  [][2]string
	err     error
	// waitOK is what Wait reports for the last attempt.
	waitOK bool
}

func (a *recordingAuth) SetEvents(handler auth.Events) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = handler
	a.history = append(a.history, handler)
}

func (a *recordingAuth) Login(_ context.Context, username, password string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logins = append(a.logins, [2]string{username, password})
	return a.err
}

func (a *recordingAuth) Wait(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.waitOK, nil
}

func (a *recordingAuth) History() []auth.Events {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]auth.Events(nil), a.history...)
}

func (a *recordingAuth) Logins() [][2]string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([][2]string(nil), a.logins...)
}

type staticSource struct {
	mu       sync.Mutex
	snapshot *models.ScheduleSnapshot
	updates  chan *models.ScheduleSnapshot
}

func newStaticSource(s *models.ScheduleSnapshot) *staticSource {
	return &staticSource{snapshot: s, updates: make(chan *models.ScheduleSnapshot, 1)}
}

func (s *staticSource) Snapshot() *models.ScheduleSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

func (s *staticSource) Subscribe() <-chan *models.ScheduleSnapshot { return s.updates }

func (s *staticSource) Set(snapshot *models.ScheduleSnapshot) {
	s.mu.Lock()
	s.snapshot = snapshot
	s.mu.Unlock()
}

// manualTimers captures AfterFunc registrations so tests fire them explicitly.
type manualTimers struct {
	mu      sync.Mutex
	delays  []time.Duration
	pending []func()
	stopped int
}

func (m *manualTimers) AfterFunc(d time.Duration, f func()) func() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := len(m.pending)
	m.delays = append(m.delays, d)
	m.pending = append(m.pending, f)
	return func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.pending[idx] == nil {
			return false
		}
		m.pending[idx] = nil
		m.stopped++
		return true
	}
}

func (m *manualTimers) FireAll() {
	m.mu.Lock()
	fns := append([]func(){}, m.pending...)
	for i := range m.pending {
		m.pending[i] = nil
	}
	m.mu.Unlock()
	for _, f := range fns {
		if f != nil {
			f()
		}
	}
}

func examForHost(id int, begin, end time.Duration) models.ExamForHost {
	return models.ExamForHost{
		ID:      id,
		Name:    fmt.Sprintf("Exam %d", id),
		BeginAt: testNow.Add(begin),
		EndAt:   testNow.Add(end),
	}
}

func snapshotWith(exams ...models.ExamForHost) *models.ScheduleSnapshot {
	return &models.ScheduleSnapshot{
		Hostname:     "f1r1s1.codam.nl",
		Events:       []models.Event{},
		Exams:        []models.Exam{},
		ExamsForHost: exams,
	}
}
