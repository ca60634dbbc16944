package greeter

import (
	"context"
	"regexp"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/codam/web-greeter/internal/greeter/auth"
	"github.com/codam/web-greeter/internal/models"
	"github.com/codam/web-greeter/internal/schedule"
)

// DefaultExamModeCheckInterval is how often exam mode is re-evaluated
// between snapshots.
const DefaultExamModeCheckInterval = 5 * time.Second

// SnapshotSource provides the latest schedule snapshot.
type SnapshotSource interface {
	Snapshot() *models.ScheduleSnapshot
	Subscribe() <-chan *models.ScheduleSnapshot
}

// authSwitch connects a single screen to the authenticator.
type authSwitch interface {
	SetEvents(handler auth.Events)
	Wait(ctx context.Context) (bool, error)
}

// ExamModeUIState records whether exam mode is shown and for which exams.
type ExamModeUIState struct {
	Active  bool
	ExamIDs map[int]struct{}
}

// ControllerConfig wires an ExamModeController. Lock is set when the
// greeter runs as a lock screen; exam mode is then never shown.
type ControllerConfig struct {
	Login    *LoginScreen
	Exam     *ExamScreen
	Lock     *LockScreen
	Auth     authSwitch
	Source   SnapshotSource
	Renderer Renderer
	Logger   *zap.Logger

	CheckInterval time.Duration
	// LeadTime is how long before an exam begins the exam screen appears.
	// Zero or negative selects schedule.DefaultLeadTime.
	LeadTime time.Duration
	// ExamModeDisabled keeps the login screen regardless of the schedule.
	ExamModeDisabled bool
	Now              func() time.Time
}

// ExamModeController decides which screen is visible.
type ExamModeController struct {
	login    *LoginScreen
	exam     *ExamScreen
	lock     *LockScreen
	auth     authSwitch
	source   SnapshotSource
	renderer Renderer
	logger   *zap.Logger
	interval time.Duration
	lead     time.Duration
	disabled bool
	now      func() time.Time

	mu       sync.Mutex
	current  Screen
	state    ExamModeUIState
	override bool
}

// NewExamModeController constructs the controller and shows the initial
// screen: the lock screen when configured, the login screen otherwise.
func NewExamModeController(cfg ControllerConfig) *ExamModeController {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = DefaultExamModeCheckInterval
	}
	if cfg.LeadTime <= 0 {
		cfg.LeadTime = schedule.DefaultLeadTime
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	c := &ExamModeController{
		login:    cfg.Login,
		exam:     cfg.Exam,
		lock:     cfg.Lock,
		auth:     cfg.Auth,
		source:   cfg.Source,
		renderer: cfg.Renderer,
		logger:   cfg.Logger,
		interval: cfg.CheckInterval,
		lead:     cfg.LeadTime,
		disabled: cfg.ExamModeDisabled,
		now:      cfg.Now,
	}

	c.mu.Lock()
	if c.lock != nil {
		c.switchTo(c.lock)
	} else {
		c.switchTo(c.login)
	}
	c.mu.Unlock()
	return c
}

// Check evaluates the exam-mode rules once and reports whether the exam
// screen is shown.
func (c *ExamModeController) Check() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lock != nil {
		return false
	}

	var snapshot *models.ScheduleSnapshot
	if c.source != nil {
		snapshot = c.source.Snapshot()
	}
	if snapshot == nil {
		c.leaveExamMode()
		c.switchTo(c.login)
		return false
	}

	now := c.now()
	active := schedule.UpcomingWithinWindow(snapshot.ExamsForHost, now, c.lead)

	if c.override || c.disabled || len(active) == 0 {
		if c.state.Active {
			c.logger.Info("deactivating exam mode")
			c.leaveExamMode()
		}
		c.switchTo(c.login)
		return false
	}

	ids := examIDs(active)
	if !c.state.Active || !sameIDs(ids, c.state.ExamIDs) {
		c.logger.Info("activating exam mode", zap.Int("exams", len(active)))
		c.exam.SetExams(active, snapshot.Exams, now)
		c.state = ExamModeUIState{Active: true, ExamIDs: ids}
		c.switchTo(c.exam)
	}
	return true
}

// Override hides exam mode for the rest of the process lifetime.
func (c *ExamModeController) Override() {
	c.mu.Lock()
	c.override = true
	c.mu.Unlock()
	c.logger.Warn("exam mode overridden")
	c.Check()
}

// StartExam presses the exam screen's start button and waits for the
// login attempt to finish. It reports whether the session was started.
func (c *ExamModeController) StartExam(ctx context.Context) (bool, error) {
	c.mu.Lock()
	onExam := c.current == Screen(c.exam)
	c.mu.Unlock()
	if !onExam {
		return false, ErrExamNotStarted
	}
	if err := c.exam.Start(ctx); err != nil {
		return false, err
	}
	ok, err := c.auth.Wait(ctx)
	if err != nil {
		return false, err
	}
	if ok {
		c.logger.Info("exam session started")
	} else {
		c.logger.Warn("exam session did not start")
	}
	return ok, nil
}

// State returns a copy of the exam-mode state.
func (c *ExamModeController) State() ExamModeUIState {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make(map[int]struct{}, len(c.state.ExamIDs))
	for id := range c.state.ExamIDs {
		ids[id] = struct{}{}
	}
	return ExamModeUIState{Active: c.state.Active, ExamIDs: ids}
}

// Current returns the kind of the visible screen.
func (c *ExamModeController) Current() ScreenKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current.Kind()
}

// Run re-evaluates on every snapshot and every check interval until ctx is
// done. The lock screen countdown runs alongside when configured.
func (c *ExamModeController) Run(ctx context.Context) error {
	var updates <-chan *models.ScheduleSnapshot
	if c.source != nil {
		updates = c.source.Subscribe()
		if s := c.source.Snapshot(); s != nil {
			c.setMessage(s.Message)
		}
	}

	var wg sync.WaitGroup
	if c.lock != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.lock.RunTimer(ctx, LockTimerInterval, c.now)
		}()
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.Check()
	for {
		select {
		case <-ctx.Done():
			c.mu.Lock()
			c.exam.Clear()
			c.mu.Unlock()
			wg.Wait()
			return ctx.Err()
		case <-ticker.C:
			c.Check()
		case snapshot := <-updates:
			if snapshot != nil {
				c.setMessage(snapshot.Message)
			}
			c.Check()
		}
	}
}

func (c *ExamModeController) setMessage(message string) {
	if c.renderer != nil {
		c.renderer.SetMessage(StripMarkup(message))
	}
}

// leaveExamMode clears the exam state. Callers hold c.mu.
func (c *ExamModeController) leaveExamMode() {
	if c.state.Active {
		c.exam.Clear()
	}
	c.state = ExamModeUIState{}
}

// switchTo hides the visible screen and disconnects it from the
// authenticator before connecting and showing next. Callers hold c.mu.
func (c *ExamModeController) switchTo(next Screen) {
	if c.current == next && next.Shown() {
		return
	}
	if c.current != nil {
		c.current.Hide()
		c.auth.SetEvents(nil)
	}
	next.Show()
	c.auth.SetEvents(next.Events())
	c.current = next
}

func examIDs(exams []models.ExamForHost) map[int]struct{} {
	ids := make(map[int]struct{}, len(exams))
	for _, e := range exams {
		ids[e.ID] = struct{}{}
	}
	return ids
}

func sameIDs(a, b map[int]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if _, ok := b[id]; !ok {
			return false
		}
	}
	return true
}

var markupTags = regexp.MustCompile(`<[^>]+>`)

// StripMarkup removes HTML tags from a broadcast message.
func StripMarkup(message string) string {
	return markupTags.ReplaceAllString(message, "")
}
