package greeter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codam/web-greeter/internal/greeter/auth"
	"github.com/codam/web-greeter/internal/models"
	"github.com/codam/web-greeter/internal/schedule"
)

type controllerFixture struct {
	ctrl     *ExamModeController
	login    *LoginScreen
	exam     *ExamScreen
	lock     *LockScreen
	auth     *recordingAuth
	renderer *recordingRenderer
	source   *staticSource
	timers   *manualTimers
	now      time.Time
}

func newControllerFixture(t *testing.T, snapshot *models.ScheduleSnapshot, opts ...func(*ControllerConfig)) *controllerFixture {
	t.Helper()
	f := &controllerFixture{
		auth:     &recordingAuth{},
		renderer: newRecordingRenderer(),
		source:   newStaticSource(snapshot),
		timers:   &manualTimers{},
		now:      testNow,
	}
	f.login = NewLoginScreen(f.auth, f.renderer)
	f.exam = NewExamScreen(f.auth, f.renderer, ExamScreenConfig{
		Username:  "exam",
		Password:  "exam",
		AfterFunc: f.timers.AfterFunc,
	})
	cfg := ControllerConfig{
		Login:    f.login,
		Exam:     f.exam,
		Auth:     f.auth,
		Source:   f.source,
		Renderer: f.renderer,
		LeadTime: schedule.DefaultLeadTime,
		Now:      func() time.Time { return f.now },
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	f.lock = cfg.Lock
	f.ctrl = NewExamModeController(cfg)
	return f
}

func countCalls(calls []string, want string) int {
	n := 0
	for _, c := range calls {
		if c == want {
			n++
		}
	}
	return n
}

func TestControllerStartsOnLoginScreen(t *testing.T) {
	f := newControllerFixture(t, nil)

	assert.Equal(t, ScreenLogin, f.ctrl.Current())
	assert.True(t, f.login.Shown())
	assert.Equal(t, []auth.Events{f.login.Events()}, f.auth.History())
}

func TestControllerNoSnapshotShowsLogin(t *testing.T) {
	f := newControllerFixture(t, nil)

	assert.False(t, f.ctrl.Check())
	assert.Equal(t, ScreenLogin, f.ctrl.Current())
	assert.False(t, f.ctrl.State().Active)
}

func TestControllerShowsExamModeWithinLeadTime(t *testing.T) {
	f := newControllerFixture(t, snapshotWith(examForHost(7, 10*time.Minute, 3*time.Hour)))

	assert.True(t, f.ctrl.Check())
	assert.Equal(t, ScreenExamMode, f.ctrl.Current())
	assert.False(t, f.login.Shown())

	state := f.ctrl.State()
	assert.True(t, state.Active)
	assert.Equal(t, map[int]struct{}{7: {}}, state.ExamIDs)
	assert.Equal(t, f.exam.Events(), f.auth.events)
}

func TestControllerIgnoresExamsOutsideLeadTime(t *testing.T) {
	f := newControllerFixture(t, snapshotWith(examForHost(7, 21*time.Minute, 3*time.Hour)))

	assert.False(t, f.ctrl.Check())
	assert.Equal(t, ScreenLogin, f.ctrl.Current())
}

func TestControllerCheckIsIdempotent(t *testing.T) {
	f := newControllerFixture(t, snapshotWith(examForHost(7, 10*time.Minute, 3*time.Hour)))

	require.True(t, f.ctrl.Check())
	require.True(t, f.ctrl.Check())
	f.now = f.now.Add(time.Minute)
	require.True(t, f.ctrl.Check())

	assert.Equal(t, 1, countCalls(f.renderer.Calls(), "show exam-mode"))
	assert.Len(t, f.timers.delays, 1)
}

func TestControllerReRendersWhenExamSetChanges(t *testing.T) {
	f := newControllerFixture(t, snapshotWith(examForHost(7, 10*time.Minute, 3*time.Hour)))
	require.True(t, f.ctrl.Check())

	f.source.Set(snapshotWith(
		examForHost(7, 10*time.Minute, 3*time.Hour),
		examForHost(8, 15*time.Minute, 3*time.Hour),
	))
	require.True(t, f.ctrl.Check())

	assert.Equal(t, map[int]struct{}{7: {}, 8: {}}, f.ctrl.State().ExamIDs)
	assert.Len(t, f.exam.Exams(), 2)
	assert.Len(t, f.timers.delays, 2)
	assert.Equal(t, 1, f.timers.stopped)
	assert.Equal(t, 1, countCalls(f.renderer.Calls(), "show exam-mode"))
}

func TestControllerStartButtonWaitsForBegin(t *testing.T) {
	f := newControllerFixture(t, snapshotWith(examForHost(7, 10*time.Minute, 3*time.Hour)))
	require.True(t, f.ctrl.Check())

	assert.Equal(t, []time.Duration{10 * time.Minute}, f.timers.delays)
	assert.False(t, f.exam.SubmitEnabled())
	assert.ErrorIs(t, f.exam.Start(context.Background()), ErrExamNotStarted)
	assert.Empty(t, f.auth.Logins())

	f.timers.FireAll()

	assert.True(t, f.exam.SubmitEnabled())
	require.NoError(t, f.exam.Start(context.Background()))
	assert.Equal(t, [][2]string{{"exam", "exam"}}, f.auth.Logins())
}

func TestControllerRunningExamEnablesStartImmediately(t *testing.T) {
	f := newControllerFixture(t, snapshotWith(examForHost(7, -10*time.Minute, time.Hour)))
	require.True(t, f.ctrl.Check())

	assert.Empty(t, f.timers.delays)
	assert.True(t, f.exam.SubmitEnabled())
}

func TestControllerExitsToLoginWhenExamEnds(t *testing.T) {
	f := newControllerFixture(t, snapshotWith(examForHost(7, 10*time.Minute, time.Hour)))
	require.True(t, f.ctrl.Check())

	f.now = testNow.Add(time.Hour)

	assert.False(t, f.ctrl.Check())
	assert.Equal(t, ScreenLogin, f.ctrl.Current())
	assert.False(t, f.ctrl.State().Active)
	assert.Empty(t, f.exam.Exams())
	assert.Equal(t, 1, f.timers.stopped)
}

func TestControllerExitsToLoginWhenSnapshotDisappears(t *testing.T) {
	f := newControllerFixture(t, snapshotWith(examForHost(7, 0, time.Hour)))
	require.True(t, f.ctrl.Check())

	f.source.Set(nil)

	assert.False(t, f.ctrl.Check())
	assert.Equal(t, ScreenLogin, f.ctrl.Current())
	assert.False(t, f.ctrl.State().Active)
}

func TestControllerSwitchesDisconnectBeforeConnect(t *testing.T) {
	f := newControllerFixture(t, snapshotWith(examForHost(7, 10*time.Minute, time.Hour)))
	require.True(t, f.ctrl.Check())
	f.now = testNow.Add(2 * time.Hour)
	require.False(t, f.ctrl.Check())

	assert.Equal(t, []auth.Events{
		f.login.Events(),
		nil,
		f.exam.Events(),
		nil,
		f.login.Events(),
	}, f.auth.History())
}

func TestControllerOverridePersists(t *testing.T) {
	f := newControllerFixture(t, snapshotWith(examForHost(7, 0, time.Hour)))
	require.True(t, f.ctrl.Check())

	f.ctrl.Override()

	assert.Equal(t, ScreenLogin, f.ctrl.Current())
	f.source.Set(snapshotWith(examForHost(9, 0, time.Hour)))
	assert.False(t, f.ctrl.Check())
	assert.Equal(t, ScreenLogin, f.ctrl.Current())
}

func TestControllerExamModeDisabled(t *testing.T) {
	f := newControllerFixture(t, snapshotWith(examForHost(7, 0, time.Hour)), func(cfg *ControllerConfig) {
		cfg.ExamModeDisabled = true
	})

	assert.False(t, f.ctrl.Check())
	assert.Equal(t, ScreenLogin, f.ctrl.Current())
}

func TestControllerLockScreenNeverChanges(t *testing.T) {
	var lock *LockScreen
	f := newControllerFixture(t, snapshotWith(examForHost(7, 0, time.Hour)), func(cfg *ControllerConfig) {
		lock = NewLockScreen(cfg.Auth.(*recordingAuth), cfg.Renderer, LockScreenConfig{User: "jdoe", LockedAt: testNow})
		cfg.Lock = lock
	})

	assert.False(t, f.ctrl.Check())
	assert.Equal(t, ScreenLock, f.ctrl.Current())
	assert.True(t, lock.Shown())
	assert.False(t, f.exam.Shown())
	assert.Equal(t, []auth.Events{lock.Events()}, f.auth.History())
}

func TestControllerRunReactsToSnapshots(t *testing.T) {
	f := newControllerFixture(t, nil, func(cfg *ControllerConfig) {
		cfg.CheckInterval = time.Hour
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.ctrl.Run(ctx) }()

	snapshot := snapshotWith(examForHost(7, 0, time.Hour))
	snapshot.Message = "<b>Cluster</b> closes at 18:00"
	f.source.Set(snapshot)
	f.source.updates <- snapshot

	require.Eventually(t, func() bool {
		return f.ctrl.Current() == ScreenExamMode && f.renderer.Message() == "Cluster closes at 18:00"
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
	assert.Empty(t, f.exam.Exams())
}

func TestControllerUnsetLeadTimeUsesDefault(t *testing.T) {
	f := newControllerFixture(t, snapshotWith(examForHost(7, 10*time.Minute, 3*time.Hour)),
		func(cfg *ControllerConfig) { cfg.LeadTime = 0 })

	assert.True(t, f.ctrl.Check())
	assert.Equal(t, ScreenExamMode, f.ctrl.Current())
}

func TestControllerStartExamWaitsForOutcome(t *testing.T) {
	f := newControllerFixture(t, snapshotWith(examForHost(7, -time.Minute, time.Hour)))
	f.auth.waitOK = true
	require.True(t, f.ctrl.Check())

	ok, err := f.ctrl.StartExam(context.Background())

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, [][2]string{{"exam", "exam"}}, f.auth.Logins())
}

func TestControllerStartExamOutsideExamMode(t *testing.T) {
	f := newControllerFixture(t, snapshotWith(examForHost(7, time.Hour, 3*time.Hour)))
	require.False(t, f.ctrl.Check())

	ok, err := f.ctrl.StartExam(context.Background())

	assert.ErrorIs(t, err, ErrExamNotStarted)
	assert.False(t, ok)
	assert.Empty(t, f.auth.Logins())
}

func TestControllerStartExamWithRealAuthenticatorReportsFailure(t *testing.T) {
	provider := auth.NewStaticProvider(map[string]string{"exam": "other"})
	authenticator := auth.New(provider, auth.Options{})
	renderer := newRecordingRenderer()
	ctrl := NewExamModeController(ControllerConfig{
		Login:    NewLoginScreen(authenticator, renderer),
		Exam:     NewExamScreen(authenticator, renderer, ExamScreenConfig{Username: "exam", Password: "exam"}),
		Auth:     authenticator,
		Source:   newStaticSource(snapshotWith(examForHost(7, -time.Minute, time.Hour))),
		Renderer: renderer,
		Now:      func() time.Time { return testNow },
	})
	require.True(t, ctrl.Check())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go func() { _ = authenticator.Run(ctx) }()

	ok, err := ctrl.StartExam(ctx)

	require.NoError(t, err)
	assert.False(t, ok)
}
