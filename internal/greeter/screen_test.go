package greeter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codam/web-greeter/internal/models"
)

func TestLoginScreenFailureKeepsUsername(t *testing.T) {
	a := &recordingAuth{}
	r := newRecordingRenderer()
	s := NewLoginScreen(a, r)
	s.Show()

	assert.Equal(t, "username", s.FocusTarget())
	assert.False(t, s.SubmitEnabled())

	s.SetCredentials("jdoe", "hunter2")
	assert.True(t, s.SubmitEnabled())
	require.NoError(t, s.Submit(context.Background()))
	assert.Equal(t, [][2]string{{"jdoe", "hunter2"}}, a.Logins())

	s.Events().AuthenticationStart()
	assert.False(t, s.FormEnabled())

	s.Events().AuthenticationFailure()

	username, password := s.Credentials()
	assert.Equal(t, "jdoe", username)
	assert.Empty(t, password)
	assert.True(t, s.FormEnabled())
	assert.False(t, s.SubmitEnabled())
	assert.Equal(t, "password", s.FocusTarget())
}

func TestLoginScreenErrorMessageAlertsAndReenables(t *testing.T) {
	r := newRecordingRenderer()
	s := NewLoginScreen(&recordingAuth{}, r)
	s.Events().AuthenticationStart()

	s.Events().ErrorMessage("pam is down")

	assert.True(t, s.FormEnabled())
	assert.Contains(t, r.Calls(), "alert pam is down")
}

func TestLockScreenExamUserUsesFixedPassword(t *testing.T) {
	a := &recordingAuth{}
	s := NewLockScreen(a, newRecordingRenderer(), LockScreenConfig{
		User:         "exam",
		LockedAt:     testNow,
		ExamUsername: "exam",
		ExamPassword: "secret-exam",
	})
	s.Show()

	assert.True(t, s.SubmitEnabled())
	assert.Equal(t, "unlock", s.FocusTarget())
	require.NoError(t, s.Submit(context.Background()))
	assert.Equal(t, [][2]string{{"exam", "secret-exam"}}, a.Logins())
}

func TestLockScreenRegularUserTypesPassword(t *testing.T) {
	a := &recordingAuth{}
	s := NewLockScreen(a, newRecordingRenderer(), LockScreenConfig{
		User:         "jdoe",
		LockedAt:     testNow,
		ExamUsername: "exam",
		ExamPassword: "exam",
	})
	s.Show()
	assert.False(t, s.SubmitEnabled())

	s.SetPassword("hunter2")
	require.NoError(t, s.Submit(context.Background()))
	assert.Equal(t, [][2]string{{"jdoe", "hunter2"}}, a.Logins())
}

func TestLockScreenCountdown(t *testing.T) {
	r := newRecordingRenderer()
	s := NewLockScreen(&recordingAuth{}, r, LockScreenConfig{User: "jdoe", LockedAt: testNow})

	assert.Equal(t, "Automated logout occurs in 12 minutes", s.CheckTimer(testNow.Add(30*time.Minute)))
	assert.Equal(t, "Automated logout occurs in 1 minute", s.CheckTimer(testNow.Add(40*time.Minute+30*time.Second)))
	assert.Equal(t, "Automated logout occurs in 1 minute", r.Status(ScreenLock))
	assert.True(t, s.FormEnabled())
}

func TestLockScreenDisablesFormNearLogout(t *testing.T) {
	r := newRecordingRenderer()
	s := NewLockScreen(&recordingAuth{}, r, LockScreenConfig{User: "jdoe", LockedAt: testNow})

	text := s.CheckTimer(testNow.Add(43 * time.Minute))

	assert.Equal(t, logoutInProgressText, text)
	assert.False(t, s.FormEnabled())
	assert.Empty(t, r.Debugs())
}

func TestLockScreenReenablesAfterGracePeriod(t *testing.T) {
	r := newRecordingRenderer()
	s := NewLockScreen(&recordingAuth{}, r, LockScreenConfig{User: "jdoe", LockedAt: testNow})
	s.CheckTimer(testNow.Add(43 * time.Minute))
	require.False(t, s.FormEnabled())

	s.CheckTimer(testNow.Add(48 * time.Minute))
	s.CheckTimer(testNow.Add(49 * time.Minute))

	assert.True(t, s.FormEnabled())
	assert.Equal(t, []string{logoutStuckText}, r.Debugs())
	assert.Equal(t, logoutInProgressText, r.Status(ScreenLock))
}

func TestLockScreenUnknownLockTime(t *testing.T) {
	s := NewLockScreen(&recordingAuth{}, newRecordingRenderer(), LockScreenConfig{User: "jdoe"})

	assert.Empty(t, s.CheckTimer(testNow))
	assert.True(t, s.FormEnabled())
}

func TestExamScreenDescribesProjects(t *testing.T) {
	r := newRecordingRenderer()
	s := NewExamScreen(&recordingAuth{}, r, ExamScreenConfig{Username: "exam", Password: "exam", AfterFunc: (&manualTimers{}).AfterFunc})
	exam := examForHost(7, time.Hour, 3*time.Hour)
	details := []models.Exam{{ID: 7, Projects: []models.Project{{Name: "Exam Rank 02"}, {Name: "Exam Rank 03"}}}}

	s.SetExams([]models.ExamForHost{exam}, details, testNow)

	assert.Contains(t, r.Status(ScreenExamMode), "Exam Rank 02, Exam Rank 03")
	s.Clear()
	assert.Empty(t, r.Status(ScreenExamMode))
	assert.False(t, s.SubmitEnabled())
}

func TestExamScreenFailureOnlyReports(t *testing.T) {
	r := newRecordingRenderer()
	s := NewExamScreen(&recordingAuth{}, r, ExamScreenConfig{Username: "exam", Password: "exam"})
	s.Events().AuthenticationStart()

	s.Events().AuthenticationFailure()

	assert.True(t, s.FormEnabled())
	require.Len(t, r.Debugs(), 1)
	assert.Contains(t, r.Debugs()[0], `Failed to login with username "exam"`)
}

func TestExamScreenSupersededTimerDoesNotEnableStart(t *testing.T) {
	r := newRecordingRenderer()
	timers := &manualTimers{}
	s := NewExamScreen(&recordingAuth{}, r, ExamScreenConfig{Username: "exam", Password: "exam", AfterFunc: timers.AfterFunc})

	s.SetExams([]models.ExamForHost{examForHost(1, 10*time.Minute, 2*time.Hour)}, nil, testNow)
	timers.mu.Lock()
	stale := timers.pending[0]
	timers.mu.Unlock()
	require.NotNil(t, stale)

	s.SetExams([]models.ExamForHost{examForHost(2, time.Hour, 3*time.Hour)}, nil, testNow)
	stale()
	assert.False(t, s.SubmitEnabled())

	s.Clear()
	timers.FireAll()
	assert.False(t, s.SubmitEnabled())
}
