package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codam/web-greeter/internal/models"
)

func TestSchedulingServiceExamModeDisabled(t *testing.T) {
	svc := NewSchedulingService(SchedulingServiceParams{
		Source:           &fakeSource{exams: []models.Exam{runningExam(1, "10.12.3.0/24")}},
		Cache:            NewCacheService(&stubCacheRepo{}, nil, time.Minute, nil),
		ExamModeDisabled: true,
		Now:              func() time.Time { return testNow },
	})
	ctx := context.Background()

	snapshot, err := svc.Config(ctx, "f2r3s4.codam.nl")
	require.NoError(t, err)
	assert.Len(t, snapshot.Exams, 1)
	assert.Empty(t, snapshot.ExamsForHost)

	resp, _, err := svc.ExamModeHosts(ctx)
	require.NoError(t, err)
	assert.Empty(t, resp.ExamModeHosts)
	assert.Equal(t, examModeDisabledMessage, resp.Message)
}
