package schedule

import (
	"time"

	"github.com/codam/web-greeter/internal/models"
)

// DefaultLeadTime is how long before an exam starts that exam mode kicks in.
const DefaultLeadTime = 20 * time.Minute

// Window is anything with a begin and end time.
type Window interface {
	Begin() time.Time
	End() time.Time
}

// CurrentExams returns the exams running at now, exclusive on both ends.
func CurrentExams[T Window](exams []T, now time.Time) []T {
	out := make([]T, 0)
	for _, e := range exams {
		if e.Begin().Before(now) && now.Before(e.End()) {
			out = append(out, e)
		}
	}
	return out
}

// UpcomingWithinWindow returns the exams for which now lies in
// [begin-lead, end). An exam starting exactly lead from now is included.
func UpcomingWithinWindow[T Window](exams []T, now time.Time, lead time.Duration) []T {
	out := make([]T, 0)
	for _, e := range exams {
		opensAt := e.Begin().Add(-lead)
		if !now.Before(opensAt) && now.Before(e.End()) {
			out = append(out, e)
		}
	}
	return out
}

// ExamsForHost projects the exams admitting hostIP to their host-facing shape.
func ExamsForHost(exams []models.Exam, hostIP string) []models.ExamForHost {
	out := make([]models.ExamForHost, 0)
	if hostIP == "" {
		return out
	}
	for _, e := range exams {
		if IsAvailable(e, hostIP) {
			out = append(out, models.ExamForHost{
				ID:      e.ID,
				Name:    e.Name,
				BeginAt: e.BeginAt,
				EndAt:   e.EndAt,
			})
		}
	}
	return out
}
