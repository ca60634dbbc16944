package models

import "time"

// ScheduleSnapshot is the per-host configuration served to greeters and the
// client's single source of truth for exam-mode decisions.
type ScheduleSnapshot struct {
	Hostname     string        `json:"hostname"`
	Events       []Event       `json:"events"`
	Exams        []Exam        `json:"exams"`
	ExamsForHost []ExamForHost `json:"exams_for_host"`
	FetchTime    time.Time     `json:"fetch_time"`
	Message      string        `json:"message"`
}

// IntraUser is the part of a data source user record the greeter needs.
type IntraUser struct {
	ID    int    `json:"id"`
	Login string `json:"login"`
	Image struct {
		Link     string `json:"link"`
		Versions struct {
			Large  string `json:"large"`
			Medium string `json:"medium"`
			Small  string `json:"small"`
			Micro  string `json:"micro"`
		} `json:"versions"`
	} `json:"image"`
}

// ImageURL prefers the large rendition and falls back to the original link.
func (u IntraUser) ImageURL() string {
	if u.Image.Versions.Large != "" {
		return u.Image.Versions.Large
	}
	return u.Image.Link
}
