package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Cursus is a curriculum an exam belongs to.
type Cursus struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Project is a project an exam can be taken for.
type Project struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// IPRanges is the list of CIDR or range strings admitting hosts to an exam.
// The data source sends a comma-separated string; greeters receive an array.
// Both forms decode.
type IPRanges []string

// UnmarshalJSON accepts a JSON array of strings or a comma-separated string.
func (r *IPRanges) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*r = ParseIPRanges(strings.Join(list, ","))
		return nil
	}
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("ip_range: %w", err)
	}
	if raw == nil {
		*r = IPRanges{}
		return nil
	}
	*r = ParseIPRanges(*raw)
	return nil
}

// ParseIPRanges splits a comma-separated list, trimming and dropping empty entries.
func ParseIPRanges(raw string) IPRanges {
	out := IPRanges{}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Exam is a scheduled exam session.
type Exam struct {
	ID             int       `json:"id" validate:"required,gt=0"`
	Name           string    `json:"name"`
	IPRange        IPRanges  `json:"ip_range"`
	BeginAt        time.Time `json:"begin_at" validate:"required"`
	EndAt          time.Time `json:"end_at" validate:"required"`
	Location       *string   `json:"location"`
	MaxPeople      *int      `json:"max_people"`
	NbrSubscribers int       `json:"nbr_subscribers"`
	Cursus         []Cursus  `json:"cursus"`
	Projects       []Project `json:"projects"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Begin returns the start of the exam.
func (e Exam) Begin() time.Time { return e.BeginAt }

// End returns the end of the exam.
func (e Exam) End() time.Time { return e.EndAt }

// Normalize removes duplicate cursus entries (by id), keeping the first.
func (e *Exam) Normalize() {
	if len(e.Cursus) < 2 {
		return
	}
	seen := make(map[int]struct{}, len(e.Cursus))
	unique := e.Cursus[:0]
	for _, c := range e.Cursus {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		unique = append(unique, c)
	}
	e.Cursus = unique
}

// ToEvent derives the calendar view of the exam.
func (e Exam) ToEvent() Event {
	names := make([]string, 0, len(e.Projects))
	for _, p := range e.Projects {
		names = append(names, p.Name)
	}
	cursusIDs := make([]int, 0, len(e.Cursus))
	for _, c := range e.Cursus {
		cursusIDs = append(cursusIDs, c.ID)
	}
	return Event{
		ID:             e.ID,
		Name:           e.Name,
		Description:    "For " + strings.Join(names, ", "),
		Location:       e.Location,
		Kind:           EventKindExam,
		MaxPeople:      e.MaxPeople,
		NbrSubscribers: e.NbrSubscribers,
		BeginAt:        e.BeginAt,
		EndAt:          e.EndAt,
		CampusIDs:      []int{},
		CursusIDs:      cursusIDs,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

// ExamForHost is an exam as seen by one workstation.
type ExamForHost struct {
	ID      int       `json:"id"`
	Name    string    `json:"name"`
	BeginAt time.Time `json:"begin_at"`
	EndAt   time.Time `json:"end_at"`
}

// Begin returns the start of the exam.
func (e ExamForHost) Begin() time.Time { return e.BeginAt }

// End returns the end of the exam.
func (e ExamForHost) End() time.Time { return e.EndAt }
