package models

import "time"

// EventKind classifies a campus event.
type EventKind string

const (
	EventKindStandup     EventKind = "standup"
	EventKindRush        EventKind = "rush"
	EventKindPiscine     EventKind = "piscine"
	EventKindPartnership EventKind = "partnership"
	EventKindConference  EventKind = "conference"
	EventKindMeetup      EventKind = "meet_up"
	EventKindEvent       EventKind = "event"
	EventKindAssociation EventKind = "association"
	EventKindHackathon   EventKind = "hackathon"
	EventKindWorkshop    EventKind = "workshop"
	EventKindChallenge   EventKind = "challenge"
	EventKindExtern      EventKind = "extern"
	EventKindExam        EventKind = "exam"
)

// DisplayedEventKinds are the kinds requested from the data source. Exams
// come from their own endpoint and standups are not shown on the greeter.
var DisplayedEventKinds = []EventKind{
	EventKindRush, EventKindPiscine, EventKindPartnership,
	EventKindConference, EventKindMeetup, EventKindEvent,
	EventKindAssociation,
	EventKindHackathon, EventKindWorkshop, EventKindChallenge,
	EventKindExtern,
}

// Event is a campus event as served to greeters.
type Event struct {
	ID             int       `json:"id" validate:"required,gt=0"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Location       *string   `json:"location"`
	Kind           EventKind `json:"kind"`
	MaxPeople      *int      `json:"max_people"`
	NbrSubscribers int       `json:"nbr_subscribers"`
	BeginAt        time.Time `json:"begin_at" validate:"required"`
	EndAt          time.Time `json:"end_at" validate:"required"`
	CampusIDs      []int     `json:"campus_ids"`
	CursusIDs      []int     `json:"cursus_ids"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Begin returns the start of the event.
func (e Event) Begin() time.Time { return e.BeginAt }

// End returns the end of the event.
func (e Event) End() time.Time { return e.EndAt }
