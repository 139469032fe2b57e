package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/careflow/appointment-booking/internal/interval"
)

// Status is the closed set of appointment lifecycle states.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is permitted.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// transitions is the full state machine. A reschedule is modeled as
// scheduled → scheduled.
var transitions = map[Status][]Status{
	StatusScheduled: {StatusScheduled, StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

// CanTransition reports whether moving from one status to another is allowed.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Doctor struct {
	ID        uuid.UUID
	Name      string
	Specialty *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Appointment struct {
	ID             uuid.UUID
	DoctorID       uuid.UUID
	PatientID      uuid.UUID
	FacilityID     string
	Start          time.Time
	DurationMins   int
	PurposeOfVisit string
	Notes          *string
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// End returns the exclusive end of the appointment interval.
func (a *Appointment) End() time.Time {
	return a.Start.Add(time.Duration(a.DurationMins) * time.Minute)
}

// Span returns the half-open interval occupied by the appointment.
func (a *Appointment) Span() interval.Span {
	return interval.Span{Start: a.Start, End: a.End()}
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

// AppointmentDetail is a hydrated appointment with its doctor and patient.
type AppointmentDetail struct {
	Appointment
	Doctor  *Doctor
	Patient *Patient
}
