package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TimeRange is an optional [From, To) filter for list queries. Nil bounds
// are open-ended.
type TimeRange struct {
	From *time.Time
	To   *time.Time
}

// Repository contains all DB interactions needed by the booking service
// and the availability engine.
type Repository interface {
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error)

	// FindOverlapping returns scheduled appointments for the doctor whose
	// [start, end) interval intersects the given one, optionally excluding
	// one appointment (used by reschedule to skip itself).
	FindOverlapping(ctx context.Context, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]Appointment, error)

	Insert(ctx context.Context, a *Appointment) (*Appointment, error)

	// UpdateSchedule moves a scheduled appointment to a new start/duration.
	// The status predicate makes the write a compare-and-set: it fails with
	// ErrAppointmentNotFound when the row is no longer scheduled.
	UpdateSchedule(ctx context.Context, id uuid.UUID, start time.Time, durationMins int) (*Appointment, error)

	// UpdateStatus transitions from one status to another as a
	// compare-and-set on the current status.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)

	ListByDoctor(ctx context.Context, doctorID uuid.UUID, r TimeRange) ([]Appointment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, r TimeRange) ([]Appointment, error)

	// FindElapsedScheduled returns scheduled appointments whose end time is
	// at or before now. Used by the completion worker.
	FindElapsedScheduled(ctx context.Context, now time.Time) ([]Appointment, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}
