// Package availability computes open booking slots for a doctor on a date by
// subtracting scheduled appointments from the doctor's working-hours window.
package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/careflow/appointment-booking/internal/appointment"
	"github.com/careflow/appointment-booking/internal/interval"
	"github.com/careflow/appointment-booking/internal/schedule"
)

// Slot is a candidate bookable interval. Never persisted, computed on demand.
type Slot struct {
	Start time.Time
	End   time.Time
}

// OverlapFinder is the single repository query the engine needs.
type OverlapFinder interface {
	FindOverlapping(ctx context.Context, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]appointment.Appointment, error)
}

// Engine is stateless: every result is a pure function of repository reads
// and the schedule provider.
type Engine struct {
	repo     OverlapFinder
	schedule schedule.Provider
}

func NewEngine(repo OverlapFinder, sched schedule.Provider) *Engine {
	return &Engine{repo: repo, schedule: sched}
}

// AvailableSlots returns the open slots of the requested duration for the
// doctor on the given day, ordered by start time ascending. A doctor with no
// working hours configured for that weekday yields an empty result, not an
// error.
//
// Reads are unsynchronized; the authoritative overlap check for a booking
// happens again inside the conflict guard.
func (e *Engine) AvailableSlots(ctx context.Context, doctorID uuid.UUID, day time.Time, durationMins int) ([]Slot, error) {
	if durationMins <= 0 {
		return nil, appointment.ErrInvalidDuration
	}

	wh, err := e.schedule.WorkingHours(ctx, doctorID, day.Weekday())
	if err != nil {
		return nil, fmt.Errorf("load working hours: %w", err)
	}
	if wh == nil {
		return []Slot{}, nil
	}

	window := wh.Window(day)

	booked, err := e.repo.FindOverlapping(ctx, doctorID, window.Start, window.End, nil)
	if err != nil {
		return nil, fmt.Errorf("load booked appointments: %w", err)
	}

	length := time.Duration(durationMins) * time.Minute
	step := time.Duration(wh.SlotMinutes) * time.Minute

	slots := []Slot{}
	for candidate := range interval.Candidates(window, length, step) {
		if overlapsAny(candidate, booked) {
			continue
		}
		slots = append(slots, Slot{Start: candidate.Start, End: candidate.End})
	}

	return slots, nil
}

// WindowFree reports whether the single interval [start, end) is free of
// scheduled appointments for the doctor, optionally excluding one
// appointment. The booking service calls this inside the per-doctor lock.
func (e *Engine) WindowFree(ctx context.Context, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	booked, err := e.repo.FindOverlapping(ctx, doctorID, start, end, excludeID)
	if err != nil {
		return false, fmt.Errorf("check overlapping appointments: %w", err)
	}
	return len(booked) == 0, nil
}

func overlapsAny(candidate interval.Span, booked []appointment.Appointment) bool {
	for i := range booked {
		if candidate.Overlaps(booked[i].Span()) {
			return true
		}
	}
	return false
}
