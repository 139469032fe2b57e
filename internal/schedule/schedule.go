// Package schedule provides doctor working-hours lookup. The booking core
// treats it as an injected capability: hours are read, never written, by the
// scheduling logic.
package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/careflow/appointment-booking/internal/interval"
)

// WorkingHours is a doctor's bookable window for one weekday, expressed as
// minutes from midnight, plus the slot granularity for that day.
type WorkingHours struct {
	StartMinute int
	EndMinute   int
	SlotMinutes int
}

// Window anchors the working hours onto a concrete date, in that date's
// location.
func (w WorkingHours) Window(day time.Time) interval.Span {
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return interval.Span{
		Start: midnight.Add(time.Duration(w.StartMinute) * time.Minute),
		End:   midnight.Add(time.Duration(w.EndMinute) * time.Minute),
	}
}

// Provider resolves working hours per doctor and weekday. A nil result with
// a nil error means the doctor has no configured hours for that weekday.
type Provider interface {
	WorkingHours(ctx context.Context, doctorID uuid.UUID, weekday time.Weekday) (*WorkingHours, error)
}

// StaticProvider serves a fixed in-memory schedule. Used in tests and by the
// simulator.
type StaticProvider struct {
	hours map[uuid.UUID]map[time.Weekday]WorkingHours
}

func NewStaticProvider() *StaticProvider {
	return &StaticProvider{hours: make(map[uuid.UUID]map[time.Weekday]WorkingHours)}
}

// Set registers working hours for a doctor on a weekday, replacing any
// previous entry.
func (p *StaticProvider) Set(doctorID uuid.UUID, weekday time.Weekday, wh WorkingHours) {
	byDay, ok := p.hours[doctorID]
	if !ok {
		byDay = make(map[time.Weekday]WorkingHours)
		p.hours[doctorID] = byDay
	}
	byDay[weekday] = wh
}

func (p *StaticProvider) WorkingHours(_ context.Context, doctorID uuid.UUID, weekday time.Weekday) (*WorkingHours, error) {
	byDay, ok := p.hours[doctorID]
	if !ok {
		return nil, nil
	}
	wh, ok := byDay[weekday]
	if !ok {
		return nil, nil
	}
	return &wh, nil
}
