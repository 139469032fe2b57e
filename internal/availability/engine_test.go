package availability

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careflow/appointment-booking/internal/appointment"
	"github.com/careflow/appointment-booking/internal/interval"
	"github.com/careflow/appointment-booking/internal/schedule"
)

type fakeFinder struct {
	appointments []appointment.Appointment
}

func (f *fakeFinder) FindOverlapping(_ context.Context, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]appointment.Appointment, error) {
	window := interval.Span{Start: start, End: end}

	var out []appointment.Appointment
	for _, a := range f.appointments {
		if a.DoctorID != doctorID || a.Status != appointment.StatusScheduled {
			continue
		}
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if window.Overlaps(a.Span()) {
			out = append(out, a)
		}
	}
	return out, nil
}

func scheduled(doctorID uuid.UUID, start time.Time, durationMins int) appointment.Appointment {
	return appointment.Appointment{
		ID:           uuid.New(),
		DoctorID:     doctorID,
		PatientID:    uuid.New(),
		Start:        start,
		DurationMins: durationMins,
		Status:       appointment.StatusScheduled,
	}
}

func TestAvailableSlotsSubtractsBookedAppointments(t *testing.T) {
	doctorID := uuid.New()
	// 2026-09-01 is a Tuesday.
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	sched := schedule.NewStaticProvider()
	sched.Set(doctorID, time.Tuesday, schedule.WorkingHours{
		StartMinute: 9 * 60,
		EndMinute:   12 * 60,
		SlotMinutes: 30,
	})

	booked := scheduled(doctorID, day.Add(10*time.Hour), 30) // 10:00-10:30
	engine := NewEngine(&fakeFinder{appointments: []appointment.Appointment{booked}}, sched)

	slots, err := engine.AvailableSlots(context.Background(), doctorID, day, 30)
	require.NoError(t, err)

	var starts []string
	for _, s := range slots {
		starts = append(starts, s.Start.Format("15:04"))
	}
	assert.Equal(t, []string{"09:00", "09:30", "10:30", "11:00", "11:30"}, starts)
}

func TestAvailableSlotsIgnoresCancelledAppointments(t *testing.T) {
	doctorID := uuid.New()
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	sched := schedule.NewStaticProvider()
	sched.Set(doctorID, time.Tuesday, schedule.WorkingHours{
		StartMinute: 9 * 60,
		EndMinute:   10 * 60,
		SlotMinutes: 30,
	})

	cancelled := scheduled(doctorID, day.Add(9*time.Hour), 30)
	cancelled.Status = appointment.StatusCancelled

	engine := NewEngine(&fakeFinder{appointments: []appointment.Appointment{cancelled}}, sched)

	slots, err := engine.AvailableSlots(context.Background(), doctorID, day, 30)
	require.NoError(t, err)
	assert.Len(t, slots, 2)
}

func TestAvailableSlotsNoWorkingHours(t *testing.T) {
	doctorID := uuid.New()
	day := time.Date(2026, 9, 6, 0, 0, 0, 0, time.UTC) // Sunday, nothing configured

	engine := NewEngine(&fakeFinder{}, schedule.NewStaticProvider())

	slots, err := engine.AvailableSlots(context.Background(), doctorID, day, 30)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestAvailableSlotsInvalidDuration(t *testing.T) {
	engine := NewEngine(&fakeFinder{}, schedule.NewStaticProvider())

	_, err := engine.AvailableSlots(context.Background(), uuid.New(), time.Now(), 0)
	assert.ErrorIs(t, err, appointment.ErrInvalidDuration)

	_, err = engine.AvailableSlots(context.Background(), uuid.New(), time.Now(), -15)
	assert.ErrorIs(t, err, appointment.ErrInvalidDuration)
}

func TestAvailableSlotsLongerDurationThanGranularity(t *testing.T) {
	doctorID := uuid.New()
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	sched := schedule.NewStaticProvider()
	sched.Set(doctorID, time.Tuesday, schedule.WorkingHours{
		StartMinute: 9 * 60,
		EndMinute:   11 * 60,
		SlotMinutes: 30,
	})

	engine := NewEngine(&fakeFinder{}, sched)

	// 60-minute slots on a 30-minute grid inside 09:00-11:00:
	// 09:00, 09:30, 10:00 fit; 10:30 would end past 11:00.
	slots, err := engine.AvailableSlots(context.Background(), doctorID, day, 60)
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.Equal(t, day.Add(10*time.Hour), slots[2].Start)
	assert.Equal(t, day.Add(11*time.Hour), slots[2].End)
}

func TestWindowFree(t *testing.T) {
	doctorID := uuid.New()
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	booked := scheduled(doctorID, day.Add(10*time.Hour), 30)
	engine := NewEngine(&fakeFinder{appointments: []appointment.Appointment{booked}}, schedule.NewStaticProvider())

	free, err := engine.WindowFree(context.Background(), doctorID, day.Add(10*time.Hour), day.Add(10*time.Hour+30*time.Minute), nil)
	require.NoError(t, err)
	assert.False(t, free)

	// Adjacent interval starting exactly at the booked end is free.
	free, err = engine.WindowFree(context.Background(), doctorID, day.Add(10*time.Hour+30*time.Minute), day.Add(11*time.Hour), nil)
	require.NoError(t, err)
	assert.True(t, free)

	// Excluding the booked appointment itself frees its own window.
	free, err = engine.WindowFree(context.Background(), doctorID, day.Add(10*time.Hour), day.Add(10*time.Hour+30*time.Minute), &booked.ID)
	require.NoError(t, err)
	assert.True(t, free)
}
