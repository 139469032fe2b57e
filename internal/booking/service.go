// Package booking implements the appointment lifecycle: creation,
// reschedule, cancellation and completion, with the no-double-booking
// invariant enforced under a per-doctor lock.
package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/careflow/appointment-booking/internal/appointment"
	"github.com/careflow/appointment-booking/internal/availability"
	"github.com/careflow/appointment-booking/internal/config"
	"github.com/careflow/appointment-booking/internal/metrics"
	redisclient "github.com/careflow/appointment-booking/internal/redis"
)

const (
	EventAppointmentBooked      = "APPOINTMENT_BOOKED"
	EventAppointmentRescheduled = "APPOINTMENT_RESCHEDULED"
	EventAppointmentCancelled   = "APPOINTMENT_CANCELLED"
	EventAppointmentCompleted   = "APPOINTMENT_COMPLETED"
)

// ErrDoctorBusy is returned when the doctor lock could not be acquired
// within its bound. The caller should retry.
var ErrDoctorBusy = errors.New("doctor is being booked concurrently, please retry")

type Service struct {
	repo    appointment.Repository
	engine  *availability.Engine
	locker  redisclient.Locker
	clock   Clock
	cfg     config.Config
	log     *zap.Logger
	metrics *metrics.Collector
}

func NewService(repo appointment.Repository, engine *availability.Engine, locker redisclient.Locker, clock Clock, cfg config.Config, log *zap.Logger, m *metrics.Collector) *Service {
	return &Service{
		repo:    repo,
		engine:  engine,
		locker:  locker,
		clock:   clock,
		cfg:     cfg,
		log:     log,
		metrics: m,
	}
}

type BookRequest struct {
	DoctorID       uuid.UUID
	PatientID      uuid.UUID
	FacilityID     string
	Start          time.Time
	DurationMins   int
	PurposeOfVisit string
	Notes          *string
}

// Book validates a booking request and commits it under the per-doctor
// lock, so that two concurrent requests for overlapping intervals cannot
// both succeed.
func (s *Service) Book(ctx context.Context, req BookRequest) (*appointment.Appointment, error) {
	if req.DurationMins <= 0 {
		s.metrics.BookingsTotal.WithLabelValues("rejected").Inc()
		return nil, appointment.ErrInvalidDuration
	}
	if !s.cfg.AllowPastBookings && !req.Start.After(s.clock.Now()) {
		s.metrics.BookingsTotal.WithLabelValues("rejected").Inc()
		return nil, appointment.ErrStartInPast
	}

	if _, err := s.repo.GetDoctorByID(ctx, req.DoctorID); err != nil {
		if errors.Is(err, appointment.ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	if _, err := s.repo.GetPatientByID(ctx, req.PatientID); err != nil {
		if errors.Is(err, appointment.ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}

	end := req.Start.Add(time.Duration(req.DurationMins) * time.Minute)

	var created *appointment.Appointment

	err := s.locker.WithDoctorLock(ctx, req.DoctorID, func(lockCtx context.Context) error {
		// The availability check must happen inside the critical section:
		// a check before the lock could race with a concurrent insert.
		free, err := s.engine.WindowFree(lockCtx, req.DoctorID, req.Start, end, nil)
		if err != nil {
			return err
		}
		if !free {
			return appointment.ErrSlotConflict
		}

		appt, err := s.repo.Insert(lockCtx, &appointment.Appointment{
			DoctorID:       req.DoctorID,
			PatientID:      req.PatientID,
			FacilityID:     req.FacilityID,
			Start:          req.Start,
			DurationMins:   req.DurationMins,
			PurposeOfVisit: req.PurposeOfVisit,
			Notes:          req.Notes,
		})
		if err != nil {
			return fmt.Errorf("insert appointment: %w", err)
		}

		created = appt

		s.logEvent(lockCtx, appt.ID, EventAppointmentBooked, map[string]any{
			"doctor_id":     req.DoctorID.String(),
			"patient_id":    req.PatientID.String(),
			"start":         req.Start,
			"duration_mins": req.DurationMins,
		})

		return nil
	})

	if err != nil {
		switch {
		case errors.Is(err, redisclient.ErrLockNotAcquired):
			s.metrics.LockContentions.Inc()
			s.metrics.BookingsTotal.WithLabelValues("conflict").Inc()
			return nil, ErrDoctorBusy
		case errors.Is(err, appointment.ErrSlotConflict):
			s.metrics.SlotConflictsTotal.Inc()
			s.metrics.BookingsTotal.WithLabelValues("conflict").Inc()
			return nil, err
		default:
			s.metrics.BookingsTotal.WithLabelValues("error").Inc()
			return nil, err
		}
	}

	s.metrics.BookingsTotal.WithLabelValues("booked").Inc()

	s.log.Info("appointment booked",
		zap.String("appointment_id", created.ID.String()),
		zap.String("doctor_id", req.DoctorID.String()),
		zap.Time("start", req.Start),
		zap.Int("duration_mins", req.DurationMins),
	)

	return created, nil
}

// Reschedule moves a scheduled appointment to a new interval. The overlap
// check excludes the appointment itself and runs under the doctor lock; on
// conflict the appointment is left unchanged.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, newStart time.Time, newDurationMins int) (*appointment.Appointment, error) {
	if newDurationMins <= 0 {
		return nil, appointment.ErrInvalidDuration
	}
	if !s.cfg.AllowPastBookings && !newStart.After(s.clock.Now()) {
		return nil, appointment.ErrStartInPast
	}

	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != appointment.StatusScheduled {
		return nil, appointment.ErrInvalidTransition
	}

	newEnd := newStart.Add(time.Duration(newDurationMins) * time.Minute)

	var updated *appointment.Appointment

	err = s.locker.WithDoctorLock(ctx, appt.DoctorID, func(lockCtx context.Context) error {
		free, err := s.engine.WindowFree(lockCtx, appt.DoctorID, newStart, newEnd, &id)
		if err != nil {
			return err
		}
		if !free {
			return appointment.ErrSlotConflict
		}

		upd, err := s.repo.UpdateSchedule(lockCtx, id, newStart, newDurationMins)
		if err != nil {
			// The row was scheduled when loaded above; a miss on the
			// status predicate means a concurrent transition won.
			if errors.Is(err, appointment.ErrAppointmentNotFound) {
				return appointment.ErrInvalidTransition
			}
			return fmt.Errorf("update schedule: %w", err)
		}

		updated = upd

		s.logEvent(lockCtx, id, EventAppointmentRescheduled, map[string]any{
			"old_start":     appt.Start,
			"new_start":     newStart,
			"duration_mins": newDurationMins,
		})

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			s.metrics.LockContentions.Inc()
			return nil, ErrDoctorBusy
		}
		if errors.Is(err, appointment.ErrSlotConflict) {
			s.metrics.SlotConflictsTotal.Inc()
		}
		return nil, err
	}

	s.log.Info("appointment rescheduled",
		zap.String("appointment_id", id.String()),
		zap.Time("new_start", newStart),
	)

	return updated, nil
}

// Cancel moves a scheduled appointment to cancelled. The row is kept;
// cancellation is a status change, not a delete.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	return s.transition(ctx, id, appointment.StatusCancelled, EventAppointmentCancelled)
}

// Complete moves a scheduled appointment to completed. Invoked by external
// callers; the core runs no timers of its own.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	return s.transition(ctx, id, appointment.StatusCompleted, EventAppointmentCompleted)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to appointment.Status, eventType string) (*appointment.Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !appointment.CanTransition(appt.Status, to) {
		return nil, appointment.ErrInvalidTransition
	}

	updated, err := s.repo.UpdateStatus(ctx, id, appointment.StatusScheduled, to)
	if err != nil {
		// Compare-and-set miss: someone else transitioned the row between
		// our read and write.
		if errors.Is(err, appointment.ErrAppointmentNotFound) {
			return nil, appointment.ErrInvalidTransition
		}
		return nil, fmt.Errorf("update status: %w", err)
	}

	s.logEvent(ctx, id, eventType, map[string]any{
		"from": string(appointment.StatusScheduled),
		"to":   string(to),
	})

	s.log.Info("appointment status changed",
		zap.String("appointment_id", id.String()),
		zap.String("status", string(to)),
	)

	return updated, nil
}

// Get retrieves a fully hydrated appointment by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*appointment.AppointmentDetail, error) {
	detail, err := s.repo.GetAppointmentDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	return detail, nil
}

// ListByDoctor returns a doctor's appointments ordered by start time.
func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID, tr appointment.TimeRange) ([]appointment.Appointment, error) {
	appts, err := s.repo.ListByDoctor(ctx, doctorID, tr)
	if err != nil {
		return nil, fmt.Errorf("list appointments by doctor: %w", err)
	}
	return appts, nil
}

// ListByPatient returns a patient's appointments ordered by start time.
func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, tr appointment.TimeRange) ([]appointment.Appointment, error) {
	appts, err := s.repo.ListByPatient(ctx, patientID, tr)
	if err != nil {
		return nil, fmt.Errorf("list appointments by patient: %w", err)
	}
	return appts, nil
}

// AvailableSlots returns the open slots for a doctor on a day.
func (s *Service) AvailableSlots(ctx context.Context, doctorID uuid.UUID, day time.Time, durationMins int) ([]availability.Slot, error) {
	return s.engine.AvailableSlots(ctx, doctorID, day, durationMins)
}

// CompleteElapsed transitions scheduled appointments whose end time has
// passed. Intended to be called by the completion worker periodically.
func (s *Service) CompleteElapsed(ctx context.Context) (int, error) {
	elapsed, err := s.repo.FindElapsedScheduled(ctx, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("find elapsed scheduled appointments: %w", err)
	}

	completed := 0
	for _, appt := range elapsed {
		_, err := s.repo.UpdateStatus(ctx, appt.ID, appointment.StatusScheduled, appointment.StatusCompleted)
		if err != nil {
			if errors.Is(err, appointment.ErrAppointmentNotFound) {
				// Cancelled or completed concurrently, skip.
				continue
			}
			s.log.Warn("failed to complete elapsed appointment",
				zap.String("appointment_id", appt.ID.String()),
				zap.Error(err),
			)
			continue
		}

		completed++
		s.metrics.CompletedElapsed.Inc()
		s.logEvent(ctx, appt.ID, EventAppointmentCompleted, map[string]any{
			"reason": "worker",
		})
	}

	return completed, nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn("failed to marshal event payload",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		data = nil
	}

	apptID := appointmentID

	ev := appointment.EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.clock.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Warn("failed to insert event log",
			zap.String("event_type", eventType),
			zap.String("appointment_id", appointmentID.String()),
			zap.Error(err),
		)
	}
}
