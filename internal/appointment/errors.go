package appointment

import "errors"

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	ErrInvalidDuration = errors.New("appointment duration must be positive")
	ErrStartInPast     = errors.New("appointment start must be in the future")

	ErrInvalidTransition = errors.New("invalid appointment status transition")
	ErrSlotConflict      = errors.New("requested time overlaps an existing appointment for this doctor")
)
