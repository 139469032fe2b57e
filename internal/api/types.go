package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/careflow/appointment-booking/internal/appointment"
)

type BookAppointmentRequest struct {
	DoctorID       string  `json:"doctor_id"`
	PatientID      string  `json:"patient_id"`
	FacilityID     string  `json:"facility_id"`
	Start          string  `json:"start"` // RFC 3339
	DurationMins   int     `json:"duration_mins"`
	PurposeOfVisit string  `json:"purpose_of_visit"`
	Notes          *string `json:"notes,omitempty"`
}

type RescheduleAppointmentRequest struct {
	Start        string `json:"start"` // RFC 3339
	DurationMins int    `json:"duration_mins"`
}

type AppointmentResponse struct {
	ID             uuid.UUID `json:"id"`
	DoctorID       uuid.UUID `json:"doctor_id"`
	PatientID      uuid.UUID `json:"patient_id"`
	FacilityID     string    `json:"facility_id,omitempty"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	DurationMins   int       `json:"duration_mins"`
	PurposeOfVisit string    `json:"purpose_of_visit,omitempty"`
	Notes          *string   `json:"notes,omitempty"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type AppointmentDetailResponse struct {
	AppointmentResponse
	DoctorName  string `json:"doctor_name,omitempty"`
	PatientName string `json:"patient_name,omitempty"`
}

type SlotResponse struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type SlotsResponse struct {
	DoctorID uuid.UUID      `json:"doctor_id"`
	Date     string         `json:"date"`
	Slots    []SlotResponse `json:"slots"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:             a.ID,
		DoctorID:       a.DoctorID,
		PatientID:      a.PatientID,
		FacilityID:     a.FacilityID,
		Start:          a.Start,
		End:            a.End(),
		DurationMins:   a.DurationMins,
		PurposeOfVisit: a.PurposeOfVisit,
		Notes:          a.Notes,
		Status:         string(a.Status),
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}
