package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const apptCols = "id, doctor_id, patient_id, facility_id, start_time, duration_mins, purpose_of_visit, notes, status, created_at, updated_at"

func appointmentRow(a Appointment) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "doctor_id", "patient_id", "facility_id", "start_time", "duration_mins", "purpose_of_visit", "notes", "status", "created_at", "updated_at"}).
		AddRow(a.ID, a.DoctorID, a.PatientID, a.FacilityID, a.Start, a.DurationMins, a.PurposeOfVisit, a.Notes, a.Status, a.CreatedAt, a.UpdatedAt)
}

func sampleAppointment() Appointment {
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	return Appointment{
		ID:             uuid.New(),
		DoctorID:       uuid.New(),
		PatientID:      uuid.New(),
		FacilityID:     "clinic-main",
		Start:          time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
		DurationMins:   30,
		PurposeOfVisit: "checkup",
		Status:         StatusScheduled,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestGetDoctorByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgRepository(mock)
	id := uuid.New()
	specialty := "Cardiology"

	mock.ExpectQuery("SELECT id, name, specialty, created_at, updated_at FROM doctors").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "specialty", "created_at", "updated_at"}).
			AddRow(id, "Dr. Meredith Grey", &specialty, time.Now(), time.Now()))

	doctor, err := repo.GetDoctorByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, doctor.ID)
	assert.Equal(t, "Dr. Meredith Grey", doctor.Name)
	require.NotNil(t, doctor.Specialty)
	assert.Equal(t, "Cardiology", *doctor.Specialty)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDoctorByIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgRepository(mock)
	id := uuid.New()

	mock.ExpectQuery("SELECT id, name, specialty, created_at, updated_at FROM doctors").
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err = repo.GetDoctorByID(context.Background(), id)
	assert.ErrorIs(t, err, ErrDoctorNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAppointmentByIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgRepository(mock)
	id := uuid.New()

	mock.ExpectQuery("SELECT " + apptCols + " FROM appointments").
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err = repo.GetAppointmentByID(context.Background(), id)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindOverlapping(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgRepository(mock)
	a := sampleAppointment()
	start := time.Date(2026, 9, 1, 10, 15, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)

	mock.ExpectQuery("SELECT "+apptCols+" FROM appointments").
		WithArgs(a.DoctorID, start, end, (*uuid.UUID)(nil)).
		WillReturnRows(appointmentRow(a))

	overlapping, err := repo.FindOverlapping(context.Background(), a.DoctorID, start, end, nil)
	require.NoError(t, err)
	require.Len(t, overlapping, 1)
	assert.Equal(t, a.ID, overlapping[0].ID)
	assert.Equal(t, StatusScheduled, overlapping[0].Status)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindOverlappingNone(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgRepository(mock)
	doctorID := uuid.New()
	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)
	excludeID := uuid.New()

	mock.ExpectQuery("SELECT "+apptCols+" FROM appointments").
		WithArgs(doctorID, start, end, &excludeID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "doctor_id", "patient_id", "facility_id", "start_time", "duration_mins", "purpose_of_visit", "notes", "status", "created_at", "updated_at"}))

	overlapping, err := repo.FindOverlapping(context.Background(), doctorID, start, end, &excludeID)
	require.NoError(t, err)
	assert.Empty(t, overlapping)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgRepository(mock)
	a := sampleAppointment()

	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), a.DoctorID, a.PatientID, a.FacilityID, a.Start, a.DurationMins, a.PurposeOfVisit, a.Notes).
		WillReturnRows(appointmentRow(a))

	created, err := repo.Insert(context.Background(), &Appointment{
		DoctorID:       a.DoctorID,
		PatientID:      a.PatientID,
		FacilityID:     a.FacilityID,
		Start:          a.Start,
		DurationMins:   a.DurationMins,
		PurposeOfVisit: a.PurposeOfVisit,
	})
	require.NoError(t, err)
	assert.Equal(t, a.ID, created.ID)
	assert.Equal(t, StatusScheduled, created.Status)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusCASMiss(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgRepository(mock)
	id := uuid.New()

	// No row matches the status predicate: the appointment was already
	// transitioned by someone else.
	mock.ExpectQuery("UPDATE appointments").
		WithArgs(id, StatusCancelled, StatusScheduled).
		WillReturnError(pgx.ErrNoRows)

	_, err = repo.UpdateStatus(context.Background(), id, StatusScheduled, StatusCancelled)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateSchedule(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgRepository(mock)
	a := sampleAppointment()
	newStart := a.Start.Add(2 * time.Hour)
	a.Start = newStart
	a.DurationMins = 45

	mock.ExpectQuery("UPDATE appointments").
		WithArgs(a.ID, newStart, 45).
		WillReturnRows(appointmentRow(a))

	updated, err := repo.UpdateSchedule(context.Background(), a.ID, newStart, 45)
	require.NoError(t, err)
	assert.Equal(t, newStart, updated.Start)
	assert.Equal(t, 45, updated.DurationMins)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByDoctorRange(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgRepository(mock)
	a := sampleAppointment()
	from := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT "+apptCols+" FROM appointments").
		WithArgs(a.DoctorID, &from, (*time.Time)(nil)).
		WillReturnRows(appointmentRow(a))

	appts, err := repo.ListByDoctor(context.Background(), a.DoctorID, TimeRange{From: &from})
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, a.ID, appts[0].ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertEvent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgRepository(mock)
	apptID := uuid.New()

	mock.ExpectExec("INSERT INTO event_logs").
		WithArgs("APPOINTMENT_BOOKED", &apptID, []byte(`{}`), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.InsertEvent(context.Background(), EventLog{
		EventType:     "APPOINTMENT_BOOKED",
		AppointmentID: &apptID,
		Payload:       []byte(`{}`),
		CreatedAt:     time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
