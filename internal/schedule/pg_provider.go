package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/careflow/appointment-booking/internal/appointment"
)

// PgProvider reads working hours from the doctor_schedules table.
type PgProvider struct {
	db appointment.DB
}

func NewPgProvider(db appointment.DB) *PgProvider {
	return &PgProvider{db: db}
}

func (p *PgProvider) WorkingHours(ctx context.Context, doctorID uuid.UUID, weekday time.Weekday) (*WorkingHours, error) {
	var wh WorkingHours

	err := p.db.QueryRow(ctx, `
		SELECT start_minute, end_minute, slot_minutes
		FROM doctor_schedules
		WHERE doctor_id = $1 AND weekday = $2
	`, doctorID, int(weekday)).Scan(&wh.StartMinute, &wh.EndMinute, &wh.SlotMinutes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// No configured hours for this weekday is not an error.
			return nil, nil
		}
		return nil, err
	}

	return &wh, nil
}
