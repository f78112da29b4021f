package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const apptColumns = `id, provider_id, customer_id, service_id, start_time, end_time, status, notes, price_cents, currency, missed_at, created_at, updated_at`

// noOverlapConstraint is the exclusion constraint on active appointment
// ranges. It is the final arbiter of double booking: even if two transactions
// pass the in-transaction conflict check, the constraint rejects the loser.
const noOverlapConstraint = "appointments_no_overlap"

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanProvider(row pgx.Row) (*Provider, error) {
	var p Provider
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Phone,
		&p.Active,
		&p.SlotIntervalMin,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProviderNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanService(row pgx.Row) (*Service, error) {
	var s Service
	err := row.Scan(
		&s.ID,
		&s.ProviderID,
		&s.Name,
		&s.DurationMin,
		&s.PriceCents,
		&s.Currency,
		&s.Active,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}
	return &s, nil
}

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	err := row.Scan(
		&c.ID,
		&c.ProviderID,
		&c.Name,
		&c.Phone,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	return &c, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID,
		&a.ProviderID,
		&a.CustomerID,
		&a.ServiceID,
		&a.StartTime,
		&a.EndTime,
		&a.Status,
		&a.Notes,
		&a.PriceCents,
		&a.Currency,
		&a.MissedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func collectIntervals(rows pgx.Rows) ([]Interval, error) {
	defer rows.Close()

	var result []Interval
	for rows.Next() {
		var iv Interval
		if err := rows.Scan(&iv.Start, &iv.End); err != nil {
			return nil, err
		}
		result = append(result, iv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func statusStrings(statuses []AppointmentStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// activeStatusParams is passed wherever a query filters to calendar-occupying
// appointments, keeping the SQL in lockstep with ActiveStatuses.
var activeStatusParams = statusStrings(ActiveStatuses)

func isNoOverlapViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == "23P01" &&
		pgErr.ConstraintName == noOverlapConstraint
}

// Interface methods

func (r *PgRepository) GetProviderByID(ctx context.Context, id uuid.UUID) (*Provider, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, phone, active, slot_interval_min, created_at, updated_at
		FROM providers
		WHERE id = $1
	`, id)
	return scanProvider(row)
}

func (r *PgRepository) GetActiveService(ctx context.Context, providerID, serviceID uuid.UUID) (*Service, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, provider_id, name, duration_min, price_cents, currency, active, created_at, updated_at
		FROM services
		WHERE id = $1 AND provider_id = $2 AND active
	`, serviceID, providerID)
	return scanService(row)
}

func (r *PgRepository) GetCustomerByID(ctx context.Context, providerID, customerID uuid.UUID) (*Customer, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, provider_id, name, phone, created_at, updated_at
		FROM customers
		WHERE id = $1 AND provider_id = $2
	`, customerID, providerID)
	return scanCustomer(row)
}

func (r *PgRepository) GetWorkingHours(ctx context.Context, providerID uuid.UUID) ([]WorkingHours, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT weekday, start_time, end_time, enabled
		FROM working_hours
		WHERE provider_id = $1
		ORDER BY weekday, start_time
	`, providerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []WorkingHours
	for rows.Next() {
		var wh WorkingHours
		var weekday int
		if err := rows.Scan(&weekday, &wh.Start, &wh.End, &wh.Enabled); err != nil {
			return nil, err
		}
		wh.Weekday = time.Weekday(weekday)
		result = append(result, wh)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) GetBreakWindows(ctx context.Context, providerID uuid.UUID) ([]BreakWindow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT start_time, end_time, enabled
		FROM break_windows
		WHERE provider_id = $1
		ORDER BY start_time
	`, providerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []BreakWindow
	for rows.Next() {
		var br BreakWindow
		if err := rows.Scan(&br.Start, &br.End, &br.Enabled); err != nil {
			return nil, err
		}
		result = append(result, br)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) FindActiveInRange(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]Interval, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT start_time, end_time
		FROM appointments
		WHERE provider_id = $1
		  AND status = ANY($4)
		  AND start_time < $3
		  AND end_time > $2
		ORDER BY start_time
	`, providerID, from, to, activeStatusParams)
	if err != nil {
		return nil, err
	}
	return collectIntervals(rows)
}

func (r *PgRepository) FindConflicting(ctx context.Context, providerID uuid.UUID, start, end time.Time, exclude *uuid.UUID) ([]Interval, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT start_time, end_time
		FROM appointments
		WHERE provider_id = $1
		  AND status = ANY($5)
		  AND start_time < $3
		  AND end_time > $2
		  AND ($4::uuid IS NULL OR id <> $4)
		ORDER BY start_time
	`, providerID, start, end, exclude, activeStatusParams)
	if err != nil {
		return nil, err
	}
	return collectIntervals(rows)
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, providerID, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE id = $1 AND provider_id = $2
	`, id, providerID)
	return scanAppointment(row)
}

func (r *PgRepository) ListAppointments(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE provider_id = $1
		  AND start_time < $3
		  AND end_time > $2
		ORDER BY start_time
	`, providerID, from, to)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

// CreateIfFree runs the conflict check and the insert in one transaction.
// The advisory lock serializes writers per provider so the check cannot be
// invalidated before the insert commits; the exclusion constraint backs it
// up in case the lock is ever bypassed.
func (r *PgRepository) CreateIfFree(ctx context.Context, appt *Appointment) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin booking transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockProviderCalendar(ctx, tx, appt.ProviderID); err != nil {
		return nil, err
	}

	free, err := intervalFree(ctx, tx, appt.ProviderID, appt.StartTime, appt.EndTime, nil)
	if err != nil {
		return nil, err
	}
	if !free {
		return nil, ErrSlotUnavailable
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO appointments
			(id, provider_id, customer_id, service_id, start_time, end_time, status, notes, price_cents, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		RETURNING `+apptColumns+`
	`, appt.ID, appt.ProviderID, appt.CustomerID, appt.ServiceID,
		appt.StartTime, appt.EndTime, appt.Status, appt.Notes,
		appt.PriceCents, appt.Currency)

	saved, err := scanAppointment(row)
	if err != nil {
		if isNoOverlapViolation(err) {
			return nil, ErrSlotUnavailable
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		if isNoOverlapViolation(err) {
			return nil, ErrSlotUnavailable
		}
		return nil, fmt.Errorf("commit booking transaction: %w", err)
	}

	return saved, nil
}

func (r *PgRepository) RescheduleIfFree(ctx context.Context, providerID, id uuid.UUID, newStart, newEnd time.Time) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin reschedule transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockProviderCalendar(ctx, tx, providerID); err != nil {
		return nil, err
	}

	free, err := intervalFree(ctx, tx, providerID, newStart, newEnd, &id)
	if err != nil {
		return nil, err
	}
	if !free {
		return nil, ErrSlotUnavailable
	}

	row := tx.QueryRow(ctx, `
		UPDATE appointments
		SET start_time = $3,
		    end_time = $4,
		    updated_at = now()
		WHERE id = $1
		  AND provider_id = $2
		  AND status = ANY($5)
		RETURNING `+apptColumns+`
	`, id, providerID, newStart, newEnd, activeStatusParams)

	moved, err := scanAppointment(row)
	if err != nil {
		if isNoOverlapViolation(err) {
			return nil, ErrSlotUnavailable
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		if isNoOverlapViolation(err) {
			return nil, ErrSlotUnavailable
		}
		return nil, fmt.Errorf("commit reschedule transaction: %w", err)
	}

	return moved, nil
}

func (r *PgRepository) UpdateStatus(ctx context.Context, providerID, id uuid.UUID, from []AppointmentStatus, to AppointmentStatus, appendNotes string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $3,
		    notes = CASE
		        WHEN $5 = '' THEN notes
		        WHEN notes = '' THEN $5
		        ELSE notes || E'\n' || $5
		    END,
		    updated_at = now()
		WHERE id = $1
		  AND provider_id = $2
		  AND status = ANY($4)
		RETURNING `+apptColumns+`
	`, id, providerID, string(to), statusStrings(from), appendNotes)

	return scanAppointment(row)
}

func (r *PgRepository) FindMissed(ctx context.Context, now time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE status = ANY($2)
		  AND start_time < $1
		  AND missed_at IS NULL
	`, now, activeStatusParams)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) MarkMissed(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET missed_at = $2,
		    updated_at = now()
		WHERE id = $1
		  AND missed_at IS NULL
	`, id, at)
	if err != nil {
		return fmt.Errorf("mark appointment missed: %w", err)
	}
	return nil
}

func lockProviderCalendar(ctx context.Context, tx pgx.Tx, providerID uuid.UUID) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, providerID.String())
	if err != nil {
		return fmt.Errorf("lock provider calendar: %w", err)
	}
	return nil
}

// intervalFree applies the same half-open overlap predicate as Overlaps.
func intervalFree(ctx context.Context, tx pgx.Tx, providerID uuid.UUID, start, end time.Time, exclude *uuid.UUID) (bool, error) {
	var one int
	err := tx.QueryRow(ctx, `
		SELECT 1
		FROM appointments
		WHERE provider_id = $1
		  AND status = ANY($5)
		  AND start_time < $3
		  AND end_time > $2
		  AND ($4::uuid IS NULL OR id <> $4)
		LIMIT 1
	`, providerID, start, end, exclude, activeStatusParams).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("check conflicting appointments: %w", err)
	}
	return false, nil
}
