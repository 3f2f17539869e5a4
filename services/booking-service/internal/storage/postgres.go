package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/servly/servly/libs/db"
	"github.com/servly/servly/services/booking-service/internal/model"
	"github.com/servly/servly/services/booking-service/internal/outbox"
)

const (
	pgUniqueViolation = "23505"
	committedSlotKey  = "bookings_committed_slot_key"
)

// Repository is the Postgres Store.
type Repository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewRepository(pool *db.Pool, outboxRepo *outbox.Repository) *Repository {
	return &Repository{pool: pool, outbox: outboxRepo}
}

var _ Store = (*Repository)(nil)

func (r *Repository) GetProvider(ctx context.Context, id string) (model.Provider, error) {
	return scanProvider(r.pool.QueryRow(ctx, `
		SELECT id, name, hours_of_operation, appointment_interval_minutes, timezone, created_at, updated_at
		FROM providers
		WHERE id = $1
	`, id))
}

func (r *Repository) UpsertProviderAvailability(ctx context.Context, p model.Provider) (model.Provider, error) {
	hours, err := json.Marshal(p.HoursOfOperation)
	if err != nil {
		return model.Provider{}, fmt.Errorf("encode hours: %w", err)
	}
	return scanProvider(r.pool.QueryRow(ctx, `
		INSERT INTO providers (id, name, hours_of_operation, appointment_interval_minutes, timezone)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = CASE WHEN EXCLUDED.name = '' THEN providers.name ELSE EXCLUDED.name END,
			hours_of_operation = EXCLUDED.hours_of_operation,
			appointment_interval_minutes = EXCLUDED.appointment_interval_minutes,
			timezone = EXCLUDED.timezone,
			updated_at = now()
		RETURNING id, name, hours_of_operation, appointment_interval_minutes, timezone, created_at, updated_at
	`, p.ID, p.Name, hours, p.IntervalMinutes(), p.Timezone))
}

func scanProvider(row pgx.Row) (model.Provider, error) {
	var p model.Provider
	var hours []byte
	err := row.Scan(&p.ID, &p.Name, &hours, &p.AppointmentIntervalMinutes, &p.Timezone, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Provider{}, ErrNotFound
		}
		return model.Provider{}, err
	}
	// Malformed stored hours leave the map empty; the engine reports those days unavailable.
	if len(hours) > 0 {
		_ = json.Unmarshal(hours, &p.HoursOfOperation)
	}
	return p, nil
}

const (
	bookingColumns       = `id, customer_id, provider_id, service_id, category_id, date_time, address, notes, status, created_at, updated_at`
	joinedBookingColumns = `b.id, b.customer_id, b.provider_id, b.service_id, b.category_id, b.date_time, b.address, b.notes, b.status, b.created_at, b.updated_at`
)

func scanBooking(row pgx.Row) (model.Booking, error) {
	var b model.Booking
	var status string
	err := row.Scan(&b.ID, &b.CustomerID, &b.ProviderID, &b.ServiceID, &b.CategoryID, &b.DateTime,
		&b.Address, &b.Notes, &status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Booking{}, ErrNotFound
		}
		return model.Booking{}, err
	}
	b.Status = model.BookingStatus(status)
	return b, nil
}

func (r *Repository) ListBookingsByProvider(ctx context.Context, providerID string, from, to time.Time, limit int) ([]model.Booking, error) {
	var fromArg, toArg, limitArg any
	if !from.IsZero() {
		fromArg = from
	}
	if !to.IsZero() {
		toArg = to
	}
	if limit > 0 {
		limitArg = limit
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE provider_id = $1
			AND ($2::timestamptz IS NULL OR date_time >= $2)
			AND ($3::timestamptz IS NULL OR date_time < $3)
		ORDER BY date_time ASC, created_at ASC
		LIMIT $4
	`, providerID, fromArg, toArg, limitArg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *Repository) GetBooking(ctx context.Context, id string) (model.Booking, error) {
	return scanBooking(r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
}

func (r *Repository) LookupIdempotencyKey(ctx context.Context, customerID, key string) (model.Booking, bool, error) {
	b, err := scanBooking(r.pool.QueryRow(ctx, `
		SELECT `+joinedBookingColumns+`
		FROM booking_idempotency_keys k
		JOIN bookings b ON b.id = k.booking_id
		WHERE k.customer_id = $1 AND k.idempotency_key = $2
	`, customerID, key))
	if errors.Is(err, ErrNotFound) {
		return model.Booking{}, false, nil
	}
	if err != nil {
		return model.Booking{}, false, err
	}
	return b, true, nil
}

func (r *Repository) CreateBooking(ctx context.Context, b model.Booking, idempotencyKey string) (model.Booking, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Booking{}, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if idempotencyKey != "" {
		existingID, err := lockIdempotencyKey(ctx, tx, b.CustomerID, idempotencyKey)
		if err != nil {
			return model.Booking{}, false, err
		}
		if existingID != "" {
			existing, err := scanBooking(tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, existingID))
			if err != nil {
				return model.Booking{}, false, err
			}
			return existing, true, tx.Commit(ctx)
		}
	}

	// Writers for one provider serialize on the provider row, so the slot check
	// below cannot interleave with another transaction's insert.
	if err := lockProvider(ctx, tx, b.ProviderID); err != nil {
		return model.Booking{}, false, err
	}
	if err := ensureSlotFree(ctx, tx, b.ProviderID, b.DateTime, ""); err != nil {
		return model.Booking{}, false, err
	}

	created, err := scanBooking(tx.QueryRow(ctx, `
		INSERT INTO bookings (id, customer_id, provider_id, service_id, category_id, date_time, address, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+bookingColumns,
		b.ID, b.CustomerID, b.ProviderID, b.ServiceID, b.CategoryID, b.DateTime, b.Address, b.Notes, string(b.Status)))
	if err != nil {
		return model.Booking{}, false, classify(err)
	}

	evt, err := outbox.BookingEvent(outbox.TopicBookingCreated, created, "")
	if err != nil {
		return model.Booking{}, false, err
	}
	if err := r.outbox.Insert(ctx, tx, evt); err != nil {
		return model.Booking{}, false, err
	}

	if idempotencyKey != "" {
		if _, err := tx.Exec(ctx, `
			UPDATE booking_idempotency_keys
			SET booking_id = $3, updated_at = now()
			WHERE customer_id = $1 AND idempotency_key = $2
		`, b.CustomerID, idempotencyKey, created.ID); err != nil {
			return model.Booking{}, false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Booking{}, false, classify(err)
	}
	return created, false, nil
}

func (r *Repository) UpdateBookingStatus(ctx context.Context, id string, next model.BookingStatus) (model.Booking, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Booking{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	current, err := scanBooking(tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return model.Booking{}, err
	}
	if current.Status == next {
		return current, tx.Commit(ctx)
	}
	if !current.Status.CanTransitionTo(next) {
		return model.Booking{}, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current.Status, next)
	}
	if model.IsCommittedStatus(next) && !model.IsCommittedStatus(current.Status) {
		if err := lockProvider(ctx, tx, current.ProviderID); err != nil {
			return model.Booking{}, err
		}
		if err := ensureSlotFree(ctx, tx, current.ProviderID, current.DateTime, current.ID); err != nil {
			return model.Booking{}, err
		}
	}

	updated, err := scanBooking(tx.QueryRow(ctx, `
		UPDATE bookings
		SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+bookingColumns, id, string(next)))
	if err != nil {
		return model.Booking{}, classify(err)
	}

	evt, err := outbox.BookingEvent(outbox.TopicBookingStatusChanged, updated, current.Status)
	if err != nil {
		return model.Booking{}, err
	}
	if err := r.outbox.Insert(ctx, tx, evt); err != nil {
		return model.Booking{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Booking{}, classify(err)
	}
	return updated, nil
}

func lockIdempotencyKey(ctx context.Context, tx pgx.Tx, customerID, key string) (string, error) {
	if _, err := tx.Exec(ctx, `
		INSERT INTO booking_idempotency_keys (customer_id, idempotency_key)
		VALUES ($1, $2)
		ON CONFLICT (customer_id, idempotency_key) DO NOTHING
	`, customerID, key); err != nil {
		return "", err
	}
	var bookingID string
	err := tx.QueryRow(ctx, `
		SELECT COALESCE(booking_id, '')
		FROM booking_idempotency_keys
		WHERE customer_id = $1 AND idempotency_key = $2
		FOR UPDATE
	`, customerID, key).Scan(&bookingID)
	return bookingID, err
}

func lockProvider(ctx context.Context, tx pgx.Tx, providerID string) error {
	var id string
	err := tx.QueryRow(ctx, `SELECT id FROM providers WHERE id = $1 FOR UPDATE`, providerID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// ensureSlotFree fails with ErrSlotTaken when a committed booking other than exceptID
// holds the slot.
func ensureSlotFree(ctx context.Context, tx pgx.Tx, providerID string, at time.Time, exceptID string) error {
	var taken bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE provider_id = $1
				AND date_time = $2
				AND status IN ('confirmed', 'accepted', 'completed')
				AND id <> $3
		)
	`, providerID, at, exceptID).Scan(&taken)
	if err != nil {
		return err
	}
	if taken {
		return ErrSlotTaken
	}
	return nil
}

// classify maps constraint violations to domain errors.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == committedSlotKey {
		return ErrSlotTaken
	}
	return err
}
