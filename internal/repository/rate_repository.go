package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hyeonsu-kim/villa-booking/internal/model"
)

// dateFormat is how calendar dates are exchanged with MySQL DATE
// columns and how override maps are keyed.
const dateFormat = "2006-01-02"

// RateRepo provides access to rate schedules, per-date price overrides
// and administrative date blocks.  Schedules and overrides are read by
// the pricing path; overrides and blocks are written by admin
// operations.
type RateRepo struct {
	db *sql.DB
}

// NewRateRepo returns a new RateRepo bound to the given database.
func NewRateRepo(db *sql.DB) *RateRepo { return &RateRepo{db: db} }

// ScheduleFor returns the rate schedule of a room, or
// ErrRateScheduleNotFound when the room has no schedule row.
func (r *RateRepo) ScheduleFor(ctx context.Context, roomID string) (*model.RateSchedule, error) {
	const q = `SELECT room_id, weekday_price, friday_price, saturday_price, updated_at
	           FROM rate_schedules WHERE room_id = ?`
	var s model.RateSchedule
	err := r.db.QueryRowContext(ctx, q, roomID).Scan(
		&s.RoomID, &s.WeekdayPrice, &s.FridayPrice, &s.SaturdayPrice, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRateScheduleNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpsertSchedule writes the three tier prices for a room, creating the
// schedule row when absent.  Used by admin price adjustments.
func (r *RateRepo) UpsertSchedule(ctx context.Context, s *model.RateSchedule) error {
	const q = `INSERT INTO rate_schedules (room_id, weekday_price, friday_price, saturday_price)
	           VALUES (?, ?, ?, ?)
	           ON DUPLICATE KEY UPDATE
	             weekday_price = VALUES(weekday_price),
	             friday_price = VALUES(friday_price),
	             saturday_price = VALUES(saturday_price)`
	_, err := r.db.ExecContext(ctx, q, s.RoomID, s.WeekdayPrice, s.FridayPrice, s.SaturdayPrice)
	return err
}

// OverridesFor returns the per-date price overrides of a room inside
// [from, to) keyed by ISO date string, ready for the pricing engine.
// Most ranges return an empty map.
func (r *RateRepo) OverridesFor(ctx context.Context, roomID string, from, to time.Time) (map[string]int64, error) {
	const q = `SELECT stay_date, price FROM date_overrides
	           WHERE room_id = ? AND stay_date >= ? AND stay_date < ?`
	rows, err := r.db.QueryContext(ctx, q, roomID, from.Format(dateFormat), to.Format(dateFormat))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]int64)
	for rows.Next() {
		var d time.Time
		var price int64
		if err := rows.Scan(&d, &price); err != nil {
			return nil, err
		}
		out[d.Format(dateFormat)] = price
	}
	return out, rows.Err()
}

// SetOverride pins the price of one night for a room, replacing any
// previous override for the same date.
func (r *RateRepo) SetOverride(ctx context.Context, o *model.DateOverride) error {
	const q = `INSERT INTO date_overrides (room_id, stay_date, price) VALUES (?, ?, ?)
	           ON DUPLICATE KEY UPDATE price = VALUES(price)`
	_, err := r.db.ExecContext(ctx, q, o.RoomID, o.StayDate.Format(dateFormat), o.Price)
	return err
}

// DeleteOverride removes a single-night override.  Removing a date
// without an override is a no-op.
func (r *RateRepo) DeleteOverride(ctx context.Context, roomID string, date time.Time) error {
	const q = `DELETE FROM date_overrides WHERE room_id = ? AND stay_date = ?`
	_, err := r.db.ExecContext(ctx, q, roomID, date.Format(dateFormat))
	return err
}

// ListBlocks returns the administrative blocks of a room inside
// [from, to) ordered by date.
func (r *RateRepo) ListBlocks(ctx context.Context, roomID string, from, to time.Time) ([]model.DateBlock, error) {
	const q = `SELECT room_id, blocked_date, reason, created_at FROM date_blocks
	           WHERE room_id = ? AND blocked_date >= ? AND blocked_date < ?
	           ORDER BY blocked_date`
	rows, err := r.db.QueryContext(ctx, q, roomID, from.Format(dateFormat), to.Format(dateFormat))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.DateBlock, 0)
	for rows.Next() {
		var b model.DateBlock
		if err := rows.Scan(&b.RoomID, &b.BlockedDate, &b.Reason, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// AddBlock marks a night of a room as unbookable.  Re-blocking an
// already blocked night only updates the reason.
func (r *RateRepo) AddBlock(ctx context.Context, b *model.DateBlock) error {
	const q = `INSERT INTO date_blocks (room_id, blocked_date, reason) VALUES (?, ?, ?)
	           ON DUPLICATE KEY UPDATE reason = VALUES(reason)`
	_, err := r.db.ExecContext(ctx, q, b.RoomID, b.BlockedDate.Format(dateFormat), b.Reason)
	return err
}

// RemoveBlock lifts a block from a night.
func (r *RateRepo) RemoveBlock(ctx context.Context, roomID string, date time.Time) error {
	const q = `DELETE FROM date_blocks WHERE room_id = ? AND blocked_date = ?`
	_, err := r.db.ExecContext(ctx, q, roomID, date.Format(dateFormat))
	return err
}

// BlockedRooms returns the set of room ids having at least one blocked
// night inside [from, to).  Used by the availability resolver to
// disqualify rooms in one query instead of per-room lookups.
func (r *RateRepo) BlockedRooms(ctx context.Context, from, to time.Time) (map[string]bool, error) {
	const q = `SELECT DISTINCT room_id FROM date_blocks
	           WHERE blocked_date >= ? AND blocked_date < ?`
	rows, err := r.db.QueryContext(ctx, q, from.Format(dateFormat), to.Format(dateFormat))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}
