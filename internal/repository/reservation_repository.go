package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/hyeonsu-kim/villa-booking/internal/model"
)

// ReservationRepo provides CRUD operations for reservations and the
// reservation_nights index that enforces the no-double-booking
// invariant at the storage layer.  Every PENDING or CONFIRMED
// reservation owns one reservation_nights row per night of its stay;
// a UNIQUE key on (room_id, night) makes two overlapping writers
// impossible even when both passed the in-transaction re-check.
// Cancelled reservations hold no night rows, which is what frees the
// dates for new bookings while the row itself is kept for audit.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `id, reservation_no, room_id, check_in, check_out, nights,
	booker_name, booker_email, booker_phone,
	guest_name, guest_email, guest_phone,
	adult_count, student_count, child_count, infant_count,
	option_keys, request_note,
	room_price, surcharge, option_fee, total_amount,
	status, hidden, payment_ref, cancel_actor,
	cancelled_at, checked_in_at, checked_out_at, created_at, updated_at`

// Create persists a new PENDING reservation.  The whole operation runs
// in one transaction: the room row is locked, the overlap set is
// re-checked (closing the race window opened since the availability
// read), the reservation row is inserted and the night index rows are
// bulk-inserted.  A conflict found by the re-check, or a duplicate
// night key raised by a racing writer, rolls everything back and
// surfaces as ErrDateConflict so the caller can tell the guest to
// re-search.  A duplicate reservation number surfaces as ErrNumberTaken.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Serialize creations per room.  The lock also confirms the room
	// still exists.
	var roomID string
	const lockQ = `SELECT id FROM rooms WHERE id = ? FOR UPDATE`
	if err := tx.QueryRowContext(ctx, lockQ, res.RoomID).Scan(&roomID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRoomNotFound
		}
		return err
	}

	// Re-check the overlap set under the lock.  Two half-open ranges
	// overlap iff each starts before the other ends.
	const overlapQ = `SELECT COUNT(*) FROM reservations
	                  WHERE room_id = ? AND status IN ('PENDING','CONFIRMED')
	                    AND check_in < ? AND check_out > ?`
	var overlapping int
	err = tx.QueryRowContext(ctx, overlapQ, res.RoomID,
		res.CheckOut.Format(dateFormat), res.CheckIn.Format(dateFormat)).Scan(&overlapping)
	if err != nil {
		return err
	}
	if overlapping > 0 {
		return ErrDateConflict
	}

	const insQ = `INSERT INTO reservations
	  (reservation_no, room_id, check_in, check_out, nights,
	   booker_name, booker_email, booker_phone,
	   guest_name, guest_email, guest_phone,
	   adult_count, student_count, child_count, infant_count,
	   option_keys, request_note,
	   room_price, surcharge, option_fee, total_amount, status, hidden)
	  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`
	var guestName, guestEmail, guestPhone interface{}
	if res.Guest != nil {
		guestName, guestEmail, guestPhone = res.Guest.Name, res.Guest.Email, res.Guest.Phone
	}
	result, err := tx.ExecContext(ctx, insQ,
		res.Number, res.RoomID,
		res.CheckIn.Format(dateFormat), res.CheckOut.Format(dateFormat), res.Nights,
		res.Booker.Name, res.Booker.Email, res.Booker.Phone,
		guestName, guestEmail, guestPhone,
		res.Counts.Adult, res.Counts.Student, res.Counts.Child, res.Counts.Infant,
		strings.Join(res.OptionKeys, ","), res.Request,
		res.RoomPrice, res.Surcharge, res.OptionFee, res.TotalAmount,
		model.StatusPending,
	)
	if err != nil {
		if isDuplicateKey(err, "uq_reservation_no") {
			return ErrNumberTaken
		}
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	res.Status = model.StatusPending

	if err := insertNightsTx(ctx, tx, res); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// insertNightsTx bulk-inserts one reservation_nights row per night of
// the stay.  The unique (room_id, night) key turns a lost race into
// ErrDateConflict.
func insertNightsTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	q := `INSERT INTO reservation_nights (room_id, night, reservation_id) VALUES `
	args := make([]interface{}, 0, int(res.Nights)*3)
	i := 0
	for d := res.CheckIn; d.Before(res.CheckOut); d = d.AddDate(0, 0, 1) {
		if i > 0 {
			q += ","
		}
		q += "(?, ?, ?)"
		args = append(args, res.RoomID, d.Format(dateFormat), res.ID)
		i++
	}
	if i == 0 {
		return ErrDateConflict
	}
	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		if isDuplicateKey(err, "uq_room_night") {
			return ErrDateConflict
		}
		return err
	}
	return nil
}

// GetByNumber returns a reservation by its human-readable number, or
// ErrReservationNotFound.
func (r *ReservationRepo) GetByNumber(ctx context.Context, number string) (*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE reservation_no = ?`
	res, err := scanReservation(r.db.QueryRowContext(ctx, q, number))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	return res, err
}

// NumberExists reports whether a reservation number is already in use.
// It is a best-effort pre-check only; the unique index on
// reservation_no is the authority.
func (r *ReservationRepo) NumberExists(ctx context.Context, number string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM reservations WHERE reservation_no = ?)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, q, number).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ReservedRooms returns the set of room ids holding a PENDING or
// CONFIRMED reservation overlapping [from, to).  This read backs the
// availability resolver and must always hit the store, never a cache.
func (r *ReservationRepo) ReservedRooms(ctx context.Context, from, to time.Time) (map[string]bool, error) {
	const q = `SELECT DISTINCT room_id FROM reservations
	           WHERE status IN ('PENDING','CONFIRMED')
	             AND check_in < ? AND check_out > ?`
	rows, err := r.db.QueryContext(ctx, q, to.Format(dateFormat), from.Format(dateFormat))
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

// Confirm transitions a reservation to CONFIRMED and stores the payment
// transaction reference.  The status guard in the WHERE clause only
// matches a row that is still PENDING; when it matches nothing the
// reservation changed status since the caller read it and ErrStaleStatus
// is returned so the caller can re-read and decide.
func (r *ReservationRepo) Confirm(ctx context.Context, id uint64, paymentRef string) error {
	const q = `UPDATE reservations SET status = ?, payment_ref = ?
	           WHERE id = ? AND status = ?`
	result, err := r.db.ExecContext(ctx, q, model.StatusConfirmed, paymentRef, id, model.StatusPending)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrStaleStatus
	}
	return nil
}

// Cancel marks a reservation CANCELLED and releases its night rows in
// one transaction, keeping the reservation row itself for audit.  The
// caller is responsible for having secured the refund first.
func (r *ReservationRepo) Cancel(ctx context.Context, id uint64, actor string, at time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	const q = `UPDATE reservations SET status = ?, cancel_actor = ?, cancelled_at = ?
	           WHERE id = ?`
	if _, err := tx.ExecContext(ctx, q, model.StatusCancelled, actor, at.UTC(), id); err != nil {
		return err
	}
	const del = `DELETE FROM reservation_nights WHERE reservation_id = ?`
	if _, err := tx.ExecContext(ctx, del, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Revert moves a CANCELLED reservation back to CONFIRMED, re-inserting
// its night rows.  If another reservation took any of the nights in the
// meantime the unique key fires and the revert is rejected with
// ErrDateConflict, leaving the row cancelled.
func (r *ReservationRepo) Revert(ctx context.Context, res *model.Reservation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := insertNightsTx(ctx, tx, res); err != nil {
		return err
	}
	const q = `UPDATE reservations SET status = ?, cancel_actor = NULL, cancelled_at = NULL
	           WHERE id = ? AND status = ?`
	if _, err := tx.ExecContext(ctx, q, model.StatusConfirmed, res.ID, model.StatusCancelled); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Delete permanently removes a reservation and its night rows.  Only
// abandoned PENDING rows are ever deleted; everything else is a soft
// transition.
func (r *ReservationRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `DELETE FROM reservation_nights WHERE reservation_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// SetCheckedIn stamps the check-in marker.
func (r *ReservationRepo) SetCheckedIn(ctx context.Context, id uint64, at time.Time) error {
	const q = `UPDATE reservations SET checked_in_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, at.UTC(), id)
	return err
}

// SetCheckedOut stamps the check-out marker.
func (r *ReservationRepo) SetCheckedOut(ctx context.Context, id uint64, at time.Time) error {
	const q = `UPDATE reservations SET checked_out_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, at.UTC(), id)
	return err
}

// SetHidden toggles the admin soft-delete flag.  The flag only affects
// list visibility and never the overlap invariant.
func (r *ReservationRepo) SetHidden(ctx context.Context, id uint64, hidden bool) error {
	const q = `UPDATE reservations SET hidden = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, hidden, id)
	return err
}

// ListFilter narrows the admin reservation listing.  Zero values mean
// "no filter"; hidden rows are excluded unless IncludeHidden is set.
type ListFilter struct {
	Status        string
	RoomID        string
	From          time.Time
	To            time.Time
	IncludeHidden bool
}

// List returns reservations for the admin console, newest first.
func (r *ReservationRepo) List(ctx context.Context, f ListFilter) ([]model.Reservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM reservations WHERE 1=1`
	args := []interface{}{}
	if f.Status != "" {
		q += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.RoomID != "" {
		q += ` AND room_id = ?`
		args = append(args, f.RoomID)
	}
	if !f.From.IsZero() {
		q += ` AND check_out > ?`
		args = append(args, f.From.Format(dateFormat))
	}
	if !f.To.IsZero() {
		q += ` AND check_in < ?`
		args = append(args, f.To.Format(dateFormat))
	}
	if !f.IncludeHidden {
		q += ` AND hidden = 0`
	}
	q += ` ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

func scanReservation(s rowScanner) (*model.Reservation, error) {
	var res model.Reservation
	var guestName, guestEmail, guestPhone sql.NullString
	var optionKeys string
	var paymentRef, cancelActor sql.NullString
	var cancelledAt, checkedInAt, checkedOutAt sql.NullTime
	err := s.Scan(
		&res.ID, &res.Number, &res.RoomID, &res.CheckIn, &res.CheckOut, &res.Nights,
		&res.Booker.Name, &res.Booker.Email, &res.Booker.Phone,
		&guestName, &guestEmail, &guestPhone,
		&res.Counts.Adult, &res.Counts.Student, &res.Counts.Child, &res.Counts.Infant,
		&optionKeys, &res.Request,
		&res.RoomPrice, &res.Surcharge, &res.OptionFee, &res.TotalAmount,
		&res.Status, &res.Hidden, &paymentRef, &cancelActor,
		&cancelledAt, &checkedInAt, &checkedOutAt, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if guestName.Valid {
		res.Guest = &model.Contact{
			Name:  guestName.String,
			Email: guestEmail.String,
			Phone: guestPhone.String,
		}
	}
	if optionKeys != "" {
		res.OptionKeys = strings.Split(optionKeys, ",")
	}
	if paymentRef.Valid {
		v := paymentRef.String
		res.PaymentRef = &v
	}
	if cancelActor.Valid {
		v := cancelActor.String
		res.CancelActor = &v
	}
	if cancelledAt.Valid {
		v := cancelledAt.Time
		res.CancelledAt = &v
	}
	if checkedInAt.Valid {
		v := checkedInAt.Time
		res.CheckedInAt = &v
	}
	if checkedOutAt.Valid {
		v := checkedOutAt.Time
		res.CheckedOutAt = &v
	}
	return &res, nil
}

// isDuplicateKey reports whether err is a MySQL duplicate-entry error
// (1062) on the named unique index.
func isDuplicateKey(err error, index string) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == 1062 {
		return strings.Contains(me.Message, index)
	}
	return false
}
