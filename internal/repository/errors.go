// Package repository implements the persistence layer over MySQL.  The
// sentinel errors defined here let handlers and the reservation manager
// distinguish failure scenarios with errors.Is: a conflict on the
// booked-night set must be told apart from a plain not-found, because
// the caller reacts differently (re-search versus 404).
package repository

import "errors"

// ErrRoomNotFound is returned when a room code does not resolve to an
// active room.
var ErrRoomNotFound = errors.New("room not found")

// ErrRateScheduleNotFound is returned when a room has no rate schedule
// row.  Callers treat this as a data-integrity warning and fall back to
// the global nightly price rather than failing the query.
var ErrRateScheduleNotFound = errors.New("rate schedule not found")

// ErrReservationNotFound is returned when a reservation id or number
// does not exist.
var ErrReservationNotFound = errors.New("reservation not found")

// ErrDateConflict is returned when a write would give two non-cancelled
// reservations overlapping nights in the same room.  It surfaces both
// from the pre-insert re-check and from the unique key on
// reservation_nights when two writers race past the re-check.
var ErrDateConflict = errors.New("room already reserved for requested dates")

// ErrNumberTaken is returned when a generated reservation number
// collides with an existing row.  The caller retries with a fresh
// number.
var ErrNumberTaken = errors.New("reservation number already in use")

// ErrStaleStatus is returned when a status-guarded update matched no
// row because the reservation changed status after the caller last read
// it.  The caller must re-read before deciding anything.
var ErrStaleStatus = errors.New("reservation status changed concurrently")
