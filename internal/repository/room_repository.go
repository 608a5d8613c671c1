package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hyeonsu-kim/villa-booking/internal/model"
)

// RoomRepo provides read access to the room catalog.  Rooms are
// read-mostly: the engine never mutates them, only admin tooling does,
// so results are safe to serve through the response cache.
type RoomRepo struct {
	db *sql.DB
}

// NewRoomRepo returns a new RoomRepo bound to the given database.
func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions
// spanning multiple repositories.
func (r *RoomRepo) DB() *sql.DB { return r.db }

const roomColumns = `id, zone, number, name, beds, bathrooms, base_occupancy,
	max_occupancy, floor_area_m2, pet_friendly, pool_type, is_active,
	created_at, updated_at`

// GetByID returns a single room by its code.  Inactive rooms are still
// returned so that admin screens and existing reservations can resolve
// them; availability filtering happens in ListActive.  Returns
// ErrRoomNotFound when the code does not exist.
func (r *RoomRepo) GetByID(ctx context.Context, id string) (*model.Room, error) {
	const q = `SELECT ` + roomColumns + ` FROM rooms WHERE id = ?`
	room, err := scanRoom(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	return room, err
}

// ListActive returns all bookable rooms ordered by zone letter and then
// numeric position, the stable ordering the availability results use.
// An empty zone returns every zone.
func (r *RoomRepo) ListActive(ctx context.Context, zone string) ([]model.Room, error) {
	q := `SELECT ` + roomColumns + ` FROM rooms WHERE is_active = 1`
	args := []interface{}{}
	if zone != "" {
		q += ` AND zone = ?`
		args = append(args, zone)
	}
	q += ` ORDER BY zone, number`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Room, 0)
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *room)
	}
	return out, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRoom(s rowScanner) (*model.Room, error) {
	var room model.Room
	err := s.Scan(
		&room.ID, &room.Zone, &room.Number, &room.Name, &room.Beds,
		&room.Bathrooms, &room.BaseOccupancy, &room.MaxOccupancy,
		&room.FloorArea, &room.PetFriendly, &room.PoolType, &room.IsActive,
		&room.CreatedAt, &room.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &room, nil
}
