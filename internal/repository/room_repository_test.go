package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// roomRowsDriver serves a canned rooms result set for every query, with
// driver values typed the way go-sql-driver delivers the rooms schema:
// strings as []byte, every integer column (floor_area_m2 included) as
// int64, DATETIME as time.Time.  Scanning must stay aligned with the
// column types the migrations create.
type roomRowsDriver struct{}

func (roomRowsDriver) Open(string) (driver.Conn, error) { return roomRowsConn{}, nil }

type roomRowsConn struct{}

func (roomRowsConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepare not supported")
}
func (roomRowsConn) Close() error              { return nil }
func (roomRowsConn) Begin() (driver.Tx, error) { return nil, errors.New("tx not supported") }

func (roomRowsConn) QueryContext(context.Context, string, []driver.NamedValue) (driver.Rows, error) {
	return &roomRows{}, nil
}

var roomRowsTime = time.Date(2025, time.March, 6, 9, 0, 0, 0, time.UTC)

var roomRowsData = [][]driver.Value{
	{[]byte("A1"), []byte("A"), int64(1), []byte("Maple"), int64(2), int64(1),
		int64(4), int64(6), int64(33), int64(1), []byte("OPEN"), int64(1),
		roomRowsTime, roomRowsTime},
	{[]byte("A3"), []byte("A"), int64(3), []byte("Pine"), int64(2), int64(1),
		int64(4), int64(6), int64(26), int64(0), []byte("NONE"), int64(1),
		roomRowsTime, roomRowsTime},
}

type roomRows struct{ i int }

func (r *roomRows) Columns() []string {
	return []string{
		"id", "zone", "number", "name", "beds", "bathrooms", "base_occupancy",
		"max_occupancy", "floor_area_m2", "pet_friendly", "pool_type", "is_active",
		"created_at", "updated_at",
	}
}

func (r *roomRows) Close() error { return nil }

func (r *roomRows) Next(dest []driver.Value) error {
	if r.i >= len(roomRowsData) {
		return io.EOF
	}
	copy(dest, roomRowsData[r.i])
	r.i++
	return nil
}

func init() {
	sql.Register("roomrows", roomRowsDriver{})
}

func TestListActiveScansRoomColumns(t *testing.T) {
	db, err := sql.Open("roomrows", "")
	require.NoError(t, err)
	defer db.Close()

	rooms, err := NewRoomRepo(db).ListActive(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, rooms, 2)

	assert.Equal(t, "A1", rooms[0].ID)
	assert.Equal(t, "Maple", rooms[0].Name)
	assert.Equal(t, uint32(33), rooms[0].FloorArea)
	assert.True(t, rooms[0].PetFriendly)
	assert.Equal(t, uint32(26), rooms[1].FloorArea)
	assert.False(t, rooms[1].PetFriendly)
}

func TestGetByIDScansRoomRow(t *testing.T) {
	db, err := sql.Open("roomrows", "")
	require.NoError(t, err)
	defer db.Close()

	room, err := NewRoomRepo(db).GetByID(context.Background(), "A1")
	require.NoError(t, err)

	assert.Equal(t, "A1", room.ID)
	assert.Equal(t, "A", room.Zone)
	assert.Equal(t, uint32(1), room.Number)
	assert.Equal(t, uint32(4), room.BaseOccupancy)
	assert.Equal(t, uint32(6), room.MaxOccupancy)
	assert.Equal(t, "OPEN", room.PoolType)
	assert.True(t, room.IsActive)
	assert.True(t, roomRowsTime.Equal(room.CreatedAt))
}
