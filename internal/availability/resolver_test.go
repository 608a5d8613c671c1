package availability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hyeonsu-kim/villa-booking/internal/model"
	"github.com/hyeonsu-kim/villa-booking/internal/repository"
)

type fakeStore struct {
	rooms     []model.Room
	reserved  map[string]bool
	blocked   map[string]bool
	schedules map[string]*model.RateSchedule
	overrides map[string]map[string]int64
}

func (f *fakeStore) ListActive(_ context.Context, zone string) ([]model.Room, error) {
	if zone == "" {
		return f.rooms, nil
	}
	out := []model.Room{}
	for _, r := range f.rooms {
		if r.Zone == zone {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) ReservedRooms(context.Context, time.Time, time.Time) (map[string]bool, error) {
	return f.reserved, nil
}

func (f *fakeStore) BlockedRooms(context.Context, time.Time, time.Time) (map[string]bool, error) {
	return f.blocked, nil
}

func (f *fakeStore) ScheduleFor(_ context.Context, roomID string) (*model.RateSchedule, error) {
	s, ok := f.schedules[roomID]
	if !ok {
		return nil, repository.ErrRateScheduleNotFound
	}
	return s, nil
}

func (f *fakeStore) OverridesFor(_ context.Context, roomID string, _, _ time.Time) (map[string]int64, error) {
	return f.overrides[roomID], nil
}

func room(id, zone string, number, maxOcc uint32) model.Room {
	return model.Room{ID: id, Zone: zone, Number: number, BaseOccupancy: 4, MaxOccupancy: maxOcc, IsActive: true}
}

func schedule(roomID string) *model.RateSchedule {
	return &model.RateSchedule{RoomID: roomID, WeekdayPrice: 200000, FridayPrice: 250000, SaturdayPrice: 300000}
}

func newFake() *fakeStore {
	return &fakeStore{
		rooms: []model.Room{
			room("B2", "B", 2, 6),
			room("A1", "A", 1, 4),
			room("A10", "A", 10, 8),
			room("A2", "A", 2, 4),
		},
		reserved: map[string]bool{},
		blocked:  map[string]bool{},
		schedules: map[string]*model.RateSchedule{
			"A1": schedule("A1"), "A2": schedule("A2"), "A10": schedule("A10"), "B2": schedule("B2"),
		},
		overrides: map[string]map[string]int64{},
	}
}

func query() Query {
	return Query{
		CheckIn:  time.Date(2025, time.March, 6, 0, 0, 0, 0, time.UTC), // Thursday
		CheckOut: time.Date(2025, time.March, 8, 0, 0, 0, 0, time.UTC),
		Adults:   2,
	}
}

func TestResolveRequiresAdult(t *testing.T) {
	r := NewResolver(newFake(), newFake(), newFake(), newFake(), 0, zap.NewNop())
	q := query()
	q.Adults = 0
	q.Children = 3
	_, err := r.Resolve(context.Background(), q)
	assert.ErrorIs(t, err, ErrAdultRequired)
}

func TestResolveFiltersCapacity(t *testing.T) {
	f := newFake()
	r := NewResolver(f, f, f, f, 0, zap.NewNop())
	q := query()
	q.Adults = 4
	q.Children = 2 // party of 6

	offers, err := r.Resolve(context.Background(), q)
	require.NoError(t, err)
	ids := offerIDs(offers)
	assert.Equal(t, []string{"A10", "B2"}, ids)
}

func TestResolveExcludesReservedAndBlocked(t *testing.T) {
	f := newFake()
	f.reserved["A1"] = true
	f.blocked["B2"] = true
	r := NewResolver(f, f, f, f, 0, zap.NewNop())

	offers, err := r.Resolve(context.Background(), query())
	require.NoError(t, err)
	assert.Equal(t, []string{"A2", "A10"}, offerIDs(offers))
}

func TestResolveZoneFilterAndOrdering(t *testing.T) {
	f := newFake()
	r := NewResolver(f, f, f, f, 0, zap.NewNop())
	q := query()
	q.Zone = "A"

	offers, err := r.Resolve(context.Background(), q)
	require.NoError(t, err)
	// Numeric ordering within the zone: A2 before A10.
	assert.Equal(t, []string{"A1", "A2", "A10"}, offerIDs(offers))
}

func TestResolveAnnotatesPrice(t *testing.T) {
	f := newFake()
	f.overrides["A1"] = map[string]int64{"2025-03-07": 500000}
	r := NewResolver(f, f, f, f, 0, zap.NewNop())

	offers, err := r.Resolve(context.Background(), query())
	require.NoError(t, err)
	require.NotEmpty(t, offers)
	// Thursday weekday night + overridden Friday night.
	assert.Equal(t, int64(700000), offers[0].RoomPrice)
	require.Len(t, offers[0].Nights, 2)
	assert.True(t, offers[0].Nights[1].Overridden)
	// Non-overridden rooms keep the tier prices.
	assert.Equal(t, int64(450000), offers[1].RoomPrice)
}

func TestResolveMissingScheduleUsesFallback(t *testing.T) {
	f := newFake()
	delete(f.schedules, "A1")
	r := NewResolver(f, f, f, f, 120000, zap.NewNop())

	offers, err := r.Resolve(context.Background(), query())
	require.NoError(t, err)
	assert.Equal(t, int64(240000), offers[0].RoomPrice)
}

func TestResolveEmptyResultIsNotAnError(t *testing.T) {
	f := newFake()
	for _, rm := range f.rooms {
		f.reserved[rm.ID] = true
	}
	r := NewResolver(f, f, f, f, 0, zap.NewNop())

	offers, err := r.Resolve(context.Background(), query())
	require.NoError(t, err)
	assert.Empty(t, offers)
}

func offerIDs(offers []Offer) []string {
	ids := make([]string, 0, len(offers))
	for _, o := range offers {
		ids = append(ids, o.Room.ID)
	}
	return ids
}
