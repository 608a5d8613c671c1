// Package availability resolves which rooms can host a party over a
// date range and annotates each candidate with its computed price.
// Resolution is a pure read: it mutates nothing and tolerates any
// number of concurrent callers.
package availability

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/hyeonsu-kim/villa-booking/internal/model"
	"github.com/hyeonsu-kim/villa-booking/internal/pricing"
	"github.com/hyeonsu-kim/villa-booking/internal/repository"
)

// ErrAdultRequired is returned when a search names no adult; at least
// one adult is mandatory in every party.
var ErrAdultRequired = errors.New("at least one adult is required")

// Catalog lists bookable rooms, optionally narrowed to a zone.
type Catalog interface {
	ListActive(ctx context.Context, zone string) ([]model.Room, error)
}

// ReservationIndex reports which rooms hold a tentative or confirmed
// reservation overlapping a date range.  Implementations must read the
// store directly; serving this from a stale cache would undermine the
// overlap invariant.
type ReservationIndex interface {
	ReservedRooms(ctx context.Context, from, to time.Time) (map[string]bool, error)
}

// BlockIndex reports which rooms have an administrative block on any
// night of a date range.
type BlockIndex interface {
	BlockedRooms(ctx context.Context, from, to time.Time) (map[string]bool, error)
}

// RateSource supplies the pricing inputs for a room.
type RateSource interface {
	ScheduleFor(ctx context.Context, roomID string) (*model.RateSchedule, error)
	OverridesFor(ctx context.Context, roomID string, from, to time.Time) (map[string]int64, error)
}

// Query is one availability search.
type Query struct {
	CheckIn  time.Time
	CheckOut time.Time
	Adults   uint32
	// Children is the combined non-adult headcount; for capacity
	// purposes every guest occupies a spot.
	Children uint32
	Zone     string
}

// Offer is an available room annotated with its price for the range.
type Offer struct {
	Room      model.Room      `json:"room"`
	RoomPrice int64           `json:"room_price"`
	Nights    []pricing.Night `json:"nights"`
}

// Resolver implements the availability search.
type Resolver struct {
	catalog       Catalog
	reservations  ReservationIndex
	blocks        BlockIndex
	rates         RateSource
	fallbackPrice int64
	log           *zap.Logger
}

// NewResolver wires an availability resolver.  fallbackPrice is charged
// per night for rooms missing a rate schedule.
func NewResolver(catalog Catalog, reservations ReservationIndex, blocks BlockIndex, rates RateSource, fallbackPrice int64, log *zap.Logger) *Resolver {
	return &Resolver{
		catalog:       catalog,
		reservations:  reservations,
		blocks:        blocks,
		rates:         rates,
		fallbackPrice: fallbackPrice,
		log:           log,
	}
}

// Resolve returns the priced rooms able to host the party over the
// requested range, ordered by zone letter then room number.  A search
// with no matches returns an empty slice, never an error.
func (r *Resolver) Resolve(ctx context.Context, q Query) ([]Offer, error) {
	if q.Adults < 1 {
		return nil, ErrAdultRequired
	}
	if !q.CheckOut.After(q.CheckIn) {
		return nil, pricing.ErrInvalidRange
	}
	party := q.Adults + q.Children

	rooms, err := r.catalog.ListActive(ctx, q.Zone)
	if err != nil {
		return nil, err
	}
	reserved, err := r.reservations.ReservedRooms(ctx, q.CheckIn, q.CheckOut)
	if err != nil {
		return nil, err
	}
	blocked, err := r.blocks.BlockedRooms(ctx, q.CheckIn, q.CheckOut)
	if err != nil {
		return nil, err
	}

	offers := make([]Offer, 0, len(rooms))
	for _, room := range rooms {
		if room.MaxOccupancy < party {
			continue
		}
		if reserved[room.ID] || blocked[room.ID] {
			continue
		}
		total, nights, err := r.Price(ctx, room.ID, q.CheckIn, q.CheckOut)
		if err != nil {
			return nil, err
		}
		offers = append(offers, Offer{Room: room, RoomPrice: total, Nights: nights})
	}

	sort.Slice(offers, func(i, j int) bool {
		a, b := offers[i].Room, offers[j].Room
		if a.Zone != b.Zone {
			return a.Zone < b.Zone
		}
		return a.Number < b.Number
	})
	return offers, nil
}

// Price computes the room price for one room over a range, degrading to
// the fallback nightly price when the room has no rate schedule.  The
// missing schedule is logged as a data-integrity warning, not returned
// as an error, because the search must still render a number.
func (r *Resolver) Price(ctx context.Context, roomID string, checkIn, checkOut time.Time) (int64, []pricing.Night, error) {
	var rates *pricing.Rates
	sched, err := r.rates.ScheduleFor(ctx, roomID)
	switch {
	case err == nil:
		rates = &pricing.Rates{
			Weekday:  sched.WeekdayPrice,
			Friday:   sched.FridayPrice,
			Saturday: sched.SaturdayPrice,
		}
	case errors.Is(err, repository.ErrRateScheduleNotFound):
		r.log.Warn("room has no rate schedule, using fallback price",
			zap.String("room_id", roomID),
			zap.Int64("fallback_price", r.fallbackPrice))
	default:
		return 0, nil, err
	}

	overrides, err := r.rates.OverridesFor(ctx, roomID, checkIn, checkOut)
	if err != nil {
		return 0, nil, err
	}
	return pricing.Quote(rates, overrides, r.fallbackPrice, checkIn, checkOut)
}
