package model

import "time"

// RateSchedule holds the three base nightly prices for a room, keyed by
// day class.  Friday and Saturday nights carry their own tiers; every
// other night uses the weekday price.  Prices are integer KRW, so no
// rounding is ever involved.  One row per room in `rate_schedules`.
//
// Fields:
//  RoomID        – room the schedule belongs to.
//  WeekdayPrice  – nightly price Sunday through Thursday.
//  FridayPrice   – nightly price for Friday nights.
//  SaturdayPrice – nightly price for Saturday nights.
//  UpdatedAt     – last admin price adjustment.
type RateSchedule struct {
	RoomID        string    // rate_schedules.room_id
	WeekdayPrice  int64     // rate_schedules.weekday_price
	FridayPrice   int64     // rate_schedules.friday_price
	SaturdayPrice int64     // rate_schedules.saturday_price
	UpdatedAt     time.Time // rate_schedules.updated_at
}

// DateOverride pins the price of a single night for a room, taking
// precedence over the rate schedule for that date only.  Overrides are
// sparse; most nights have none.
//
// Fields:
//  RoomID   – room the override applies to.
//  StayDate – the calendar night being overridden.
//  Price    – nightly price in KRW for that night.
type DateOverride struct {
	RoomID   string    // date_overrides.room_id
	StayDate time.Time // date_overrides.stay_date
	Price    int64     // date_overrides.price
}

// DateBlock marks a single night of a room as unbookable regardless of
// reservation state.  Blocks are used for maintenance or manual holds.
// Any blocked night inside a requested range disqualifies the room.
type DateBlock struct {
	RoomID      string    // date_blocks.room_id
	BlockedDate time.Time // date_blocks.blocked_date
	Reason      string    // date_blocks.reason
	CreatedAt   time.Time // date_blocks.created_at
}
