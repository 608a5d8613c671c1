package model

import "time"

// Room describes a physical villa unit available for booking.  Rooms are
// identified by a short code combining the zone letter and a number within
// the zone (e.g. "A3").  Occupancy is split into a base occupancy covered
// by the nightly rate and a hard maximum beyond which the room cannot be
// booked at all.  This struct corresponds to a row in the `rooms` table.
//
// Fields:
//  ID            – room code, zone letter + number (primary key).
//  Zone          – zone letter ("A", "B", ...).
//  Number        – numeric position of the room within its zone.
//  Name          – display name of the room.
//  Beds          – number of beds.
//  Bathrooms     – number of bathrooms.
//  BaseOccupancy – guests included in the nightly rate.
//  MaxOccupancy  – hard capacity limit for the room.
//  FloorArea     – floor area in square metres.
//  PetFriendly   – whether pets are allowed.
//  PoolType      – pool attached to the room (NONE, OPEN, HEATED).
//  IsActive      – whether the room is offered for booking.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Room struct {
	ID            string    // rooms.id
	Zone          string    // rooms.zone
	Number        uint32    // rooms.number
	Name          string    // rooms.name
	Beds          uint32    // rooms.beds
	Bathrooms     uint32    // rooms.bathrooms
	BaseOccupancy uint32    // rooms.base_occupancy
	MaxOccupancy  uint32    // rooms.max_occupancy
	FloorArea     uint32    // rooms.floor_area_m2
	PetFriendly   bool      // rooms.pet_friendly
	PoolType      string    // rooms.pool_type
	IsActive      bool      // rooms.is_active
	CreatedAt     time.Time // rooms.created_at
	UpdatedAt     time.Time // rooms.updated_at
}
