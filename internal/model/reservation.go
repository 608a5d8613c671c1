package model

import "time"

// Reservation status values.  PENDING rows were created together with a
// payment-initiation request and either become CONFIRMED on a verified
// payment callback or are discarded when the payment flow is abandoned.
// CANCELLED is a soft transition that keeps the row for audit; an admin
// may revert it back to CONFIRMED.
const (
	StatusPending   = "PENDING"
	StatusConfirmed = "CONFIRMED"
	StatusCancelled = "CANCELLED"
)

// Cancellation actor tags recorded alongside the cancellation timestamp.
const (
	ActorAdmin = "ADMIN"
	ActorGuest = "GUEST"
)

// Contact is the booker or guest contact triple attached to a reservation.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// GuestCounts breaks the party down by billing category.  Infants are
// partially exempt from the excess-occupancy surcharge; see the pricing
// package for the allocation rules.
type GuestCounts struct {
	Adult   uint32 `json:"adult"`
	Student uint32 `json:"student"`
	Child   uint32 `json:"child"`
	Infant  uint32 `json:"infant"`
}

// Total returns the full party size including infants.
func (g GuestCounts) Total() uint32 {
	return g.Adult + g.Student + g.Child + g.Infant
}

// Reservation records a guest's stay in a room over a half-open date
// range [CheckIn, CheckOut).  The three price components are computed at
// creation time and their sum is stored denormalized in TotalAmount.
// Cancellation keeps the row (audit obligation once money moved), while
// the Hidden flag only affects admin-list visibility and is orthogonal
// to the lifecycle status.  This struct corresponds to a row in the
// `reservations` table.
//
// Fields:
//  ID            – primary key identifier.
//  Number        – human-readable reservation number (unique).
//  RoomID        – room being reserved.
//  CheckIn       – first night of the stay.
//  CheckOut      – day of departure (exclusive).
//  Nights        – CheckOut − CheckIn in days, always ≥ 1.
//  Booker        – contact of the person who paid.
//  Guest         – distinct staying guest, if different from the booker.
//  Counts        – party breakdown by billing category.
//  OptionKeys    – selected add-on option keys.
//  Request       – free-text request from the guest.
//  RoomPrice     – sum of the nightly prices.
//  Surcharge     – excess-occupancy surcharge.
//  OptionFee     – sum of selected option prices.
//  TotalAmount   – RoomPrice + Surcharge + OptionFee.
//  Status        – lifecycle status (PENDING, CONFIRMED, CANCELLED).
//  Hidden        – admin soft-delete flag (visibility only).
//  PaymentRef    – external payment transaction reference, if any.
//  CancelActor   – who cancelled (ADMIN or GUEST), when cancelled.
//  CancelledAt   – cancellation timestamp.
//  CheckedInAt   – when the guest was marked checked in.
//  CheckedOutAt  – when the guest was marked checked out.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Reservation struct {
	ID           uint64      // reservations.id
	Number       string      // reservations.reservation_no
	RoomID       string      // reservations.room_id
	CheckIn      time.Time   // reservations.check_in
	CheckOut     time.Time   // reservations.check_out
	Nights       uint32      // reservations.nights
	Booker       Contact     // reservations.booker_*
	Guest        *Contact    // reservations.guest_* (nullable)
	Counts       GuestCounts // reservations.adult_count etc.
	OptionKeys   []string    // reservations.option_keys (csv)
	Request      string      // reservations.request_note
	RoomPrice    int64       // reservations.room_price
	Surcharge    int64       // reservations.surcharge
	OptionFee    int64       // reservations.option_fee
	TotalAmount  int64       // reservations.total_amount
	Status       string      // reservations.status
	Hidden       bool        // reservations.hidden
	PaymentRef   *string     // reservations.payment_ref (nullable)
	CancelActor  *string     // reservations.cancel_actor (nullable)
	CancelledAt  *time.Time  // reservations.cancelled_at (nullable)
	CheckedInAt  *time.Time  // reservations.checked_in_at (nullable)
	CheckedOutAt *time.Time  // reservations.checked_out_at (nullable)
	CreatedAt    time.Time   // reservations.created_at
	UpdatedAt    time.Time   // reservations.updated_at
}
