// Package queue defines message payloads exchanged over the message broker.
package queue

// Queue names for reservation lifecycle events.
const (
	ConfirmedQueue = "reservation.confirmed"
	CancelledQueue = "reservation.cancelled"
)

// ReservationConfirmedEvent is published when a payment callback
// confirms a reservation.  It carries enough information for downstream
// consumers to log or notify without querying the primary database.
type ReservationConfirmedEvent struct {
	ReservationNo string `json:"reservation_no"`
	RoomID        string `json:"room_id"`
	RoomName      string `json:"room_name"`
	CheckIn       string `json:"check_in"`
	CheckOut      string `json:"check_out"`
	Nights        uint32 `json:"nights"`
	GuestName     string `json:"guest_name"`
	TotalAmount   int64  `json:"total_amount"`
	PaymentRef    string `json:"payment_ref"`
	ConfirmedAt   string `json:"confirmed_at"`
}

// ReservationCancelledEvent is published after a cancellation's state
// transition committed, i.e. after the refund (when one was due) was
// confirmed by the gateway.
type ReservationCancelledEvent struct {
	ReservationNo string `json:"reservation_no"`
	RoomID        string `json:"room_id"`
	Actor         string `json:"actor"`
	RefundAmount  int64  `json:"refund_amount"`
	PaymentRef    string `json:"payment_ref,omitempty"`
	CancelledAt   string `json:"cancelled_at"`
}
