// Package pricing computes the price components of a stay: the nightly
// room price, the excess-occupancy surcharge and the add-on option fee.
// All functions are pure; the caller supplies the rate data and gets
// back integer KRW amounts.
package pricing

import (
	"errors"
	"time"
)

// ErrInvalidRange is returned when the checkout date is not strictly
// after the check-in date.
var ErrInvalidRange = errors.New("check-out must be after check-in")

// DateKey is the map key format used for per-date override lookups.
const DateKey = "2006-01-02"

// DayClass buckets a calendar date into one of the three rate tiers.
type DayClass int

const (
	Weekday DayClass = iota
	Friday
	Saturday
)

// ClassOf returns the rate tier for the night starting on d.
func ClassOf(d time.Time) DayClass {
	switch d.Weekday() {
	case time.Friday:
		return Friday
	case time.Saturday:
		return Saturday
	default:
		return Weekday
	}
}

// Rates carries the tier prices used when a night has no override.  A
// nil schedule falls back to Fallback for every night; the caller is
// expected to log that as a data-integrity warning, not fail the query.
type Rates struct {
	Weekday  int64
	Friday   int64
	Saturday int64
}

// Night is one line of a quote breakdown.
type Night struct {
	Date       time.Time `json:"date"`
	Price      int64     `json:"price"`
	Overridden bool      `json:"overridden"`
}

// Quote walks every night in [checkIn, checkOut) and sums the nightly
// price: a per-date override when one exists, otherwise the tier price
// for the night's day class.  rates may be nil when the room has no
// schedule, in which case fallback is charged for every non-overridden
// night.  The returned breakdown has exactly one entry per night.
func Quote(rates *Rates, overrides map[string]int64, fallback int64, checkIn, checkOut time.Time) (int64, []Night, error) {
	in := checkIn.Truncate(24 * time.Hour)
	out := checkOut.Truncate(24 * time.Hour)
	if !out.After(in) {
		return 0, nil, ErrInvalidRange
	}
	var total int64
	nights := make([]Night, 0, int(out.Sub(in).Hours()/24))
	for d := in; d.Before(out); d = d.AddDate(0, 0, 1) {
		price, overridden := nightPrice(rates, overrides, fallback, d)
		total += price
		nights = append(nights, Night{Date: d, Price: price, Overridden: overridden})
	}
	return total, nights, nil
}

func nightPrice(rates *Rates, overrides map[string]int64, fallback int64, d time.Time) (int64, bool) {
	if p, ok := overrides[d.Format(DateKey)]; ok {
		return p, true
	}
	if rates == nil {
		return fallback, false
	}
	switch ClassOf(d) {
	case Friday:
		return rates.Friday, false
	case Saturday:
		return rates.Saturday, false
	default:
		return rates.Weekday, false
	}
}

// NightsBetween returns the stay length in nights for a half-open date
// range.  It returns 0 when the range is empty or inverted.
func NightsBetween(checkIn, checkOut time.Time) uint32 {
	in := checkIn.Truncate(24 * time.Hour)
	out := checkOut.Truncate(24 * time.Hour)
	if !out.After(in) {
		return 0
	}
	return uint32(out.Sub(in).Hours() / 24)
}
