package reservation

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// numberAttempts bounds the in-process collision retry loop.  The
// unique index on reservations.reservation_no remains the authority;
// this loop only keeps the common path from ever hitting it.
const numberAttempts = 5

// FormatNumber renders a reservation number from a timestamp and a
// two-digit suffix: yymmddHHMMSS + 2 random digits.  Numbers sort
// chronologically and stay readable over the phone.
func FormatNumber(now time.Time, suffix int) string {
	return fmt.Sprintf("%s%02d", now.Format("060102150405"), suffix%100)
}

// newNumber generates a candidate reservation number seeded from the
// current time.
func newNumber(now time.Time) string {
	return FormatNumber(now, rand.IntN(100))
}

// nextNumber returns a reservation number not currently present in the
// store.  Collisions are only possible for reservations created within
// the same second, so a handful of retries with a fresh random suffix
// is enough; if the store races us anyway, Create surfaces
// ErrNumberTaken and the whole creation is retried.
func (m *Manager) nextNumber(ctx context.Context) (string, error) {
	var last string
	for i := 0; i < numberAttempts; i++ {
		n := newNumber(m.now())
		exists, err := m.store.NumberExists(ctx, n)
		if err != nil {
			return "", err
		}
		if !exists {
			return n, nil
		}
		last = n
	}
	return "", fmt.Errorf("could not allocate a unique reservation number (last tried %s)", last)
}
