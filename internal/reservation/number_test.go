package reservation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyeonsu-kim/villa-booking/internal/model"
)

func TestFormatNumber(t *testing.T) {
	at := time.Date(2025, time.March, 6, 12, 45, 32, 0, time.UTC)
	assert.Equal(t, "25030612453207", FormatNumber(at, 7))
	// Suffix wraps into two digits.
	assert.Equal(t, "25030612453204", FormatNumber(at, 104))
}

func TestNewNumberShape(t *testing.T) {
	n := newNumber(time.Date(2025, time.March, 6, 12, 45, 32, 0, time.UTC))
	require.Len(t, n, 14)
	assert.Equal(t, "250306124532", n[:12])
}

func TestNextNumberRetriesOnCollision(t *testing.T) {
	store := newMemStore()
	m := newManager(store, &fakeGateway{})
	fixed := time.Date(2025, time.March, 6, 12, 45, 32, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	// Occupy most of the suffix space for that second; a free number
	// must still be found within the retry budget most of the time, so
	// leave plenty of room and only assert the found number is unused.
	for i := 0; i < 10; i++ {
		store.rows[FormatNumber(fixed, i)] = &model.Reservation{}
	}

	n, err := m.nextNumber(context.Background())
	require.NoError(t, err)
	exists, err := store.NumberExists(context.Background(), n)
	require.NoError(t, err)
	assert.False(t, exists)
}
