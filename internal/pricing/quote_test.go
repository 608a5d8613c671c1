package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var testRates = &Rates{Weekday: 200000, Friday: 250000, Saturday: 300000}

func TestClassOf(t *testing.T) {
	assert.Equal(t, Weekday, ClassOf(date(2025, time.March, 6)))  // Thursday
	assert.Equal(t, Friday, ClassOf(date(2025, time.March, 7)))   // Friday
	assert.Equal(t, Saturday, ClassOf(date(2025, time.March, 8))) // Saturday
	assert.Equal(t, Weekday, ClassOf(date(2025, time.March, 9)))  // Sunday
	assert.Equal(t, Weekday, ClassOf(date(2025, time.March, 10))) // Monday
}

func TestQuoteThursdayFridayStay(t *testing.T) {
	// Two nights starting on a Thursday: weekday + Friday tier.
	in := date(2025, time.March, 6)
	out := date(2025, time.March, 8)

	total, nights, err := Quote(testRates, nil, 0, in, out)
	require.NoError(t, err)
	assert.Equal(t, int64(450000), total)
	require.Len(t, nights, 2)
	assert.Equal(t, int64(200000), nights[0].Price)
	assert.Equal(t, int64(250000), nights[1].Price)
	assert.False(t, nights[0].Overridden)
}

func TestQuoteTierWalkFullWeek(t *testing.T) {
	// Sunday through Sunday: 5 weekday nights + Friday + Saturday.
	in := date(2025, time.March, 9)
	out := date(2025, time.March, 16)

	total, nights, err := Quote(testRates, nil, 0, in, out)
	require.NoError(t, err)
	require.Len(t, nights, 7)
	assert.Equal(t, int64(5*200000+250000+300000), total)
}

func TestQuoteOverrideReplacesExactlyOneNight(t *testing.T) {
	in := date(2025, time.March, 6)
	out := date(2025, time.March, 9)
	overrides := map[string]int64{
		"2025-03-07": 990000, // Friday night overridden
	}

	total, nights, err := Quote(testRates, overrides, 0, in, out)
	require.NoError(t, err)
	require.Len(t, nights, 3)
	assert.Equal(t, int64(200000+990000+300000), total)
	assert.False(t, nights[0].Overridden)
	assert.True(t, nights[1].Overridden)
	assert.False(t, nights[2].Overridden)
}

func TestQuoteMissingScheduleFallsBack(t *testing.T) {
	in := date(2025, time.March, 6)
	out := date(2025, time.March, 8)

	total, nights, err := Quote(nil, nil, 150000, in, out)
	require.NoError(t, err)
	assert.Equal(t, int64(300000), total)
	require.Len(t, nights, 2)

	// Overrides still win over the fallback.
	total, _, err = Quote(nil, map[string]int64{"2025-03-06": 80000}, 150000, in, out)
	require.NoError(t, err)
	assert.Equal(t, int64(230000), total)
}

func TestQuoteRejectsInvertedRange(t *testing.T) {
	_, _, err := Quote(testRates, nil, 0, date(2025, time.March, 8), date(2025, time.March, 6))
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, _, err = Quote(testRates, nil, 0, date(2025, time.March, 8), date(2025, time.March, 8))
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestNightsBetween(t *testing.T) {
	assert.Equal(t, uint32(2), NightsBetween(date(2025, time.March, 6), date(2025, time.March, 8)))
	assert.Equal(t, uint32(0), NightsBetween(date(2025, time.March, 8), date(2025, time.March, 8)))
	assert.Equal(t, uint32(0), NightsBetween(date(2025, time.March, 9), date(2025, time.March, 8)))
}
