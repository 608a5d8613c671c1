package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectOptionExclusiveGroupLastWriteWins(t *testing.T) {
	sel, err := SelectOption(nil, "bbq_basic")
	require.NoError(t, err)
	sel, err = SelectOption(sel, "bbq_deluxe")
	require.NoError(t, err)

	// Exactly one BBQ tier remains selected.
	assert.Equal(t, []string{"bbq_deluxe"}, sel)

	sel, err = SelectOption(sel, "hotwater_winter")
	require.NoError(t, err)
	sel, err = SelectOption(sel, "fireplace")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bbq_deluxe", "hotwater_winter", "fireplace"}, sel)

	// Re-selecting an option does not duplicate it.
	sel, err = SelectOption(sel, "fireplace")
	require.NoError(t, err)
	assert.Len(t, sel, 3)
}

func TestSelectOptionUnknownKey(t *testing.T) {
	_, err := SelectOption(nil, "jacuzzi")
	assert.Error(t, err)
}

func TestNormalizeOptions(t *testing.T) {
	sel, err := NormalizeOptions([]string{"bbq_basic", "hotwater_summer", "bbq_deluxe", "hotwater_winter"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bbq_deluxe", "hotwater_winter"}, sel)
}

func TestOptionFee(t *testing.T) {
	fee, err := OptionFee([]string{"bbq_basic", "hotwater_winter", "fireplace"})
	require.NoError(t, err)
	assert.Equal(t, int64(130000), fee)

	fee, err = OptionFee(nil)
	require.NoError(t, err)
	assert.Zero(t, fee)
}

func TestOptionFeeRejectsConflictingSelection(t *testing.T) {
	_, err := OptionFee([]string{"bbq_basic", "bbq_deluxe"})
	assert.Error(t, err)

	_, err = OptionFee([]string{"sauna"})
	assert.Error(t, err)
}
