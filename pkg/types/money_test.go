package types

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "12.00", FormatCents(1200))
	assert.Equal(t, "0.05", FormatCents(5))
	assert.Equal(t, "-3.10", FormatCents(-310))
}

func TestParseAmount(t *testing.T) {
	cents, err := ParseAmount("10.25")
	require.NoError(t, err)
	assert.Equal(t, int64(1025), cents)

	cents, err = ParseAmount("7")
	require.NoError(t, err)
	assert.Equal(t, int64(700), cents)

	_, err = ParseAmount("1.005")
	require.Error(t, err)

	_, err = ParseAmount("abc")
	require.Error(t, err)
}

func TestLineItemSnapshotsSubtotal(t *testing.T) {
	lines := LineItemSnapshots{
		{ProductID: uuid.New(), UnitPriceCents: 250, Quantity: 2, LineSubtotalCents: LineTotalCents(250, 2)},
		{ProductID: uuid.New(), UnitPriceCents: 1000, Quantity: 1, LineSubtotalCents: LineTotalCents(1000, 1)},
	}
	assert.Equal(t, int64(1500), lines.SubtotalCents())
	assert.Equal(t, int64(0), LineItemSnapshots(nil).SubtotalCents())
}
