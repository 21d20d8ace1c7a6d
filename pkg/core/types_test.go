package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQty(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"0.01", 1_000_000, false},
		{"1", 100_000_000, false},
		{"0.00000001", 1, false},
		{"0.000000001", 0, true}, // finer than 8 dp
		{"0", 0, true},
		{"-0.5", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseQty(decimal.RequireFromString(tt.in))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"100000", 10_000_000, false},
		{"90000.50", 9_000_050, false},
		{"100000.005", 0, true}, // sub-cent
		{"0", 0, true},
		{"-10", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePrice(decimal.RequireFromString(tt.in))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecimalRoundTrip(t *testing.T) {
	assert.Equal(t, "100000", PriceDecimal(10_000_000).String())
	assert.Equal(t, "0.06", QtyDecimal(6_000_000).String())

	// Exact cost for a sub-cent-grid notional: $100,000 × 0.00000001 BTC.
	tr := Trade{PriceCents: 10_000_000, QtySats: 1}
	assert.Equal(t, "0.001", tr.Cost().String())
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusPartial.Terminal())
	assert.True(t, StatusFilled.Terminal())
	assert.True(t, StatusCancelled.Terminal())
}

func TestSideAndKindParsing(t *testing.T) {
	side, err := ParseSide("buy")
	require.NoError(t, err)
	assert.Equal(t, SideBuy, side)
	assert.Equal(t, SideSell, side.Opposite())

	_, err = ParseSide("hold")
	assert.ErrorIs(t, err, ErrValidation)

	kind, err := ParseKind("limit")
	require.NoError(t, err)
	assert.Equal(t, KindLimit, kind)

	_, err = ParseKind("stop")
	assert.ErrorIs(t, err, ErrValidation)
}
