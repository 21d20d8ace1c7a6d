package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bookOrder(id string, side Side, price, qty int64, seq int64) *Order {
	return &Order{
		ID:           id,
		Owner:        "acct-" + id,
		Side:         side,
		Kind:         KindLimit,
		PriceCents:   price,
		OriginalQty:  qty,
		RemainingQty: qty,
		Sequence:     seq,
	}
}

func TestOrderBookBestLevels(t *testing.T) {
	ob := NewOrderBook()

	_, ok := ob.BestBid()
	assert.False(t, ok)
	_, ok = ob.BestAsk()
	assert.False(t, ok)

	ob.Insert(bookOrder("b1", SideBuy, 9_000_000, 100, 1))
	ob.Insert(bookOrder("b2", SideBuy, 9_500_000, 200, 2))
	ob.Insert(bookOrder("b3", SideBuy, 9_500_000, 300, 3))
	ob.Insert(bookOrder("a1", SideSell, 10_000_000, 400, 4))
	ob.Insert(bookOrder("a2", SideSell, 10_500_000, 500, 5))

	bid, ok := ob.BestBid()
	require.True(t, ok)
	assert.Equal(t, int64(9_500_000), bid.PriceCents)
	assert.Equal(t, int64(500), bid.QtySats) // b2 + b3 aggregated

	ask, ok := ob.BestAsk()
	require.True(t, ok)
	assert.Equal(t, int64(10_000_000), ask.PriceCents)
	assert.Equal(t, int64(400), ask.QtySats)
}

func TestOrderBookFIFOWithinLevel(t *testing.T) {
	ob := NewOrderBook()
	ob.Insert(bookOrder("s1", SideSell, 10_000_000, 100, 1))
	ob.Insert(bookOrder("s2", SideSell, 10_000_000, 100, 2))
	ob.Insert(bookOrder("s3", SideSell, 10_000_000, 100, 3))

	// Exit order must equal acceptance order.
	for _, want := range []string{"s1", "s2", "s3"} {
		maker := ob.PeekOpposite(SideBuy)
		require.NotNil(t, maker)
		assert.Equal(t, want, maker.ID)
		ob.Remove(maker.ID)
	}
	assert.Nil(t, ob.PeekOpposite(SideBuy))
}

func TestOrderBookPeekOppositePrefersBestPrice(t *testing.T) {
	ob := NewOrderBook()
	ob.Insert(bookOrder("s-high", SideSell, 10_500_000, 100, 1))
	ob.Insert(bookOrder("s-low", SideSell, 10_000_000, 100, 2))
	ob.Insert(bookOrder("b-low", SideBuy, 9_000_000, 100, 3))
	ob.Insert(bookOrder("b-high", SideBuy, 9_500_000, 100, 4))

	assert.Equal(t, "s-low", ob.PeekOpposite(SideBuy).ID)
	assert.Equal(t, "b-high", ob.PeekOpposite(SideSell).ID)
}

func TestOrderBookRemove(t *testing.T) {
	ob := NewOrderBook()
	ob.Insert(bookOrder("b1", SideBuy, 9_000_000, 100, 1))
	ob.Insert(bookOrder("b2", SideBuy, 9_000_000, 200, 2))

	removed := ob.Remove("b1")
	require.NotNil(t, removed)
	assert.Equal(t, "b1", removed.ID)
	assert.False(t, ob.Contains("b1"))
	assert.True(t, ob.Contains("b2"))

	// Level survives while b2 rests, vanishes with it.
	bid, ok := ob.BestBid()
	require.True(t, ok)
	assert.Equal(t, int64(200), bid.QtySats)

	ob.Remove("b2")
	_, ok = ob.BestBid()
	assert.False(t, ok)

	assert.Nil(t, ob.Remove("b1"), "second removal is a no-op")
	assert.Nil(t, ob.Remove("ghost"))
}

func TestOrderBookSnapshotDepthAndOrdering(t *testing.T) {
	ob := NewOrderBook()
	for i := int64(1); i <= 5; i++ {
		ob.Insert(bookOrder("b"+string(rune('0'+i)), SideBuy, 9_000_000+i*100_000, 10*i, i))
		ob.Insert(bookOrder("a"+string(rune('0'+i)), SideSell, 10_000_000+i*100_000, 10*i, 5+i))
	}

	bids, asks := ob.Snapshot(3)
	require.Len(t, bids, 3)
	require.Len(t, asks, 3)

	// Bids descend from the best, asks ascend.
	assert.Equal(t, int64(9_500_000), bids[0].PriceCents)
	assert.Equal(t, int64(9_400_000), bids[1].PriceCents)
	assert.Equal(t, int64(9_300_000), bids[2].PriceCents)
	assert.Equal(t, int64(10_100_000), asks[0].PriceCents)
	assert.Equal(t, int64(10_200_000), asks[1].PriceCents)
	assert.Equal(t, int64(10_300_000), asks[2].PriceCents)

	bids, asks = ob.Snapshot(0)
	assert.Len(t, bids, 5)
	assert.Len(t, asks, 5)
}

func TestOrderBookSnapshotAggregatesLevels(t *testing.T) {
	ob := NewOrderBook()
	ob.Insert(bookOrder("a1", SideSell, 10_000_000, 100, 1))
	ob.Insert(bookOrder("a2", SideSell, 10_000_000, 250, 2))

	_, asks := ob.Snapshot(10)
	require.Len(t, asks, 1)
	assert.Equal(t, int64(350), asks[0].QtySats)
}
