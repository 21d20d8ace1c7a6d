package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerGetOrCreate(t *testing.T) {
	l := NewLedger(1_000_000)

	a := l.GetOrCreate("alice")
	requireDecEq(t, "10000", a.Cash)
	requireDecEq(t, "0", a.Asset)

	again := l.GetOrCreate("alice")
	assert.Same(t, a, again)

	_, ok := l.Account("bob")
	assert.False(t, ok)
}

func TestLedgerApplyTradeMovesBalances(t *testing.T) {
	l := NewLedger(1_000_000)
	l.GetOrCreate("alice")
	l.GetOrCreate("bob")

	tr := &Trade{
		ID: "t1", BuyOrderID: "ob", SellOrderID: "oa",
		Buyer: "bob", Seller: "alice",
		PriceCents: 10_000_000, QtySats: 10_000_000, // 0.10 at $100,000
		Timestamp: time.Unix(1700000000, 0),
	}
	require.NoError(t, l.ApplyTrade(tr))

	alice, _ := l.Account("alice")
	requireDecEq(t, "20000", alice.Cash)
	requireDecEq(t, "-0.10", alice.Asset)

	bob, _ := l.Account("bob")
	requireDecEq(t, "0", bob.Cash)
	requireDecEq(t, "0.10", bob.Asset)

	assert.Equal(t, 1, l.TradeCount())
	require.Len(t, l.TradesFor("alice"), 1)
	require.Len(t, l.TradesFor("bob"), 1)
}

func TestLedgerApplyTradeCrossChecks(t *testing.T) {
	l := NewLedger(1_000_000)
	l.GetOrCreate("alice")
	l.GetOrCreate("bob")

	base := Trade{
		ID: "t1", Buyer: "bob", Seller: "alice",
		PriceCents: 10_000_000, QtySats: 100,
	}

	zeroQty := base
	zeroQty.QtySats = 0
	assert.Error(t, l.ApplyTrade(&zeroQty))

	badPrice := base
	badPrice.PriceCents = 0
	assert.Error(t, l.ApplyTrade(&badPrice))

	unknown := base
	unknown.Buyer = "carol"
	assert.Error(t, l.ApplyTrade(&unknown))

	require.NoError(t, l.ApplyTrade(&base))
	dup := base
	assert.Error(t, l.ApplyTrade(&dup), "duplicate trade id")

	// Failed applications must not have moved balances.
	alice, _ := l.Account("alice")
	requireDecEq(t, "10000.1", alice.Cash) // one good trade applied
}

func TestLedgerOpenOrderIndex(t *testing.T) {
	l := NewLedger(1_000_000)
	l.RecordOpen("alice", "o1")
	l.RecordOpen("alice", "o2")

	assert.ElementsMatch(t, []string{"o1", "o2"}, l.OpenOrderIDs("alice"))

	l.RemoveOpen("alice", "o1")
	assert.Equal(t, []string{"o2"}, l.OpenOrderIDs("alice"))

	l.RemoveOpen("ghost", "o9") // unknown account is a no-op
	assert.Empty(t, l.OpenOrderIDs("ghost"))
}

func TestLedgerTradeLogOrder(t *testing.T) {
	l := NewLedger(1_000_000)
	l.GetOrCreate("alice")
	l.GetOrCreate("bob")

	for i, id := range []string{"t1", "t2", "t3"} {
		tr := &Trade{
			ID: id, Buyer: "bob", Seller: "alice",
			PriceCents: 10_000_000, QtySats: int64(i+1) * 100,
		}
		require.NoError(t, l.ApplyTrade(tr))
	}

	trades := l.TradesFor("alice")
	require.Len(t, trades, 3)
	assert.Equal(t, "t1", trades[0].ID)
	assert.Equal(t, "t3", trades[2].ID)
}
