package core

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// match crosses the taker against the opposite ladder while price allows:
// market takers cross unconditionally, limit buys while the best ask is at
// or below their price, limit sells while the best bid is at or above.
// The trade price is always the maker's. Trades apply to the ledger as they
// happen; the whole pass runs inside the core critical section, so
// observers only ever see the post-pass state.
func (ts *TradingSession) match(taker *Order) ([]*Trade, error) {
	var trades []*Trade
	for taker.RemainingQty > 0 {
		maker := ts.book.PeekOpposite(taker.Side)
		if maker == nil {
			break
		}
		if taker.Kind == KindLimit {
			if taker.Side == SideBuy && maker.PriceCents > taker.PriceCents {
				break
			}
			if taker.Side == SideSell && maker.PriceCents < taker.PriceCents {
				break
			}
		}

		qty := taker.RemainingQty
		if maker.RemainingQty < qty {
			qty = maker.RemainingQty
		}

		t := &Trade{
			ID:         uuid.NewString(),
			PriceCents: maker.PriceCents,
			QtySats:    qty,
			Timestamp:  ts.clock.Now(),
		}
		if taker.Side == SideBuy {
			t.BuyOrderID, t.Buyer = taker.ID, taker.Owner
			t.SellOrderID, t.Seller = maker.ID, maker.Owner
		} else {
			t.BuyOrderID, t.Buyer = maker.ID, maker.Owner
			t.SellOrderID, t.Seller = taker.ID, taker.Owner
		}

		if err := ts.ledger.ApplyTrade(t); err != nil {
			return trades, err
		}

		taker.RemainingQty -= qty
		maker.RemainingQty -= qty
		if taker.RemainingQty < 0 || maker.RemainingQty < 0 {
			return trades, fmt.Errorf("order %s/%s crossed below zero remaining", taker.ID, maker.ID)
		}

		if maker.RemainingQty == 0 {
			maker.Status = StatusFilled
			ts.book.Remove(maker.ID)
			ts.ledger.RemoveOpen(maker.Owner, maker.ID)
		} else {
			maker.Status = StatusPartial
		}

		ts.lastPriceCents = t.PriceCents
		trades = append(trades, t)
	}
	return trades, nil
}

func sortOrdersBySequence(orders []Order) {
	sort.Slice(orders, func(i, j int) bool { return orders[i].Sequence < orders[j].Sequence })
}
