package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Account tracks one trader's balances and activity. Asset balance may go
// negative (shorting); cash may go negative when the policy allows it.
type Account struct {
	ID    string
	Cash  decimal.Decimal
	Asset decimal.Decimal

	openOrders map[string]struct{}
	tradeLog   []string // trade ids, oldest first
}

func (a *Account) snapshot() AccountSnapshot {
	return AccountSnapshot{ID: a.ID, Cash: a.Cash, Asset: a.Asset}
}

// Ledger owns every account and the global trade log. All mutation happens
// inside the trading session's critical section; the ledger itself carries
// no lock.
type Ledger struct {
	startingCash decimal.Decimal

	accounts map[string]*Account
	trades   map[string]*Trade
	tradeSeq []string // global append order
}

func NewLedger(startingCashCents int64) *Ledger {
	return &Ledger{
		startingCash: PriceDecimal(startingCashCents),
		accounts:     make(map[string]*Account),
		trades:       make(map[string]*Trade),
	}
}

// GetOrCreate returns the account, creating it with the starting balances
// on first sight.
func (l *Ledger) GetOrCreate(id string) *Account {
	if a, ok := l.accounts[id]; ok {
		return a
	}
	a := &Account{
		ID:         id,
		Cash:       l.startingCash,
		Asset:      decimal.Zero,
		openOrders: make(map[string]struct{}),
	}
	l.accounts[id] = a
	return a
}

func (l *Ledger) Account(id string) (*Account, bool) {
	a, ok := l.accounts[id]
	return a, ok
}

func (l *Ledger) RecordOpen(accountID, orderID string) {
	l.GetOrCreate(accountID).openOrders[orderID] = struct{}{}
}

func (l *Ledger) RemoveOpen(accountID, orderID string) {
	if a, ok := l.accounts[accountID]; ok {
		delete(a.openOrders, orderID)
	}
}

// OpenOrderIDs returns the account's open order ids in unspecified order;
// callers sort by sequence.
func (l *Ledger) OpenOrderIDs(accountID string) []string {
	a, ok := l.accounts[accountID]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(a.openOrders))
	for id := range a.openOrders {
		ids = append(ids, id)
	}
	return ids
}

// ApplyTrade moves cash and asset between buyer and seller and appends the
// trade to the global and per-account logs. The transfer is applied in full
// or not at all; a failed cross-check leaves the ledger untouched and the
// caller halts the engine.
func (l *Ledger) ApplyTrade(t *Trade) error {
	if t.QtySats <= 0 {
		return fmt.Errorf("trade %s has non-positive qty %d", t.ID, t.QtySats)
	}
	if t.PriceCents <= 0 {
		return fmt.Errorf("trade %s has non-positive price %d", t.ID, t.PriceCents)
	}
	if _, dup := l.trades[t.ID]; dup {
		return fmt.Errorf("trade id %s already recorded", t.ID)
	}
	buyer, ok := l.accounts[t.Buyer]
	if !ok {
		return fmt.Errorf("trade %s references unknown buyer %s", t.ID, t.Buyer)
	}
	seller, ok := l.accounts[t.Seller]
	if !ok {
		return fmt.Errorf("trade %s references unknown seller %s", t.ID, t.Seller)
	}

	cost := t.Cost()
	qty := QtyDecimal(t.QtySats)

	buyer.Cash = buyer.Cash.Sub(cost)
	buyer.Asset = buyer.Asset.Add(qty)
	seller.Cash = seller.Cash.Add(cost)
	seller.Asset = seller.Asset.Sub(qty)

	l.trades[t.ID] = t
	l.tradeSeq = append(l.tradeSeq, t.ID)
	buyer.tradeLog = append(buyer.tradeLog, t.ID)
	if t.Seller != t.Buyer {
		seller.tradeLog = append(seller.tradeLog, t.ID)
	}
	return nil
}

// TradesFor joins the account's trade log, oldest first.
func (l *Ledger) TradesFor(accountID string) []*Trade {
	a, ok := l.accounts[accountID]
	if !ok {
		return nil
	}
	out := make([]*Trade, 0, len(a.tradeLog))
	for _, id := range a.tradeLog {
		out = append(out, l.trades[id])
	}
	return out
}

// TradeCount is the total number of crossings recorded.
func (l *Ledger) TradeCount() int { return len(l.tradeSeq) }
