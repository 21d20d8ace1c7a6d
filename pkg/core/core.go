package core

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"brokersim/pkg/util"
)

// Config carries the tunables the trading session needs.
type Config struct {
	Symbol              string
	TickCents           int64
	StartCashCents      int64
	ReferencePriceCents int64
	BookDepth           int
	AllowNegativeCash   bool
	EventQueueSize      int
}

// OrderRequest is a validated-at-the-boundary order submission.
type OrderRequest struct {
	Side       Side
	Kind       Kind
	QtySats    int64
	PriceCents int64 // limit orders only
}

// PlaceOrderResult reports the accepted order after its matching pass,
// together with the trades it produced.
type PlaceOrderResult struct {
	Order  Order
	Trades []Trade
}

// UserSnapshot is an account view with the mark-to-last-price total.
type UserSnapshot struct {
	ID         string
	Cash       decimal.Decimal
	Asset      decimal.Decimal
	TotalValue decimal.Decimal
}

// FillPayload is the per-account fill notification: the trade, the side
// from that account's perspective, and the account's post-pass balances.
type FillPayload struct {
	Trade   Trade
	Side    Side
	Account AccountSnapshot
}

// MarketDataPayload is the periodic simulated quote.
type MarketDataPayload struct {
	Symbol     string
	PriceCents int64
	Bids       []BookLevel
	Asks       []BookLevel
	Timestamp  int64 // unix millis
}

// TradingSession is the single entry point to the matching core. One mutex
// guards the book, ledger, order and session indices, and the sequence
// counter together; the critical section contains no I/O. Events are
// queued to the bus only after the mutation commits and the lock is
// released.
type TradingSession struct {
	cfg   Config
	log   *zap.SugaredLogger
	clock util.Clock
	bus   *EventBus

	mu             sync.Mutex
	book           *OrderBook
	ledger         *Ledger
	sessions       *sessionRegistry
	orders         map[string]*Order
	seq            int64
	lastPriceCents int64
	halted         bool
}

func NewTradingSession(cfg Config, logger *zap.SugaredLogger, clock util.Clock) *TradingSession {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if clock == nil {
		clock = util.RealClock{}
	}
	return &TradingSession{
		cfg:            cfg,
		log:            logger,
		clock:          clock,
		bus:            NewEventBus(cfg.EventQueueSize),
		book:           NewOrderBook(),
		ledger:         NewLedger(cfg.StartCashCents),
		sessions:       newSessionRegistry(),
		orders:         make(map[string]*Order),
		lastPriceCents: cfg.ReferencePriceCents,
	}
}

// Resolve maps a bearer token to an account, minting both when the token is
// absent or unknown.
func (ts *TradingSession) Resolve(token string) ResolveResult {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if token != "" {
		if accountID, ok := ts.sessions.lookup(token); ok {
			return ResolveResult{SessionID: token, AccountID: accountID}
		}
	}
	token, accountID := ts.sessions.create()
	ts.ledger.GetOrCreate(accountID)
	ts.log.Infow("session_created", "account", accountID)
	return ResolveResult{SessionID: token, AccountID: accountID, Created: true}
}

// PlaceOrder runs the full order lifecycle: accept, match, rest or
// terminate, then emit.
func (ts *TradingSession) PlaceOrder(accountID string, req OrderRequest) (PlaceOrderResult, error) {
	ts.mu.Lock()
	if ts.halted {
		ts.mu.Unlock()
		return PlaceOrderResult{}, ErrEngineHalted
	}
	if err := ts.validate(req); err != nil {
		ts.mu.Unlock()
		return PlaceOrderResult{}, err
	}
	acct := ts.ledger.GetOrCreate(accountID)
	if !ts.cfg.AllowNegativeCash {
		if err := ts.checkFunds(acct, req); err != nil {
			ts.mu.Unlock()
			return PlaceOrderResult{}, err
		}
	}

	o := ts.newOrder(accountID, req)
	trades, err := ts.placeLocked(o)
	if err != nil {
		ts.haltLocked(err)
		ts.mu.Unlock()
		return PlaceOrderResult{}, ErrEngineHalted
	}

	result := PlaceOrderResult{Order: *o, Trades: copyTrades(trades)}
	events := ts.actionEvents(accountID, trades)
	ts.mu.Unlock()

	ts.bus.PublishAll(events)
	ts.log.Infow("order_placed",
		"order", o.ID, "account", accountID,
		"side", o.Side.String(), "kind", o.Kind.String(),
		"status", result.Order.Status.String(), "trades", len(trades))
	return result, nil
}

// CancelOrder transitions a live order of the caller to cancelled and
// removes it from the book.
func (ts *TradingSession) CancelOrder(accountID, orderID string) (Order, error) {
	ts.mu.Lock()
	if ts.halted {
		ts.mu.Unlock()
		return Order{}, ErrEngineHalted
	}
	o, ok := ts.orders[orderID]
	if !ok {
		ts.mu.Unlock()
		return Order{}, ErrNotFound
	}
	if o.Owner != accountID {
		ts.mu.Unlock()
		return Order{}, ErrNotOwner
	}
	if o.Status.Terminal() {
		ts.mu.Unlock()
		return Order{}, ErrNotCancellable
	}

	o.Status = StatusCancelled
	ts.book.Remove(o.ID)
	ts.ledger.RemoveOpen(accountID, o.ID)

	cancelled := *o
	events := ts.actionEvents(accountID, nil)
	ts.mu.Unlock()

	ts.bus.PublishAll(events)
	ts.log.Infow("order_cancelled", "order", orderID, "account", accountID)
	return cancelled, nil
}

// AmendOrder is cancel-then-replace: the original becomes terminal
// cancelled and a fresh order, with a new id and sequence, enters the
// matching path. Omitted fields carry over (quantity defaults to the
// original's remaining quantity).
func (ts *TradingSession) AmendOrder(accountID, orderID string, priceCents, qtySats *int64) (PlaceOrderResult, error) {
	ts.mu.Lock()
	if ts.halted {
		ts.mu.Unlock()
		return PlaceOrderResult{}, ErrEngineHalted
	}
	o, ok := ts.orders[orderID]
	if !ok {
		ts.mu.Unlock()
		return PlaceOrderResult{}, ErrNotFound
	}
	if o.Owner != accountID {
		ts.mu.Unlock()
		return PlaceOrderResult{}, ErrNotOwner
	}
	if o.Kind == KindMarket || o.Status.Terminal() {
		ts.mu.Unlock()
		return PlaceOrderResult{}, ErrNotAmendable
	}

	req := OrderRequest{Side: o.Side, Kind: KindLimit, QtySats: o.RemainingQty, PriceCents: o.PriceCents}
	if priceCents != nil {
		req.PriceCents = *priceCents
	}
	if qtySats != nil {
		req.QtySats = *qtySats
	}
	if err := ts.validate(req); err != nil {
		ts.mu.Unlock()
		return PlaceOrderResult{}, err
	}

	o.Status = StatusCancelled
	ts.book.Remove(o.ID)
	ts.ledger.RemoveOpen(accountID, o.ID)

	replacement := ts.newOrder(accountID, req)
	trades, err := ts.placeLocked(replacement)
	if err != nil {
		ts.haltLocked(err)
		ts.mu.Unlock()
		return PlaceOrderResult{}, ErrEngineHalted
	}

	result := PlaceOrderResult{Order: *replacement, Trades: copyTrades(trades)}
	events := ts.actionEvents(accountID, trades)
	ts.mu.Unlock()

	ts.bus.PublishAll(events)
	ts.log.Infow("order_amended",
		"order", orderID, "replacement", replacement.ID, "account", accountID)
	return result, nil
}

// GetUser returns the account balances plus the mark-to-last-price total.
func (ts *TradingSession) GetUser(accountID string) UserSnapshot {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.userLocked(accountID)
}

// GetOrders returns the caller's open (pending or partial) orders in
// acceptance order.
func (ts *TradingSession) GetOrders(accountID string) []Order {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.openOrdersLocked(accountID)
}

// GetTrades returns the caller's trade history, oldest first.
func (ts *TradingSession) GetTrades(accountID string) []Trade {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	trades := ts.ledger.TradesFor(accountID)
	out := make([]Trade, 0, len(trades))
	for _, t := range trades {
		out = append(out, *t)
	}
	return out
}

// GetBook returns a linearizable top-of-book snapshot.
func (ts *TradingSession) GetBook() BookSnapshot {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.bookLocked()
}

// Subscribe attaches a push consumer for the account and primes it with
// the initial user_info, order_book and orders_update events.
func (ts *TradingSession) Subscribe(accountID string) *Subscriber {
	sub := ts.bus.Subscribe(accountID)
	for _, evt := range ts.SnapshotEvents(accountID) {
		sub.push(evt)
	}
	return sub
}

// SnapshotEvents builds fresh user_info, order_book and orders_update
// events for one account; the transport replays them after subscriber lag.
func (ts *TradingSession) SnapshotEvents(accountID string) []Event {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return []Event{
		{Type: EventUserInfo, Account: accountID, Data: ts.userLocked(accountID)},
		{Type: EventOrderBook, Account: accountID, Data: ts.bookLocked()},
		{Type: EventOrdersUpdate, Account: accountID, Data: ts.openOrdersLocked(accountID)},
	}
}

// PublishMarketData snapshots the book under the lock, then broadcasts the
// quote. Called by the market simulator; never creates orders or fills.
func (ts *TradingSession) PublishMarketData(priceCents int64) {
	ts.mu.Lock()
	bids, asks := ts.book.Snapshot(ts.cfg.BookDepth)
	payload := MarketDataPayload{
		Symbol:     ts.cfg.Symbol,
		PriceCents: priceCents,
		Bids:       bids,
		Asks:       asks,
		Timestamp:  ts.clock.Now().UnixMilli(),
	}
	ts.mu.Unlock()

	ts.bus.Publish(Event{Type: EventMarketData, Data: payload})
}

// LastPrice returns the most recent fill price, or the reference price
// before any trade.
func (ts *TradingSession) LastPrice() int64 {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.lastPriceCents
}

// Halted reports whether an invariant violation stopped the engine.
func (ts *TradingSession) Halted() bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.halted
}

// ---- internals (callers hold ts.mu) ----

func (ts *TradingSession) newOrder(accountID string, req OrderRequest) *Order {
	ts.seq++
	o := &Order{
		ID:           uuid.NewString(),
		Owner:        accountID,
		Side:         req.Side,
		Kind:         req.Kind,
		PriceCents:   req.PriceCents,
		OriginalQty:  req.QtySats,
		RemainingQty: req.QtySats,
		Status:       StatusPending,
		CreatedAt:    ts.clock.Now(),
		Sequence:     ts.seq,
	}
	if o.Kind == KindMarket {
		o.PriceCents = 0
	}
	ts.orders[o.ID] = o
	return o
}

// placeLocked runs the matching pass and settles the taker's fate: filled,
// resting, or cancelled for lack of liquidity.
func (ts *TradingSession) placeLocked(o *Order) ([]*Trade, error) {
	trades, err := ts.match(o)
	if err != nil {
		return nil, err
	}
	switch {
	case o.RemainingQty == 0:
		o.Status = StatusFilled
	case o.Kind == KindLimit:
		if len(trades) > 0 {
			o.Status = StatusPartial
		}
		ts.book.Insert(o)
		ts.ledger.RecordOpen(o.Owner, o.ID)
	default:
		// Market order with residual: no liquidity left.
		o.Status = StatusCancelled
	}
	return trades, nil
}

func (ts *TradingSession) validate(req OrderRequest) error {
	if req.Side != SideBuy && req.Side != SideSell {
		return fmt.Errorf("%w: unknown side", ErrValidation)
	}
	if req.Kind != KindMarket && req.Kind != KindLimit {
		return fmt.Errorf("%w: unknown order type", ErrValidation)
	}
	if req.QtySats <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	if req.Kind == KindLimit {
		if req.PriceCents <= 0 {
			return fmt.Errorf("%w: price must be positive", ErrValidation)
		}
		if req.PriceCents%ts.cfg.TickCents != 0 {
			return fmt.Errorf("%w: price must be a multiple of the %s tick",
				ErrValidation, PriceDecimal(ts.cfg.TickCents))
		}
	}
	return nil
}

// checkFunds enforces the strict-funds policy before matching. Buys must
// cover the notional at the limit price (market buys: best ask, falling
// back to the last price); sells must hold the asset.
func (ts *TradingSession) checkFunds(acct *Account, req OrderRequest) error {
	if req.Side == SideSell {
		if acct.Asset.LessThan(QtyDecimal(req.QtySats)) {
			return fmt.Errorf("%w: insufficient asset balance", ErrValidation)
		}
		return nil
	}
	ref := req.PriceCents
	if req.Kind == KindMarket {
		if best, ok := ts.book.BestAsk(); ok {
			ref = best.PriceCents
		} else {
			ref = ts.lastPriceCents
		}
	}
	notional := PriceDecimal(ref).Mul(QtyDecimal(req.QtySats))
	if acct.Cash.LessThan(notional) {
		return fmt.Errorf("%w: insufficient cash balance", ErrValidation)
	}
	return nil
}

// actionEvents builds the post-commit emission batch for one user action:
// fills, then balance_update and orders_update for every trade-affected
// account (the action owner always gets an orders_update), then a single
// order_book_update snapshot.
func (ts *TradingSession) actionEvents(owner string, trades []*Trade) []Event {
	var events []Event
	var affected []string
	seen := make(map[string]struct{})
	note := func(id string) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			affected = append(affected, id)
		}
	}

	for _, t := range trades {
		buyer, _ := ts.ledger.Account(t.Buyer)
		seller, _ := ts.ledger.Account(t.Seller)
		events = append(events,
			Event{Type: EventFill, Account: t.Buyer, Data: FillPayload{Trade: *t, Side: SideBuy, Account: buyer.snapshot()}},
			Event{Type: EventFill, Account: t.Seller, Data: FillPayload{Trade: *t, Side: SideSell, Account: seller.snapshot()}},
		)
		note(t.Buyer)
		note(t.Seller)
	}
	for _, id := range affected {
		if a, ok := ts.ledger.Account(id); ok {
			events = append(events, Event{Type: EventBalanceUpdate, Account: id, Data: a.snapshot()})
		}
	}
	note(owner)
	for _, id := range affected {
		events = append(events, Event{Type: EventOrdersUpdate, Account: id, Data: ts.openOrdersLocked(id)})
	}
	events = append(events, Event{Type: EventOrderBookUpdate, Data: ts.bookLocked()})
	return events
}

func (ts *TradingSession) userLocked(accountID string) UserSnapshot {
	acct := ts.ledger.GetOrCreate(accountID)
	last := PriceDecimal(ts.lastPriceCents)
	return UserSnapshot{
		ID:         acct.ID,
		Cash:       acct.Cash,
		Asset:      acct.Asset,
		TotalValue: acct.Cash.Add(acct.Asset.Mul(last)),
	}
}

func (ts *TradingSession) openOrdersLocked(accountID string) []Order {
	ids := ts.ledger.OpenOrderIDs(accountID)
	out := make([]Order, 0, len(ids))
	for _, id := range ids {
		if o, ok := ts.orders[id]; ok && !o.Status.Terminal() {
			out = append(out, *o)
		}
	}
	sortOrdersBySequence(out)
	return out
}

func (ts *TradingSession) bookLocked() BookSnapshot {
	bids, asks := ts.book.Snapshot(ts.cfg.BookDepth)
	return BookSnapshot{
		Symbol:         ts.cfg.Symbol,
		Bids:           bids,
		Asks:           asks,
		LastPriceCents: ts.lastPriceCents,
		Timestamp:      ts.clock.Now(),
	}
}

// haltLocked poisons the engine: the ledger may be inconsistent, so every
// further mutating call fails until restart.
func (ts *TradingSession) haltLocked(err error) {
	ts.halted = true
	ts.log.Errorw("engine_halted", "err", err)
}

func copyTrades(trades []*Trade) []Trade {
	out := make([]Trade, 0, len(trades))
	for _, t := range trades {
		out = append(out, *t)
	}
	return out
}
