package api

import (
	"time"

	"github.com/shopspring/decimal"

	"brokersim/pkg/core"
)

// REST and WebSocket payload types. Prices and quantities travel as
// decimal strings (shopspring's JSON encoding), never as binary floats;
// requests accept either a string or a bare number.

// PlaceOrderRequest is the body of POST /api/orders.
type PlaceOrderRequest struct {
	OrderType string           `json:"order_type"` // "market" or "limit"
	Side      string           `json:"side"`       // "buy" or "sell"
	Quantity  decimal.Decimal  `json:"quantity"`
	Price     *decimal.Decimal `json:"price,omitempty"` // limit orders only
}

// AmendOrderRequest is the body of PUT /api/orders/{id}. Omitted fields
// carry over from the original order.
type AmendOrderRequest struct {
	Price    *decimal.Decimal `json:"price,omitempty"`
	Quantity *decimal.Decimal `json:"quantity,omitempty"`
}

// PlaceOrderResponse acknowledges a processed order. A market order that
// found no liquidity comes back with status "cancelled"; that outcome is a
// success, not an error.
type PlaceOrderResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Fills   int    `json:"fills"`
}

type CancelOrderResponse struct {
	Status  string `json:"status"`
	OrderID string `json:"order_id"`
}

type AmendOrderResponse struct {
	Status        string `json:"status"`
	OrderID       string `json:"order_id"`       // cancelled original
	ReplacementID string `json:"replacement_id"` // fresh order
}

// UserInfo mirrors the account snapshot pushed as user_info.
type UserInfo struct {
	UserID       string          `json:"user_id"`
	CashBalance  decimal.Decimal `json:"cash_balance"`
	AssetBalance decimal.Decimal `json:"asset_balance"`
	TotalValue   decimal.Decimal `json:"total_value"`
}

// OrderInfo is one order in /api/orders and orders_update payloads.
type OrderInfo struct {
	ID                string           `json:"id"`
	Symbol            string           `json:"symbol"`
	OrderType         string           `json:"order_type"`
	Side              string           `json:"side"`
	Quantity          decimal.Decimal  `json:"quantity"`
	FilledQuantity    decimal.Decimal  `json:"filled_quantity"`
	RemainingQuantity decimal.Decimal  `json:"remaining_quantity"`
	Price             *decimal.Decimal `json:"price"`
	Status            string           `json:"status"`
	Timestamp         string           `json:"timestamp"`
}

// TradeInfo is one fill in /api/trades, seen from the caller's side.
type TradeInfo struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"order_id"`
	Symbol    string          `json:"symbol"`
	Side      string          `json:"side"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Timestamp string          `json:"timestamp"`
}

// BookLevelInfo is one aggregated price level.
type BookLevelInfo struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

// OrderBookInfo is the top-of-book snapshot.
type OrderBookInfo struct {
	Symbol    string          `json:"symbol"`
	Bids      []BookLevelInfo `json:"bids"`
	Asks      []BookLevelInfo `json:"asks"`
	LastPrice decimal.Decimal `json:"last_price"`
	Timestamp string          `json:"timestamp"`
}

// FillInfo is the per-account fill push.
type FillInfo struct {
	ID              string          `json:"id"`
	Side            string          `json:"side"`
	Quantity        decimal.Decimal `json:"quantity"`
	Price           decimal.Decimal `json:"price"`
	Timestamp       string          `json:"timestamp"`
	NewCashBalance  decimal.Decimal `json:"new_cash_balance"`
	NewAssetBalance decimal.Decimal `json:"new_asset_balance"`
}

// BalanceInfo is the balance_update push.
type BalanceInfo struct {
	CashBalance  decimal.Decimal `json:"cash_balance"`
	AssetBalance decimal.Decimal `json:"asset_balance"`
}

// MarketDataInfo is the periodic simulated quote.
type MarketDataInfo struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Bids      []BookLevelInfo `json:"bids"`
	Asks      []BookLevelInfo `json:"asks"`
	Timestamp int64           `json:"timestamp"`
}

// WSMessage is the envelope of every server-to-client frame.
type WSMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ErrorResponse is returned for all request errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ---- conversions from core types ----

func userInfoFrom(u core.UserSnapshot) UserInfo {
	return UserInfo{
		UserID:       u.ID,
		CashBalance:  u.Cash,
		AssetBalance: u.Asset,
		TotalValue:   u.TotalValue,
	}
}

func orderInfoFrom(o core.Order, symbol string) OrderInfo {
	info := OrderInfo{
		ID:                o.ID,
		Symbol:            symbol,
		OrderType:         o.Kind.String(),
		Side:              o.Side.String(),
		Quantity:          core.QtyDecimal(o.OriginalQty),
		FilledQuantity:    core.QtyDecimal(o.FilledQty()),
		RemainingQuantity: core.QtyDecimal(o.RemainingQty),
		Status:            o.Status.String(),
		Timestamp:         o.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if o.Kind == core.KindLimit {
		p := core.PriceDecimal(o.PriceCents)
		info.Price = &p
	}
	return info
}

func ordersInfoFrom(orders []core.Order, symbol string) []OrderInfo {
	out := make([]OrderInfo, 0, len(orders))
	for _, o := range orders {
		out = append(out, orderInfoFrom(o, symbol))
	}
	return out
}

func tradeInfoFrom(t core.Trade, accountID, symbol string) TradeInfo {
	side := core.SideBuy
	orderID := t.BuyOrderID
	if accountID == t.Seller {
		side = core.SideSell
		orderID = t.SellOrderID
	}
	return TradeInfo{
		ID:        t.ID,
		OrderID:   orderID,
		Symbol:    symbol,
		Side:      side.String(),
		Quantity:  core.QtyDecimal(t.QtySats),
		Price:     core.PriceDecimal(t.PriceCents),
		Timestamp: t.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

func levelsFrom(levels []core.BookLevel) []BookLevelInfo {
	out := make([]BookLevelInfo, 0, len(levels))
	for _, l := range levels {
		out = append(out, BookLevelInfo{
			Price:    core.PriceDecimal(l.PriceCents),
			Quantity: core.QtyDecimal(l.QtySats),
		})
	}
	return out
}

func orderBookInfoFrom(b core.BookSnapshot) OrderBookInfo {
	return OrderBookInfo{
		Symbol:    b.Symbol,
		Bids:      levelsFrom(b.Bids),
		Asks:      levelsFrom(b.Asks),
		LastPrice: core.PriceDecimal(b.LastPriceCents),
		Timestamp: b.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

func fillInfoFrom(p core.FillPayload) FillInfo {
	return FillInfo{
		ID:              p.Trade.ID,
		Side:            p.Side.String(),
		Quantity:        core.QtyDecimal(p.Trade.QtySats),
		Price:           core.PriceDecimal(p.Trade.PriceCents),
		Timestamp:       p.Trade.Timestamp.UTC().Format(time.RFC3339Nano),
		NewCashBalance:  p.Account.Cash,
		NewAssetBalance: p.Account.Asset,
	}
}

func balanceInfoFrom(a core.AccountSnapshot) BalanceInfo {
	return BalanceInfo{CashBalance: a.Cash, AssetBalance: a.Asset}
}

func marketDataInfoFrom(m core.MarketDataPayload) MarketDataInfo {
	return MarketDataInfo{
		Symbol:    m.Symbol,
		Price:     core.PriceDecimal(m.PriceCents),
		Bids:      levelsFrom(m.Bids),
		Asks:      levelsFrom(m.Asks),
		Timestamp: m.Timestamp,
	}
}
