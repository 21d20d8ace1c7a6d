package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Prices are int64 cents, quantities int64 satoshis (1e-8). Both stay exact
// through matching; ledger math converts to decimals so cash never touches
// binary floating point.
const (
	priceScale = 2
	qtyScale   = 8
)

type Side int8

const (
	SideBuy Side = iota
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	default:
		return "unknown"
	}
}

// Opposite returns the side a taker matches against.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

func ParseSide(v string) (Side, error) {
	switch v {
	case "buy":
		return SideBuy, nil
	case "sell":
		return SideSell, nil
	default:
		return 0, fmt.Errorf("%w: unknown side %q", ErrValidation, v)
	}
}

type Kind int8

const (
	KindMarket Kind = iota
	KindLimit
)

func (k Kind) String() string {
	switch k {
	case KindMarket:
		return "market"
	case KindLimit:
		return "limit"
	default:
		return "unknown"
	}
}

func ParseKind(v string) (Kind, error) {
	switch v {
	case "market":
		return KindMarket, nil
	case "limit":
		return KindLimit, nil
	default:
		return 0, fmt.Errorf("%w: unknown order type %q", ErrValidation, v)
	}
}

type Status int8

const (
	StatusPending Status = iota
	StatusPartial
	StatusFilled
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusPartial:
		return "partial"
	case StatusFilled:
		return "filled"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal statuses admit no further transitions.
func (s Status) Terminal() bool {
	return s == StatusFilled || s == StatusCancelled
}

// Order is the canonical order record. The copy held in the orders index is
// the single source of truth; the book references the same value.
type Order struct {
	ID           string
	Owner        string
	Side         Side
	Kind         Kind
	PriceCents   int64 // limit orders only
	OriginalQty  int64 // satoshis
	RemainingQty int64
	Status       Status
	CreatedAt    time.Time
	Sequence     int64
}

func (o *Order) FilledQty() int64 { return o.OriginalQty - o.RemainingQty }

// Trade records one crossing. Append-only; never mutated after creation.
type Trade struct {
	ID          string
	BuyOrderID  string
	SellOrderID string
	Buyer       string
	Seller      string
	PriceCents  int64
	QtySats     int64
	Timestamp   time.Time
}

// Cost is the exact cash moved by the trade, price × qty.
func (t *Trade) Cost() decimal.Decimal {
	return PriceDecimal(t.PriceCents).Mul(QtyDecimal(t.QtySats))
}

// BookLevel is one aggregated price level of the book.
type BookLevel struct {
	PriceCents int64
	QtySats    int64
}

// BookSnapshot is a point-in-time view of the top of the book.
type BookSnapshot struct {
	Symbol         string
	Bids           []BookLevel
	Asks           []BookLevel
	LastPriceCents int64
	Timestamp      time.Time
}

// AccountSnapshot is a copy of one account's balances.
type AccountSnapshot struct {
	ID    string
	Cash  decimal.Decimal
	Asset decimal.Decimal
}

func PriceDecimal(cents int64) decimal.Decimal { return decimal.New(cents, -priceScale) }
func QtyDecimal(sats int64) decimal.Decimal    { return decimal.New(sats, -qtyScale) }

// ParseQty converts a decimal quantity to satoshis. Quantities finer than
// eight decimal places or not strictly positive are rejected.
func ParseQty(d decimal.Decimal) (int64, error) {
	scaled := d.Shift(qtyScale)
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("%w: quantity exceeds %d decimal places", ErrValidation, qtyScale)
	}
	if !scaled.IsPositive() {
		return 0, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	return scaled.IntPart(), nil
}

// ParsePrice converts a decimal price to cents. Tick alignment is checked at
// acceptance, not here.
func ParsePrice(d decimal.Decimal) (int64, error) {
	scaled := d.Shift(priceScale)
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("%w: price has sub-cent precision", ErrValidation)
	}
	if !scaled.IsPositive() {
		return 0, fmt.Errorf("%w: price must be positive", ErrValidation)
	}
	return scaled.IntPart(), nil
}
