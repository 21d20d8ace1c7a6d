package core

import (
	"container/heap"
	"sort"
)

// OrderBook holds resting limit orders in two price ladders: bids ranked
// high to low, asks low to high. Orders at one price keep FIFO order by
// acceptance sequence. The book is not self-synchronizing; the trading
// session's critical section owns all access.
type OrderBook struct {
	// Heap-based best price tracking (O(1) peek).
	bidHeap *MaxPriceHeap
	askHeap *MinPriceHeap

	// Price level queues, FIFO within each price.
	bids map[int64][]*Order
	asks map[int64][]*Order

	// Order id -> resting price and side, for O(1) level lookup on removal.
	levelOf map[string]int64
	sideOf  map[string]Side
}

func NewOrderBook() *OrderBook {
	bidHeap := &MaxPriceHeap{}
	askHeap := &MinPriceHeap{}
	heap.Init(bidHeap)
	heap.Init(askHeap)

	return &OrderBook{
		bidHeap: bidHeap,
		askHeap: askHeap,
		bids:    make(map[int64][]*Order),
		asks:    make(map[int64][]*Order),
		levelOf: make(map[string]int64),
		sideOf:  make(map[string]Side),
	}
}

// Insert rests a limit order at the tail of its price level's FIFO.
func (ob *OrderBook) Insert(o *Order) {
	ladder := ob.bids
	if o.Side == SideSell {
		ladder = ob.asks
	}
	if len(ladder[o.PriceCents]) == 0 {
		if o.Side == SideBuy {
			heap.Push(ob.bidHeap, o.PriceCents)
		} else {
			heap.Push(ob.askHeap, o.PriceCents)
		}
	}
	ladder[o.PriceCents] = append(ladder[o.PriceCents], o)
	ob.levelOf[o.ID] = o.PriceCents
	ob.sideOf[o.ID] = o.Side
}

// Remove takes an order out of the book by id. Empty levels are eliminated.
// Returns the removed order, or nil if the id is not resting.
func (ob *OrderBook) Remove(id string) *Order {
	price, ok := ob.levelOf[id]
	if !ok {
		return nil
	}
	side := ob.sideOf[id]

	ladder := ob.bids
	if side == SideSell {
		ladder = ob.asks
	}

	level := ladder[price]
	for i, o := range level {
		if o.ID != id {
			continue
		}
		ladder[price] = append(level[:i], level[i+1:]...)
		if len(ladder[price]) == 0 {
			delete(ladder, price)
			ob.dropLevel(side, price)
		}
		delete(ob.levelOf, id)
		delete(ob.sideOf, id)
		return o
	}
	return nil
}

// Contains reports whether the order currently rests in the book.
func (ob *OrderBook) Contains(id string) bool {
	_, ok := ob.levelOf[id]
	return ok
}

// PeekOpposite returns the best-priority maker for an incoming taker side:
// best price first, earliest sequence within the price. Nil when the
// opposite ladder is empty.
func (ob *OrderBook) PeekOpposite(taker Side) *Order {
	if taker == SideBuy {
		if ob.askHeap.Len() == 0 {
			return nil
		}
		return ob.asks[ob.askHeap.Peek()][0]
	}
	if ob.bidHeap.Len() == 0 {
		return nil
	}
	return ob.bids[ob.bidHeap.Peek()][0]
}

// BestBid returns the highest bid level with its aggregated quantity.
func (ob *OrderBook) BestBid() (BookLevel, bool) {
	if ob.bidHeap.Len() == 0 {
		return BookLevel{}, false
	}
	p := ob.bidHeap.Peek()
	return BookLevel{PriceCents: p, QtySats: levelQty(ob.bids[p])}, true
}

// BestAsk returns the lowest ask level with its aggregated quantity.
func (ob *OrderBook) BestAsk() (BookLevel, bool) {
	if ob.askHeap.Len() == 0 {
		return BookLevel{}, false
	}
	p := ob.askHeap.Peek()
	return BookLevel{PriceCents: p, QtySats: levelQty(ob.asks[p])}, true
}

// Snapshot aggregates both ladders into sorted levels truncated to depth.
// Bids come back high to low, asks low to high.
func (ob *OrderBook) Snapshot(depth int) (bids, asks []BookLevel) {
	bids = collectLevels(ob.bids, depth, func(a, b int64) bool { return a > b })
	asks = collectLevels(ob.asks, depth, func(a, b int64) bool { return a < b })
	return bids, asks
}

func (ob *OrderBook) dropLevel(side Side, price int64) {
	if side == SideBuy {
		for i := 0; i < ob.bidHeap.Len(); i++ {
			if (*ob.bidHeap)[i] == price {
				heap.Remove(ob.bidHeap, i)
				return
			}
		}
		return
	}
	for i := 0; i < ob.askHeap.Len(); i++ {
		if (*ob.askHeap)[i] == price {
			heap.Remove(ob.askHeap, i)
			return
		}
	}
}

func levelQty(level []*Order) int64 {
	var total int64
	for _, o := range level {
		total += o.RemainingQty
	}
	return total
}

func collectLevels(ladder map[int64][]*Order, depth int, better func(a, b int64) bool) []BookLevel {
	levels := make([]BookLevel, 0, len(ladder))
	for price, orders := range ladder {
		if len(orders) == 0 {
			continue
		}
		levels = append(levels, BookLevel{PriceCents: price, QtySats: levelQty(orders)})
	}
	sort.Slice(levels, func(i, j int) bool {
		return better(levels[i].PriceCents, levels[j].PriceCents)
	})
	if depth > 0 && len(levels) > depth {
		levels = levels[:depth]
	}
	return levels
}
