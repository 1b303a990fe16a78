// Package orderbook implements the two-sided, price-time-priority limit
// order book: two price-indexed ordered maps of FIFO queues plus an
// id-to-location index. All mutation is synchronous and single-threaded;
// the engine is the only caller.
package orderbook

import (
	"container/list"

	rbt "github.com/emirpasic/gods/v2/trees/redblacktree"

	"clobengine/domain"
)

func ascending(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// priceLevel is the FIFO queue of resting orders at one price on one side.
// Removed from its tree the instant it empties.
type priceLevel struct {
	price  uint64
	orders *list.List // of *domain.Order, arrival order
	qty    uint64     // sum of orders' Remaining
}

type location struct {
	side  domain.Side
	price uint64
	elem  *list.Element
}

// Book is the exclusive mutable state of one instrument. Both trees are
// ordered ascending by price: best bid is the largest bid key, best ask is
// the smallest ask key, so one comparator serves both sides.
type Book struct {
	bids   *rbt.Tree[uint64, *priceLevel]
	asks   *rbt.Tree[uint64, *priceLevel]
	lookup map[uint64]location
}

func New() *Book {
	return &Book{
		bids:   rbt.NewWith[uint64, *priceLevel](ascending),
		asks:   rbt.NewWith[uint64, *priceLevel](ascending),
		lookup: make(map[uint64]location),
	}
}

func (b *Book) treeFor(side domain.Side) *rbt.Tree[uint64, *priceLevel] {
	if side == domain.Bid {
		return b.bids
	}
	return b.asks
}

// oppositeTree is the side a taker of takerSide matches against.
func (b *Book) oppositeTree(takerSide domain.Side) *rbt.Tree[uint64, *priceLevel] {
	if takerSide == domain.Bid {
		return b.asks
	}
	return b.bids
}

// BestBid returns the highest resting bid price, if any.
func (b *Book) BestBid() (uint64, bool) {
	node := b.bids.Right()
	if node == nil {
		return 0, false
	}
	return node.Key, true
}

// BestAsk returns the lowest resting ask price, if any.
func (b *Book) BestAsk() (uint64, bool) {
	node := b.asks.Left()
	if node == nil {
		return 0, false
	}
	return node.Key, true
}

// LevelCount reports how many distinct prices are resting on side.
func (b *Book) LevelCount(side domain.Side) int {
	return b.treeFor(side).Size()
}

// AggregateQty sums the remaining quantity resting on side.
func (b *Book) AggregateQty(side domain.Side) uint64 {
	var total uint64
	for _, level := range b.treeFor(side).Values() {
		total += level.qty
	}
	return total
}

// LevelQty reports the current aggregate quantity at price on side, and
// whether that level exists.
func (b *Book) LevelQty(side domain.Side, price uint64) (uint64, bool) {
	level, found := b.treeFor(side).Get(price)
	if !found {
		return 0, false
	}
	return level.qty, true
}

// InsertResting appends order to the tail of its price level, creating the
// level if absent, and records its lookup entry. The caller must have
// already run MatchAgainst so no crossing is possible at order.Price.
func (b *Book) InsertResting(order *domain.Order) {
	tree := b.treeFor(order.Side)
	level, found := tree.Get(order.Price)
	if !found {
		level = &priceLevel{price: order.Price, orders: list.New()}
		tree.Put(order.Price, level)
	}
	elem := level.orders.PushBack(order)
	level.qty += order.Remaining
	b.lookup[order.ID] = location{side: order.Side, price: order.Price, elem: elem}
}

// CancelResult reports the outcome of a successful Cancel, for the engine
// to translate into a BookDelta.
type CancelResult struct {
	Side        domain.Side
	Price       uint64
	LevelQty    uint64
	LevelExists bool
}

// Cancel removes orderID from the book if it is currently resting. It
// reports the affected level's post-removal state so the engine can emit a
// BookDelta, and whether orderID was found at all.
func (b *Book) Cancel(orderID uint64) (CancelResult, bool) {
	loc, found := b.lookup[orderID]
	if !found {
		return CancelResult{}, false
	}
	delete(b.lookup, orderID)

	tree := b.treeFor(loc.side)
	level, found := tree.Get(loc.price)
	if !found {
		return CancelResult{}, false
	}
	order := loc.elem.Value.(*domain.Order)
	level.orders.Remove(loc.elem)
	level.qty -= order.Remaining

	result := CancelResult{Side: loc.side, Price: loc.price, LevelExists: true}
	if level.orders.Len() == 0 {
		tree.Remove(loc.price)
		result.LevelExists = false
		result.LevelQty = 0
	} else {
		result.LevelQty = level.qty
	}
	return result, true
}

// MatchAgainst walks the opposite side of takerSide from its best price
// inward, consuming resting orders FIFO while the opposing price satisfies
// limitPrice and remaining is positive. onFill is invoked once per maker
// consumed (full or partial) with the fill quantity, in crossing order.
// onLevelDone is invoked once per price level whose FIFO queue was touched
// during this call, after the level's final mutation for this pass, with
// the level's post-mutation aggregate quantity (zero if the level was
// removed). Returns the quantity left unmatched.
func (b *Book) MatchAgainst(
	takerSide domain.Side,
	limitPrice, remaining uint64,
	onFill func(maker *domain.Order, fillQty uint64),
	onLevelDone func(price, levelQty uint64),
) uint64 {
	opp := b.oppositeTree(takerSide)

	for remaining > 0 {
		var best *rbt.Node[uint64, *priceLevel]
		if takerSide == domain.Bid {
			best = opp.Left()
		} else {
			best = opp.Right()
		}
		if best == nil {
			break
		}
		price := best.Key
		level := best.Value

		if takerSide == domain.Bid && price > limitPrice {
			break
		}
		if takerSide == domain.Ask && price < limitPrice {
			break
		}

		touched := false
		for remaining > 0 {
			front := level.orders.Front()
			if front == nil {
				break
			}
			maker := front.Value.(*domain.Order)
			fillQty := remaining
			if maker.Remaining < fillQty {
				fillQty = maker.Remaining
			}
			maker.Remaining -= fillQty
			remaining -= fillQty
			level.qty -= fillQty
			onFill(maker, fillQty)
			touched = true

			if maker.Remaining == 0 {
				level.orders.Remove(front)
				delete(b.lookup, maker.ID)
			}
		}

		if level.orders.Len() == 0 {
			opp.Remove(price)
		}
		if touched {
			onLevelDone(price, level.qty)
		}
	}

	return remaining
}
