package orderbook

import (
	"testing"

	"clobengine/domain"
)

func resting(id uint64, side domain.Side, price, qty uint64) *domain.Order {
	return &domain.Order{ID: id, Side: side, Price: price, OrigQty: qty, Remaining: qty, TIF: domain.GTC}
}

func TestBestBidAsk(t *testing.T) {
	b := New()

	b.InsertResting(resting(1, domain.Ask, 50000, 1))
	if price, ok := b.BestAsk(); !ok || price != 50000 {
		t.Errorf("expected best ask 50000, got %d ok=%v", price, ok)
	}

	b.InsertResting(resting(2, domain.Bid, 49000, 1))
	if price, ok := b.BestBid(); !ok || price != 49000 {
		t.Errorf("expected best bid 49000, got %d ok=%v", price, ok)
	}
}

func TestBestBidIsHighest(t *testing.T) {
	b := New()
	b.InsertResting(resting(1, domain.Bid, 49000, 1))
	b.InsertResting(resting(2, domain.Bid, 50000, 1))
	b.InsertResting(resting(3, domain.Bid, 48000, 1))

	if price, ok := b.BestBid(); !ok || price != 50000 {
		t.Errorf("expected best bid 50000, got %d ok=%v", price, ok)
	}
}

func TestBestAskIsLowest(t *testing.T) {
	b := New()
	b.InsertResting(resting(1, domain.Ask, 51000, 1))
	b.InsertResting(resting(2, domain.Ask, 50000, 1))
	b.InsertResting(resting(3, domain.Ask, 52000, 1))

	if price, ok := b.BestAsk(); !ok || price != 50000 {
		t.Errorf("expected best ask 50000, got %d ok=%v", price, ok)
	}
}

func TestCancelRemovesOrderAndEmptyLevel(t *testing.T) {
	b := New()
	b.InsertResting(resting(7, domain.Bid, 99, 5))

	result, ok := b.Cancel(7)
	if !ok {
		t.Fatal("expected cancel to find order 7")
	}
	if result.LevelExists {
		t.Error("expected level 99 to be removed once empty")
	}
	if _, ok := b.BestBid(); ok {
		t.Error("expected no resting bids after cancel")
	}
	if _, ok := b.Cancel(7); ok {
		t.Error("expected second cancel of the same id to fail")
	}
}

func TestCancelUnknownFails(t *testing.T) {
	b := New()
	if _, ok := b.Cancel(4242); ok {
		t.Error("expected cancel of unknown id to report not found")
	}
}

func TestCancelLeavesLevelIfOthersRemain(t *testing.T) {
	b := New()
	b.InsertResting(resting(1, domain.Ask, 100, 2))
	b.InsertResting(resting(2, domain.Ask, 100, 3))

	result, ok := b.Cancel(1)
	if !ok {
		t.Fatal("expected cancel to succeed")
	}
	if !result.LevelExists || result.LevelQty != 3 {
		t.Errorf("expected level 100 to remain with qty 3, got exists=%v qty=%d", result.LevelExists, result.LevelQty)
	}
}

func TestFIFOWithinLevel(t *testing.T) {
	b := New()
	b.InsertResting(resting(1, domain.Ask, 100, 2))
	b.InsertResting(resting(2, domain.Ask, 100, 2))

	var fills []uint64
	remaining := b.MatchAgainst(domain.Bid, 100, 3, func(maker *domain.Order, fillQty uint64) {
		fills = append(fills, maker.ID)
	}, func(uint64, uint64) {})

	if remaining != 0 {
		t.Fatalf("expected all 3 units matched, %d left over", remaining)
	}
	if len(fills) != 2 || fills[0] != 1 || fills[1] != 2 {
		t.Errorf("expected order 1 consumed fully before order 2, got %v", fills)
	}
	if qty, _ := b.LevelQty(domain.Ask, 100); qty != 1 {
		t.Errorf("expected 1 unit left resting at 100, got %d", qty)
	}
}

func TestMatchAgainstStopsAtLimitPrice(t *testing.T) {
	b := New()
	b.InsertResting(resting(1, domain.Ask, 101, 2))
	b.InsertResting(resting(2, domain.Ask, 103, 2))

	remaining := b.MatchAgainst(domain.Bid, 102, 5, func(*domain.Order, uint64) {}, func(uint64, uint64) {})
	if remaining != 3 {
		t.Errorf("expected only the 101 level to be reachable at limit 102, remaining=%d", remaining)
	}
	if price, ok := b.BestAsk(); !ok || price != 103 {
		t.Errorf("expected level 103 untouched, best ask=%d ok=%v", price, ok)
	}
}

func TestMatchAgainstEmitsOneLevelDoneAfterMultipleFills(t *testing.T) {
	b := New()
	b.InsertResting(resting(1, domain.Ask, 101, 2))
	b.InsertResting(resting(2, domain.Ask, 101, 2))
	b.InsertResting(resting(3, domain.Ask, 102, 1))

	var levelDoneCalls int
	var lastQty uint64
	remaining := b.MatchAgainst(domain.Bid, 102, 4, func(*domain.Order, uint64) {}, func(price, qty uint64) {
		levelDoneCalls++
		lastQty = qty
	})

	if remaining != 0 {
		t.Fatalf("expected all 4 units matched, %d left over", remaining)
	}
	if levelDoneCalls != 1 {
		t.Errorf("expected exactly one level-done for the single touched level 101, got %d", levelDoneCalls)
	}
	if lastQty != 0 {
		t.Errorf("expected level 101 to be fully drained, got qty=%d", lastQty)
	}
	if qty, _ := b.LevelQty(domain.Ask, 102); qty != 1 {
		t.Errorf("expected level 102 untouched, got qty=%d", qty)
	}
}

func TestInsertRestingAfterPartialCross(t *testing.T) {
	b := New()
	b.InsertResting(resting(1, domain.Ask, 100, 2))

	taker := resting(2, domain.Bid, 100, 5)
	remaining := b.MatchAgainst(domain.Bid, taker.Price, taker.Remaining, func(*domain.Order, uint64) {}, func(uint64, uint64) {})
	taker.Remaining = remaining
	b.InsertResting(taker)

	if qty, ok := b.LevelQty(domain.Bid, 100); !ok || qty != 3 {
		t.Errorf("expected 3 units resting at bid 100, got %d ok=%v", qty, ok)
	}
	if _, ok := b.BestAsk(); ok {
		t.Error("expected asks to be fully drained")
	}
}
