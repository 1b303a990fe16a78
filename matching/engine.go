// Package matching implements the single-threaded matching engine: it owns
// the order book exclusively, consumes a serialized command stream off a
// bounded ring buffer, and emits per-command acknowledgements, trades, and
// book deltas to the submitter's sink and a broadcast sink.
package matching

import (
	"runtime"
	"time"

	"go.uber.org/zap"

	"clobengine/domain"
	"clobengine/orderbook"
)

const heartbeatInterval = 5 * time.Second

// Engine owns the book for its entire lifetime; Run pins it to a dedicated
// OS thread and nothing else ever touches the book concurrently.
type Engine struct {
	book     *orderbook.Book
	ids      *IDGenerator
	commands *CommandRing
	logger   *zap.Logger

	broadcastRing *BroadcastRing   // owned; exposed to the market-data drain
	broadcast     domain.EventSink // what the matching path actually writes to

	stop chan struct{}
	done chan struct{}
}

func NewEngine(commandRingSize, broadcastRingSize int, logger *zap.Logger) *Engine {
	broadcastRing := NewBroadcastRing(broadcastRingSize)
	return &Engine{
		book:          orderbook.New(),
		ids:           NewIDGenerator(),
		commands:      NewCommandRing(commandRingSize),
		logger:        logger,
		broadcastRing: broadcastRing,
		broadcast:     broadcastRing,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Commands is the producer handle the gateway supervisor enqueues onto.
func (e *Engine) Commands() *CommandRing { return e.commands }

// Broadcast is the consumer handle the market-data drain reads from.
func (e *Engine) Broadcast() *BroadcastRing { return e.broadcastRing }

// NextOrderID hands out the next server-assigned order id; called by the
// gateway at frame-decode time, not by the engine loop itself.
func (e *Engine) NextOrderID() uint64 { return e.ids.Next() }

// Run is the matching loop. Its only blocking point is the command ring
// receive, with a periodic wake for heartbeat bookkeeping; it never
// busy-polls. The ring's blocking Consume has no way to select against
// e.stop, so a forwarder goroutine does the actual blocking wait and
// hands completed commands to the loop over cmdCh; the loop itself
// blocks only on that channel and the ticker. Returns once Stop is
// called and the loop observes it.
func (e *Engine) Run() {
	defer close(e.done)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	consumer := e.commands.NewConsumer()
	cmdCh := make(chan domain.Command)
	go forwardCommands(consumer, cmdCh, e.stop)

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stop:
			return
		case <-ticker.C:
			e.heartbeat()
		case cmd := <-cmdCh:
			e.apply(cmd)
		}
	}
}

// forwardCommands blocks on consumer.Consume and relays each command to
// out, so Engine.Run can wait on a real channel instead of polling the
// ring. Consume itself can't be interrupted mid-wait by stop: on
// shutdown with no further traffic this goroutine simply never wakes
// again, which is harmless, since the process exits once Run returns.
func forwardCommands(consumer *CommandConsumer, out chan<- domain.Command, stop <-chan struct{}) {
	for {
		cmd := consumer.Consume()
		select {
		case out <- cmd:
		case <-stop:
			return
		}
	}
}

// Stop signals the loop to exit and waits for it to do so.
func (e *Engine) Stop() {
	close(e.stop)
	<-e.done
}

func (e *Engine) apply(cmd domain.Command) {
	switch cmd.Kind {
	case domain.CommandPing:
		cmd.Sink.Send(domain.PongEvent())
	case domain.CommandNewOrder:
		e.applyNewOrder(cmd)
	case domain.CommandCancel:
		e.applyCancel(cmd)
	}
}

func (e *Engine) applyNewOrder(cmd domain.Command) {
	order := cmd.Order
	sink := cmd.Sink

	if order.OrigQty == 0 || order.Remaining == 0 {
		sink.Send(domain.RejectEvent(order.ID, "invalid"))
		return
	}

	restingDeltaSide := order.Side
	consumedSide := oppositeSide(order.Side)

	remaining := e.book.MatchAgainst(order.Side, order.Price, order.Remaining,
		func(maker *domain.Order, fillQty uint64) {
			trade := domain.TradeEvent(maker.Price, fillQty, order.ClientID, maker.ClientID)
			sink.Send(trade)
			e.broadcast.Send(trade)
		},
		func(price, levelQty uint64) {
			e.broadcast.Send(domain.BookDeltaEvent(consumedSide, price, levelQty))
		},
	)

	if remaining > 0 && order.TIF == domain.GTC {
		order.Remaining = remaining
		e.book.InsertResting(&order)
		if qty, ok := e.book.LevelQty(restingDeltaSide, order.Price); ok {
			e.broadcast.Send(domain.BookDeltaEvent(restingDeltaSide, order.Price, qty))
		}
	}
	// IOC with remaining > 0: discarded, no resting and no further delta.

	e.logger.Debug("new order processed",
		zap.Uint64("order_id", order.ID),
		zap.String("side", order.Side.String()),
		zap.Uint64("price", order.Price),
		zap.Uint64("remaining", remaining),
	)

	sink.Send(domain.AckEvent(order.ID, "ok"))
}

func (e *Engine) applyCancel(cmd domain.Command) {
	result, ok := e.book.Cancel(cmd.OrderID)
	if !ok {
		cmd.Sink.Send(domain.RejectEvent(cmd.OrderID, "not_found"))
		return
	}
	e.broadcast.Send(domain.BookDeltaEvent(result.Side, result.Price, result.LevelQty))
	cmd.Sink.Send(domain.AckEvent(cmd.OrderID, "canceled"))
}

func oppositeSide(side domain.Side) domain.Side {
	if side == domain.Bid {
		return domain.Ask
	}
	return domain.Bid
}

func (e *Engine) heartbeat() {
	bestBid, hasBid := e.book.BestBid()
	bestAsk, hasAsk := e.book.BestAsk()
	e.logger.Debug("book snapshot",
		zap.Bool("has_bid", hasBid),
		zap.Uint64("best_bid", bestBid),
		zap.Bool("has_ask", hasAsk),
		zap.Uint64("best_ask", bestAsk),
		zap.Int("bid_levels", e.book.LevelCount(domain.Bid)),
		zap.Int("ask_levels", e.book.LevelCount(domain.Ask)),
		zap.Uint64("bid_qty", e.book.AggregateQty(domain.Bid)),
		zap.Uint64("ask_qty", e.book.AggregateQty(domain.Ask)),
	)
}
