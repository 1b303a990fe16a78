package matching

import (
	"runtime"

	"go.uber.org/zap"

	"clobengine/domain"
)

// DrainBroadcast is the single market-data consumer the spec allows as
// in-scope: without it, a full broadcast ring just drops events forever,
// which is spec-legal but leaves the broadcast sink pointless to ship.
// Logs each event at debug level and returns once stop is closed.
//
// Grounded in the teacher's own trade-consumer drain loop
// (tradeBuffer.NewTradeConsumerBatchSafe() polled with TryConsume +
// runtime.Gosched() in main.go), generalized from trades to all events.
func DrainBroadcast(ring *BroadcastRing, logger *zap.Logger, stop <-chan struct{}) {
	consumer := ring.NewConsumer()
	for {
		select {
		case <-stop:
			return
		default:
		}

		evt, ok := consumer.TryConsume()
		if !ok {
			runtime.Gosched()
			continue
		}
		logEvent(logger, evt)
	}
}

func logEvent(logger *zap.Logger, evt domain.Event) {
	switch evt.Kind {
	case domain.EventTrade:
		logger.Debug("trade",
			zap.Uint64("price", evt.Price),
			zap.Uint64("qty", evt.Qty),
			zap.Uint64("taker_client_id", evt.TakerClientID),
			zap.Uint64("maker_client_id", evt.MakerClientID),
		)
	case domain.EventBookDelta:
		logger.Debug("book_delta",
			zap.String("side", evt.Side.String()),
			zap.Uint64("price", evt.Price),
			zap.Uint64("level_qty", evt.LevelQty),
		)
	default:
		logger.Debug("broadcast event", zap.Uint8("kind", uint8(evt.Kind)))
	}
}
