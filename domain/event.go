package domain

// EventKind discriminates the Event variants the engine emits.
type EventKind uint8

const (
	EventPong EventKind = iota
	EventAck
	EventReject
	EventTrade
	EventBookDelta
)

// Event is a tagged union; only the fields relevant to Kind are populated.
// Constructed by the matching engine (and, for frames rejected before
// reaching the engine, by the gateway's ingress loop) and consumed by a
// connection's egress loop or the broadcast drain.
type Event struct {
	Kind EventKind

	// Ack / Reject
	OrderID uint64
	Note    string // Ack
	Reason  string // Reject

	// Trade
	Price         uint64
	Qty           uint64
	TakerClientID uint64
	MakerClientID uint64

	// BookDelta
	Side     Side
	LevelQty uint64
}

func PongEvent() Event {
	return Event{Kind: EventPong}
}

func AckEvent(orderID uint64, note string) Event {
	return Event{Kind: EventAck, OrderID: orderID, Note: note}
}

func RejectEvent(orderID uint64, reason string) Event {
	return Event{Kind: EventReject, OrderID: orderID, Reason: reason}
}

func TradeEvent(price, qty, takerClientID, makerClientID uint64) Event {
	return Event{
		Kind:          EventTrade,
		Price:         price,
		Qty:           qty,
		TakerClientID: takerClientID,
		MakerClientID: makerClientID,
	}
}

func BookDeltaEvent(side Side, price, levelQty uint64) Event {
	return Event{Kind: EventBookDelta, Side: side, Price: price, LevelQty: levelQty}
}

// EventSink is the capability a Command carries to reach back to its
// submitter: send one Event, non-blocking, best-effort. A sink backed by a
// closed or abandoned connection silently drops the event rather than
// erroring; a dead submitter must never stall the engine.
type EventSink interface {
	Send(Event)
}

// ChanSink adapts a buffered channel to EventSink for per-connection use.
// Send never blocks: if the channel is full the event is dropped, which
// only happens when a connection's egress loop has stalled or exited. A
// Command's sink can outlive the connection that submitted it: the
// command may still be queued, or mid-apply, when the client disconnects
// and the ingress loop closes the channel. A send to a closed channel is
// recovered and dropped rather than left to panic.
type ChanSink chan Event

func (s ChanSink) Send(e Event) {
	defer func() { recover() }()
	select {
	case s <- e:
	default:
	}
}
