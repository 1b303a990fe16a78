// Package domain holds the value types shared across the gateway and the
// matching engine: orders, sides, time-in-force, and the Command/Event
// envelopes that cross the gateway/engine boundary.
package domain

// Side is which side of the book an order rests on.
type Side uint8

const (
	Bid Side = 0
	Ask Side = 1
)

func (s Side) String() string {
	switch s {
	case Bid:
		return "bid"
	case Ask:
		return "ask"
	default:
		return "unknown"
	}
}

// TIF is an order's time-in-force.
type TIF uint8

const (
	GTC TIF = 0 // good-til-canceled: residual rests in the book
	IOC TIF = 1 // immediate-or-cancel: residual is discarded
)

func (t TIF) String() string {
	switch t {
	case GTC:
		return "GTC"
	case IOC:
		return "IOC"
	default:
		return "unknown"
	}
}

// Order is immutable after acceptance except for Remaining, which the
// matching engine decrements as fills are applied. ID is assigned by the
// gateway at decode time from a monotonic counter; ClientOrderID is the
// client-chosen correlation tag carried on the wire and never consulted by
// matching or cancel lookup.
type Order struct {
	ID            uint64
	ClientID      uint64
	ClientOrderID uint64
	Side          Side
	Price         uint64
	OrigQty       uint64
	Remaining     uint64
	Timestamp     int64 // milliseconds since epoch
	TIF           TIF
}

// Filled reports whether the order has no remaining quantity left to match.
func (o *Order) Filled() bool {
	return o.Remaining == 0
}
