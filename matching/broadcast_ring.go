package matching

import (
	"sync/atomic"
	_ "unsafe" // for go:linkname

	"clobengine/domain"
)

//go:linkname semacquireBcast sync.runtime_Semacquire
func semacquireBcast(s *uint32)

//go:linkname semreleaseBcast sync.runtime_Semrelease
func semreleaseBcast(s *uint32, handoff bool, skipframes int)

// BroadcastRing is the bounded, single-producer (the engine), single-
// consumer (the market-data drain) queue of Events. Unlike CommandRing,
// the engine must never block on it — the spec requires a full broadcast
// sink to drop rather than stall the matching loop — so the only producer
// operation is the non-blocking TryPublish.
type BroadcastRing struct {
	buffer     []domain.Event
	mask       int64
	writeSeq   atomic.Int64
	readSeq    atomic.Int64
	emptySlots uint32
	fullSlots  uint32
}

func NewBroadcastRing(size int) *BroadcastRing {
	if size&(size-1) != 0 {
		panic("BroadcastRing size must be power of 2")
	}
	r := &BroadcastRing{
		buffer: make([]domain.Event, size),
		mask:   int64(size - 1),
	}
	for i := 0; i < size; i++ {
		semreleaseBcast(&r.emptySlots, false, 0)
	}
	return r
}

// Send implements domain.EventSink, so the engine's matching path can treat
// the broadcast ring exactly like a per-connection sink. The dropped-return
// value of TryPublish is the spec-legal "if absent, sends drop" behavior.
func (r *BroadcastRing) Send(evt domain.Event) {
	r.TryPublish(evt)
}

// TryPublish enqueues evt if a slot is free, reporting whether it was
// published. A false return is a legal drop per spec, not an error.
func (r *BroadcastRing) TryPublish(evt domain.Event) bool {
	for {
		slots := atomic.LoadUint32(&r.emptySlots)
		if slots == 0 {
			return false
		}
		if !atomic.CompareAndSwapUint32(&r.emptySlots, slots, slots-1) {
			continue
		}
		seq := r.writeSeq.Add(1) - 1
		r.buffer[seq&r.mask] = evt
		semreleaseBcast(&r.fullSlots, false, 0)
		return true
	}
}

// BroadcastConsumer is the market-data drain's single-consumer handle.
type BroadcastConsumer struct {
	r          *BroadcastRing
	localCache [128]domain.Event
	cacheStart int
	cacheEnd   int
}

func (r *BroadcastRing) NewConsumer() *BroadcastConsumer {
	return &BroadcastConsumer{r: r}
}

// Consume blocks until an Event is available.
func (c *BroadcastConsumer) Consume() domain.Event {
	if c.cacheStart < c.cacheEnd {
		evt := c.localCache[c.cacheStart]
		c.cacheStart++
		return evt
	}
	c.fillCache()
	evt := c.localCache[c.cacheStart]
	c.cacheStart++
	return evt
}

func (c *BroadcastConsumer) fillCache() {
	r := c.r

	semacquireBcast(&r.fullSlots)
	seq := r.readSeq.Add(1) - 1
	c.localCache[0] = r.buffer[seq&r.mask]
	semreleaseBcast(&r.emptySlots, false, 0)
	acquired := 1

	maxBatch := 128
	available := int(r.writeSeq.Load() - r.readSeq.Load())
	if available > maxBatch-1 {
		available = maxBatch - 1
	}
	for i := 0; i < available; i++ {
		semacquireBcast(&r.fullSlots)
		seq := r.readSeq.Add(1) - 1
		c.localCache[acquired] = r.buffer[seq&r.mask]
		semreleaseBcast(&r.emptySlots, false, 0)
		acquired++
	}

	c.cacheStart = 0
	c.cacheEnd = acquired
}

// TryConsume is a non-blocking read, used by the market-data drain so it
// can stay responsive to a stop signal instead of blocking forever on an
// idle broadcast ring.
func (c *BroadcastConsumer) TryConsume() (domain.Event, bool) {
	if c.cacheStart < c.cacheEnd {
		evt := c.localCache[c.cacheStart]
		c.cacheStart++
		return evt, true
	}
	if !c.tryFillCache() {
		return domain.Event{}, false
	}
	evt := c.localCache[c.cacheStart]
	c.cacheStart++
	return evt, true
}

func (c *BroadcastConsumer) tryFillCache() bool {
	r := c.r

	available := int(r.writeSeq.Load() - r.readSeq.Load())
	if available == 0 {
		return false
	}
	maxBatch := 128
	if available > maxBatch {
		available = maxBatch
	}

	acquired := 0
	for i := 0; i < available; i++ {
		slots := atomic.LoadUint32(&r.fullSlots)
		if slots == 0 {
			break
		}
		if !atomic.CompareAndSwapUint32(&r.fullSlots, slots, slots-1) {
			continue
		}
		seq := r.readSeq.Add(1) - 1
		c.localCache[acquired] = r.buffer[seq&r.mask]
		semreleaseBcast(&r.emptySlots, false, 0)
		acquired++
	}

	if acquired == 0 {
		return false
	}
	c.cacheStart = 0
	c.cacheEnd = acquired
	return true
}
