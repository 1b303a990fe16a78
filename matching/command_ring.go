package matching

import (
	"sync/atomic"
	_ "unsafe" // for go:linkname

	"clobengine/domain"
)

//go:linkname semacquireCmd sync.runtime_Semacquire
func semacquireCmd(s *uint32)

//go:linkname semreleaseCmd sync.runtime_Semrelease
func semreleaseCmd(s *uint32, handoff bool, skipframes int)

// CommandRing is the bounded, multi-producer/single-consumer queue carrying
// Commands from every connection's ingress loop to the engine. It is the
// concrete realization of the spec's "bounded command channel (10,000)":
// gateway tasks block on Publish when it is full, which is the system's
// only backpressure point.
//
// Adapted from the batched semaphore ring buffer this codebase already
// used for orders: every slot transfers through semacquire/semrelease, and
// a consumer holds a local cache it refills in batches to amortize the
// synchronization cost without ever touching a mutex.
type CommandRing struct {
	buffer     []domain.Command
	mask       int64
	writeSeq   atomic.Int64
	readSeq    atomic.Int64
	emptySlots uint32
	fullSlots  uint32
}

// NewCommandRing creates a ring of the given size, which must be a power of
// two.
func NewCommandRing(size int) *CommandRing {
	if size&(size-1) != 0 {
		panic("CommandRing size must be power of 2")
	}
	r := &CommandRing{
		buffer: make([]domain.Command, size),
		mask:   int64(size - 1),
	}
	for i := 0; i < size; i++ {
		semreleaseCmd(&r.emptySlots, false, 0)
	}
	return r
}

// Publish enqueues cmd, blocking the caller while the ring is full. This is
// the gateway backpressure point: a slow engine stalls connection ingress,
// which in turn stalls the socket read.
func (r *CommandRing) Publish(cmd domain.Command) {
	semacquireCmd(&r.emptySlots)
	seq := r.writeSeq.Add(1) - 1
	r.buffer[seq&r.mask] = cmd
	semreleaseCmd(&r.fullSlots, false, 0)
}

// CommandConsumer is the engine's single-consumer handle onto a
// CommandRing, with a batch-local cache to reduce synchronization
// overhead on the matching hot path.
type CommandConsumer struct {
	r          *CommandRing
	localCache [128]domain.Command
	cacheStart int
	cacheEnd   int
}

func (r *CommandRing) NewConsumer() *CommandConsumer {
	return &CommandConsumer{r: r}
}

// Consume blocks until a Command is available.
func (c *CommandConsumer) Consume() domain.Command {
	if c.cacheStart < c.cacheEnd {
		cmd := c.localCache[c.cacheStart]
		c.cacheStart++
		return cmd
	}
	c.fillCache()
	cmd := c.localCache[c.cacheStart]
	c.cacheStart++
	return cmd
}

func (c *CommandConsumer) fillCache() {
	r := c.r

	semacquireCmd(&r.fullSlots)
	seq := r.readSeq.Add(1) - 1
	c.localCache[0] = r.buffer[seq&r.mask]
	semreleaseCmd(&r.emptySlots, false, 0)
	acquired := 1

	maxBatch := 128
	available := int(r.writeSeq.Load() - r.readSeq.Load())
	if available > maxBatch-1 {
		available = maxBatch - 1
	}
	for i := 0; i < available; i++ {
		semacquireCmd(&r.fullSlots)
		seq := r.readSeq.Add(1) - 1
		c.localCache[acquired] = r.buffer[seq&r.mask]
		semreleaseCmd(&r.emptySlots, false, 0)
		acquired++
	}

	c.cacheStart = 0
	c.cacheEnd = acquired
}
