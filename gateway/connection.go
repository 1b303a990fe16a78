package gateway

import (
	"context"
	"io"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	"clobengine/domain"
)

// CommandPublisher is the engine's producer-side handle. Publish blocks
// when the engine's command ring is full; that block is this system's
// only backpressure point, propagating from a slow engine back to the
// socket read.
type CommandPublisher interface {
	Publish(domain.Command)
}

// OrderIDAllocator hands out the server-assigned order id for a decoded
// NewOrder frame.
type OrderIDAllocator interface {
	NextOrderID() uint64
}

const sinkBufferSize = 256
const readBufferSize = 16 * 1024

// Handler owns one accepted connection end to end: the socket, an inbound
// decode buffer, a handle to the engine's command ring, and the
// single-consumer event sink bound to this connection. Ingress and egress
// run as two goroutines coordinated by an errgroup sharing one context:
// whichever fails first cancels the other.
type Handler struct {
	conn     net.Conn
	commands CommandPublisher
	ids      OrderIDAllocator
	sink     domain.ChanSink
}

func NewHandler(conn net.Conn, commands CommandPublisher, ids OrderIDAllocator) *Handler {
	return &Handler{
		conn:     conn,
		commands: commands,
		ids:      ids,
		sink:     make(domain.ChanSink, sinkBufferSize),
	}
}

// Run blocks until the connection ends, returning the first error from
// either loop (io.EOF surfaces as nil: a clean close).
func (h *Handler) Run(ctx context.Context) error {
	if tc, ok := h.conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	defer h.conn.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := h.ingress()
		h.conn.Close() // unblock egress's ctx-independent write path by tearing down the socket
		return err
	})
	g.Go(func() error {
		err := h.egress(gctx)
		h.conn.Close() // unblock a pending Read in ingress
		return err
	})
	return g.Wait()
}

// ingress reads bytes, feeds the codec, and for each decoded frame either
// dispatches an engine Command or rejects the frame locally. A zero-byte
// read ends the connection cleanly.
func (h *Handler) ingress() error {
	defer close(h.sink)

	dec := &Decoder{}
	buf := make([]byte, readBufferSize)

	for {
		n, err := h.conn.Read(buf)
		if n > 0 {
			dec.Feed(buf[:n])
			h.drainFrames(dec)
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if n == 0 {
			return nil
		}
	}
}

func (h *Handler) drainFrames(dec *Decoder) {
	for {
		msgType, body, status := dec.Next()
		switch status {
		case StatusNeedMore:
			return
		case StatusMalformed:
			h.sink.Send(domain.RejectEvent(0, "bad_frame"))
		case StatusFrame:
			h.dispatch(msgType, body)
		}
	}
}

func (h *Handler) dispatch(msgType MsgType, body []byte) {
	switch msgType {
	case MsgPing:
		h.commands.Publish(domain.PingCommand(h.sink))

	case MsgNewOrder:
		nb, ok := DecodeNewOrderBody(body)
		if !ok {
			h.sink.Send(domain.RejectEvent(0, "bad_frame"))
			return
		}
		order := domain.Order{
			ID:            h.ids.NextOrderID(),
			ClientID:      nb.ClientID,
			ClientOrderID: nb.ClOrdID,
			Side:          nb.Side,
			Price:         uint64(nb.Price),
			OrigQty:       uint64(nb.Qty),
			Remaining:     uint64(nb.Qty),
			Timestamp:     time.Now().UnixMilli(),
			TIF:           nb.TIF,
		}
		h.commands.Publish(domain.NewOrderCommand(order, h.sink))

	case MsgCancel:
		cb, ok := DecodeCancelBody(body)
		if !ok {
			h.sink.Send(domain.RejectEvent(0, "bad_frame"))
			return
		}
		h.commands.Publish(domain.CancelCommand(cb.ClientID, cb.ClOrdID, h.sink))

	default:
		h.sink.Send(domain.RejectEvent(0, "unknown_msg"))
	}
}

// egress awaits events on the sink and writes each encoded onto the
// socket. A write failure terminates the connection.
func (h *Handler) egress(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-h.sink:
			if !ok {
				return nil
			}
			msgType, body := EncodeEvent(evt)
			if _, err := h.conn.Write(Encode(msgType, body)); err != nil {
				return err
			}
		}
	}
}
