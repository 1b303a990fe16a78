package gateway

import (
	"bytes"
	"testing"

	"clobengine/domain"
)

func decodeOne(t *testing.T, frame []byte) (MsgType, []byte) {
	t.Helper()
	dec := &Decoder{}
	dec.Feed(frame)
	msgType, body, status := dec.Next()
	if status != StatusFrame {
		t.Fatalf("expected StatusFrame, got %v", status)
	}
	return msgType, body
}

func TestEncodeDecodeRoundTripPing(t *testing.T) {
	frame := Encode(MsgPing, nil)
	msgType, body := decodeOne(t, frame)
	if msgType != MsgPing || len(body) != 0 {
		t.Errorf("expected Ping with empty body, got type=%d body=%v", msgType, body)
	}
}

func TestEncodeDecodeRoundTripNewOrder(t *testing.T) {
	want := NewOrderBody{ClientID: 10, ClOrdID: 555, Side: domain.Ask, Price: 100, Qty: 3, TIF: domain.IOC}
	frame := Encode(MsgNewOrder, EncodeNewOrderBody(want))

	msgType, body := decodeOne(t, frame)
	if msgType != MsgNewOrder {
		t.Fatalf("expected MsgNewOrder, got %d", msgType)
	}
	got, ok := DecodeNewOrderBody(body)
	if !ok {
		t.Fatal("expected well-formed NewOrder body to decode")
	}
	if got != want {
		t.Errorf("round trip mismatch: want %+v, got %+v", want, got)
	}
}

func TestEncodeDecodeRoundTripCancel(t *testing.T) {
	want := CancelBody{ClientID: 7, ClOrdID: 42}
	frame := Encode(MsgCancel, EncodeCancelBody(want))

	msgType, body := decodeOne(t, frame)
	if msgType != MsgCancel {
		t.Fatalf("expected MsgCancel, got %d", msgType)
	}
	got, ok := DecodeCancelBody(body)
	if !ok {
		t.Fatal("expected well-formed Cancel body to decode")
	}
	if got != want {
		t.Errorf("round trip mismatch: want %+v, got %+v", want, got)
	}
}

func TestDecodeNewOrderRejectsNegativePrice(t *testing.T) {
	body := EncodeNewOrderBody(NewOrderBody{Side: domain.Bid, Price: -1, Qty: 1})
	if _, ok := DecodeNewOrderBody(body); ok {
		t.Error("expected negative price to be rejected")
	}
}

func TestDecodeNewOrderRejectsZeroQty(t *testing.T) {
	body := EncodeNewOrderBody(NewOrderBody{Side: domain.Bid, Price: 1, Qty: 0})
	if _, ok := DecodeNewOrderBody(body); ok {
		t.Error("expected zero qty to be rejected")
	}
}

func TestDecodeNewOrderRejectsOutOfRangeSide(t *testing.T) {
	body := EncodeNewOrderBody(NewOrderBody{Side: domain.Bid, Price: 1, Qty: 1})
	body[16] = 2 // side out of {0,1}
	if _, ok := DecodeNewOrderBody(body); ok {
		t.Error("expected out-of-range side to be rejected")
	}
}

func TestDecodeDetectsBodyLenMismatch(t *testing.T) {
	frame := Encode(MsgPing, nil)
	// Corrupt body_len so it no longer matches payload_len - 4.
	frame[7] = 5

	dec := &Decoder{}
	dec.Feed(frame)
	_, _, status := dec.Next()
	if status != StatusMalformed {
		t.Errorf("expected StatusMalformed, got %v", status)
	}
}

func TestDecodeNeedsMoreBytes(t *testing.T) {
	frame := Encode(MsgNewOrder, EncodeNewOrderBody(NewOrderBody{Side: domain.Bid, Price: 1, Qty: 1}))

	dec := &Decoder{}
	dec.Feed(frame[:len(frame)-1])
	if _, _, status := dec.Next(); status != StatusNeedMore {
		t.Fatalf("expected StatusNeedMore with a partial frame, got %v", status)
	}

	dec.Feed(frame[len(frame)-1:])
	if _, _, status := dec.Next(); status != StatusFrame {
		t.Errorf("expected StatusFrame once the final byte arrives, got %v", status)
	}
}

// S6 — a Ping frame split across two TCP segments of 3 and 5 bytes yields
// exactly one Pong (here: one decoded Ping) after the second segment
// arrives, with the inbound buffer fully consumed.
func TestDecodeSplitAcrossTwoSegments(t *testing.T) {
	frame := Encode(MsgPing, nil)
	if len(frame) != 8 {
		t.Fatalf("expected an 8-byte ping frame, got %d bytes", len(frame))
	}
	first, second := frame[:3], frame[3:]

	dec := &Decoder{}
	dec.Feed(first)
	if _, _, status := dec.Next(); status != StatusNeedMore {
		t.Fatalf("expected StatusNeedMore after 3 bytes, got %v", status)
	}

	dec.Feed(second)
	msgType, body, status := dec.Next()
	if status != StatusFrame {
		t.Fatalf("expected StatusFrame after the second segment, got %v", status)
	}
	if msgType != MsgPing || len(body) != 0 {
		t.Errorf("expected a complete Ping, got type=%d body=%v", msgType, body)
	}

	if _, _, status := dec.Next(); status != StatusNeedMore {
		t.Error("expected the decode buffer to be fully consumed")
	}
	if len(dec.buf) != 0 {
		t.Errorf("expected empty trailing buffer, got %d bytes", len(dec.buf))
	}
}

func TestEncodeEventRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		evt  domain.Event
		want MsgType
	}{
		{"pong", domain.PongEvent(), MsgAck},
		{"ack", domain.AckEvent(7, "ok"), MsgAck},
		{"reject", domain.RejectEvent(4242, "not_found"), MsgReject},
		{"trade", domain.TradeEvent(100, 3, 20, 10), MsgTrade},
		{"book_delta", domain.BookDeltaEvent(domain.Bid, 100, 2), MsgBookDelta},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			msgType, body := EncodeEvent(c.evt)
			if msgType != c.want {
				t.Errorf("expected msg_type %d, got %d", c.want, msgType)
			}
			frame := Encode(msgType, body)
			gotType, gotBody := decodeOne(t, frame)
			if gotType != msgType || !bytes.Equal(gotBody, body) {
				t.Errorf("round trip mismatch: want type=%d body=%v, got type=%d body=%v", msgType, body, gotType, gotBody)
			}
		})
	}
}
