package gateway

import (
	"encoding/binary"

	"clobengine/domain"
)

const newOrderBodyLen = 34 // u64 + u64 + u8 + i64 + i64 + u8
const cancelBodyLen = 16   // u64 + u64

// NewOrderBody is the decoded payload of a msg_type=10 frame.
type NewOrderBody struct {
	ClientID uint64
	ClOrdID  uint64
	Side     domain.Side
	Price    int64
	Qty      int64
	TIF      domain.TIF
}

// DecodeNewOrderBody parses a NewOrder body, rejecting negative price or
// qty and out-of-range side/tif per the wire contract.
func DecodeNewOrderBody(body []byte) (NewOrderBody, bool) {
	if len(body) != newOrderBodyLen {
		return NewOrderBody{}, false
	}
	sideRaw := body[16]
	tifRaw := body[33]
	if sideRaw > 1 || tifRaw > 1 {
		return NewOrderBody{}, false
	}
	price := int64(binary.LittleEndian.Uint64(body[17:25]))
	qty := int64(binary.LittleEndian.Uint64(body[25:33]))
	if price < 0 || qty <= 0 {
		return NewOrderBody{}, false
	}
	return NewOrderBody{
		ClientID: binary.LittleEndian.Uint64(body[0:8]),
		ClOrdID:  binary.LittleEndian.Uint64(body[8:16]),
		Side:     domain.Side(sideRaw),
		Price:    price,
		Qty:      qty,
		TIF:      domain.TIF(tifRaw),
	}, true
}

// EncodeNewOrderBody is the inverse of DecodeNewOrderBody, used by tests
// and any client-side encoder sharing this codec.
func EncodeNewOrderBody(b NewOrderBody) []byte {
	out := make([]byte, newOrderBodyLen)
	binary.LittleEndian.PutUint64(out[0:8], b.ClientID)
	binary.LittleEndian.PutUint64(out[8:16], b.ClOrdID)
	out[16] = byte(b.Side)
	binary.LittleEndian.PutUint64(out[17:25], uint64(b.Price))
	binary.LittleEndian.PutUint64(out[25:33], uint64(b.Qty))
	out[33] = byte(b.TIF)
	return out
}

// CancelBody is the decoded payload of a msg_type=11 frame.
type CancelBody struct {
	ClientID uint64
	ClOrdID  uint64
}

func DecodeCancelBody(body []byte) (CancelBody, bool) {
	if len(body) != cancelBodyLen {
		return CancelBody{}, false
	}
	return CancelBody{
		ClientID: binary.LittleEndian.Uint64(body[0:8]),
		ClOrdID:  binary.LittleEndian.Uint64(body[8:16]),
	}, true
}

func EncodeCancelBody(b CancelBody) []byte {
	out := make([]byte, cancelBodyLen)
	binary.LittleEndian.PutUint64(out[0:8], b.ClientID)
	binary.LittleEndian.PutUint64(out[8:16], b.ClOrdID)
	return out
}

// EncodeEvent translates an engine Event into its outbound msg_type and
// body, per the wire contract in §6.
func EncodeEvent(evt domain.Event) (MsgType, []byte) {
	switch evt.Kind {
	case domain.EventPong:
		return MsgAck, []byte("pong")
	case domain.EventAck:
		body := make([]byte, 8+len(evt.Note))
		binary.LittleEndian.PutUint64(body[0:8], evt.OrderID)
		copy(body[8:], evt.Note)
		return MsgAck, body
	case domain.EventReject:
		body := make([]byte, 8+len(evt.Reason))
		binary.LittleEndian.PutUint64(body[0:8], evt.OrderID)
		copy(body[8:], evt.Reason)
		return MsgReject, body
	case domain.EventTrade:
		body := make([]byte, 32)
		binary.LittleEndian.PutUint64(body[0:8], evt.Price)
		binary.LittleEndian.PutUint64(body[8:16], evt.Qty)
		binary.LittleEndian.PutUint64(body[16:24], evt.TakerClientID)
		binary.LittleEndian.PutUint64(body[24:32], evt.MakerClientID)
		return MsgTrade, body
	case domain.EventBookDelta:
		body := make([]byte, 17)
		body[0] = byte(evt.Side)
		binary.LittleEndian.PutUint64(body[1:9], evt.Price)
		binary.LittleEndian.PutUint64(body[9:17], evt.LevelQty)
		return MsgBookDelta, body
	default:
		panic("gateway: unknown event kind")
	}
}
