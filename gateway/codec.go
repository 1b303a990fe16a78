// Package gateway implements the binary framed TCP boundary between
// clients and the matching engine: the wire codec, the per-connection
// ingress/egress handler, and the accept-loop supervisor.
//
// Frame layout, little-endian throughout:
// [u32 payload_len][u16 msg_type][u16 body_len][body bytes]. payload_len
// covers everything after itself (4 + body_len). Translated from
// original_source/server/src/gateway/gw.rs's bytes::BytesMut/Buf/BufMut
// framing idiom to Go's encoding/binary plus plain byte slices.
package gateway

import "encoding/binary"

// MsgType identifies a frame's payload shape.
type MsgType uint16

const (
	MsgPing      MsgType = 1
	MsgNewOrder  MsgType = 10
	MsgCancel    MsgType = 11
	MsgAck       MsgType = 100
	MsgReject    MsgType = 101
	MsgTrade     MsgType = 102
	MsgBookDelta MsgType = 103
)

// DecodeStatus reports what Decoder.Next produced.
type DecodeStatus int

const (
	// StatusNeedMore means no whole frame is buffered yet; the buffer is
	// left untouched.
	StatusNeedMore DecodeStatus = iota
	// StatusFrame means a frame was consumed and decoded.
	StatusFrame
	// StatusMalformed means a frame-sized span of bytes was consumed but
	// its internal length fields didn't add up.
	StatusMalformed
)

const frameHeaderLen = 4 // u32 payload_len
const bodyHeaderLen = 4  // u16 msg_type + u16 body_len

// Decoder incrementally assembles frames from an append-only byte stream.
// It never blocks: Feed appends newly read bytes, and each Next call
// consumes one complete frame; calling Next until StatusNeedMore drains
// every buffered frame, leaving a trailing partial frame for the next Feed.
type Decoder struct {
	buf []byte
}

// Feed appends newly read bytes to the decode buffer.
func (d *Decoder) Feed(data []byte) {
	d.buf = append(d.buf, data...)
}

// Next consumes and decodes the next frame, if a whole one is buffered.
func (d *Decoder) Next() (msgType MsgType, body []byte, status DecodeStatus) {
	if len(d.buf) < frameHeaderLen {
		return 0, nil, StatusNeedMore
	}
	payloadLen := binary.LittleEndian.Uint32(d.buf[0:frameHeaderLen])
	total := frameHeaderLen + int(payloadLen)
	if len(d.buf) < total {
		return 0, nil, StatusNeedMore
	}

	frame := d.buf[frameHeaderLen:total]
	d.buf = d.buf[total:]

	if len(frame) < bodyHeaderLen {
		return 0, nil, StatusMalformed
	}
	mt := binary.LittleEndian.Uint16(frame[0:2])
	bodyLen := binary.LittleEndian.Uint16(frame[2:4])
	if len(frame)-bodyHeaderLen != int(bodyLen) {
		return 0, nil, StatusMalformed
	}
	return MsgType(mt), frame[bodyHeaderLen:], StatusFrame
}

// Encode produces a single contiguous frame with payload_len and body_len
// filled in. A body longer than 65535 bytes is a programming error.
func Encode(msgType MsgType, body []byte) []byte {
	if len(body) > 0xFFFF {
		panic("gateway: frame body exceeds 65535 bytes")
	}
	out := make([]byte, frameHeaderLen+bodyHeaderLen+len(body))
	binary.LittleEndian.PutUint32(out[0:4], uint32(bodyHeaderLen+len(body)))
	binary.LittleEndian.PutUint16(out[4:6], uint16(msgType))
	binary.LittleEndian.PutUint16(out[6:8], uint16(len(body)))
	copy(out[8:], body)
	return out
}
