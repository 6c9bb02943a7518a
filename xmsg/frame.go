package xmsg

import (
	"encoding/binary"
	"io"

	"github.com/sw1001/DeDOS/cmn/cos"
)

// Peer-to-peer wire frame (spec.md §4.5):
//
//	[u32 payload_len][u32 dst_msu_id][i32 key][u8 payload[payload_len]]
//
// All integers are little-endian. payload_len == 0 is legal (pure
// signalling). maxFrameBody bounds an implausible payload_len so a
// corrupt stream is detected as ErrMalformedPeerFrame rather than an OOM.
const (
	FrameHeaderSize = 4 + 4 + 4
	maxFrameBody    = 256 << 20 // 256MiB: above this a length is implausible
)

// WriteFrame writes one complete peer frame. The caller is responsible for
// serializing writes per destination connection (one sender goroutine per
// peer, per spec.md §4.5).
func WriteFrame(w io.Writer, e *Envelope) error {
	var hdr [FrameHeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(len(e.Payload)))
	binary.LittleEndian.PutUint32(hdr[4:8], e.DstMSU)
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(e.Key))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	if len(e.Payload) == 0 {
		return nil
	}
	_, err := w.Write(e.Payload)
	return err
}

// ReadFrame blocks until one complete frame has been read from r, or
// returns an error. Partial reads (a short TCP read mid-frame) are
// resumed internally via io.ReadFull; a clean EOF before any header bytes
// are read is returned as io.EOF so the caller can distinguish a graceful
// close from a mid-frame drop (ErrMalformedPeerFrame).
func ReadFrame(r io.Reader, originRT uint32) (*Envelope, error) {
	var hdr [FrameHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, &cos.ErrMalformedPeerFrame{RuntimeID: originRT, Reason: "partial header"}
		}
		return nil, err
	}
	plen := binary.LittleEndian.Uint32(hdr[0:4])
	dst := binary.LittleEndian.Uint32(hdr[4:8])
	key := int32(binary.LittleEndian.Uint32(hdr[8:12]))

	if plen > maxFrameBody {
		return nil, &cos.ErrMalformedPeerFrame{RuntimeID: originRT, Reason: "implausible payload_len"}
	}

	var payload []byte
	if plen > 0 {
		payload = make([]byte, plen)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, &cos.ErrMalformedPeerFrame{RuntimeID: originRT, Reason: "partial frame: " + err.Error()}
		}
	}
	e := NewEnvelope(dst, key, payload)
	e.OriginRT = originRT
	return e, nil
}
