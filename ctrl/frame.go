package ctrl

import (
	"encoding/binary"
	"io"

	"github.com/sw1001/DeDOS/cmn/cos"
)

// ReadAction reads one complete controller frame from r and decodes it
// into an Action. A size mismatch for the declared type yields
// *cos.ErrMalformedControlMsg without consuming more than this one frame,
// so the caller can keep reading subsequent frames on the same
// connection (spec.md §4.6, §7, §8 scenario 5).
func ReadAction(r io.Reader) (*Action, error) {
	var hdr [FrameHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	typ := MsgType(binary.LittleEndian.Uint32(hdr[0:4]))
	threadID := binary.LittleEndian.Uint32(hdr[4:8])
	size := binary.LittleEndian.Uint32(hdr[8:12])

	if size > maxPayload {
		return nil, &cos.ErrMalformedControlMsg{Type: "oversized", Want: int(maxPayload), Got: int(size)}
	}
	payload := make([]byte, size)
	if size > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, err
		}
	}
	return DecodePayload(typ, threadID, payload)
}

const maxPayload = 64 << 20

// WriteAction serializes and writes one complete controller frame for a.
func WriteAction(w io.Writer, a *Action) error {
	payload := EncodePayload(a)
	var hdr [FrameHeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(a.Type))
	binary.LittleEndian.PutUint32(hdr[4:8], a.ThreadID)
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(len(payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	_, err := w.Write(payload)
	return err
}
