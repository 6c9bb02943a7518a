package ctrl

import (
	"encoding/binary"
	"net"

	"github.com/sw1001/DeDOS/cmn/cos"
	"github.com/sw1001/DeDOS/xmsg"
)

// Controller frame (spec.md §4.6):
//
//	[u32 type][u32 thread_id][u32 payload_size][u8 payload[payload_size]]
//
// little-endian, same as the peer frame format. FrameHeaderSize is the
// fixed prefix every controller frame carries ahead of its payload.
const FrameHeaderSize = 4 + 4 + 4

// EncodePayload serializes an Action's type-specific fields into the
// binary payload the wire format carries, mirroring the original DeDOS C
// structs (control_protocol.h) field-for-field rather than reaching for a
// self-describing codec: the whole point of payload_size validation
// (spec.md §4.6) is catching a struct-shape mismatch, which only a fixed
// binary layout can express.
func EncodePayload(a *Action) []byte {
	switch a.Type {
	case MsgAddRuntime:
		b := make([]byte, 10)
		binary.LittleEndian.PutUint32(b[0:4], a.RuntimeID)
		copy(b[4:8], net.ParseIP(a.RuntimeIP).To4())
		binary.LittleEndian.PutUint16(b[8:10], a.RuntimePort)
		return b
	case MsgCreateThread:
		b := make([]byte, 5)
		binary.LittleEndian.PutUint32(b[0:4], a.ThreadID)
		if a.Pinned {
			b[4] = 1
		}
		return b
	case MsgDeleteThread:
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, a.ThreadID)
		return b
	case MsgCreateMSU:
		b := make([]byte, 12+len(a.InitData))
		binary.LittleEndian.PutUint32(b[0:4], a.MSUID)
		binary.LittleEndian.PutUint32(b[4:8], a.MSUType)
		binary.LittleEndian.PutUint32(b[8:12], uint32(len(a.InitData)))
		copy(b[12:], a.InitData)
		return b
	case MsgDeleteMSU:
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, a.MSUID)
		return b
	case MsgMSURoutes:
		b := make([]byte, 8+4*len(a.RouteIDs))
		binary.LittleEndian.PutUint32(b[0:4], a.MSUID)
		binary.LittleEndian.PutUint32(b[4:8], uint32(len(a.RouteIDs)))
		for i, rid := range a.RouteIDs {
			binary.LittleEndian.PutUint32(b[8+4*i:12+4*i], rid)
		}
		return b
	case MsgModifyRoute:
		b := make([]byte, 18)
		binary.LittleEndian.PutUint32(b[0:4], a.RouteID)
		b[4] = byte(a.Op)
		binary.LittleEndian.PutUint32(b[5:9], uint32(a.Endpoint.Key))
		binary.LittleEndian.PutUint32(b[9:13], a.Endpoint.MSUID)
		if a.Endpoint.Locality == xmsg.Remote {
			b[13] = 1
		}
		binary.LittleEndian.PutUint32(b[14:18], a.Endpoint.RuntimeID)
		return b
	default:
		return nil
	}
}

// DecodePayload parses a wire payload into an Action for the given type,
// validating payload_size against what that type requires. A mismatch
// (including an unknown type) is reported as *cos.ErrMalformedControlMsg,
// per spec.md §7 — the connection stays open and only this message is
// skipped.
func DecodePayload(typ MsgType, threadID uint32, payload []byte) (*Action, error) {
	a := &Action{Type: typ, ThreadID: threadID}
	switch typ {
	case MsgAddRuntime:
		if len(payload) != 10 {
			return nil, malformed("ADD_RUNTIME", 10, len(payload))
		}
		a.RuntimeID = binary.LittleEndian.Uint32(payload[0:4])
		a.RuntimeIP = net.IP(payload[4:8]).String()
		a.RuntimePort = binary.LittleEndian.Uint16(payload[8:10])
	case MsgCreateThread:
		if len(payload) != 5 {
			return nil, malformed("CREATE_THREAD", 5, len(payload))
		}
		a.ThreadID = binary.LittleEndian.Uint32(payload[0:4])
		a.Pinned = payload[4] != 0
	case MsgDeleteThread:
		if len(payload) != 4 {
			return nil, malformed("DELETE_THREAD", 4, len(payload))
		}
		a.ThreadID = binary.LittleEndian.Uint32(payload)
	case MsgCreateMSU:
		if len(payload) < 12 {
			return nil, malformed("CREATE_MSU", 12, len(payload))
		}
		a.MSUID = binary.LittleEndian.Uint32(payload[0:4])
		a.MSUType = binary.LittleEndian.Uint32(payload[4:8])
		n := binary.LittleEndian.Uint32(payload[8:12])
		if uint32(len(payload)-12) != n {
			return nil, malformed("CREATE_MSU", 12+int(n), len(payload))
		}
		a.InitData = append([]byte(nil), payload[12:]...)
	case MsgDeleteMSU:
		if len(payload) != 4 {
			return nil, malformed("DELETE_MSU", 4, len(payload))
		}
		a.MSUID = binary.LittleEndian.Uint32(payload)
	case MsgMSURoutes:
		if len(payload) < 8 {
			return nil, malformed("MSU_ROUTES", 8, len(payload))
		}
		a.MSUID = binary.LittleEndian.Uint32(payload[0:4])
		n := binary.LittleEndian.Uint32(payload[4:8])
		if len(payload) != 8+4*int(n) {
			return nil, malformed("MSU_ROUTES", 8+4*int(n), len(payload))
		}
		a.RouteIDs = make([]uint32, n)
		for i := range a.RouteIDs {
			a.RouteIDs[i] = binary.LittleEndian.Uint32(payload[8+4*i : 12+4*i])
		}
	case MsgModifyRoute:
		if len(payload) != 18 {
			return nil, malformed("MODIFY_ROUTE", 18, len(payload))
		}
		a.RouteID = binary.LittleEndian.Uint32(payload[0:4])
		a.Op = RouteOp(payload[4])
		a.Endpoint.Key = int32(binary.LittleEndian.Uint32(payload[5:9]))
		a.Endpoint.MSUID = binary.LittleEndian.Uint32(payload[9:13])
		if payload[13] != 0 {
			a.Endpoint.Locality = xmsg.Remote
		} else {
			a.Endpoint.Locality = xmsg.Local
		}
		a.Endpoint.RuntimeID = binary.LittleEndian.Uint32(payload[14:18])
	default:
		return nil, &cos.ErrMalformedControlMsg{Type: "unknown", Want: -1, Got: len(payload)}
	}
	return a, nil
}

func malformed(name string, want, got int) error {
	return &cos.ErrMalformedControlMsg{Type: name, Want: want, Got: got}
}
