package ctrl

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sw1001/DeDOS/route"
	"github.com/sw1001/DeDOS/xmsg"
)

func TestActionRoundTrip(t *testing.T) {
	cases := []*Action{
		{Type: MsgAddRuntime, RuntimeID: 2, RuntimeIP: "10.0.0.5", RuntimePort: 4200},
		{Type: MsgCreateThread, ThreadID: 3, Pinned: true},
		{Type: MsgDeleteThread, ThreadID: 3},
		{Type: MsgCreateMSU, ThreadID: 3, MSUID: 10, MSUType: 1, InitData: []byte("www/")},
		{Type: MsgDeleteMSU, ThreadID: 3, MSUID: 10},
		{Type: MsgMSURoutes, ThreadID: 3, MSUID: 10, RouteIDs: []uint32{5, 6, 7}},
		{Type: MsgModifyRoute, ThreadID: 3, RouteID: 5, Op: RouteOpAddEndpoint,
			Endpoint: route.Endpoint{Key: 7, MSUID: 22, Locality: xmsg.Remote, RuntimeID: 4}},
	}
	for _, in := range cases {
		var buf bytes.Buffer
		require.NoError(t, WriteAction(&buf, in))

		out, err := ReadAction(&buf)
		require.NoError(t, err)
		require.Equal(t, in.Type, out.Type)
		require.Equal(t, in.MSUID, out.MSUID)
		require.Equal(t, in.RouteIDs, out.RouteIDs)
		require.Equal(t, in.Endpoint, out.Endpoint)
	}
}

func TestMalformedControlMsgSizeMismatch(t *testing.T) {
	// CREATE_MSU whose embedded init_data_len disagrees with the number of
	// payload bytes actually present: payload_size = sizeof(CREATE_MSU)+7,
	// but init_data_len claims only 0 (spec.md §8 scenario 5).
	putU32 := func(b []byte, v uint32) {
		b[0], b[1], b[2], b[3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
	}
	var hdr [FrameHeaderSize]byte
	putU32(hdr[0:4], uint32(MsgCreateMSU))
	putU32(hdr[4:8], 3)
	putU32(hdr[8:12], 12+7) // declared frame payload_size: fixed part + 7 extra bytes

	payload := make([]byte, 12+7)
	putU32(payload[0:4], 10) // msu_id
	putU32(payload[4:8], 1)  // type_id
	putU32(payload[8:12], 0) // init_data_len claims 0, but 7 bytes follow

	var buf bytes.Buffer
	buf.Write(hdr[:])
	buf.Write(payload)
	require.NoError(t, WriteAction(&buf, &Action{Type: MsgDeleteThread, ThreadID: 9}))

	_, err := ReadAction(&buf)
	require.Error(t, err)

	// the malformed frame must not have consumed bytes belonging to the
	// next frame: the well-formed DELETE_THREAD frame appended after it
	// must still decode cleanly from the same stream.
	next, err := ReadAction(&buf)
	require.NoError(t, err)
	require.Equal(t, uint32(9), next.ThreadID)
}
