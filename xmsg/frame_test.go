package xmsg

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTripFraming(t *testing.T) {
	cases := []*Envelope{
		NewEnvelope(1, 0, []byte("hi")),
		NewEnvelope(42, -7, nil),
		NewEnvelope(0xdeadbeef, 1<<20, bytes.Repeat([]byte{0xab}, 4096)),
	}
	for _, in := range cases {
		var buf bytes.Buffer
		require.NoError(t, WriteFrame(&buf, in))

		out, err := ReadFrame(&buf, 7)
		require.NoError(t, err)
		require.Equal(t, in.DstMSU, out.DstMSU)
		require.Equal(t, in.Key, out.Key)
		require.Equal(t, in.Payload, out.Payload)
		require.Equal(t, uint32(7), out.OriginRT)
	}
}

func TestReadFrameRejectsImplausibleLength(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xff, 0xff, 0xff, 0x7f}) // huge payload_len
	buf.Write([]byte{0, 0, 0, 0})
	buf.Write([]byte{0, 0, 0, 0})

	_, err := ReadFrame(&buf, 1)
	require.Error(t, err)
}

func TestReadFramePartialCloseIsMalformed(t *testing.T) {
	full := &Envelope{DstMSU: 1, Key: 0, Payload: []byte("hello world")}
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, full))

	// simulate a connection dropped mid-frame: truncate after the header.
	truncated := buf.Bytes()[:FrameHeaderSize+3]
	_, err := ReadFrame(bytes.NewReader(truncated), 1)
	require.Error(t, err)
}
