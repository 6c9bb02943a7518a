package cache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sw1001/DeDOS/msu"
	"github.com/sw1001/DeDOS/route"
	"github.com/sw1001/DeDOS/xmsg"
)

const (
	writeTypeID  = 90
	fileioTypeID = 91
)

type fakeOwner struct{}

func (fakeOwner) ID() uint32    { return 1 }
func (fakeOwner) QueueLen() int { return 0 }

type fakeDispatcher struct {
	local []xmsg.Envelope
}

func (d *fakeDispatcher) DispatchLocal(dstMSU uint32, key int32, payload []byte) error {
	d.local = append(d.local, xmsg.Envelope{DstMSU: dstMSU, Key: key, Payload: payload})
	return nil
}
func (d *fakeDispatcher) DispatchRemote(runtimeID, dstMSU uint32, key int32, payload []byte) error {
	return nil
}
func (d *fakeDispatcher) QueueLenOf(msuID uint32) (int, bool) { return 0, false }
func (d *fakeDispatcher) LocalRuntimeID() uint32              { return 1 }

func newCacheInstance(t *testing.T) (*msu.Instance, *fakeDispatcher) {
	t.Helper()
	disp := &fakeDispatcher{}
	typ := &msu.Type{ID: 50, Name: "cache", Kind: &Kind{WriteType: writeTypeID, FileIOType: fileioTypeID}}

	initData, err := json.Marshal(map[string]any{
		"www_dir":            "testdata/",
		"max_files":          100,
		"max_kb_size":        int64(1 << 20),
		"max_occupancy_rate": 1.0,
	})
	require.NoError(t, err)

	inst, err := msu.New(1, typ, fakeOwner{}, disp, initData)
	require.NoError(t, err)

	writeRoute := route.New(1, writeTypeID)
	writeRoute.AddEndpoint(route.Endpoint{Key: 0, MSUID: 200, Locality: xmsg.Local})
	inst.AttachRoute(writeRoute)

	fileioRoute := route.New(2, fileioTypeID)
	fileioRoute.AddEndpoint(route.Endpoint{Key: 0, MSUID: 300, Locality: xmsg.Local})
	inst.AttachRoute(fileioRoute)

	return inst, disp
}

func TestReceiveMissForwardsToFileIO(t *testing.T) {
	inst, disp := newCacheInstance(t)
	payload, err := json.Marshal(&Message{URL: "index.html"})
	require.NoError(t, err)

	require.NoError(t, inst.Type.Kind.Receive(inst, xmsg.NewEnvelope(1, 0, payload)))
	require.Len(t, disp.local, 1)
	require.Equal(t, uint32(300), disp.local[0].DstMSU)
}

func TestReceiveStoreThenLookupHit(t *testing.T) {
	inst, disp := newCacheInstance(t)

	store, err := json.Marshal(&Message{URL: "index.html", Status: 200, Body: []byte("hello")})
	require.NoError(t, err)
	require.NoError(t, inst.Type.Kind.Receive(inst, xmsg.NewEnvelope(1, 0, store)))
	require.Len(t, disp.local, 1)
	require.Equal(t, uint32(200), disp.local[0].DstMSU)

	var forwarded Message
	require.NoError(t, json.Unmarshal(disp.local[0].Payload, &forwarded))
	require.Equal(t, "hello", string(forwarded.Body))
	require.Equal(t, 200, forwarded.Status)

	lookup, err := json.Marshal(&Message{URL: "index.html"})
	require.NoError(t, err)
	require.NoError(t, inst.Type.Kind.Receive(inst, xmsg.NewEnvelope(1, 0, lookup)))
	require.Len(t, disp.local, 2)
	require.Equal(t, uint32(200), disp.local[1].DstMSU)

	var hitResp Message
	require.NoError(t, json.Unmarshal(disp.local[1].Payload, &hitResp))
	require.Equal(t, "hello", string(hitResp.Body))
}
