package client

import (
	"errors"
	"testing"

	"github.com/ValentinKolb/xdcrlag/lib/store"
	"github.com/ValentinKolb/xdcrlag/rpc/common"
	"github.com/ValentinKolb/xdcrlag/rpc/serializer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport answers every request with a fixed response
type fakeTransport struct {
	resp      *common.Message
	err       error
	shardIDs  []uint64
	connected bool
	closed    int
}

func (f *fakeTransport) Connect(common.ClientConfig) error {
	f.connected = true
	return nil
}

func (f *fakeTransport) Send(shardId uint64, _ []byte) ([]byte, error) {
	f.shardIDs = append(f.shardIDs, shardId)
	if f.err != nil {
		return nil, f.err
	}
	return serializer.NewJSONSerializer().Serialize(*f.resp)
}

func (f *fakeTransport) Close() error {
	f.closed++
	return nil
}

func newTestStore(t *testing.T, f *fakeTransport) store.IClient {
	t.Helper()
	c, err := NewRPCStore("default", common.ClientConfig{}, f, serializer.NewJSONSerializer())
	require.NoError(t, err)
	require.True(t, f.connected)
	return c
}

func TestShardIDFromBucket(t *testing.T) {
	f := &fakeTransport{resp: common.NewSetResponse(nil)}
	c := newTestStore(t, f)

	require.NoError(t, c.Set("k", []byte("v")))
	require.NoError(t, c.Set("k", []byte("v")))
	assert.Equal(t, []uint64{common.ShardID("default"), common.ShardID("default")}, f.shardIDs)
}

func TestGetResponse(t *testing.T) {
	f := &fakeTransport{resp: common.NewGetResponse([]byte("v"), true, nil)}
	c := newTestStore(t, f)

	value, ok, err := c.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), value)
}

func TestUnexpectedMessageType(t *testing.T) {
	f := &fakeTransport{resp: common.NewHasResponse(true, nil)}
	c := newTestStore(t, f)

	_, _, err := c.Get("k")
	assert.ErrorContains(t, err, "unexpected message type")
}

func TestErrorResponse(t *testing.T) {
	f := &fakeTransport{resp: common.NewErrorResponse("boom")}
	c := newTestStore(t, f)

	_, err := c.Has("k")
	var storeErr *store.Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, store.RetCInternalError, storeErr.Code)
	assert.Equal(t, "boom", storeErr.Msg)
}

func TestTransportErrorIsReturned(t *testing.T) {
	boom := errors.New("connection refused")
	f := &fakeTransport{err: boom}
	c := newTestStore(t, f)

	assert.ErrorIs(t, c.Delete("k"), boom)
}

func TestCloseOnce(t *testing.T) {
	f := &fakeTransport{resp: common.NewSetResponse(nil)}
	c := newTestStore(t, f)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, 1, f.closed)

	err := c.Set("k", nil)
	var storeErr *store.Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, store.RetCClosed, storeErr.Code)
	assert.Empty(t, f.shardIDs)
}
