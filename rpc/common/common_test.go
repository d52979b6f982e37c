package common

import (
	"errors"
	"testing"

	"github.com/ValentinKolb/xdcrlag/lib/store"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShardIDIsStable(t *testing.T) {
	assert.Equal(t, ShardID("default"), ShardID("default"))
	assert.NotEqual(t, ShardID("default"), ShardID("travel-sample"))
}

func TestResponseErrors(t *testing.T) {
	assert.NoError(t, NewSetResponse(nil).AsError())

	err := NewSetResponse(store.NewError(store.RetCClosed, "closed")).AsError()
	var storeErr *store.Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, store.RetCClosed, storeErr.Code)
	assert.Equal(t, "closed", storeErr.Msg)

	err = NewDeleteResponse(errors.New("disk full")).AsError()
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, store.RetCInternalError, storeErr.Code)

	// error type without a code
	err = (&Message{MsgType: MsgTError, Err: "bad"}).AsError()
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, store.RetCInternalError, storeErr.Code)
}

func TestMessageTypeJSON(t *testing.T) {
	for typ := MsgTSuccess; typ <= MsgTKVHas; typ++ {
		b, err := typ.MarshalJSON()
		require.NoError(t, err)

		var decoded MessageType
		require.NoError(t, decoded.UnmarshalJSON(b))
		assert.Equal(t, typ, decoded)
	}

	var decoded MessageType
	assert.Error(t, decoded.UnmarshalJSON([]byte(`"acquire"`)))
}

func TestAuthenticate(t *testing.T) {
	open := ServerConfig{}
	assert.NoError(t, open.Authenticate("anyone", ""))

	config := ServerConfig{Credentials: map[string]string{"default": "secret"}}
	assert.NoError(t, config.Authenticate("default", "secret"))
	assert.Error(t, config.Authenticate("default", "wrong"))
	assert.Error(t, config.Authenticate("other", "secret"))
}

func TestParseLogLevel(t *testing.T) {
	level, err := ParseLogLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, logger.WARNING, level)

	_, err = ParseLogLevel("verbose")
	assert.Error(t, err)
}

func TestConfigStringHidesPassword(t *testing.T) {
	c := ClientConfig{Username: "default", Password: "secret", Transport: ClientTransportConfig{Endpoints: []string{"a:1"}}}
	out := c.String()
	assert.Contains(t, out, "default")
	assert.NotContains(t, out, "secret")

	s := ServerConfig{Credentials: map[string]string{"default": "secret"}}
	assert.NotContains(t, s.String(), "secret")
}
