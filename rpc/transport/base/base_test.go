package base

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/xdcrlag/rpc/common"
	"github.com/ValentinKolb/xdcrlag/rpc/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --------------------------------------------------------------------------
// Test connectors (unix sockets)
// --------------------------------------------------------------------------

type testConnector struct{}

func (testConnector) GetName() string { return "test" }

func (testConnector) Connect(endpoint string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("unix", endpoint, timeout)
}

func (testConnector) UpgradeConnection(net.Conn, common.ClientConfig) error { return nil }

func (testConnector) Listen(config common.ServerConfig) (net.Listener, error) {
	_ = os.RemoveAll(config.Transport.Endpoint)
	return net.Listen("unix", config.Transport.Endpoint)
}

type testServerConnector struct{ testConnector }

func (testServerConnector) UpgradeConnection(net.Conn, common.ServerConfig) error { return nil }

// echoHandler answers with the shard id followed by the request
func echoHandler(shardId uint64, req []byte) []byte {
	return append([]byte(fmt.Sprintf("%d:", shardId)), req...)
}

func startServer(t *testing.T, path string, credentials map[string]string) transport.IRPCServerTransport {
	t.Helper()

	s := NewBaseServerTransport(testServerConnector{}, 1024, 8)
	s.RegisterHandler(echoHandler)

	config := common.ServerConfig{
		TimeoutSecond: 5,
		Credentials:   credentials,
		Transport:     common.ServerTransportConfig{Endpoint: path},
	}
	go func() { _ = s.Listen(config) }()
	t.Cleanup(func() { _ = s.Close() })

	require.Eventually(t, func() bool { return s.Addr() != "" }, 5*time.Second, 5*time.Millisecond)
	return s
}

func connectClient(t *testing.T, path, username, password string, retries int) transport.IRPCClientTransport {
	t.Helper()

	c := NewBaseClientTransport(testConnector{})
	err := c.Connect(common.ClientConfig{
		TimeoutSecond: 5,
		Username:      username,
		Password:      password,
		Transport: common.ClientTransportConfig{
			Endpoints:              []string{path},
			RetryCount:             retries,
			ConnectionsPerEndpoint: 2,
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestFrameRoundTrip(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	payload := bytes.Repeat([]byte("x"), 100)
	go func() {
		_ = writeFrame(a, 42, 7, payload)
		_ = writeFrame(a, 1, 8, nil)
	}()

	// buffer smaller than the payload
	shardID, requestID, data, err := readFrame(b, make([]byte, 32))
	require.NoError(t, err)
	assert.Equal(t, uint64(42), shardID)
	assert.Equal(t, uint64(7), requestID)
	assert.Equal(t, payload, data)

	shardID, requestID, data, err = readFrame(b, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), shardID)
	assert.Equal(t, uint64(8), requestID)
	assert.Empty(t, data)
}

func TestCredentialsEncoding(t *testing.T) {
	for _, tc := range [][2]string{{"default", "secret"}, {"", ""}, {"bucket", "pass:with:colons"}} {
		username, password, err := decodeCredentials(encodeCredentials(tc[0], tc[1]))
		require.NoError(t, err)
		assert.Equal(t, tc[0], username)
		assert.Equal(t, tc[1], password)
	}

	_, _, err := decodeCredentials([]byte{0})
	assert.Error(t, err)
	_, _, err = decodeCredentials([]byte{0, 10, 'a'})
	assert.Error(t, err)
}

func TestConcurrentRequests(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rpc.sock")
	startServer(t, path, map[string]string{"default": "secret"})
	c := connectClient(t, path, "default", "secret", 1)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := []byte(fmt.Sprintf("request-%d", i))
			resp, err := c.Send(uint64(i), req)
			if assert.NoError(t, err) {
				assert.Equal(t, fmt.Sprintf("%d:request-%d", i, i), string(resp))
			}
		}(i)
	}
	wg.Wait()
}

func TestHandshakeRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rpc.sock")
	startServer(t, path, map[string]string{"default": "secret"})

	c := NewBaseClientTransport(testConnector{})
	err := c.Connect(common.ClientConfig{
		TimeoutSecond: 5,
		Username:      "default",
		Password:      "wrong",
		Transport:     common.ClientTransportConfig{Endpoints: []string{path}},
	})
	assert.ErrorContains(t, err, "authentication rejected")
}

func TestUnauthenticatedRequestsAreDropped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rpc.sock")
	startServer(t, path, map[string]string{"default": "secret"})

	// no username: no handshake is sent
	c := connectClient(t, path, "", "", 1)
	_, err := c.Send(1, []byte("hello"))
	assert.Error(t, err)
}

func TestReconnectAfterServerRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rpc.sock")
	first := startServer(t, path, map[string]string{"default": "secret"})
	c := connectClient(t, path, "default", "secret", 6)

	resp, err := c.Send(1, []byte("before"))
	require.NoError(t, err)
	assert.Equal(t, "1:before", string(resp))

	require.NoError(t, first.Close())
	startServer(t, path, map[string]string{"default": "secret"})

	resp, err = c.Send(1, []byte("after"))
	require.NoError(t, err)
	assert.Equal(t, "1:after", string(resp))
}

func TestSendAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rpc.sock")
	startServer(t, path, nil)
	c := connectClient(t, path, "", "", 3)

	require.NoError(t, c.Close())
	_, err := c.Send(1, []byte("x"))
	assert.Error(t, err)
}
