package sandbox

import (
	"context"
	"testing"
	"time"

	"github.com/ValentinKolb/xdcrlag/lib/collector"
	"github.com/ValentinKolb/xdcrlag/lib/probe"
	"github.com/ValentinKolb/xdcrlag/lib/sink"
	"github.com/ValentinKolb/xdcrlag/lib/store"
	"github.com/ValentinKolb/xdcrlag/lib/targets"
	"github.com/ValentinKolb/xdcrlag/rpc/client"
	"github.com/ValentinKolb/xdcrlag/rpc/common"
	"github.com/ValentinKolb/xdcrlag/rpc/serializer"
	"github.com/ValentinKolb/xdcrlag/rpc/transport/tcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startSandbox serves the buckets on random local ports until the test ends
func startSandbox(t *testing.T, password string, delay time.Duration, buckets ...string) *Sandbox {
	t.Helper()

	sb, err := New(Config{
		SourceEndpoint:      "127.0.0.1:0",
		DestinationEndpoint: "127.0.0.1:0",
		Buckets:             buckets,
		Password:            password,
		Delay:               delay,
		Timeout:             5,
	}, tcp.NewTCPServerTransport(), tcp.NewTCPServerTransport(), serializer.NewBinarySerializer())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sb.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})

	require.Eventually(t, func() bool {
		return sb.Source.Addr() != "" && sb.Destination.Addr() != ""
	}, 2*time.Second, 5*time.Millisecond)
	return sb
}

func tcpFactory(_ context.Context, host, bucket string, creds targets.Credentials) (store.IClient, error) {
	config := common.ClientConfig{
		TimeoutSecond: 5,
		Username:      creds.Username,
		Password:      creds.Password,
		Transport: common.ClientTransportConfig{
			Endpoints:  []string{host},
			RetryCount: 1,
			TCPConf:    common.TCPConf{TCPNoDelay: true, TCPLingerSec: -1},
		},
	}
	return client.NewRPCStore(bucket, config, tcp.NewTCPClientTransport(), serializer.NewBinarySerializer())
}

type countingSink struct {
	samples chan probe.Sample
}

func (c countingSink) Append(sample probe.Sample, _ sink.Tags) error {
	c.samples <- sample
	return nil
}

func TestCollectorAgainstSandbox(t *testing.T) {
	sb := startSandbox(t, "secret", 20*time.Millisecond, "alpha", "beta")

	bucketTargets, err := targets.BuildTargets(context.Background(), targets.StaticResolver{"alpha", "beta"}, targets.Settings{
		MasterNode:     sb.Source.Addr(),
		DestMasterNode: sb.Destination.Addr(),
		RestPassword:   "secret",
	})
	require.NoError(t, err)

	config := collector.DefaultConfig()
	config.Workers = 2
	config.Iterations = 2
	config.Probe.PollInterval = 5 * time.Millisecond
	config.Probe.Deadline = 5 * time.Second

	s := countingSink{samples: make(chan probe.Sample, 16)}
	c, err := collector.New(config, bucketTargets, tcpFactory, s)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Run(context.Background()))
	close(s.samples)

	count := 0
	for sample := range s.samples {
		count++
		assert.GreaterOrEqual(t, sample.Latency, 15*time.Millisecond)
	}
	assert.Equal(t, 8, count) // every worker visits every bucket

	for _, st := range c.Stats() {
		assert.Zero(t, st.Failures, st.Bucket)
	}
}

func TestSandboxRejectsWrongPassword(t *testing.T) {
	sb := startSandbox(t, "secret", 0, "alpha")

	_, err := tcpFactory(context.Background(), sb.Source.Addr(), "alpha", targets.Credentials{Username: "alpha", Password: "wrong"})
	assert.Error(t, err)
}

func TestSandboxWithoutPassword(t *testing.T) {
	sb := startSandbox(t, "", 0, "alpha")

	c, err := tcpFactory(context.Background(), sb.Source.Addr(), "alpha", targets.Credentials{})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Set("k", []byte("v")))
	has, err := c.Has("k")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestNewRejectsDuplicateBuckets(t *testing.T) {
	_, err := New(Config{Buckets: []string{"a", "a"}}, tcp.NewTCPServerTransport(), tcp.NewTCPServerTransport(), serializer.NewJSONSerializer())
	assert.Error(t, err)
}
