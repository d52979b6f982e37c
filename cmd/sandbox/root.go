package sandbox

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ValentinKolb/xdcrlag/cmd/util"
	"github.com/ValentinKolb/xdcrlag/lib/store/memstore"
	"github.com/ValentinKolb/xdcrlag/lib/targets"
	"github.com/ValentinKolb/xdcrlag/rpc/common"
	"github.com/ValentinKolb/xdcrlag/rpc/serializer"
	"github.com/ValentinKolb/xdcrlag/rpc/server"
	"github.com/ValentinKolb/xdcrlag/rpc/transport"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

var (
	sandboxConfig = Config{}

	// SandboxCmd serves two replicated in-memory clusters
	SandboxCmd = &cobra.Command{
		Use:   "sandbox",
		Short: "Serve a replicated pair of in-memory clusters",
		Long: `Serve a source and a destination cluster backed by in-memory stores.
Every write to a bucket of the source becomes visible on the destination after
--delay. Point "xdcrlag collect" at both endpoints to try the collector without a
real deployment.`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	key := "source-endpoint"
	SandboxCmd.Flags().String(key, "localhost:8091", util.WrapString("The address of the source cluster (e.g. localhost:8091, /tmp/src.sock, ...)"))

	key = "destination-endpoint"
	SandboxCmd.Flags().String(key, "localhost:8092", util.WrapString("The address of the destination cluster"))

	key = "buckets"
	SandboxCmd.Flags().String(key, "default", util.WrapString("Comma-separated list of buckets to serve"))

	key = "rest-password"
	SandboxCmd.Flags().String(key, "", util.WrapString("Password of every bucket (the bucket name is the username). Empty disables authentication"))

	key = "delay"
	SandboxCmd.Flags().Duration(key, 100*time.Millisecond, util.WrapString("Replication delay between the clusters"))

	key = "timeout"
	SandboxCmd.Flags().Int(key, 5, util.WrapString("Timeout in seconds"))

	key = "workers-per-conn"
	SandboxCmd.Flags().Int(key, 8, util.WrapString("Maximum number of requests handled in parallel per connection (tcp, unix)"))
}

// Config describes a sandbox
type Config struct {
	SourceEndpoint      string
	DestinationEndpoint string
	Buckets             []string
	Password            string
	Delay               time.Duration
	Timeout             int
	WorkersPerConn      int
}

func processConfig(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	sandboxConfig = Config{
		SourceEndpoint:      viper.GetString("source-endpoint"),
		DestinationEndpoint: viper.GetString("destination-endpoint"),
		Buckets:             targets.ParseStaticResolver(viper.GetString("buckets")),
		Password:            viper.GetString("rest-password"),
		Delay:               viper.GetDuration("delay"),
		Timeout:             viper.GetInt("timeout"),
		WorkersPerConn:      viper.GetInt("workers-per-conn"),
	}
	if len(sandboxConfig.Buckets) == 0 {
		return targets.ErrNoBuckets
	}
	return nil
}

func run(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := util.GetSerializer()
	if err != nil {
		return err
	}
	src, err := util.GetServerTransport()
	if err != nil {
		return err
	}
	dst, err := util.GetServerTransport()
	if err != nil {
		return err
	}

	sb, err := New(sandboxConfig, src, dst, s)
	if err != nil {
		return err
	}

	server.Logger.Infof("serving %d bucket(s) on %s -> %s (delay %s)",
		len(sandboxConfig.Buckets), sandboxConfig.SourceEndpoint, sandboxConfig.DestinationEndpoint, sandboxConfig.Delay)
	return sb.Run(ctx)
}

// --------------------------------------------------------------------------
// Sandbox
// --------------------------------------------------------------------------

// Sandbox is a source and a destination RPC server with one replicated
// in-memory store per bucket
type Sandbox struct {
	Source      *server.RPCServer
	Destination *server.RPCServer
	links       []*memstore.Link
}

// New registers every bucket on both servers and links the stores
func New(config Config, srcTransport, dstTransport transport.IRPCServerTransport, s serializer.IRPCSerializer) (*Sandbox, error) {
	credentials := make(map[string]string)
	if config.Password != "" {
		for _, bucket := range config.Buckets {
			credentials[bucket] = config.Password
		}
	}

	serverConfig := func(endpoint string) common.ServerConfig {
		return common.ServerConfig{
			TimeoutSecond: config.Timeout,
			Credentials:   credentials,
			Transport: common.ServerTransportConfig{
				Endpoint:       endpoint,
				WorkersPerConn: config.WorkersPerConn,
			},
		}
	}

	sb := &Sandbox{
		Source:      server.NewRPCServer(serverConfig(config.SourceEndpoint), srcTransport, s),
		Destination: server.NewRPCServer(serverConfig(config.DestinationEndpoint), dstTransport, s),
	}

	for _, bucket := range config.Buckets {
		src := memstore.New(bucket + "@source")
		dst := memstore.New(bucket + "@destination")
		if _, err := sb.Source.RegisterBucket(bucket, src); err != nil {
			return nil, err
		}
		if _, err := sb.Destination.RegisterBucket(bucket, dst); err != nil {
			return nil, err
		}
		sb.links = append(sb.links, memstore.Replicate(src, dst, config.Delay))
	}

	return sb, nil
}

// Run serves both clusters until ctx is done or one of the servers fails
func (sb *Sandbox) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := sb.Source.Serve(); err != nil {
			return fmt.Errorf("source: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := sb.Destination.Serve(); err != nil {
			return fmt.Errorf("destination: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		return sb.Close()
	})

	return g.Wait()
}

// Close stops both servers and all replication links
func (sb *Sandbox) Close() error {
	srcErr := sb.Source.Close()
	dstErr := sb.Destination.Close()
	for _, l := range sb.links {
		l.Close()
	}
	if srcErr != nil {
		return srcErr
	}
	return dstErr
}
