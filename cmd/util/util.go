package util

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ValentinKolb/xdcrlag/lib/collector"
	"github.com/ValentinKolb/xdcrlag/lib/probe"
	"github.com/ValentinKolb/xdcrlag/lib/store"
	"github.com/ValentinKolb/xdcrlag/lib/targets"
	"github.com/ValentinKolb/xdcrlag/rpc/client"
	"github.com/ValentinKolb/xdcrlag/rpc/common"
	"github.com/ValentinKolb/xdcrlag/rpc/serializer"
	"github.com/ValentinKolb/xdcrlag/rpc/transport"
	"github.com/ValentinKolb/xdcrlag/rpc/transport/http"
	"github.com/ValentinKolb/xdcrlag/rpc/transport/tcp"
	"github.com/ValentinKolb/xdcrlag/rpc/transport/unix"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// EnvPrefix is the prefix of all environment variables read by the cli
	EnvPrefix = "xdcrlag"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// InitConfig loads .env files and makes every flag readable from XDCRLAG_<FLAG>
func InitConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// --------------------------------------------------------------------------
// Store client flags
// --------------------------------------------------------------------------

// SetupRPCClientFlags adds the flags controlling how buckets are opened
func SetupRPCClientFlags(cmd *cobra.Command) {
	key := "timeout"
	cmd.PersistentFlags().Int(key, 10, WrapString("The timeout in seconds of a single store request"))

	key = "transport-conn-per-endpoint"
	cmd.PersistentFlags().Int(key, 1, WrapString("Simultaneous connections per store client - for transports that support this feature"))

	key = "transport-retries"
	cmd.PersistentFlags().Int(key, 3, WrapString("How many times to retry a store request"))

	key = "transport-write-buffer"
	cmd.PersistentFlags().Int(key, 512, WrapString("The size of the write buffer for the transport (in KB, ignored for http)"))

	key = "transport-read-buffer"
	cmd.PersistentFlags().Int(key, 512, WrapString("The size of the read buffer for the transport (in KB, ignored for http)"))

	key = "transport-tcp-nodelay"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY (tcp transport only)"))

	key = "transport-tcp-keepalive"
	cmd.PersistentFlags().Int(key, 0, WrapString("The keepalive interval (in seconds, tcp transport only)"))

	key = "transport-tcp-linger"
	cmd.PersistentFlags().Int(key, -1, WrapString("The linger time (in seconds, tcp transport only, -1 keeps the OS default)"))
}

// GetClientConfig reads the client configuration for one bucket on host from viper
func GetClientConfig(host string, creds targets.Credentials) common.ClientConfig {
	return common.ClientConfig{
		TimeoutSecond: viper.GetInt("timeout"),
		Username:      creds.Username,
		Password:      creds.Password,
		Transport: common.ClientTransportConfig{
			RetryCount:             viper.GetInt("transport-retries"),
			Endpoints:              []string{host},
			ConnectionsPerEndpoint: viper.GetInt("transport-conn-per-endpoint"),
			SocketConf: common.SocketConf{
				WriteBufferSize: viper.GetInt("transport-write-buffer") * 1024,
				ReadBufferSize:  viper.GetInt("transport-read-buffer") * 1024,
			},
			TCPConf: common.TCPConf{
				TCPKeepAliveSec: viper.GetInt("transport-tcp-keepalive"),
				TCPLingerSec:    viper.GetInt("transport-tcp-linger"),
				TCPNoDelay:      viper.GetBool("transport-tcp-nodelay"),
			},
		},
	}
}

// GetSerializer creates a serializer based on configuration
func GetSerializer() (serializer.IRPCSerializer, error) {
	return serializer.New(viper.GetString("serializer"))
}

// GetTransport creates a client transport based on configuration
func GetTransport() (transport.IRPCClientTransport, error) {
	switch viper.GetString("transport") {
	case "http":
		return http.NewHttpClientTransport(), nil
	case "tcp":
		return tcp.NewTCPClientTransport(), nil
	case "unix":
		return unix.NewUnixClientTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

// GetServerTransport creates a server transport based on configuration
func GetServerTransport() (transport.IRPCServerTransport, error) {
	switch viper.GetString("transport") {
	case "http":
		return http.NewHttpServerTransport(), nil
	case "tcp":
		return tcp.NewTCPServerTransport(), nil
	case "unix":
		return unix.NewUnixServerTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

// ClientFactory returns a collector.ClientFactory opening RPC store clients with
// the transport and serializer selected by the flags. Every client gets its own
// transport.
func ClientFactory() (collector.ClientFactory, error) {
	// validate the selection once, before the first connection is attempted
	if _, err := GetSerializer(); err != nil {
		return nil, err
	}
	if _, err := GetTransport(); err != nil {
		return nil, err
	}

	return func(ctx context.Context, host, bucket string, creds targets.Credentials) (store.IClient, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, err := GetSerializer()
		if err != nil {
			return nil, err
		}
		t, err := GetTransport()
		if err != nil {
			return nil, err
		}
		return client.NewRPCStore(bucket, GetClientConfig(host, creds), t, s)
	}, nil
}

// --------------------------------------------------------------------------
// Collector flags
// --------------------------------------------------------------------------

// SetupTargetFlags adds the flags describing the clusters and buckets to probe
func SetupTargetFlags(cmd *cobra.Command) {
	key := "master-node"
	cmd.PersistentFlags().String(key, "localhost:8091", WrapString("Address of the source cluster"))

	key = "dest-master-node"
	cmd.PersistentFlags().String(key, "localhost:8092", WrapString("Address of the destination cluster"))

	key = "rest-password"
	cmd.PersistentFlags().String(key, "", WrapString("Password shared by all buckets, the bucket name is used as username"))

	key = "buckets"
	cmd.PersistentFlags().String(key, "default", WrapString("Comma-separated list of buckets to probe"))

	key = "buckets-file"
	cmd.PersistentFlags().String(key, "", WrapString("YAML file with a 'buckets:' list. Takes precedence over --buckets"))
}

// SetupProbeFlags adds the flags controlling a single measurement
func SetupProbeFlags(cmd *cobra.Command) {
	key := "poll-interval"
	cmd.PersistentFlags().Duration(key, probe.DefaultPollInterval, WrapString("Wait between two reads of the destination"))

	key = "max-poll-interval"
	cmd.PersistentFlags().Duration(key, 0, WrapString("If larger than --poll-interval the interval doubles after every miss up to this value"))

	key = "deadline"
	cmd.PersistentFlags().Duration(key, probe.DefaultDeadline, WrapString("Maximum time to wait for a marker to replicate (0 waits forever)"))

	key = "cleanup-timeout"
	cmd.PersistentFlags().Duration(key, probe.DefaultCleanupTimeout, WrapString("Maximum time to spend removing the marker of a failed measurement"))
}

// GetTargets resolves the configured buckets into collector targets
func GetTargets(ctx context.Context) ([]targets.BucketTarget, error) {
	var resolver targets.BucketResolver = targets.ParseStaticResolver(viper.GetString("buckets"))
	if path := viper.GetString("buckets-file"); path != "" {
		resolver = targets.FileResolver{Path: path}
	}

	return targets.BuildTargets(ctx, resolver, targets.Settings{
		MasterNode:     viper.GetString("master-node"),
		DestMasterNode: viper.GetString("dest-master-node"),
		RestPassword:   viper.GetString("rest-password"),
	})
}

// GetProbeConfig reads the probe configuration from viper
func GetProbeConfig() probe.Config {
	conf := probe.DefaultConfig()
	conf.PollInterval = viper.GetDuration("poll-interval")
	conf.MaxPollInterval = viper.GetDuration("max-poll-interval")
	conf.Deadline = viper.GetDuration("deadline")
	conf.CleanupTimeout = viper.GetDuration("cleanup-timeout")
	return conf
}

// DurationMillis formats d as milliseconds with two decimals
func DurationMillis(d time.Duration) string {
	return fmt.Sprintf("%.2f ms", float64(d)/float64(time.Millisecond))
}
