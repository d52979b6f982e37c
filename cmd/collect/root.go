package collect

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ValentinKolb/xdcrlag/cmd/util"
	"github.com/ValentinKolb/xdcrlag/lib/collector"
	"github.com/ValentinKolb/xdcrlag/lib/sink"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	collectConfig = collector.DefaultConfig()

	// CollectCmd runs the collector until it is interrupted
	CollectCmd = &cobra.Command{
		Use:   "collect",
		Short: "Continuously measure the replication lag of all buckets",
		Long: `Continuously measure the replication lag of all configured buckets.
Samples are exported in the Prometheus format on --metrics-endpoint and a summary
is logged every --report-interval. The command stops on SIGINT or SIGTERM.`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	util.SetupRPCClientFlags(CollectCmd)
	util.SetupTargetFlags(CollectCmd)
	util.SetupProbeFlags(CollectCmd)

	key := "cluster"
	CollectCmd.Flags().String(key, "", util.WrapString("Name of the source cluster attached to every sample (defaults to --master-node)"))

	key = "collector-name"
	CollectCmd.Flags().String(key, collector.DefaultName, util.WrapString("Name of the collector attached to every sample"))

	key = "workers"
	CollectCmd.Flags().Int(key, collector.DefaultWorkers, util.WrapString("Number of parallel probing loops"))

	key = "pool-size"
	CollectCmd.Flags().Int(key, 0, util.WrapString("Connections per bucket and cluster (defaults to --workers)"))

	key = "iterations"
	CollectCmd.Flags().Int(key, 0, util.WrapString("Passes over all buckets per worker, 0 runs until interrupted"))

	key = "failure-backoff"
	CollectCmd.Flags().Duration(key, collector.DefaultFailureBackoff, util.WrapString("Initial pause of a bucket after a failed measurement (0 retries immediately)"))

	key = "max-failure-backoff"
	CollectCmd.Flags().Duration(key, collector.DefaultMaxFailureBackoff, util.WrapString("Upper bound of the doubling failure pause"))

	key = "max-consecutive-failures"
	CollectCmd.Flags().Int(key, 0, util.WrapString("Stop once a bucket failed this often in a row (0 never gives up)"))

	key = "metrics-endpoint"
	CollectCmd.Flags().String(key, ":9273", util.WrapString("Address serving /metrics in the Prometheus format (empty disables it)"))

	key = "report-interval"
	CollectCmd.Flags().Duration(key, time.Minute, util.WrapString("How often a latency summary is logged (0 disables it)"))
}

// processConfig reads the configuration from the command line flags and environment variables
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	collectConfig.Cluster = viper.GetString("cluster")
	if collectConfig.Cluster == "" {
		collectConfig.Cluster = viper.GetString("master-node")
	}
	collectConfig.Name = viper.GetString("collector-name")
	collectConfig.Workers = viper.GetInt("workers")
	collectConfig.PoolSize = viper.GetInt("pool-size")
	collectConfig.Iterations = viper.GetInt("iterations")
	collectConfig.Probe = util.GetProbeConfig()
	collectConfig.Retry = collector.RetryPolicy{
		FailureBackoff:         viper.GetDuration("failure-backoff"),
		MaxFailureBackoff:      viper.GetDuration("max-failure-backoff"),
		MaxConsecutiveFailures: viper.GetInt("max-consecutive-failures"),
	}

	if collectConfig.Workers <= 0 {
		return fmt.Errorf("--workers must be positive, got %d", collectConfig.Workers)
	}
	return nil
}

func run(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bucketTargets, err := util.GetTargets(ctx)
	if err != nil {
		return err
	}

	factory, err := util.ClientFactory()
	if err != nil {
		return err
	}

	vmSink := sink.NewVMSink("")
	summary := sink.NewGoMetricsSink()
	sinks := sink.Multi{vmSink, summary, sink.LogSink{}}

	c, err := collector.New(collectConfig, bucketTargets, factory, sinks)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			collector.Logger.Errorf("closing collector: %v", err)
		}
	}()

	collector.Logger.Infof("collecting replication lag of %d bucket(s)", len(bucketTargets))
	collector.Logger.Infof("%s", c.Config().String())

	if endpoint := viper.GetString("metrics-endpoint"); endpoint != "" {
		srv, err := serveMetrics(endpoint, vmSink)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	go summary.Report(ctx, viper.GetDuration("report-interval"))

	return c.Run(ctx)
}

// serveMetrics starts an HTTP server exposing the samples of s on /metrics
func serveMetrics(endpoint string, s *sink.VMSink) (*http.Server, error) {
	listener, err := net.Listen("tcp", endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", endpoint, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", s.Handler)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sink.Logger.Errorf("metrics endpoint stopped: %v", err)
		}
	}()

	sink.Logger.Infof("serving metrics on http://%s/metrics", listener.Addr())
	return srv, nil
}
