package probe

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/ValentinKolb/xdcrlag/cmd/util"
	"github.com/ValentinKolb/xdcrlag/lib/collector"
	"github.com/ValentinKolb/xdcrlag/lib/probe"
	"github.com/ValentinKolb/xdcrlag/lib/sink"
	"github.com/ValentinKolb/xdcrlag/lib/targets"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// ProbeCmd measures every bucket a fixed number of times and prints the results
	ProbeCmd = &cobra.Command{
		Use:   "probe",
		Short: "Measure the replication lag of every bucket once",
		Long: `Measure the replication lag of every configured bucket --count times and
print the samples. With --simulate no cluster is contacted: every bucket is
replicated between two in-memory stores with --simulate-delay.`,
		PreRunE: processConfig,
		RunE:    run,
	}
	probeCount    = 1
	probeSimulate = false
	probeDelay    = 100 * time.Millisecond
)

func init() {
	util.SetupRPCClientFlags(ProbeCmd)
	util.SetupTargetFlags(ProbeCmd)
	util.SetupProbeFlags(ProbeCmd)

	key := "count"
	ProbeCmd.Flags().Int(key, 1, util.WrapString("How often every bucket is measured"))
	key = "simulate"
	ProbeCmd.Flags().Bool(key, false, util.WrapString("Probe in-memory clusters instead of the configured ones"))
	key = "simulate-delay"
	ProbeCmd.Flags().Duration(key, 100*time.Millisecond, util.WrapString("Replication delay of the simulated clusters"))
	key = "csv"
	ProbeCmd.Flags().String(key, "", util.WrapString("Optional path to save the samples as CSV"))
}

func processConfig(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	probeCount = viper.GetInt("count")
	probeSimulate = viper.GetBool("simulate")
	probeDelay = viper.GetDuration("simulate-delay")

	if probeCount <= 0 {
		return fmt.Errorf("--count must be positive, got %d", probeCount)
	}
	return nil
}

func run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	bucketTargets, err := util.GetTargets(ctx)
	if err != nil {
		return err
	}

	var factory collector.ClientFactory
	if probeSimulate {
		sim := newSimulation(bucketTargets, probeDelay)
		defer sim.Close()
		factory = sim.ClientFactory
		fmt.Printf("Simulating %d bucket(s) with a replication delay of %s\n", len(bucketTargets), probeDelay)
	} else {
		if factory, err = util.ClientFactory(); err != nil {
			return err
		}
	}

	config := collector.DefaultConfig()
	config.Workers = 1
	config.Iterations = probeCount
	config.Probe = util.GetProbeConfig()
	// one pass per bucket and iteration: a failing bucket is reported, not retried
	config.Retry = collector.RetryPolicy{}

	results, stats, err := measure(ctx, config, bucketTargets, factory)
	if err != nil {
		return err
	}

	fmt.Println()
	printResults(os.Stdout, results, stats)

	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting samples to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results); err != nil {
			return fmt.Errorf("failed to export samples to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// recorder is a sink keeping every sample in memory
type recorder struct {
	mu      sync.Mutex
	samples []probe.Sample
}

func (r *recorder) Append(sample probe.Sample, _ sink.Tags) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, sample)
	return nil
}

// measure runs a single worker over all targets and returns the recorded samples
// together with the per bucket counters
func measure(ctx context.Context, config collector.Config, bucketTargets []targets.BucketTarget, factory collector.ClientFactory) ([]probe.Sample, []collector.BucketStats, error) {
	rec := &recorder{}
	c, err := collector.New(config, bucketTargets, factory, rec)
	if err != nil {
		return nil, nil, err
	}
	defer c.Close()

	if err := c.Run(ctx); err != nil {
		return nil, nil, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.samples, c.Stats(), nil
}

// printResults prints one line per sample followed by one line per failing bucket
func printResults(w io.Writer, samples []probe.Sample, stats []collector.BucketStats) {
	fmt.Fprintf(w, "%-20s%-14s%s\n", "BUCKET", "LAG", "KEY")
	for _, s := range samples {
		fmt.Fprintf(w, "%-20s%-14s%s\n", s.Bucket, util.DurationMillis(s.Latency), s.Key)
	}

	for _, st := range stats {
		if st.Failures == 0 {
			continue
		}
		fmt.Fprintf(w, "%-20sfailed %d time(s): %s\n", st.Bucket, st.Failures, st.LastError)
	}
}

// writeResultsToCSV writes the samples to a CSV file
func writeResultsToCSV(csvPath string, samples []probe.Sample) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{
		"Bucket", "Key", "LatencyMs", "Timestamp",
		"Serializer", "Transport", "PollInterval", "Simulated",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for _, s := range samples {
		row := []string{
			s.Bucket,
			s.Key,
			strconv.FormatFloat(s.Milliseconds(), 'f', 3, 64),
			s.Timestamp.Format(time.RFC3339Nano),
			viper.GetString("serializer"),
			viper.GetString("transport"),
			viper.GetDuration("poll-interval").String(),
			strconv.FormatBool(probeSimulate),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for bucket %s: %v", s.Bucket, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
