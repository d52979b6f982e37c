package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/xdcrlag/cmd/collect"
	"github.com/ValentinKolb/xdcrlag/cmd/probe"
	"github.com/ValentinKolb/xdcrlag/cmd/sandbox"
	"github.com/ValentinKolb/xdcrlag/cmd/util"
	"github.com/ValentinKolb/xdcrlag/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "xdcrlag",
		Short: "cross datacenter replication lag collector",
		Long: fmt.Sprintf(`xdcrlag (v%s)

Measures how long a write on a source cluster takes to become visible
on a destination cluster by writing marker keys and polling for them.
Every flag can also be set as XDCRLAG_<FLAG> environment variable
(e.g. XDCRLAG_REST_PASSWORD) or in a .env file.`, Version),
		SilenceUsage:      true,
		PersistentPreRunE: initLogging,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of xdcrlag",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("xdcrlag v%s\n", Version)
		},
	}
)

func init() {
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(collect.CollectCmd)
	RootCmd.AddCommand(probe.ProbeCmd)
	RootCmd.AddCommand(sandbox.SandboxCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "binary", util.WrapString("serializer to use (json, gob, binary)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "tcp", util.WrapString("transport to use (http, tcp, unix)"))
	key = "log-level"
	RootCmd.PersistentFlags().String(key, "info", util.WrapString("level at which logs will be output (debug, info, warn, error)"))
}

// initLogging binds the flags and configures all loggers before any command runs
func initLogging(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	return common.InitLoggers(viper.GetString("log-level"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
