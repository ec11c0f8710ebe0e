package cmd

import (
	"fmt"
	"github.com/ValentinKolb/dCRUD/cmd/perf"
	"github.com/ValentinKolb/dCRUD/cmd/util"
	"github.com/ValentinKolb/dCRUD/lib/common"
	"github.com/spf13/cobra"
	"os"
)

const (
	Version = "0.1.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dcrud",
		Short: "actor-style CRUD dispatcher over pooled connections",
		Long: fmt.Sprintf(`dCRUD (v%s)

A Go library that funnels CRUD requests through dispatchers owning a bounded
connection pool. Every request carries a single-use reply slot, so callers
never check out connections themselves.`, Version),
		PersistentPreRunE: setupLogging,
		SilenceUsage:      true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dCRUD",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dCRUD v%s\n", Version)
		},
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(perf.PerfCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	util.SetupLogFlags(RootCmd)
}

// setupLogging installs the loggers before any subcommand runs
func setupLogging(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	return common.InitLoggers(util.GetLogConfig())
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
