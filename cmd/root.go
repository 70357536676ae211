package cmd

import (
	"fmt"
	"os"

	"github.com/GalRogozinski/tangledb/cmd/bench"
	"github.com/GalRogozinski/tangledb/cmd/kv"
	"github.com/GalRogozinski/tangledb/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "tangledb",
		Short: "column-oriented storage for tangle transactions",
		Long: fmt.Sprintf(`tangledb (v%s)

A column-oriented storage layer for tangle transactions written in Go.
Reads are answered by the first of several persistence providers holding
a key, writes and deletes are applied to all of them.

All flags can also be set with environment variables prefixed with
TANGLE_ (e.g. TANGLE_DATA_DIR), or in a .env file.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of tangledb",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tangledb v%s\n", Version)
		},
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(bench.BenchCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
