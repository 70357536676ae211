package bench

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/GalRogozinski/tangledb/cmd/util"
	"github.com/GalRogozinski/tangledb/lib/common"
	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// BenchCmd runs the storage benchmarks
	BenchCmd = &cobra.Command{
		Use:   "bench",
		Short: "Benchmarks persisting and deleting transactions",
		Long: `Benchmarks persisting and deleting transactions through a tangle.

Every scenario runs on a fresh tangle in its own directory:

  persist       store every transaction one by one
  delete        delete every transaction one by one
  drop-all      clear the transaction column and its metadata
  delete-batch  delete all transactions with a single batch

The column is cleared after every iteration.`,
		PreRunE: processBenchConfig,
		RunE:    run,
	}
	benchOpts = Options{}
)

func init() {
	util.SetupStorageFlags(BenchCmd)

	key := "txs"
	BenchCmd.Flags().Int(key, 1000, util.WrapString("Number of transactions per iteration"))
	key = "iterations"
	BenchCmd.Flags().Int(key, 5, util.WrapString("Number of measured iterations per scenario"))
	key = "warmups"
	BenchCmd.Flags().Int(key, 1, util.WrapString("Number of unmeasured iterations per scenario"))
	key = "skip"
	BenchCmd.Flags().String(key, "", util.WrapString(fmt.Sprintf("Scenarios to skip (comma separated - one of %s)", strings.Join(Scenarios(), ", "))))
	key = "dir"
	BenchCmd.Flags().String(key, "", util.WrapString("Directory for the benchmark data (default: a temporary directory that is removed afterwards)"))
	key = "csv"
	BenchCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processBenchConfig(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	config := util.GetConfig()
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := common.InitLoggers(config); err != nil {
		return err
	}

	benchOpts = Options{
		Txs:        viper.GetInt("txs"),
		Iterations: viper.GetInt("iterations"),
		Warmups:    viper.GetInt("warmups"),
		Dir:        viper.GetString("dir"),
		Config:     config,
	}
	for _, s := range strings.Split(viper.GetString("skip"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			benchOpts.Skip = append(benchOpts.Skip, s)
		}
	}
	return ValidateSkip(benchOpts.Skip)
}

func run(_ *cobra.Command, _ []string) error {
	fmt.Println("Benchmarking tangledb")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(benchOpts.Config.String())
	fmt.Printf("Transactions: %d, Iterations: %d, Warmups: %d\n", benchOpts.Txs, benchOpts.Iterations, benchOpts.Warmups)
	fmt.Println()

	if benchOpts.Dir == "" {
		dir, err := os.MkdirTemp("", "tangledb-bench-")
		if err != nil {
			return err
		}
		defer os.RemoveAll(dir)
		benchOpts.Dir = dir
	}

	fmt.Println("starting benchmarks...")
	registry := metrics.NewRegistry()
	results, err := Run(benchOpts, registry)
	for _, r := range results {
		printResult(r)
	}
	if err != nil {
		return err
	}

	// Write results to csv if specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, benchOpts.Config); err != nil {
			return err
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// printResult prints the result of a scenario in a formatted way
func printResult(r Result) {
	if r.Skipped {
		fmt.Printf("%-16sskipped\n", r.Scenario)
		return
	}
	fmt.Printf("%-16s%s/op (min %s, max %s, p95 %s)\t%s/tx\n", r.Scenario, r.Mean, r.Min, r.Max, r.P95, r.PerTx())
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results []Result, config common.Config) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{
		"Scenario", "Skipped", "Txs", "Iterations",
		"MeanNs", "MinNs", "MaxNs", "P95Ns", "PerTxNs",
		"Providers", "Compression", "Durable", "CacheSizeBytes",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for _, r := range results {
		row := []string{
			r.Scenario,
			strconv.FormatBool(r.Skipped),
			strconv.Itoa(r.Txs),
			strconv.FormatInt(r.Iterations, 10),
			strconv.FormatInt(r.Mean.Nanoseconds(), 10),
			strconv.FormatInt(r.Min.Nanoseconds(), 10),
			strconv.FormatInt(r.Max.Nanoseconds(), 10),
			strconv.FormatInt(r.P95.Nanoseconds(), 10),
			strconv.FormatInt(r.PerTx().Nanoseconds(), 10),
			strings.Join(config.Providers, ";"),
			config.Compression,
			strconv.FormatBool(config.Durable),
			strconv.FormatInt(config.CacheSizeBytes, 10),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for scenario %s: %v", r.Scenario, err)
		}
	}
	writer.Flush()
	return writer.Error()
}
