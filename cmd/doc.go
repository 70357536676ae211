// Package cmd implements the command-line interface of tangledb.
//
// The package is organized into several subpackages:
//
//   - kv: Commands operating on the columns of a tangle (store, load, delete, clear, scan, stats)
//   - bench: Benchmarks persisting and deleting generated transactions
//   - util: Shared utilities for flags, configuration and opening a tangle (internal use)
//
// The providers of a tangle are chosen with the --providers flag, e.g.
//
//	tangledb kv store transaction ABC999 payload --providers memory,lsm --data-dir ./data
//
// See tangledb -help for a list of all commands.
package cmd
