package kv

import (
	"github.com/GalRogozinski/tangledb/cmd/util"
	"github.com/GalRogozinski/tangledb/lib/tangle"
	"github.com/spf13/cobra"
)

var (
	tg *tangle.Tangle

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:               "kv",
		Short:             "Perform operations on the columns of a tangle",
		PersistentPreRunE: openTangle,
	}
)

func init() {
	util.SetupStorageFlags(KeyValueCommands)

	// Add subcommands
	KeyValueCommands.AddCommand(storeCmd)
	KeyValueCommands.AddCommand(loadCmd)
	KeyValueCommands.AddCommand(deleteCmd)
	KeyValueCommands.AddCommand(clearCmd)
	KeyValueCommands.AddCommand(clearMetaCmd)
	KeyValueCommands.AddCommand(scanCmd)
	KeyValueCommands.AddCommand(statsCmd)
}

// openTangle opens the tangle with the providers given by the flags
func openTangle(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	var err error
	tg, err = util.OpenTangle(util.GetConfig())
	return err
}

// withTangle wraps a command so that the tangle is shut down after it ran,
// whether it failed or not
func withTangle(fn func(cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := fn(cmd, args)
		err = util.CloseTangle(tg, err)
		tg = nil
		return err
	}
}
