package kv

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/GalRogozinski/tangledb/cmd/util"
	"github.com/GalRogozinski/tangledb/lib/model"
	"github.com/GalRogozinski/tangledb/lib/provider"
	"github.com/spf13/cobra"
)

var (
	storeCmd = &cobra.Command{
		Use:   "store [column] [key] [value]",
		Short: "Stores a value under a key in every provider",
		Args:  cobra.ExactArgs(3),
		RunE: withTangle(func(cmd *cobra.Command, args []string) error {
			column, err := model.ParseColumn(args[0])
			if err != nil {
				return err
			}
			meta, _ := cmd.Flags().GetString("meta")

			var metaBytes []byte
			if meta != "" {
				metaBytes = []byte(meta)
			}
			if err := tg.Store(model.Indexable(args[1]), model.NewRecord(column, []byte(args[2]), metaBytes)); err != nil {
				return err
			}
			fmt.Println("stored successfully")
			return nil
		}),
	}
	loadCmd = &cobra.Command{
		Use:   "load [column] [key]",
		Short: "Reads the value of a key from the first provider holding it",
		Args:  cobra.ExactArgs(2),
		RunE: withTangle(func(cmd *cobra.Command, args []string) error {
			column, err := model.ParseColumn(args[0])
			if err != nil {
				return err
			}
			v, ok, err := tg.Load(column, model.Indexable(args[1]))
			if err != nil {
				return err
			}
			printValue(args[1], ok, v)
			return nil
		}),
	}
	deleteCmd = &cobra.Command{
		Use:   "delete [column] [key]",
		Short: "Deletes a key from every provider",
		Args:  cobra.ExactArgs(2),
		RunE: withTangle(func(cmd *cobra.Command, args []string) error {
			column, err := model.ParseColumn(args[0])
			if err != nil {
				return err
			}
			if err := tg.Delete(column, model.Indexable(args[1])); err != nil {
				return err
			}
			fmt.Println("deleted successfully")
			return nil
		}),
	}
	clearCmd = &cobra.Command{
		Use:   "clear [column]",
		Short: "Removes all payloads of a column",
		Args:  cobra.ExactArgs(1),
		RunE: withTangle(func(cmd *cobra.Command, args []string) error {
			column, err := model.ParseColumn(args[0])
			if err != nil {
				return err
			}
			if err := tg.ClearColumn(column); err != nil {
				return err
			}
			fmt.Printf("column %s cleared\n", column)
			return nil
		}),
	}
	clearMetaCmd = &cobra.Command{
		Use:   "clear-meta [column]",
		Short: "Removes the metadata of all values in a column",
		Args:  cobra.ExactArgs(1),
		RunE: withTangle(func(cmd *cobra.Command, args []string) error {
			column, err := model.ParseColumn(args[0])
			if err != nil {
				return err
			}
			if err := tg.ClearMetadata(column); err != nil {
				return err
			}
			fmt.Printf("metadata of column %s cleared\n", column)
			return nil
		}),
	}
	scanCmd = &cobra.Command{
		Use:   "scan [column]",
		Short: "Lists the keys of a column in byte order",
		Args:  cobra.ExactArgs(1),
		RunE: withTangle(func(cmd *cobra.Command, args []string) error {
			column, err := model.ParseColumn(args[0])
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			values, _ := cmd.Flags().GetBool("values")

			n := 0
			err = tg.Scan(column, func(key model.Indexable, v model.Value) bool {
				if values {
					printValue(string(key), true, v)
				} else {
					fmt.Println(key)
				}
				n++
				return limit <= 0 || n < limit
			})
			if err != nil {
				return err
			}
			fmt.Printf("%d keys\n", n)
			return nil
		}),
	}
	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Prints information about the configured providers",
		Args:  cobra.NoArgs,
		RunE: withTangle(func(cmd *cobra.Command, args []string) error {
			withMetrics, _ := cmd.Flags().GetBool("metrics")

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(struct {
				State     string          `json:"state"`
				Columns   int             `json:"columns"`
				Providers []provider.Info `json:"providers"`
			}{
				State:     tg.State().String(),
				Columns:   len(model.AllColumns()),
				Providers: tg.Info(),
			}); err != nil {
				return err
			}

			if withMetrics {
				fmt.Println()
				tg.WriteMetrics(os.Stdout)
			}
			return nil
		}),
	}
)

func init() {
	storeCmd.Flags().String("meta", "", util.WrapString("Metadata to store alongside the value"))
	scanCmd.Flags().Int("limit", 0, util.WrapString("Stop after this many keys (0 = no limit)"))
	scanCmd.Flags().Bool("values", false, util.WrapString("Print the values alongside the keys"))
	statsCmd.Flags().Bool("metrics", false, util.WrapString("Also print the operation metrics in Prometheus text format"))
}

func printValue(key string, found bool, v model.Value) {
	if !found {
		fmt.Printf("key=%s, found=false\n", key)
		return
	}
	fmt.Printf("key=%s, found=true, value=%s, meta=%s\n", key, v.Payload, v.Metadata)
}
