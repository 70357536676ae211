package util

import (
	"fmt"
	"strings"

	"github.com/GalRogozinski/tangledb/lib/common"
	"github.com/GalRogozinski/tangledb/lib/tangle"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// EnvPrefix is the prefix of all environment variables read by the CLI
	EnvPrefix = "tangle"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		if lineWidth > 0 && lineWidth+1+len(word) > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}
		currentLine.WriteString(word)
		lineWidth += len(word)
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupStorageFlags adds the provider and storage flags to a command
func SetupStorageFlags(cmd *cobra.Command) {
	defaults := common.DefaultConfig()

	key := "providers"
	cmd.PersistentFlags().String(key, strings.Join(defaults.Providers, ","), WrapString("Providers in lookup order, comma separated (memory, lsm). The first provider holding a key answers loads"))

	key = "data-dir"
	cmd.PersistentFlags().String(key, defaults.DataDir, WrapString("Data directory of the lsm provider"))

	key = "log-dir"
	cmd.PersistentFlags().String(key, defaults.LogDir, WrapString("Write-ahead log directory of the lsm provider (defaults to the data directory)"))

	key = "cache-size"
	cmd.PersistentFlags().Int64(key, defaults.CacheSizeBytes>>20, WrapString("Block cache size of the lsm provider (in MB)"))

	key = "durable"
	cmd.PersistentFlags().Bool(key, defaults.Durable, WrapString("Sync the write-ahead log on every write"))

	key = "compression"
	cmd.PersistentFlags().String(key, defaults.Compression, WrapString("Record compression of the lsm provider (none, snappy, zstd)"))

	key = "snapshot"
	cmd.PersistentFlags().String(key, defaults.SnapshotPath, WrapString("Snapshot file of the memory provider. Loaded on start and written on shutdown (empty = no persistence)"))

	key = "log-level"
	cmd.PersistentFlags().String(key, defaults.LogLevel, WrapString("Log level (debug, info, warning, error)"))
}

// InitConfig initializes configuration from environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetConfig reads the tangle configuration from viper
func GetConfig() common.Config {
	var providers []string
	for _, p := range strings.Split(viper.GetString("providers"), ",") {
		if p = strings.TrimSpace(p); p != "" {
			providers = append(providers, p)
		}
	}

	return common.Config{
		DataDir:        viper.GetString("data-dir"),
		LogDir:         viper.GetString("log-dir"),
		CacheSizeBytes: viper.GetInt64("cache-size") << 20,
		Durable:        viper.GetBool("durable"),
		Compression:    viper.GetString("compression"),
		Providers:      providers,
		SnapshotPath:   viper.GetString("snapshot"),
		LogLevel:       viper.GetString("log-level"),
	}
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// OpenTangle initializes the loggers, builds the configured providers and
// returns an initialized tangle.
func OpenTangle(config common.Config, opts ...tangle.Option) (*tangle.Tangle, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := common.InitLoggers(config); err != nil {
		return nil, err
	}

	providers, err := common.BuildProviders(config)
	if err != nil {
		return nil, err
	}

	t := tangle.New(opts...)
	for _, p := range providers {
		if err := t.AddProvider(p); err != nil {
			return nil, err
		}
	}
	if err := t.Init(); err != nil {
		return nil, err
	}
	return t, nil
}

// CloseTangle shuts the tangle down, combining the shutdown error with err.
func CloseTangle(t *tangle.Tangle, err error) error {
	if t == nil {
		return err
	}
	return multierr.Append(err, t.Shutdown())
}
