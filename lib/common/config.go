package common

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/GalRogozinski/tangledb/lib/provider"
	"github.com/GalRogozinski/tangledb/lib/provider/engines/lsm"
	"github.com/GalRogozinski/tangledb/lib/provider/engines/memory"
)

// provider kinds accepted in Config.Providers
const (
	ProviderMemory = "memory"
	ProviderLSM    = "lsm"
)

// --------------------------------------------------------------------------
// Tangle configuration struct
// --------------------------------------------------------------------------

// Config holds all configuration parameters of a tangle and its providers.
type Config struct {
	// Storage locations
	DataDir string // sstables and manifest of the lsm provider
	LogDir  string // write-ahead log of the lsm provider ("" = DataDir)

	// lsm provider parameters
	CacheSizeBytes int64  // block cache budget, a performance hint only
	Durable        bool   // fsync the write-ahead log on every write
	Compression    string // none, snappy or zstd

	// Providers in registration order, e.g. ["memory", "lsm"]
	Providers []string

	// memory provider snapshot file ("" = no persistence)
	SnapshotPath string

	// Logging configuration
	LogLevel string
}

// DefaultConfig returns the default configuration: a single durable lsm provider.
func DefaultConfig() Config {
	return Config{
		DataDir:        "tangledb-data",
		LogDir:         "",
		CacheSizeBytes: 64 << 20,
		Durable:        true,
		Compression:    "snappy",
		Providers:      []string{ProviderLSM},
		LogLevel:       "info",
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("at least one provider is required")
	}
	seen := make(map[string]bool, len(c.Providers))
	for _, p := range c.Providers {
		kind := strings.ToLower(strings.TrimSpace(p))
		switch kind {
		case ProviderMemory, ProviderLSM:
		default:
			return fmt.Errorf("unknown provider %q (must be one of %s, %s)", p, ProviderMemory, ProviderLSM)
		}
		if seen[kind] {
			return fmt.Errorf("provider %q is listed more than once", kind)
		}
		seen[kind] = true
	}
	if seen[ProviderLSM] && c.DataDir == "" {
		return fmt.Errorf("data directory is required for the %s provider", ProviderLSM)
	}
	if c.CacheSizeBytes < 0 {
		return fmt.Errorf("cache size must not be negative")
	}
	if _, err := lsm.ParseCompression(c.Compression); err != nil {
		return err
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// String returns a formatted string representation of the configuration
func (c *Config) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Providers")
	for i, p := range c.Providers {
		addField(fmt.Sprintf("%d", i), p)
	}

	addSection("Storage")
	addField("Data Directory", c.DataDir)
	logDir := c.LogDir
	if logDir == "" {
		logDir = c.DataDir + " (data directory)"
	}
	addField("Log Directory", logDir)
	addField("Cache Size", fmt.Sprintf("%d MB", c.CacheSizeBytes>>20))
	addField("Durable", fmt.Sprintf("%t", c.Durable))
	addField("Compression", c.Compression)

	snapshot := c.SnapshotPath
	if snapshot == "" {
		snapshot = "disabled"
	}
	addSection("Memory Provider")
	addField("Snapshot File", snapshot)

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// Provider construction
// --------------------------------------------------------------------------

// BuildProviders creates the (unopened) providers listed in the configuration,
// in the configured order. Each provider is named after its kind.
func BuildProviders(c Config) ([]provider.Provider, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	compression, _ := lsm.ParseCompression(c.Compression)

	providers := make([]provider.Provider, 0, len(c.Providers))
	for _, p := range c.Providers {
		switch kind := strings.ToLower(strings.TrimSpace(p)); kind {
		case ProviderMemory:
			providers = append(providers, memory.New(kind, &memory.Options{
				SnapshotPath: c.SnapshotPath,
			}))
		case ProviderLSM:
			logDir := c.LogDir
			if logDir != "" {
				logDir = filepath.Clean(logDir)
			}
			providers = append(providers, lsm.New(kind, &lsm.Options{
				DataDir:        filepath.Clean(c.DataDir),
				LogDir:         logDir,
				CacheSizeBytes: c.CacheSizeBytes,
				Durable:        c.Durable,
				Compression:    compression,
			}))
		}
	}
	return providers, nil
}
