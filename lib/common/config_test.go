package common

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/GalRogozinski/tangledb/lib/provider"
	"github.com/lni/dragonboat/v4/logger"
)

func TestConfigValidate(t *testing.T) {
	valid := DefaultConfig()
	if err := valid.Validate(); err != nil {
		t.Fatalf("Default config should be valid, got %v", err)
	}

	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"NoProviders", func(c *Config) { c.Providers = nil }},
		{"UnknownProvider", func(c *Config) { c.Providers = []string{"rocksdb"} }},
		{"DuplicateProvider", func(c *Config) { c.Providers = []string{"lsm", " LSM "} }},
		{"MissingDataDir", func(c *Config) { c.DataDir = "" }},
		{"NegativeCache", func(c *Config) { c.CacheSizeBytes = -1 }},
		{"UnknownCompression", func(c *Config) { c.Compression = "lz4" }},
		{"UnknownLogLevel", func(c *Config) { c.LogLevel = "verbose" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.modify(&c)
			if err := c.Validate(); err == nil {
				t.Errorf("Expected validation error")
			}
		})
	}

	memOnly := DefaultConfig()
	memOnly.Providers = []string{"memory"}
	memOnly.DataDir = ""
	if err := memOnly.Validate(); err != nil {
		t.Errorf("Memory-only config needs no data directory, got %v", err)
	}
}

func TestBuildProviders(t *testing.T) {
	c := DefaultConfig()
	c.Providers = []string{"memory", "lsm"}
	c.DataDir = t.TempDir()
	c.Durable = false

	providers, err := BuildProviders(c)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(providers) != 2 {
		t.Fatalf("Expected 2 providers, got %d", len(providers))
	}
	if providers[0].Name() != "memory" || providers[0].GetInfo().Impl != provider.ImplMemory {
		t.Errorf("Expected memory provider first, got %s", providers[0].Name())
	}
	if providers[1].Name() != "lsm" || providers[1].GetInfo().Impl != provider.ImplLSM {
		t.Errorf("Expected lsm provider second, got %s", providers[1].Name())
	}
	if providers[1].SupportsFeature(provider.FeatureDurable) {
		t.Errorf("Durable=false must be passed to the lsm provider")
	}

	c.Providers = []string{"unknown"}
	if _, err := BuildProviders(c); err == nil {
		t.Errorf("Expected error for an invalid config")
	}
}

func TestConfigString(t *testing.T) {
	c := DefaultConfig()
	c.Providers = []string{"memory", "lsm"}
	out := c.String()
	for _, want := range []string{"PROVIDERS", "STORAGE", "LOGGING", "memory", "lsm", "64 MB", "(data directory)", "disabled"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in config string:\n%s", want, out)
		}
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	l := &tangleLogger{name: "tangle", level: logger.WARNING, logger: log.New(&buf, "", 0)}

	l.Infof("hidden %d", 1)
	l.Warningf("shown %d", 2)
	l.Errorf("shown %d", 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Info must be filtered at warning level:\n%s", out)
	}
	if !strings.Contains(out, "WARN  | tangle   | shown 2") || !strings.Contains(out, "ERROR | tangle   | shown 3") {
		t.Errorf("Unexpected log output:\n%s", out)
	}

	defer func() {
		if recover() == nil {
			t.Errorf("Panicf must panic")
		}
	}()
	l.Panicf("boom")
}

func TestParseLogLevel(t *testing.T) {
	for in, want := range map[string]logger.LogLevel{
		"debug": logger.DEBUG, "INFO": logger.INFO, "warn": logger.WARNING, "warning": logger.WARNING, " error ": logger.ERROR,
	} {
		got, err := ParseLogLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLogLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLogLevel("trace"); err == nil {
		t.Errorf("Expected error for unknown level")
	}
}

func TestInitLoggersRepeated(t *testing.T) {
	config := DefaultConfig()
	for i, level := range []string{"info", "error", "debug"} {
		config.LogLevel = level
		if err := InitLoggers(config); err != nil {
			t.Fatalf("InitLoggers call %d failed: %v", i+1, err)
		}
	}

	config.LogLevel = "trace"
	if err := InitLoggers(config); err == nil {
		t.Errorf("Expected error for unknown level")
	}
}
