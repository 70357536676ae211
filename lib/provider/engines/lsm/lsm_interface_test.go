package lsm

import (
	"errors"
	"testing"

	"github.com/GalRogozinski/tangledb/lib/model"
	"github.com/GalRogozinski/tangledb/lib/provider"
	providertesting "github.com/GalRogozinski/tangledb/lib/provider/testing"
	"github.com/cockroachdb/pebble/vfs"
)

func memOptions(c Compression) *Options {
	return &Options{
		DataDir:        "/data",
		LogDir:         "/wal",
		CacheSizeBytes: 8 << 20,
		Durable:        true,
		Compression:    c,
		FS:             vfs.NewMem(),
	}
}

func Test(t *testing.T) {
	providertesting.RunProviderTests(t, "LSM", func() provider.Provider {
		return New("lsm-test", memOptions(CompressionNone))
	})
	providertesting.RunProviderTests(t, "LSM(snappy)", func() provider.Provider {
		return New("lsm-test", memOptions(CompressionSnappy))
	})
	providertesting.RunProviderTests(t, "LSM(zstd)", func() provider.Provider {
		return New("lsm-test", memOptions(CompressionZstd))
	})
}

func Benchmark(b *testing.B) {
	providertesting.RunProviderBenchmarks(b, "LSM", func() provider.Provider {
		opts := memOptions(CompressionSnappy)
		opts.Durable = false
		return New("lsm-bench", opts)
	})
}

func TestReopenKeepsData(t *testing.T) {
	opts := memOptions(CompressionZstd)
	columns := []model.ColumnID{model.ColumnTransaction, model.ColumnBundle}

	p := New("lsm-reopen", opts)
	if err := p.Open(columns); err != nil {
		t.Fatalf("Unexpected error during Open: %v", err)
	}
	want := model.Value{Payload: []byte("payload"), Metadata: []byte("meta")}
	if err := p.Put(model.ColumnBundle, "bundle-1", want); err != nil {
		t.Fatalf("Unexpected error during Put: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Unexpected error during Close: %v", err)
	}

	// a second instance on the same filesystem sees the data
	p2 := New("lsm-reopen", opts)
	if err := p2.Open(columns); err != nil {
		t.Fatalf("Unexpected error during reopen: %v", err)
	}
	defer p2.Close()

	got, ok, err := p2.Get(model.ColumnBundle, "bundle-1")
	if err != nil || !ok {
		t.Fatalf("Expected record after reopen, got ok=%v err=%v", ok, err)
	}
	if !got.Equal(want) {
		t.Errorf("Unexpected value after reopen: %s/%s", got.Payload, got.Metadata)
	}
}

func TestDurableFeature(t *testing.T) {
	durable := New("a", memOptions(CompressionNone))
	if !durable.SupportsFeature(provider.FeatureDurable) {
		t.Errorf("Durable provider should advertise FeatureDurable")
	}
	opts := memOptions(CompressionNone)
	opts.Durable = false
	if New("b", opts).SupportsFeature(provider.FeatureDurable) {
		t.Errorf("Non-durable provider must not advertise FeatureDurable")
	}
	if durable.SupportsFeature(provider.FeatureSnapshot) {
		t.Errorf("LSM provider does not support snapshots")
	}
}

func TestCorruptRecord(t *testing.T) {
	opts := memOptions(CompressionNone)
	p := New("lsm-corrupt", opts)
	if err := p.Open([]model.ColumnID{model.ColumnTransaction}); err != nil {
		t.Fatalf("Unexpected error during Open: %v", err)
	}
	defer p.Close()

	// write a record that bypasses the codec
	impl := p.(*lsmImpl)
	bad := impl.codec.encode([]byte("original"))
	bad[len(bad)-1] ^= 0xff
	if err := impl.db.Set(engineKey(model.ColumnTransaction, kindPayload, "k"), bad, nil); err != nil {
		t.Fatal(err)
	}

	_, _, err := p.Get(model.ColumnTransaction, "k")
	if !errors.Is(err, provider.ErrStorageRead) {
		t.Errorf("Expected StorageRead for a corrupt record, got %v", err)
	}
	err = p.Scan(model.ColumnTransaction, func(model.Indexable, model.Value) bool { return true })
	if !errors.Is(err, provider.ErrStorageRead) {
		t.Errorf("Expected StorageRead from Scan over a corrupt record, got %v", err)
	}
}

func TestOpenFailure(t *testing.T) {
	p := New("lsm-bad", memOptions(CompressionNone))
	err := p.Open([]model.ColumnID{0})
	if !errors.Is(err, provider.ErrStorageInit) {
		t.Errorf("Expected StorageInit for an invalid column, got %v", err)
	}
}
