package memory

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/GalRogozinski/tangledb/lib/model"
	"github.com/GalRogozinski/tangledb/lib/provider"
)

func TestSnapshotFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "memory.snapshot")
	columns := []model.ColumnID{model.ColumnTransaction, model.ColumnTag}

	t.Run("MissingFileStartsEmpty", func(t *testing.T) {
		p := New("mem", &Options{SnapshotPath: path})
		if err := p.Open(columns); err != nil {
			t.Fatalf("Unexpected error during Open: %v", err)
		}
		if _, ok, _ := p.Get(model.ColumnTransaction, "A"); ok {
			t.Errorf("Expected empty provider")
		}
		if err := p.Put(model.ColumnTransaction, "A", model.Value{Payload: []byte("tx"), Metadata: []byte("meta")}); err != nil {
			t.Fatalf("Unexpected error during Put: %v", err)
		}
		if err := p.Put(model.ColumnTag, "T", model.Value{Payload: []byte("tag")}); err != nil {
			t.Fatalf("Unexpected error during Put: %v", err)
		}
		if err := p.Close(); err != nil {
			t.Fatalf("Unexpected error during Close: %v", err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("Expected snapshot file to exist: %v", err)
		}
	})

	t.Run("RestoredOnOpen", func(t *testing.T) {
		p := New("mem", &Options{SnapshotPath: path})
		// the tag column is not opened this time, its records are skipped
		if err := p.Open([]model.ColumnID{model.ColumnTransaction}); err != nil {
			t.Fatalf("Unexpected error during Open: %v", err)
		}
		defer p.Close()

		v, ok, err := p.Get(model.ColumnTransaction, "A")
		if err != nil || !ok {
			t.Fatalf("Expected restored record, got ok=%v err=%v", ok, err)
		}
		if !v.Equal(model.Value{Payload: []byte("tx"), Metadata: []byte("meta")}) {
			t.Errorf("Unexpected restored value %s/%s", v.Payload, v.Metadata)
		}
		if _, _, err := p.Get(model.ColumnTag, "T"); !errors.Is(err, provider.ErrInvalidArgument) {
			t.Errorf("Expected InvalidArgument for unopened column, got %v", err)
		}
	})

	t.Run("ReopenSameInstance", func(t *testing.T) {
		p := New("mem", &Options{SnapshotPath: path})
		if err := p.Open(columns); err != nil {
			t.Fatalf("Unexpected error during Open: %v", err)
		}
		if err := p.Put(model.ColumnTag, "T2", model.Value{Payload: []byte("tag")}); err != nil {
			t.Fatalf("Unexpected error during Put: %v", err)
		}
		if err := p.ClearColumn(model.ColumnTransaction); err != nil {
			t.Fatalf("Unexpected error during ClearColumn: %v", err)
		}
		if err := p.Close(); err != nil {
			t.Fatalf("Unexpected error during Close: %v", err)
		}
		if err := p.Open(columns); err != nil {
			t.Fatalf("Unexpected error during reopen: %v", err)
		}
		defer p.Close()
		if _, ok, _ := p.Get(model.ColumnTransaction, "A"); ok {
			t.Errorf("Cleared record must not be restored")
		}
		if _, ok, _ := p.Get(model.ColumnTag, "T2"); !ok {
			t.Errorf("Expected tag record to be restored")
		}
	})

	t.Run("CorruptFile", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.snapshot")
		if err := os.WriteFile(bad, []byte("TANGLEDB\x09garbage"), 0o644); err != nil {
			t.Fatal(err)
		}
		p := New("mem", &Options{SnapshotPath: bad})
		err := p.Open(columns)
		if !errors.Is(err, provider.ErrStorageInit) {
			t.Errorf("Expected StorageInit for a corrupt snapshot, got %v", err)
		}
		if _, _, err := p.Get(model.ColumnTransaction, "A"); !errors.Is(err, provider.ErrNotInitialized) {
			t.Errorf("Failed Open must leave the provider unopened, got %v", err)
		}
	})

	t.Run("CorruptLength", func(t *testing.T) {
		var data bytes.Buffer
		data.WriteString(magicNum)
		data.WriteByte(snapshotVersion)
		_ = binary.Write(&data, binary.LittleEndian, uint16(1))
		data.WriteByte(byte(model.ColumnTransaction))
		_ = binary.Write(&data, binary.LittleEndian, uint64(1))
		_ = binary.Write(&data, binary.LittleEndian, uint32(math.MaxUint32)) // key length
		data.WriteString("abc")

		bad := filepath.Join(t.TempDir(), "length.snapshot")
		if err := os.WriteFile(bad, data.Bytes(), 0o644); err != nil {
			t.Fatal(err)
		}

		var before, after runtime.MemStats
		runtime.ReadMemStats(&before)
		p := New("mem", &Options{SnapshotPath: bad})
		err := p.Open(columns)
		runtime.ReadMemStats(&after)

		if !errors.Is(err, provider.ErrStorageInit) {
			t.Errorf("Expected StorageInit for a truncated record, got %v", err)
		}
		if grown := after.TotalAlloc - before.TotalAlloc; grown > 64<<20 {
			t.Errorf("Open allocated %d MB for a %d byte snapshot", grown>>20, data.Len())
		}
	})
}

func TestSnapshotDeterministic(t *testing.T) {
	columns := []model.ColumnID{model.ColumnTransaction, model.ColumnAddress}
	write := func() []byte {
		p := New("mem", nil)
		if err := p.Open(columns); err != nil {
			t.Fatal(err)
		}
		defer p.Close()
		for _, k := range model.GenerateKeys(200, 81) {
			_ = p.Put(model.ColumnTransaction, k, model.Value{Payload: []byte(k[:3])})
			_ = p.Put(model.ColumnAddress, k, model.Value{Payload: []byte("addr"), Metadata: []byte(k[:2])})
		}
		var buf bytes.Buffer
		if err := p.(provider.Snapshotter).Save(&buf); err != nil {
			t.Fatal(err)
		}
		return buf.Bytes()
	}

	if !bytes.Equal(write(), write()) {
		t.Errorf("Snapshots of equal state should be byte-identical")
	}
}
