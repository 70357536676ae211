package testing

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/GalRogozinski/tangledb/lib/model"
	"github.com/GalRogozinski/tangledb/lib/provider"
)

// TestColumns are the columns every provider under test is opened with.
// model.ColumnTag is deliberately left out so that tests can address an unopened column.
var TestColumns = []model.ColumnID{
	model.ColumnTransaction,
	model.ColumnMilestone,
	model.ColumnApprovee,
}

const unopenedColumn = model.ColumnTag

// RunProviderTests runs a comprehensive test suite for a provider implementation.
// The factory must return a new, not yet opened provider with empty storage on every call.
func RunProviderTests(t *testing.T, name string, factory provider.Factory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Put&Get", func(t *testing.T) {
			testPutGet(t, openProvider(t, factory))
		})

		t.Run("CopySemantics", func(t *testing.T) {
			testCopySemantics(t, openProvider(t, factory))
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, openProvider(t, factory))
		})

		t.Run("ColumnIsolation", func(t *testing.T) {
			testColumnIsolation(t, openProvider(t, factory))
		})

		t.Run("ClearColumn", func(t *testing.T) {
			testClearColumn(t, openProvider(t, factory))
		})

		t.Run("ClearMetadata", func(t *testing.T) {
			testClearMetadata(t, openProvider(t, factory))
		})

		t.Run("WriteBatch", func(t *testing.T) {
			testWriteBatch(t, openProvider(t, factory))
		})

		t.Run("WriteBatchAtomicity", func(t *testing.T) {
			testWriteBatchAtomicity(t, openProvider(t, factory))
		})

		t.Run("Scan", func(t *testing.T) {
			testScan(t, openProvider(t, factory))
		})

		t.Run("Lifecycle", func(t *testing.T) {
			testLifecycle(t, factory)
		})

		t.Run("ConcurrentWriters", func(t *testing.T) {
			testConcurrentWriters(t, openProvider(t, factory))
		})

		t.Run("NoTornReads", func(t *testing.T) {
			testNoTornReads(t, openProvider(t, factory))
		})

		t.Run("SaveLoad", func(t *testing.T) {
			testSaveLoad(t, factory)
		})

		t.Run("TrytesKeys", func(t *testing.T) {
			testTrytesKeys(t, openProvider(t, factory))
		})

		t.Run("Info", func(t *testing.T) {
			testInfo(t, openProvider(t, factory))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// Checks if the provider supports the specified feature
// Skip the test if it is not supported
func requireFeature(t testing.TB, p provider.Provider, feature provider.Feature) {
	if !p.SupportsFeature(feature) {
		t.Skip()
	}
}

// openProvider creates and opens a provider that is closed when the test ends.
func openProvider(t testing.TB, factory provider.Factory) provider.Provider {
	p := factory()
	if err := p.Open(TestColumns); err != nil {
		t.Fatalf("Unexpected error during Open: %v", err)
	}
	t.Cleanup(func() {
		_ = p.Close() // already closed by some tests
	})
	return p
}

func mustPut(t testing.TB, p provider.Provider, column model.ColumnID, key model.Indexable, v model.Value) {
	t.Helper()
	if err := p.Put(column, key, v); err != nil {
		t.Fatalf("Unexpected error during Put(%s, %q): %v", column, key, err)
	}
}

func mustGet(t testing.TB, p provider.Provider, column model.ColumnID, key model.Indexable) (model.Value, bool) {
	t.Helper()
	v, ok, err := p.Get(column, key)
	if err != nil {
		t.Fatalf("Unexpected error during Get(%s, %q): %v", column, key, err)
	}
	return v, ok
}

func expectValue(t testing.TB, p provider.Provider, column model.ColumnID, key model.Indexable, want model.Value) {
	t.Helper()
	got, ok := mustGet(t, p, column, key)
	if !ok {
		t.Errorf("Expected key %q to exist in %s", key, column)
		return
	}
	if !got.Equal(want) {
		t.Errorf("Value mismatch for key %q in %s: expected %s/%v, got %s/%v",
			key, column, want.Payload, want.Metadata, got.Payload, got.Metadata)
	}
}

func expectAbsent(t testing.TB, p provider.Provider, column model.ColumnID, key model.Indexable) {
	t.Helper()
	if _, ok := mustGet(t, p, column, key); ok {
		t.Errorf("Expected key %q to be absent in %s", key, column)
	}
}

func val(payload, meta string) model.Value {
	v := model.Value{Payload: []byte(payload)}
	if meta != "" {
		v.Metadata = []byte(meta)
	}
	return v
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testPutGet(t *testing.T, p provider.Provider) {
	requireFeature(t, p, provider.FeaturePut|provider.FeatureGet)

	col := model.ColumnTransaction
	key := model.Indexable("test-key")

	mustPut(t, p, col, key, val("value-1", "meta-1"))
	expectValue(t, p, col, key, val("value-1", "meta-1"))

	// overwrite replaces the whole record
	mustPut(t, p, col, key, val("value-2", "meta-2"))
	expectValue(t, p, col, key, val("value-2", "meta-2"))

	// nil metadata removes stored metadata
	mustPut(t, p, col, key, val("value-3", ""))
	expectValue(t, p, col, key, val("value-3", ""))

	// empty payload is a valid record
	mustPut(t, p, col, "empty", model.Value{Payload: []byte{}})
	v, ok := mustGet(t, p, col, "empty")
	if !ok || len(v.Payload) != 0 {
		t.Errorf("Expected empty record to exist, got %v (exists=%v)", v, ok)
	}

	expectAbsent(t, p, col, "nonexistent-key")
}

func testCopySemantics(t *testing.T, p provider.Provider) {
	requireFeature(t, p, provider.FeaturePut|provider.FeatureGet)

	col := model.ColumnTransaction
	in := val("payload", "metadata")
	mustPut(t, p, col, "k", in)

	// modify the input after Put
	in.Payload[0] = 'X'
	in.Metadata[0] = 'X'
	expectValue(t, p, col, "k", val("payload", "metadata"))

	// modify the output of Get
	out, _ := mustGet(t, p, col, "k")
	out.Payload[0] = 'Y'
	out.Metadata[0] = 'Y'
	expectValue(t, p, col, "k", val("payload", "metadata"))
}

func testDelete(t *testing.T, p provider.Provider) {
	requireFeature(t, p, provider.FeaturePut|provider.FeatureGet|provider.FeatureDelete)

	col := model.ColumnMilestone
	mustPut(t, p, col, "k", val("v", "m"))

	if err := p.Delete(col, "k"); err != nil {
		t.Fatalf("Unexpected error during Delete: %v", err)
	}
	expectAbsent(t, p, col, "k")

	// deleting again or deleting an absent key is not an error
	if err := p.Delete(col, "k"); err != nil {
		t.Errorf("Repeated Delete should succeed, got %v", err)
	}
	if err := p.Delete(col, "never-written"); err != nil {
		t.Errorf("Delete of an absent key should succeed, got %v", err)
	}

	// a rewritten key must not carry the old metadata
	mustPut(t, p, col, "k", val("v2", ""))
	expectValue(t, p, col, "k", val("v2", ""))
}

func testColumnIsolation(t *testing.T, p provider.Provider) {
	requireFeature(t, p, provider.FeaturePut|provider.FeatureGet|provider.FeatureDelete)

	mustPut(t, p, model.ColumnTransaction, "shared", val("tx", "tx-meta"))
	mustPut(t, p, model.ColumnApprovee, "shared", val("approvee", ""))

	expectValue(t, p, model.ColumnTransaction, "shared", val("tx", "tx-meta"))
	expectValue(t, p, model.ColumnApprovee, "shared", val("approvee", ""))
	expectAbsent(t, p, model.ColumnMilestone, "shared")

	if err := p.Delete(model.ColumnTransaction, "shared"); err != nil {
		t.Fatalf("Unexpected error during Delete: %v", err)
	}
	expectAbsent(t, p, model.ColumnTransaction, "shared")
	expectValue(t, p, model.ColumnApprovee, "shared", val("approvee", ""))

	// operations on a column that was not opened are rejected
	if err := p.Put(unopenedColumn, "k", val("v", "")); !errors.Is(err, provider.ErrInvalidArgument) {
		t.Errorf("Expected InvalidArgument for unopened column, got %v", err)
	}
	if _, _, err := p.Get(unopenedColumn, "k"); !errors.Is(err, provider.ErrInvalidArgument) {
		t.Errorf("Expected InvalidArgument for unopened column, got %v", err)
	}
}

func testClearColumn(t *testing.T, p provider.Provider) {
	requireFeature(t, p, provider.FeaturePut|provider.FeatureGet|provider.FeatureClearColumn)

	keys := model.GenerateKeys(100, 81)
	for _, k := range keys {
		mustPut(t, p, model.ColumnTransaction, k, val("tx-"+string(k[:4]), "meta"))
		mustPut(t, p, model.ColumnMilestone, k, val("ms-"+string(k[:4]), "meta"))
	}

	if err := p.ClearColumn(model.ColumnTransaction); err != nil {
		t.Fatalf("Unexpected error during ClearColumn: %v", err)
	}

	for _, k := range keys {
		expectAbsent(t, p, model.ColumnTransaction, k)
		expectValue(t, p, model.ColumnMilestone, k, val("ms-"+string(k[:4]), "meta"))
	}

	// the cleared column accepts new writes, and old metadata does not come back
	mustPut(t, p, model.ColumnTransaction, keys[0], val("fresh", ""))
	expectValue(t, p, model.ColumnTransaction, keys[0], val("fresh", ""))

	// clearing an empty column is fine
	if err := p.ClearColumn(model.ColumnApprovee); err != nil {
		t.Errorf("ClearColumn of an empty column should succeed, got %v", err)
	}
}

func testClearMetadata(t *testing.T, p provider.Provider) {
	requireFeature(t, p, provider.FeaturePut|provider.FeatureGet|provider.FeatureClearMetadata)

	for i := 0; i < 50; i++ {
		k := model.Indexable(fmt.Sprintf("key-%02d", i))
		mustPut(t, p, model.ColumnTransaction, k, val(fmt.Sprintf("payload-%d", i), fmt.Sprintf("meta-%d", i)))
		mustPut(t, p, model.ColumnMilestone, k, val(fmt.Sprintf("payload-%d", i), fmt.Sprintf("meta-%d", i)))
	}

	if err := p.ClearMetadata(model.ColumnTransaction); err != nil {
		t.Fatalf("Unexpected error during ClearMetadata: %v", err)
	}

	for i := 0; i < 50; i++ {
		k := model.Indexable(fmt.Sprintf("key-%02d", i))
		// payload intact, metadata gone
		expectValue(t, p, model.ColumnTransaction, k, val(fmt.Sprintf("payload-%d", i), ""))
		// other columns untouched
		expectValue(t, p, model.ColumnMilestone, k, val(fmt.Sprintf("payload-%d", i), fmt.Sprintf("meta-%d", i)))
	}

	// metadata written after the clear is visible again
	mustPut(t, p, model.ColumnTransaction, "key-00", val("payload-0", "new-meta"))
	expectValue(t, p, model.ColumnTransaction, "key-00", val("payload-0", "new-meta"))
	expectValue(t, p, model.ColumnTransaction, "key-01", val("payload-1", ""))
}

func testWriteBatch(t *testing.T, p provider.Provider) {
	requireFeature(t, p, provider.FeatureBatch|provider.FeatureGet)

	mustPut(t, p, model.ColumnTransaction, "to-delete", val("old", ""))

	items := []model.BatchItem{
		model.Write("a", model.NewRecord(model.ColumnTransaction, []byte("a-1"), []byte("m-1"))),
		model.Write("b", model.NewRecord(model.ColumnMilestone, []byte("b-1"), nil)),
		model.Delete(model.ColumnTransaction, "to-delete"),
		model.Write("a", model.NewRecord(model.ColumnTransaction, []byte("a-2"), nil)), // last write wins
		model.Delete(model.ColumnMilestone, "b"),
		model.Write("b", model.NewRecord(model.ColumnMilestone, []byte("b-2"), []byte("m-2"))),
		model.Write("c", model.NewRecord(model.ColumnApprovee, []byte("c-1"), nil)),
		model.Delete(model.ColumnApprovee, "c"),
	}
	if err := p.WriteBatch(items); err != nil {
		t.Fatalf("Unexpected error during WriteBatch: %v", err)
	}

	expectValue(t, p, model.ColumnTransaction, "a", val("a-2", ""))
	expectValue(t, p, model.ColumnMilestone, "b", val("b-2", "m-2"))
	expectAbsent(t, p, model.ColumnTransaction, "to-delete")
	expectAbsent(t, p, model.ColumnApprovee, "c")

	// empty batches are no-ops
	if err := p.WriteBatch(nil); err != nil {
		t.Errorf("Empty batch should succeed, got %v", err)
	}
	if err := p.WriteBatch([]model.BatchItem{}); err != nil {
		t.Errorf("Empty batch should succeed, got %v", err)
	}
}

func testWriteBatchAtomicity(t *testing.T, p provider.Provider) {
	requireFeature(t, p, provider.FeatureBatch|provider.FeatureGet)

	mustPut(t, p, model.ColumnTransaction, "existing", val("before", "meta"))

	items := []model.BatchItem{
		model.Write("new", model.NewRecord(model.ColumnTransaction, []byte("new"), nil)),
		model.Delete(model.ColumnTransaction, "existing"),
		model.Write("bad", model.NewRecord(unopenedColumn, []byte("bad"), nil)), // fails during staging
		model.Write("after", model.NewRecord(model.ColumnMilestone, []byte("after"), nil)),
	}

	err := p.WriteBatch(items)
	if err == nil {
		t.Fatalf("Expected batch with an unopened column to fail")
	}
	if !errors.Is(err, provider.ErrInvalidArgument) {
		t.Errorf("Expected InvalidArgument, got %v", err)
	}

	// no trace of the failed batch
	expectAbsent(t, p, model.ColumnTransaction, "new")
	expectValue(t, p, model.ColumnTransaction, "existing", val("before", "meta"))
	expectAbsent(t, p, model.ColumnMilestone, "after")

	// an invalid item kind is rejected the same way
	err = p.WriteBatch([]model.BatchItem{
		model.Write("new", model.NewRecord(model.ColumnTransaction, []byte("new"), nil)),
		{Kind: 0, Column: model.ColumnTransaction, Key: "x"},
	})
	if !errors.Is(err, provider.ErrInvalidArgument) {
		t.Errorf("Expected InvalidArgument for an invalid item kind, got %v", err)
	}
	expectAbsent(t, p, model.ColumnTransaction, "new")
}

func testScan(t *testing.T, p provider.Provider) {
	requireFeature(t, p, provider.FeatureScan|provider.FeaturePut)

	written := []model.Indexable{"delta", "alpha", "charlie", "bravo", "echo"}
	for _, k := range written {
		mustPut(t, p, model.ColumnApprovee, k, val("v-"+string(k), "m-"+string(k)))
	}
	mustPut(t, p, model.ColumnTransaction, "zulu", val("other column", ""))

	var keys []model.Indexable
	err := p.Scan(model.ColumnApprovee, func(key model.Indexable, value model.Value) bool {
		keys = append(keys, key)
		want := val("v-"+string(key), "m-"+string(key))
		if !value.Equal(want) {
			t.Errorf("Scan returned wrong value for %q: %s", key, value.Payload)
		}
		return true
	})
	if err != nil {
		t.Fatalf("Unexpected error during Scan: %v", err)
	}

	expected := []model.Indexable{"alpha", "bravo", "charlie", "delta", "echo"}
	if len(keys) != len(expected) {
		t.Fatalf("Expected %d keys, got %d (%v)", len(expected), len(keys), keys)
	}
	for i := range expected {
		if keys[i] != expected[i] {
			t.Errorf("Scan order mismatch at %d: expected %q, got %q", i, expected[i], keys[i])
		}
	}

	// stop early
	count := 0
	err = p.Scan(model.ColumnApprovee, func(model.Indexable, model.Value) bool {
		count++
		return count < 2
	})
	if err != nil || count != 2 {
		t.Errorf("Expected scan to stop after 2 records, got %d (err=%v)", count, err)
	}

	// empty column
	err = p.Scan(model.ColumnMilestone, func(model.Indexable, model.Value) bool {
		t.Errorf("Scan of an empty column must not call fn")
		return true
	})
	if err != nil {
		t.Errorf("Unexpected error during Scan of an empty column: %v", err)
	}
}

func testLifecycle(t *testing.T, factory provider.Factory) {
	p := factory()

	// not opened
	if _, _, err := p.Get(model.ColumnTransaction, "k"); !errors.Is(err, provider.ErrNotInitialized) {
		t.Errorf("Expected NotInitialized before Open, got %v", err)
	}
	if err := p.Put(model.ColumnTransaction, "k", val("v", "")); !errors.Is(err, provider.ErrNotInitialized) {
		t.Errorf("Expected NotInitialized before Open, got %v", err)
	}
	if err := p.Close(); !errors.Is(err, provider.ErrNotInitialized) {
		t.Errorf("Expected NotInitialized when closing an unopened provider, got %v", err)
	}

	if err := p.Open(TestColumns); err != nil {
		t.Fatalf("Unexpected error during Open: %v", err)
	}
	if err := p.Open(TestColumns); !errors.Is(err, provider.ErrStorageInit) {
		t.Errorf("Expected StorageInit when opening twice, got %v", err)
	}
	mustPut(t, p, model.ColumnTransaction, "k", val("v", ""))

	if err := p.Close(); err != nil {
		t.Fatalf("Unexpected error during Close: %v", err)
	}

	// closed
	if _, _, err := p.Get(model.ColumnTransaction, "k"); !errors.Is(err, provider.ErrAlreadyClosed) {
		t.Errorf("Expected AlreadyClosed after Close, got %v", err)
	}
	if err := p.Delete(model.ColumnTransaction, "k"); !errors.Is(err, provider.ErrAlreadyClosed) {
		t.Errorf("Expected AlreadyClosed after Close, got %v", err)
	}
	if err := p.WriteBatch([]model.BatchItem{model.Delete(model.ColumnTransaction, "k")}); !errors.Is(err, provider.ErrAlreadyClosed) {
		t.Errorf("Expected AlreadyClosed after Close, got %v", err)
	}
	if err := p.ClearColumn(model.ColumnTransaction); !errors.Is(err, provider.ErrAlreadyClosed) {
		t.Errorf("Expected AlreadyClosed after Close, got %v", err)
	}
	if err := p.Close(); !errors.Is(err, provider.ErrAlreadyClosed) {
		t.Errorf("Expected AlreadyClosed when closing twice, got %v", err)
	}

	// reopening is allowed
	if err := p.Open(TestColumns); err != nil {
		t.Fatalf("Unexpected error during reopen: %v", err)
	}
	if _, _, err := p.Get(model.ColumnTransaction, "k"); err != nil {
		t.Errorf("Unexpected error after reopen: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Unexpected error during Close: %v", err)
	}
}

func testConcurrentWriters(t *testing.T, p provider.Provider) {
	requireFeature(t, p, provider.FeaturePut|provider.FeatureGet|provider.FeatureDelete)

	numWorkers := 8
	perWorker := 200

	var wg sync.WaitGroup
	var errorCount int32
	wg.Add(numWorkers)

	for w := 0; w < numWorkers; w++ {
		go func(workerId int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				key := model.Indexable(fmt.Sprintf("w%d-k%d", workerId, i))
				if err := p.Put(model.ColumnTransaction, key, val(string(key), "")); err != nil {
					atomic.AddInt32(&errorCount, 1)
				}
				// every third key is deleted again
				if i%3 == 0 {
					if err := p.Delete(model.ColumnTransaction, key); err != nil {
						atomic.AddInt32(&errorCount, 1)
					}
				}
			}
		}(w)
	}
	wg.Wait()

	if errorCount > 0 {
		t.Fatalf("%d operations failed during concurrent writes", errorCount)
	}

	for w := 0; w < numWorkers; w++ {
		for i := 0; i < perWorker; i++ {
			key := model.Indexable(fmt.Sprintf("w%d-k%d", w, i))
			if i%3 == 0 {
				expectAbsent(t, p, model.ColumnTransaction, key)
			} else {
				expectValue(t, p, model.ColumnTransaction, key, val(string(key), ""))
			}
		}
	}
}

// testNoTornReads races writers that always store payload == metadata against
// readers, batches and metadata clears. A reader must never see a payload of
// one write combined with the metadata of another.
func testNoTornReads(t *testing.T, p provider.Provider) {
	requireFeature(t, p, provider.FeaturePut|provider.FeatureGet|provider.FeatureBatch|provider.FeatureClearMetadata)

	keys := []model.Indexable{"hot-0", "hot-1", "hot-2", "hot-3"}
	var stop atomic.Bool
	var torn, failed int32
	var wg sync.WaitGroup

	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(workerId int) {
			defer wg.Done()
			for i := 0; i < 300; i++ {
				s := fmt.Sprintf("w%d-%d", workerId, i)
				var err error
				if i%2 == 0 {
					err = p.Put(model.ColumnTransaction, keys[i%len(keys)], val(s, s))
				} else {
					err = p.WriteBatch([]model.BatchItem{
						model.Write(keys[i%len(keys)], model.NewRecord(model.ColumnTransaction, []byte(s), []byte(s))),
						model.Write(keys[(i+1)%len(keys)], model.NewRecord(model.ColumnTransaction, []byte(s), []byte(s))),
					})
				}
				if err != nil {
					atomic.AddInt32(&failed, 1)
				}
			}
		}(w)
	}

	var readers sync.WaitGroup
	for r := 0; r < 4; r++ {
		readers.Add(1)
		go func(readerId int) {
			defer readers.Done()
			for i := 0; !stop.Load(); i++ {
				if readerId == 0 && i%50 == 0 {
					if err := p.ClearMetadata(model.ColumnTransaction); err != nil {
						atomic.AddInt32(&failed, 1)
					}
				}
				v, ok, err := p.Get(model.ColumnTransaction, keys[i%len(keys)])
				if err != nil {
					atomic.AddInt32(&failed, 1)
					continue
				}
				if ok && v.Metadata != nil && !bytes.Equal(v.Payload, v.Metadata) {
					atomic.AddInt32(&torn, 1)
				}
			}
		}(r)
	}

	wg.Wait()
	stop.Store(true)
	readers.Wait()

	if failed > 0 {
		t.Errorf("%d operations failed", failed)
	}
	if torn > 0 {
		t.Errorf("Observed %d torn records", torn)
	}
}

func testSaveLoad(t *testing.T, factory provider.Factory) {
	src := openProvider(t, factory)
	dst := openProvider(t, factory)

	requireFeature(t, src, provider.FeatureSnapshot|provider.FeaturePut|provider.FeatureGet)
	srcSnap, ok := src.(provider.Snapshotter)
	if !ok {
		t.Fatalf("Provider advertises FeatureSnapshot but does not implement provider.Snapshotter")
	}
	dstSnap := dst.(provider.Snapshotter)

	numEntries := 1000
	keys := model.GenerateKeys(numEntries, 81)
	for i, k := range keys {
		meta := ""
		if i%2 == 0 {
			meta = fmt.Sprintf("meta-%d", i)
		}
		mustPut(t, src, model.ColumnTransaction, k, val(fmt.Sprintf("value-%d", i), meta))
		mustPut(t, src, model.ColumnMilestone, k, val(fmt.Sprintf("ms-%d", i), fmt.Sprintf("ms-meta-%d", i)))
	}
	if err := src.ClearMetadata(model.ColumnMilestone); err != nil {
		t.Fatalf("Unexpected error during ClearMetadata: %v", err)
	}

	// data in dst is replaced by Load
	mustPut(t, dst, model.ColumnApprovee, "stale", val("stale", ""))

	var buf bytes.Buffer
	if err := srcSnap.Save(&buf); err != nil {
		t.Fatalf("Unexpected error during Save: %v", err)
	}
	if err := dstSnap.Load(&buf); err != nil {
		t.Fatalf("Unexpected error during Load: %v", err)
	}

	for i, k := range keys {
		meta := ""
		if i%2 == 0 {
			meta = fmt.Sprintf("meta-%d", i)
		}
		expectValue(t, dst, model.ColumnTransaction, k, val(fmt.Sprintf("value-%d", i), meta))
		// cleared metadata stays cleared
		expectValue(t, dst, model.ColumnMilestone, k, val(fmt.Sprintf("ms-%d", i), ""))
	}
	expectAbsent(t, dst, model.ColumnApprovee, "stale")

	// corrupt input is rejected
	if err := dstSnap.Load(bytes.NewReader([]byte("NOTASNAPSHOT"))); err == nil {
		t.Errorf("Expected error when loading garbage")
	}
}

// testTrytesKeys stores full-size transactions under trytes keys.
func testTrytesKeys(t *testing.T, p provider.Provider) {
	requireFeature(t, p, provider.FeaturePut|provider.FeatureGet|provider.FeatureDelete|provider.FeatureClearColumn)

	payload := bytes.Repeat([]byte("9"), model.TransactionTrytesSize)
	keys := model.GenerateKeys(100, 81)

	for _, k := range keys {
		mustPut(t, p, model.ColumnTransaction, k, model.Value{Payload: payload})
	}
	for _, k := range keys {
		expectValue(t, p, model.ColumnTransaction, k, model.Value{Payload: payload})
	}

	// prefix keys must not shadow each other: "A999.." vs "A"
	mustPut(t, p, model.ColumnTransaction, "A", val("short", ""))
	expectValue(t, p, model.ColumnTransaction, keys[0], model.Value{Payload: payload})
	expectValue(t, p, model.ColumnTransaction, "A", val("short", ""))

	if err := p.ClearColumn(model.ColumnTransaction); err != nil {
		t.Fatalf("Unexpected error during ClearColumn: %v", err)
	}
	for _, k := range keys {
		expectAbsent(t, p, model.ColumnTransaction, k)
	}
}

func testInfo(t *testing.T, p provider.Provider) {
	mustPut(t, p, model.ColumnTransaction, "k", val("value", "meta"))

	info := p.GetInfo()
	if info.Name != p.Name() {
		t.Errorf("Expected info name %q, got %q", p.Name(), info.Name)
	}
	if info.Impl == "" {
		t.Errorf("Expected implementation to be set")
	}
	for _, f := range info.SupportedFeatures {
		if !p.SupportsFeature(f) {
			t.Errorf("Feature %s listed in info but not supported", f)
		}
	}
}
