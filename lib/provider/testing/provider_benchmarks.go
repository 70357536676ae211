package testing

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/GalRogozinski/tangledb/lib/model"
	"github.com/GalRogozinski/tangledb/lib/provider"
)

// benchKeyWidth is the width of a transaction hash in trytes.
const benchKeyWidth = 81

// RunProviderBenchmarks runs all benchmarks for a provider implementation
func RunProviderBenchmarks(b *testing.B, name string, factory provider.Factory) {

	b.Run("Put", func(b *testing.B) {
		benchmarkPut(b, openProvider(b, factory))
	})

	b.Run("PutExisting", func(b *testing.B) {
		benchmarkPutExisting(b, openProvider(b, factory))
	})

	b.Run("Get", func(b *testing.B) {
		benchmarkGet(b, openProvider(b, factory))
	})

	b.Run("Delete", func(b *testing.B) {
		benchmarkDelete(b, openProvider(b, factory))
	})

	b.Run("WriteBatch", func(b *testing.B) {
		benchmarkWriteBatch(b, openProvider(b, factory))
	})

	b.Run("DeleteBatch", func(b *testing.B) {
		benchmarkDeleteBatch(b, openProvider(b, factory))
	})

	b.Run("ClearColumn", func(b *testing.B) {
		benchmarkClearColumn(b, openProvider(b, factory))
	})
}

func benchPayload() model.Value {
	return model.Value{Payload: bytes.Repeat([]byte("9"), model.TransactionTrytesSize)}
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

// Benchmark for Put with a fresh key per operation
func benchmarkPut(b *testing.B, p provider.Provider) {
	requireFeature(b, p, provider.FeaturePut)

	value := benchPayload()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			key := model.Indexable(fmt.Sprintf("bench-key-%p-%d", pb, counter))
			if err := p.Put(model.ColumnTransaction, key, value); err != nil {
				b.Error(err)
				return
			}
			counter++
		}
	})
}

// Benchmark for Put on existing keys
func benchmarkPutExisting(b *testing.B, p provider.Provider) {
	requireFeature(b, p, provider.FeaturePut)

	value := benchPayload()
	keys := model.GenerateKeys(1000, benchKeyWidth)
	for _, k := range keys {
		if err := p.Put(model.ColumnTransaction, k, value); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			if err := p.Put(model.ColumnTransaction, keys[counter%len(keys)], value); err != nil {
				b.Error(err)
				return
			}
			counter++
		}
	})
}

// Benchmark for Get on existing keys
func benchmarkGet(b *testing.B, p provider.Provider) {
	requireFeature(b, p, provider.FeaturePut|provider.FeatureGet)

	value := benchPayload()
	keys := model.GenerateKeys(1000, benchKeyWidth)
	for _, k := range keys {
		if err := p.Put(model.ColumnTransaction, k, value); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			if _, _, err := p.Get(model.ColumnTransaction, keys[counter%len(keys)]); err != nil {
				b.Error(err)
				return
			}
			counter++
		}
	})
}

// Benchmark for deleting keys one by one
func benchmarkDelete(b *testing.B, p provider.Provider) {
	requireFeature(b, p, provider.FeaturePut|provider.FeatureDelete)

	value := benchPayload()
	keys := model.GenerateKeys(b.N, benchKeyWidth)
	for _, k := range keys {
		if err := p.Put(model.ColumnTransaction, k, value); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := p.Delete(model.ColumnTransaction, keys[i]); err != nil {
			b.Fatal(err)
		}
	}
}

// Benchmark for batches of 100 writes
func benchmarkWriteBatch(b *testing.B, p provider.Provider) {
	requireFeature(b, p, provider.FeatureBatch)

	record := model.NewRecord(model.ColumnTransaction, benchPayload().Payload, nil)
	keys := model.GenerateKeys(100, benchKeyWidth)
	items := make([]model.BatchItem, len(keys))
	for i, k := range keys {
		items[i] = model.Write(k, record)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := p.WriteBatch(items); err != nil {
			b.Fatal(err)
		}
	}
}

// Benchmark for deleting 1000 stored keys in one batch
func benchmarkDeleteBatch(b *testing.B, p provider.Provider) {
	requireFeature(b, p, provider.FeaturePut|provider.FeatureBatch)

	value := benchPayload()
	keys := model.GenerateKeys(1000, benchKeyWidth)
	deletes := make([]model.BatchItem, len(keys))
	for i, k := range keys {
		deletes[i] = model.Delete(model.ColumnTransaction, k)
	}

	for i := 0; i < b.N; i++ {
		b.StopTimer()
		for _, k := range keys {
			if err := p.Put(model.ColumnTransaction, k, value); err != nil {
				b.Fatal(err)
			}
		}
		b.StartTimer()

		if err := p.WriteBatch(deletes); err != nil {
			b.Fatal(err)
		}
	}
}

// Benchmark for dropping a column with 1000 stored keys
func benchmarkClearColumn(b *testing.B, p provider.Provider) {
	requireFeature(b, p, provider.FeaturePut|provider.FeatureClearColumn)

	value := benchPayload()
	keys := model.GenerateKeys(1000, benchKeyWidth)

	for i := 0; i < b.N; i++ {
		b.StopTimer()
		for _, k := range keys {
			if err := p.Put(model.ColumnTransaction, k, value); err != nil {
				b.Fatal(err)
			}
		}
		b.StartTimer()

		if err := p.ClearColumn(model.ColumnTransaction); err != nil {
			b.Fatal(err)
		}
	}
}
