// Package provider defines the contract of a backing store ("provider") used by the
// tangle. A provider wraps exactly one storage engine instance and exposes
// column-oriented primitives on top of it.
//
// The package focuses on:
//   - A unified, column-oriented interface for point reads, writes and deletes
//   - Atomic, ordered batches (all-or-nothing per provider)
//   - Bulk structural clears of a column or of a column's metadata
//   - Feature discovery through capability flags
//   - A single typed error that distinguishes failure kinds
//
// Key Components:
//
//   - Provider Interface: The core interface every backing store implements. Open
//     and Close own the engine lifecycle (including the write-ahead log area);
//     Get/Put/Delete/WriteBatch/ClearColumn/ClearMetadata/Scan are the data plane.
//     A missing key is reported as (Value{}, false, nil), never as an error.
//
//   - Feature Flags: Providers advertise optional capabilities (durability,
//     snapshots, ...) through SupportsFeature so that callers can adapt.
//
//   - Error: Every failure is an *Error with a Code (StorageInitError,
//     StorageWriteError, StorageReadError, NotInitializedError,
//     AlreadyClosedError, PartialFanOutError, ...). The sentinels ErrStorageInit,
//     ErrStorageWrite, ... match any *Error of the same code via errors.Is, and
//     Annotate adds provider identity and column/key context.
//
// Consistency requirements for implementations:
//   - Concurrent Get/Put/Delete/WriteBatch calls on overlapping keys are
//     linearizable; racing writers resolve last-write-wins.
//   - A read never observes a torn record (payload of one write with the
//     metadata of another) and never a partially applied batch.
//   - ClearColumn and ClearMetadata are single structural operations; a racing
//     read sees either the full pre-clear or the full post-clear state.
//   - Internal caches are performance hints only and never change results.
//
// Related Packages:
//
// The engines/lsm package (github.com/GalRogozinski/tangledb/lib/provider/engines/lsm)
// implements a durable provider on top of the pebble LSM engine.
//
// The engines/memory package (github.com/GalRogozinski/tangledb/lib/provider/engines/memory)
// implements a fast in-memory provider, typically registered in front of a durable one.
//
// The testing package (github.com/GalRogozinski/tangledb/lib/provider/testing) provides
// a conformance suite and benchmarks every implementation is run against:
//   - RunProviderTests: Validates the Provider contract
//   - RunProviderBenchmarks: Store, delete and drop benchmarks over trytes keys
package provider
