// Package tangle implements the storage façade of tangledb: an ordered chain of
// providers (see package provider) that domain code talks to as one store.
//
// Dispatch rules:
//   - Load is a first-hit read: providers are asked in registration order and the
//     first one holding the key answers. This allows a fast memory provider to be
//     layered in front of a durable lsm provider without holding every record.
//   - Store, Delete, ClearColumn, ClearMetadata and Apply fan out to every provider
//     in registration order. All providers are attempted and the first error is
//     returned. If some providers succeeded, the error is a *FanOutError naming
//     the providers on both sides so callers can compensate. There is no
//     atomicity across providers and no automatic retry.
//   - Scan and FetchAll merge the column of all providers in key order, the first
//     provider holding a key wins.
//
// Lifecycle:
//
//	New -> AddProvider... -> Init -> operations -> Shutdown
//
// The tangle moves through Uninitialized, Active, ShuttingDown and Closed.
// Operations before Init fail with a NotInitializedError, operations after
// Shutdown with an AlreadyClosedError. A failed Init closes the providers it
// already opened (in reverse order) and leaves the tangle Uninitialized.
// Shutdown closes the providers in reverse registration order and combines all
// close errors (go.uber.org/multierr).
//
// Batches:
//
// A Batch collects writes and deletes in order (last write wins). Apply submits
// it to every provider with one WriteBatch call each, ApplyTo to a single
// provider. DeleteBatch and SaveBatch build and apply a batch from key references
// or key/value pairs.
//
// Concurrency:
//
// All methods are safe for concurrent use. Operations run in parallel; Shutdown
// waits for in-flight operations. Consistency for overlapping keys is provided
// by the providers.
//
// Every operation is counted and timed in a github.com/VictoriaMetrics/metrics
// set, exported with WriteMetrics.
package tangle
