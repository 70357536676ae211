// Package memory implements an in-memory provider.Provider backed by concurrent
// hash maps (github.com/puzpuzpuz/xsync/v3). It is typically registered in front
// of a durable provider so that hot records are answered without touching disk.
//
// The package focuses on:
//   - Lock-free point reads and writes through one xsync.MapOf per column
//   - Atomic batches and structural clears that readers observe as a single step
//   - Optional persistence through a binary snapshot file written on Close
//
// Key Components:
//
//   - memoryImpl: The provider. Point operations (Get/Put/Delete) share a
//     read lock and rely on the maps for concurrency. WriteBatch, ClearColumn,
//     ClearMetadata, Scan and the snapshot operations take the lock exclusively.
//
//   - Metadata epochs: Every column carries an epoch and every entry remembers
//     the epoch it was written in. ClearMetadata only advances the column epoch,
//     which turns the metadata of all existing entries invisible in O(1).
//
//   - Snapshot: Save and Load (provider.Snapshotter) encode all open columns in
//     a versioned binary format ("TANGLEDB" magic). If Options.SnapshotPath is set,
//     Open restores the file and Close replaces it atomically (temp file + rename).
//
// The provider does not advertise provider.FeatureDurable: writes issued after the
// last Close are lost on a crash.
package memory
