// Package model defines the storage-engine independent entity types of tangledb.
//
// The package focuses on:
//   - Keys (Indexable) with a canonical byte representation and a total order
//   - Column identities that partition the keyspace
//   - Values that carry a primary payload and independently clearable metadata
//   - Batch items used to build ordered, atomic write/delete batches
//
// Key Components:
//
//   - Indexable: An immutable, comparable byte-sequence key. Because it is a string
//     type it can be used directly as a map key, and its order is the byte order
//     of its representation (used for scans and stable iteration).
//
//   - ColumnID: A stable, process-wide tag naming an entity type (a "table").
//     A key is only meaningful relative to a column.
//
//   - Persistable / Value / Record: Persistable is what domain code hands to the
//     tangle. Value is what providers store and return. Record is a generic
//     Persistable for callers that do not need their own entity type.
//
//   - BatchItem: A tagged union of a write or a delete, created with Write and Delete.
//
//   - TypedColumn: Binds a column to a decode function at compile time so that
//     typed loads need no runtime type tokens.
//
// The package also contains the key generators used by the benchmark command and
// the tests (NextWord, ExpandTrytes).
//
// All types in this package are plain values: they own no resources and have no
// lifecycle of their own.
package model
