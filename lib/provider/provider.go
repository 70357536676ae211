package provider

import (
	"io"

	"github.com/GalRogozinski/tangledb/lib/model"
)

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplLSM    Implementation = "lsm"
	ImplMemory Implementation = "memory"
)

// Feature represents provider features as bit flags
type Feature uint64

const (
	FeatureGet           Feature = 1 << iota // Support for Get operations
	FeaturePut                               // Support for Put operations
	FeatureDelete                            // Support for Delete operations
	FeatureBatch                             // Support for atomic WriteBatch operations
	FeatureClearColumn                       // Support for ClearColumn operations
	FeatureClearMetadata                     // Support for ClearMetadata operations
	FeatureScan                              // Support for ordered Scan operations
	FeatureDurable                           // Writes survive a process crash
	FeatureSnapshot                          // Support for Save/Load of the whole state
)

func (f Feature) String() string {
	switch f {
	case FeatureGet:
		return "Get"
	case FeaturePut:
		return "Put"
	case FeatureDelete:
		return "Delete"
	case FeatureBatch:
		return "Batch"
	case FeatureClearColumn:
		return "ClearColumn"
	case FeatureClearMetadata:
		return "ClearMetadata"
	case FeatureScan:
		return "Scan"
	case FeatureDurable:
		return "Durable"
	case FeatureSnapshot:
		return "Snapshot"
	default:
		return "Unknown"
	}
}

type Info struct {
	Name              string         `json:"name"`
	SizeBytes         int64          `json:"size_bytes"`
	Impl              Implementation `json:"impl"`
	SupportedFeatures []Feature      `json:"supported_features"`
	Metadata          interface{}    `json:"metadata"`
}

// --------------------------------------------------------------------------
// Provider Interface
// --------------------------------------------------------------------------

// Provider defines the interface of a single backing store (an adapter around one
// storage engine instance). The keyspace is partitioned into columns; every
// operation addresses exactly one column.
// Implementations must be safe for concurrent use once opened.
type Provider interface {

	// Name returns the identity of this provider instance (used in errors and logs).
	Name() string

	// --------------------------------------------------------------------------
	// Lifecycle
	// --------------------------------------------------------------------------

	// Open creates or attaches the structures for every given column, including any
	// write-ahead log area. It returns an ErrCStorageInit error if the medium
	// can't be created or is corrupt. A closed provider can be opened again.
	Open(columns []model.ColumnID) (err error)

	// Close flushes pending writes and releases all resources.
	Close() (err error)

	// --------------------------------------------------------------------------
	// Write Operations
	// --------------------------------------------------------------------------

	// Put inserts or replaces the record for key in column. A nil Metadata
	// removes previously stored metadata. The write is visible to subsequent
	// reads immediately.
	Put(column model.ColumnID, key model.Indexable, value model.Value) (err error)

	// Delete removes the record for key in column. Deleting an absent key is not an error.
	Delete(column model.ColumnID, key model.Indexable) (err error)

	// WriteBatch applies all items in order as one atomic unit. On error the
	// state is the one before the batch. An empty batch is a no-op.
	WriteBatch(items []model.BatchItem) (err error)

	// ClearColumn removes every record (payload and metadata) of a column.
	ClearColumn(column model.ColumnID) (err error)

	// ClearMetadata removes the metadata of every record of a column and
	// leaves the payloads intact.
	ClearMetadata(column model.ColumnID) (err error)

	// --------------------------------------------------------------------------
	// Query Operations
	// --------------------------------------------------------------------------

	// Get returns a copy of the record for key in column.
	// The boolean return value indicates whether the key was found.
	Get(column model.ColumnID, key model.Indexable) (value model.Value, loaded bool, err error)

	// Scan calls fn for every record of the column in ascending key order,
	// on a consistent view. Iteration stops when fn returns false.
	Scan(column model.ColumnID, fn func(key model.Indexable, value model.Value) bool) (err error)

	// --------------------------------------------------------------------------
	// Feature Support
	// --------------------------------------------------------------------------

	// SupportsFeature checks if the provider supports the specified feature.
	// Multiple features can be checked at once using bitwise OR (|) operator.
	SupportsFeature(feature Feature) (ok bool)

	// GetInfo returns information about the provider.
	GetInfo() (info Info)
}

// Factory creates a new (not yet opened) provider.
type Factory func() Provider

// Features converts a feature mask into the list of single features it contains.
func Features(mask Feature) []Feature {
	var out []Feature
	for f := FeatureGet; f <= FeatureSnapshot; f <<= 1 {
		if mask&f == f {
			out = append(out, f)
		}
	}
	return out
}

// Snapshotter is implemented by providers that support FeatureSnapshot.
type Snapshotter interface {
	// Save writes the state of all open columns to w.
	Save(w io.Writer) (err error)
	// Load replaces the state of all open columns with the data read from r.
	Load(r io.Reader) (err error)
}
