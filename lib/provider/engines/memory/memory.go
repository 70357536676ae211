package memory

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/GalRogozinski/tangledb/lib/model"
	"github.com/GalRogozinski/tangledb/lib/provider"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var log = logger.GetLogger("memory")

// --------------------------------------------------------------------------
// Core memory provider structure
// --------------------------------------------------------------------------

type lifecycle int

const (
	stateNew lifecycle = iota
	stateOpen
	stateClosed
)

// entry is a stored record. The metadata is only visible while metaEpoch
// matches the epoch of its column.
type entry struct {
	payload   []byte
	meta      []byte
	metaEpoch uint64
}

// column holds the data of one column. Both fields are only replaced while
// the provider's write lock is held.
type column struct {
	data      *xsync.MapOf[model.Indexable, entry]
	metaEpoch uint64
}

// memoryImpl implements provider.Provider on top of concurrent hash maps.
//
// Point operations share mu (the maps handle their own concurrency); batches,
// clears, scans, snapshots and the lifecycle take mu exclusively, so they are
// observed as a single step by every reader.
type memoryImpl struct {
	name    string
	opts    *Options
	mu      sync.RWMutex
	state   lifecycle
	columns map[model.ColumnID]*column
}

// Options configures the memory provider
type Options struct {
	SnapshotPath string // File the state is loaded from on Open and saved to on Close ("" = no persistence)
	Presize      int    // Expected number of entries per column (0 = default)
}

// DefaultOptions returns the default memory provider options
func DefaultOptions() *Options {
	return &Options{}
}

// --------------------------------------------------------------------------
// Initialization and Setup
// --------------------------------------------------------------------------

// New creates a new memory provider with the specified options (optional).
// The provider must be opened before use.
func New(name string, opts *Options) provider.Provider {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &memoryImpl{
		name: name,
		opts: opts,
	}
}

func (m *memoryImpl) newColumn() *column {
	var data *xsync.MapOf[model.Indexable, entry]
	if m.opts.Presize > 0 {
		data = xsync.NewMapOf[model.Indexable, entry](xsync.WithPresize(m.opts.Presize))
	} else {
		data = xsync.NewMapOf[model.Indexable, entry]()
	}
	return &column{data: data}
}

func (m *memoryImpl) Name() string {
	return m.name
}

// Open creates an empty map for every column and restores the snapshot file if configured.
//
// Thread-safety: This method is thread-safe but must not race with data operations.
func (m *memoryImpl) Open(columns []model.ColumnID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == stateOpen {
		return provider.NewError(provider.ErrCStorageInit, "provider is already open").In(m.name, "open")
	}

	cols := make(map[model.ColumnID]*column, len(columns))
	for _, c := range columns {
		if !c.Valid() {
			return provider.NewError(provider.ErrCStorageInit, fmt.Sprintf("invalid column %s", c)).In(m.name, "open")
		}
		cols[c] = m.newColumn()
	}
	m.columns = cols

	if m.opts.SnapshotPath != "" {
		f, err := os.Open(m.opts.SnapshotPath)
		switch {
		case errors.Is(err, os.ErrNotExist):
			log.Infof("%s: no snapshot at %s, starting empty", m.name, m.opts.SnapshotPath)
		case err != nil:
			m.columns = nil
			return provider.WrapError(provider.ErrCStorageInit, err).In(m.name, "open")
		default:
			err = m.load(f)
			_ = f.Close()
			if err != nil {
				m.columns = nil
				return provider.WrapError(provider.ErrCStorageInit, err).In(m.name, "open")
			}
			log.Infof("%s: restored snapshot from %s", m.name, m.opts.SnapshotPath)
		}
	}

	m.state = stateOpen
	return nil
}

// Close writes the snapshot file (if configured) and drops all data.
func (m *memoryImpl) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != stateOpen {
		return m.stateError("close")
	}

	var err error
	if m.opts.SnapshotPath != "" {
		err = m.writeSnapshotFile()
	}

	m.columns = nil
	m.state = stateClosed
	return err
}

// writeSnapshotFile atomically replaces the snapshot file. Caller holds mu.
func (m *memoryImpl) writeSnapshotFile() error {
	dir := filepath.Dir(m.opts.SnapshotPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return provider.WrapError(provider.ErrCStorageWrite, err).In(m.name, "close")
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return provider.WrapError(provider.ErrCStorageWrite, err).In(m.name, "close")
	}
	tmpName := tmp.Name()

	if err := m.save(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return provider.WrapError(provider.ErrCStorageWrite, err).In(m.name, "close")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return provider.WrapError(provider.ErrCStorageWrite, err).In(m.name, "close")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return provider.WrapError(provider.ErrCStorageWrite, err).In(m.name, "close")
	}
	if err := os.Rename(tmpName, m.opts.SnapshotPath); err != nil {
		os.Remove(tmpName)
		return provider.WrapError(provider.ErrCStorageWrite, err).In(m.name, "close")
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// stateError returns the error for an operation issued outside the open state. Caller holds mu.
func (m *memoryImpl) stateError(op string) error {
	if m.state == stateClosed {
		return provider.NewError(provider.ErrCAlreadyClosed, "provider is closed").In(m.name, op)
	}
	return provider.NewError(provider.ErrCNotInitialized, "provider is not open").In(m.name, op)
}

// column returns the open column or an error. Caller holds mu (shared or exclusive).
func (m *memoryImpl) column(op string, c model.ColumnID, key model.Indexable) (*column, error) {
	if m.state != stateOpen {
		return nil, m.stateError(op)
	}
	col, ok := m.columns[c]
	if !ok {
		return nil, provider.NewError(provider.ErrCInvalidArgument, "column is not open").In(m.name, op).At(c, key)
	}
	return col, nil
}

// newEntry copies the value so that the caller can't modify stored data.
func newEntry(v model.Value, epoch uint64) entry {
	e := entry{
		payload:   make([]byte, len(v.Payload)),
		metaEpoch: epoch,
	}
	copy(e.payload, v.Payload)
	if v.Metadata != nil {
		e.meta = make([]byte, len(v.Metadata))
		copy(e.meta, v.Metadata)
	}
	return e
}

// toValue returns a copy of the entry as seen in a column with the given epoch.
func (e entry) toValue(epoch uint64) model.Value {
	v := model.Value{Payload: make([]byte, len(e.payload))}
	copy(v.Payload, e.payload)
	if e.meta != nil && e.metaEpoch == epoch {
		v.Metadata = make([]byte, len(e.meta))
		copy(v.Metadata, e.meta)
	}
	return v
}

// --------------------------------------------------------------------------
// Provider Interface Methods - Write Operations
// --------------------------------------------------------------------------

// Put stores a copy of value.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *memoryImpl) Put(c model.ColumnID, key model.Indexable, value model.Value) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	col, err := m.column("put", c, key)
	if err != nil {
		return err
	}
	col.data.Store(key, newEntry(value, col.metaEpoch))
	return nil
}

// Delete removes a key. Absent keys are ignored.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *memoryImpl) Delete(c model.ColumnID, key model.Indexable) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	col, err := m.column("delete", c, key)
	if err != nil {
		return err
	}
	col.data.Delete(key)
	return nil
}

// WriteBatch validates every item before the first one is applied, so a
// rejected batch leaves no trace. Readers are excluded while the batch is applied.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *memoryImpl) WriteBatch(items []model.BatchItem) error {
	if len(items) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cols := make([]*column, len(items))
	for i, item := range items {
		col, err := m.column("batch", item.Column, item.Key)
		if err != nil {
			return err
		}
		if item.Kind != model.BatchWrite && item.Kind != model.BatchDelete {
			return provider.NewError(provider.ErrCInvalidArgument, fmt.Sprintf("invalid batch item kind %s", item.Kind)).
				In(m.name, "batch").At(item.Column, item.Key)
		}
		cols[i] = col
	}

	for i, item := range items {
		switch item.Kind {
		case model.BatchWrite:
			cols[i].data.Store(item.Key, newEntry(item.Value, cols[i].metaEpoch))
		case model.BatchDelete:
			cols[i].data.Delete(item.Key)
		}
	}
	return nil
}

// ClearColumn drops the column's map and replaces it with an empty one.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *memoryImpl) ClearColumn(c model.ColumnID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	col, err := m.column("clear-column", c, "")
	if err != nil {
		return err
	}
	fresh := m.newColumn()
	col.data = fresh.data
	// any metadata written before the clear must stay invisible
	col.metaEpoch++
	return nil
}

// ClearMetadata invalidates all metadata of the column by advancing its epoch.
// Stale metadata bytes are dropped lazily when the entry is rewritten.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *memoryImpl) ClearMetadata(c model.ColumnID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	col, err := m.column("clear-metadata", c, "")
	if err != nil {
		return err
	}
	col.metaEpoch++
	return nil
}

// --------------------------------------------------------------------------
// Provider Interface Methods - Read Operations
// --------------------------------------------------------------------------

// Get returns a copy of the stored record.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *memoryImpl) Get(c model.ColumnID, key model.Indexable) (model.Value, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	col, err := m.column("get", c, key)
	if err != nil {
		return model.Value{}, false, err
	}
	e, ok := col.data.Load(key)
	if !ok {
		return model.Value{}, false, nil
	}
	return e.toValue(col.metaEpoch), true, nil
}

// Scan copies the column under the exclusive lock and then calls fn in key order
// without holding any lock, so fn may call back into the provider.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *memoryImpl) Scan(c model.ColumnID, fn func(key model.Indexable, value model.Value) bool) error {
	type kv struct {
		key   model.Indexable
		value model.Value
	}

	m.mu.Lock()
	col, err := m.column("scan", c, "")
	if err != nil {
		m.mu.Unlock()
		return err
	}
	items := make([]kv, 0, col.data.Size())
	col.data.Range(func(key model.Indexable, e entry) bool {
		items = append(items, kv{key, e.toValue(col.metaEpoch)})
		return true
	})
	m.mu.Unlock()

	sort.Slice(items, func(i, j int) bool { return items[i].key < items[j].key })
	for _, item := range items {
		if !fn(item.key, item.value) {
			break
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Provider Interface Implementation - Features and Metadata
// --------------------------------------------------------------------------

const supportedFeatures = provider.FeatureGet |
	provider.FeaturePut |
	provider.FeatureDelete |
	provider.FeatureBatch |
	provider.FeatureClearColumn |
	provider.FeatureClearMetadata |
	provider.FeatureScan |
	provider.FeatureSnapshot

// SupportsFeature checks if this implementation supports a specific feature
func (m *memoryImpl) SupportsFeature(feature provider.Feature) bool {
	return supportedFeatures&feature == feature
}

// GetInfo returns statistics about the provider
func (m *memoryImpl) GetInfo() provider.Info {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entryOverhead := int64(24) // slice headers and epoch
	var sizeBytes int64
	perColumn := make(map[string]int, len(m.columns))
	payloads := provider.NewSizeHistogram()
	for id, col := range m.columns {
		perColumn[id.String()] = col.data.Size()
		col.data.Range(func(key model.Indexable, e entry) bool {
			sizeBytes += int64(len(key)+len(e.payload)+len(e.meta)) + entryOverhead
			payloads.Add(len(e.payload))
			return true
		})
	}

	meta := &struct {
		Entries      map[string]int       `json:"entries"`
		PayloadSizes provider.SizeSummary `json:"payload_sizes"`
		SnapshotPath string               `json:"snapshot_path,omitempty"`
		Open         bool                 `json:"open"`
	}{
		Entries:      perColumn,
		PayloadSizes: payloads.Summary(),
		SnapshotPath: m.opts.SnapshotPath,
		Open:         m.state == stateOpen,
	}

	return provider.Info{
		Name:              m.name,
		SizeBytes:         sizeBytes,
		Impl:              provider.ImplMemory,
		SupportedFeatures: provider.Features(supportedFeatures),
		Metadata:          meta,
	}
}
