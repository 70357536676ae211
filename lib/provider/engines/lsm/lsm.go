package lsm

import (
	"errors"
	"fmt"
	"sync"

	"github.com/GalRogozinski/tangledb/lib/model"
	"github.com/GalRogozinski/tangledb/lib/provider"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/lni/dragonboat/v4/logger"
	"go.uber.org/multierr"
)

var log = logger.GetLogger("lsm")

// record kinds, the second byte of every engine key
const (
	kindPayload  byte = 0x01
	kindMetadata byte = 0x02
)

// --------------------------------------------------------------------------
// Core lsm provider structure
// --------------------------------------------------------------------------

type lifecycle int

const (
	stateNew lifecycle = iota
	stateOpen
	stateClosed
)

// lsmImpl implements provider.Provider on top of a pebble database.
//
// pebble handles concurrent reads and writes itself; mu only guards the
// lifecycle so that no operation runs against a closed engine.
type lsmImpl struct {
	name    string
	opts    *Options
	mu      sync.RWMutex
	state   lifecycle
	db      *pebble.DB
	codec   *codec
	columns map[model.ColumnID]struct{}
	wo      *pebble.WriteOptions
}

// Options configures the lsm provider
type Options struct {
	DataDir        string      // Directory of the sstables and manifest
	LogDir         string      // Directory of the write-ahead log ("" = DataDir)
	CacheSizeBytes int64       // Size of the block cache (0 = pebble default)
	Durable        bool        // fsync the WAL before a write returns
	Compression    Compression // Codec of stored values
	FS             vfs.FS      // Filesystem (nil = vfs.Default)
}

// DefaultOptions returns the default lsm provider options
func DefaultOptions() *Options {
	return &Options{
		DataDir:        "tangledb-data",
		CacheSizeBytes: 64 << 20, // 64 MB
		Durable:        true,
		Compression:    CompressionSnappy,
	}
}

// --------------------------------------------------------------------------
// Initialization and Setup
// --------------------------------------------------------------------------

// New creates a new lsm provider with the specified options (optional).
// The provider must be opened before use.
func New(name string, opts *Options) provider.Provider {
	if opts == nil {
		opts = DefaultOptions()
	}
	wo := pebble.NoSync
	if opts.Durable {
		wo = pebble.Sync
	}
	return &lsmImpl{
		name: name,
		opts: opts,
		wo:   wo,
	}
}

func (l *lsmImpl) Name() string {
	return l.name
}

// Open opens (or creates) the pebble database and its write-ahead log.
func (l *lsmImpl) Open(columns []model.ColumnID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == stateOpen {
		return provider.NewError(provider.ErrCStorageInit, "provider is already open").In(l.name, "open")
	}

	cols := make(map[model.ColumnID]struct{}, len(columns))
	for _, c := range columns {
		if !c.Valid() {
			return provider.NewError(provider.ErrCStorageInit, fmt.Sprintf("invalid column %s", c)).In(l.name, "open")
		}
		cols[c] = struct{}{}
	}

	fs := l.opts.FS
	if fs == nil {
		fs = vfs.Default
	}
	if err := fs.MkdirAll(l.opts.DataDir, 0o755); err != nil {
		return provider.WrapError(provider.ErrCStorageInit, err).In(l.name, "open")
	}
	if l.opts.LogDir != "" {
		if err := fs.MkdirAll(l.opts.LogDir, 0o755); err != nil {
			return provider.WrapError(provider.ErrCStorageInit, err).In(l.name, "open")
		}
	}

	c, err := newCodec(l.opts.Compression)
	if err != nil {
		return provider.WrapError(provider.ErrCStorageInit, err).In(l.name, "open")
	}

	popts := &pebble.Options{
		FS:     fs,
		WALDir: l.opts.LogDir,
		Logger: pebbleLogger{name: l.name},
	}
	if l.opts.CacheSizeBytes > 0 {
		cache := pebble.NewCache(l.opts.CacheSizeBytes)
		defer cache.Unref() // the db holds its own reference
		popts.Cache = cache
	}

	db, err := pebble.Open(l.opts.DataDir, popts)
	if err != nil {
		c.close()
		return provider.WrapError(provider.ErrCStorageInit, err).In(l.name, "open")
	}

	l.db = db
	l.codec = c
	l.columns = cols
	l.state = stateOpen
	log.Infof("%s: opened %s (wal=%s, compression=%s, durable=%v)",
		l.name, l.opts.DataDir, l.walDir(), l.opts.Compression, l.opts.Durable)
	return nil
}

// Close flushes the memtables and closes the database.
func (l *lsmImpl) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != stateOpen {
		return l.stateError("close")
	}

	err := l.db.Flush()
	err = multierr.Append(err, l.db.Close())
	l.codec.close()

	l.db = nil
	l.codec = nil
	l.columns = nil
	l.state = stateClosed

	if err != nil {
		return provider.WrapError(provider.ErrCStorageWrite, err).In(l.name, "close")
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func (l *lsmImpl) walDir() string {
	if l.opts.LogDir == "" {
		return l.opts.DataDir
	}
	return l.opts.LogDir
}

// stateError returns the error for an operation issued outside the open state.
func (l *lsmImpl) stateError(op string) error {
	if l.state == stateClosed {
		return provider.NewError(provider.ErrCAlreadyClosed, "provider is closed").In(l.name, op)
	}
	return provider.NewError(provider.ErrCNotInitialized, "provider is not open").In(l.name, op)
}

// check verifies the state and the column. Caller holds mu.
func (l *lsmImpl) check(op string, c model.ColumnID, key model.Indexable) error {
	if l.state != stateOpen {
		return l.stateError(op)
	}
	if _, ok := l.columns[c]; !ok {
		return provider.NewError(provider.ErrCInvalidArgument, "column is not open").In(l.name, op).At(c, key)
	}
	return nil
}

func engineKey(c model.ColumnID, kind byte, key model.Indexable) []byte {
	out := make([]byte, 2+len(key))
	out[0] = byte(c)
	out[1] = kind
	copy(out[2:], key)
	return out
}

// kindBounds returns the key range of one record kind of a column.
func kindBounds(c model.ColumnID, kind byte) (lower, upper []byte) {
	return []byte{byte(c), kind}, []byte{byte(c), kind + 1}
}

// columnBounds returns the key range of a whole column.
func columnBounds(c model.ColumnID) (lower, upper []byte) {
	return []byte{byte(c)}, []byte{byte(c) + 1}
}

// stage adds a full record replacement to the batch.
func (l *lsmImpl) stage(b *pebble.Batch, c model.ColumnID, key model.Indexable, v model.Value) error {
	if err := b.Set(engineKey(c, kindPayload, key), l.codec.encode(v.Payload), nil); err != nil {
		return err
	}
	if v.Metadata == nil {
		return b.Delete(engineKey(c, kindMetadata, key), nil)
	}
	return b.Set(engineKey(c, kindMetadata, key), l.codec.encode(v.Metadata), nil)
}

func (l *lsmImpl) stageDelete(b *pebble.Batch, c model.ColumnID, key model.Indexable) error {
	if err := b.Delete(engineKey(c, kindPayload, key), nil); err != nil {
		return err
	}
	return b.Delete(engineKey(c, kindMetadata, key), nil)
}

// read returns the decoded value stored under k, or nil if k does not exist.
func (l *lsmImpl) read(r pebble.Reader, k []byte) ([]byte, error) {
	data, closer, err := r.Get(k)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return l.codec.decode(data)
}

// --------------------------------------------------------------------------
// Provider Interface Methods - Write Operations
// --------------------------------------------------------------------------

// Put writes payload and metadata in one engine batch.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (l *lsmImpl) Put(c model.ColumnID, key model.Indexable, value model.Value) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if err := l.check("put", c, key); err != nil {
		return err
	}

	b := l.db.NewBatch()
	defer b.Close()
	if err := l.stage(b, c, key, value); err != nil {
		return provider.WrapError(provider.ErrCStorageWrite, err).In(l.name, "put").At(c, key)
	}
	if err := b.Commit(l.wo); err != nil {
		return provider.WrapError(provider.ErrCStorageWrite, err).In(l.name, "put").At(c, key)
	}
	return nil
}

// Delete removes payload and metadata of a key.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (l *lsmImpl) Delete(c model.ColumnID, key model.Indexable) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if err := l.check("delete", c, key); err != nil {
		return err
	}

	b := l.db.NewBatch()
	defer b.Close()
	if err := l.stageDelete(b, c, key); err != nil {
		return provider.WrapError(provider.ErrCStorageWrite, err).In(l.name, "delete").At(c, key)
	}
	if err := b.Commit(l.wo); err != nil {
		return provider.WrapError(provider.ErrCStorageWrite, err).In(l.name, "delete").At(c, key)
	}
	return nil
}

// WriteBatch stages all items into one engine batch. The batch is discarded
// if any item can't be staged, so nothing reaches the engine.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (l *lsmImpl) WriteBatch(items []model.BatchItem) error {
	if len(items) == 0 {
		return nil
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.state != stateOpen {
		return l.stateError("batch")
	}

	b := l.db.NewBatch()
	defer b.Close()

	for _, item := range items {
		if err := l.check("batch", item.Column, item.Key); err != nil {
			return err
		}
		var err error
		switch item.Kind {
		case model.BatchWrite:
			err = l.stage(b, item.Column, item.Key, item.Value)
		case model.BatchDelete:
			err = l.stageDelete(b, item.Column, item.Key)
		default:
			return provider.NewError(provider.ErrCInvalidArgument, fmt.Sprintf("invalid batch item kind %s", item.Kind)).
				In(l.name, "batch").At(item.Column, item.Key)
		}
		if err != nil {
			return provider.WrapError(provider.ErrCStorageWrite, err).In(l.name, "batch").At(item.Column, item.Key)
		}
	}

	if err := b.Commit(l.wo); err != nil {
		return provider.WrapError(provider.ErrCStorageWrite, err).In(l.name, "batch")
	}
	return nil
}

// ClearColumn drops the column with a single range tombstone.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (l *lsmImpl) ClearColumn(c model.ColumnID) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if err := l.check("clear-column", c, ""); err != nil {
		return err
	}
	lower, upper := columnBounds(c)
	if err := l.db.DeleteRange(lower, upper, l.wo); err != nil {
		return provider.WrapError(provider.ErrCStorageWrite, err).In(l.name, "clear-column").At(c, "")
	}
	return nil
}

// ClearMetadata drops the metadata keys of a column with a single range tombstone.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (l *lsmImpl) ClearMetadata(c model.ColumnID) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if err := l.check("clear-metadata", c, ""); err != nil {
		return err
	}
	lower, upper := kindBounds(c, kindMetadata)
	if err := l.db.DeleteRange(lower, upper, l.wo); err != nil {
		return provider.WrapError(provider.ErrCStorageWrite, err).In(l.name, "clear-metadata").At(c, "")
	}
	return nil
}

// --------------------------------------------------------------------------
// Provider Interface Methods - Read Operations
// --------------------------------------------------------------------------

// Get reads payload and metadata from one engine snapshot.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (l *lsmImpl) Get(c model.ColumnID, key model.Indexable) (model.Value, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if err := l.check("get", c, key); err != nil {
		return model.Value{}, false, err
	}

	snap := l.db.NewSnapshot()
	defer snap.Close()

	payload, err := l.read(snap, engineKey(c, kindPayload, key))
	if err != nil {
		return model.Value{}, false, provider.WrapError(provider.ErrCStorageRead, err).In(l.name, "get").At(c, key)
	}
	if payload == nil {
		return model.Value{}, false, nil
	}
	meta, err := l.read(snap, engineKey(c, kindMetadata, key))
	if err != nil {
		return model.Value{}, false, provider.WrapError(provider.ErrCStorageRead, err).In(l.name, "get").At(c, key)
	}
	return model.Value{Payload: payload, Metadata: meta}, true, nil
}

// Scan iterates the payload keys of a column on one engine snapshot. The
// records are collected first and fn is called without holding any lock.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (l *lsmImpl) Scan(c model.ColumnID, fn func(key model.Indexable, value model.Value) bool) error {
	type kv struct {
		key   model.Indexable
		value model.Value
	}

	items, err := func() ([]kv, error) {
		l.mu.RLock()
		defer l.mu.RUnlock()

		if err := l.check("scan", c, ""); err != nil {
			return nil, err
		}

		snap := l.db.NewSnapshot()
		defer snap.Close()

		lower, upper := kindBounds(c, kindPayload)
		iter := snap.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})

		var items []kv
		for iter.First(); iter.Valid(); iter.Next() {
			key := model.KeyFromBytes(iter.Key()[2:])
			payload, err := l.codec.decode(iter.Value())
			if err != nil {
				iter.Close()
				return nil, provider.WrapError(provider.ErrCStorageRead, err).In(l.name, "scan").At(c, key)
			}
			meta, err := l.read(snap, engineKey(c, kindMetadata, key))
			if err != nil {
				iter.Close()
				return nil, provider.WrapError(provider.ErrCStorageRead, err).In(l.name, "scan").At(c, key)
			}
			items = append(items, kv{key, model.Value{Payload: payload, Metadata: meta}})
		}
		if err := iter.Close(); err != nil {
			return nil, provider.WrapError(provider.ErrCStorageRead, err).In(l.name, "scan").At(c, "")
		}
		return items, nil
	}()
	if err != nil {
		return err
	}

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
	provider.FeatureScan

func (l *lsmImpl) features() provider.Feature {
	if l.opts.Durable {
		return supportedFeatures | provider.FeatureDurable
	}
	return supportedFeatures
}

// SupportsFeature checks if this implementation supports a specific feature
func (l *lsmImpl) SupportsFeature(feature provider.Feature) bool {
	return l.features()&feature == feature
}

// GetInfo returns statistics about the provider
func (l *lsmImpl) GetInfo() provider.Info {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var sizeBytes int64
	if l.state == stateOpen {
		sizeBytes = int64(l.db.Metrics().DiskSpaceUsage())
	}

	meta := &struct {
		DataDir        string `json:"data_dir"`
		WALDir         string `json:"wal_dir"`
		CacheSizeBytes int64  `json:"cache_size_bytes"`
		Durable        bool   `json:"durable"`
		Compression    string `json:"compression"`
		Open           bool   `json:"open"`
	}{
		DataDir:        l.opts.DataDir,
		WALDir:         l.walDir(),
		CacheSizeBytes: l.opts.CacheSizeBytes,
		Durable:        l.opts.Durable,
		Compression:    l.opts.Compression.String(),
		Open:           l.state == stateOpen,
	}

	return provider.Info{
		Name:              l.name,
		SizeBytes:         sizeBytes,
		Impl:              provider.ImplLSM,
		SupportedFeatures: provider.Features(l.features()),
		Metadata:          meta,
	}
}

// --------------------------------------------------------------------------
// Engine logger
// --------------------------------------------------------------------------

// pebbleLogger routes pebble's log output to the "lsm" logger.
type pebbleLogger struct {
	name string
}

func (p pebbleLogger) Infof(format string, args ...interface{}) {
	log.Debugf("%s: "+format, append([]interface{}{p.name}, args...)...)
}

func (p pebbleLogger) Errorf(format string, args ...interface{}) {
	log.Errorf("%s: "+format, append([]interface{}{p.name}, args...)...)
}

func (p pebbleLogger) Fatalf(format string, args ...interface{}) {
	log.Panicf("%s: "+format, append([]interface{}{p.name}, args...)...)
}
