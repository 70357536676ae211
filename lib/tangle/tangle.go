package tangle

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GalRogozinski/tangledb/lib/model"
	"github.com/GalRogozinski/tangledb/lib/provider"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"go.uber.org/multierr"
)

var log = logger.GetLogger("tangle")

// --------------------------------------------------------------------------
// Tangle
// --------------------------------------------------------------------------

// Tangle is an ordered chain of providers presenting one storage API.
//
// Reads are answered by the first provider that holds the key, writes, deletes
// and clears are applied to every provider in registration order.
type Tangle struct {
	// mu is held shared by every operation and exclusively by Init and Shutdown,
	// so Shutdown waits for in-flight operations. Operations don't exclude each other.
	mu        sync.RWMutex
	state     atomic.Int32
	providers []provider.Provider
	columns   map[model.ColumnID]struct{}
	order     []model.ColumnID
	metrics   *tangleMetrics
}

// Option configures a Tangle.
type Option func(t *Tangle)

// WithColumns sets the columns the providers are opened with (default: model.AllColumns()).
func WithColumns(columns ...model.ColumnID) Option {
	return func(t *Tangle) {
		t.order = append([]model.ColumnID(nil), columns...)
	}
}

// WithMetrics sets the metrics set the tangle records into (default: a private set).
func WithMetrics(set *metrics.Set) Option {
	return func(t *Tangle) {
		t.metrics = newTangleMetrics(set)
	}
}

// New creates an uninitialized Tangle without providers.
func New(opts ...Option) *Tangle {
	t := &Tangle{
		order: model.AllColumns(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.metrics == nil {
		t.metrics = newTangleMetrics(nil)
	}
	t.columns = make(map[model.ColumnID]struct{}, len(t.order))
	for _, c := range t.order {
		t.columns[c] = struct{}{}
	}
	return t
}

// State returns the current lifecycle state.
func (t *Tangle) State() State {
	return State(t.state.Load())
}

// Providers returns the names of the registered providers in registration order.
func (t *Tangle) Providers() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := make([]string, len(t.providers))
	for i, p := range t.providers {
		names[i] = p.Name()
	}
	return names
}

// Info returns the info of every registered provider in registration order.
func (t *Tangle) Info() []provider.Info {
	t.mu.RLock()
	defer t.mu.RUnlock()

	infos := make([]provider.Info, len(t.providers))
	for i, p := range t.providers {
		infos[i] = p.GetInfo()
	}
	return infos
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

// AddProvider appends p to the chain. Providers can only be added before Init.
// Provider names must be unique within a tangle.
func (t *Tangle) AddProvider(p provider.Provider) error {
	if p == nil {
		return provider.NewError(provider.ErrCInvalidArgument, "nil provider").In("", "add-provider")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	switch s := t.State(); s {
	case StateUninitialized:
	case StateActive:
		return provider.NewError(provider.ErrCInvalidArgument, "providers can only be added before init").In(p.Name(), "add-provider")
	default:
		return stateError(s, "add-provider")
	}

	for _, existing := range t.providers {
		if existing.Name() == p.Name() {
			return provider.NewError(provider.ErrCInvalidArgument, "duplicate provider name").In(p.Name(), "add-provider")
		}
	}
	t.providers = append(t.providers, p)
	return nil
}

// Init opens every provider in registration order. If a provider fails to open,
// the already opened providers are closed in reverse order, the first failure is
// returned as a StorageInitError and the tangle stays uninitialized.
func (t *Tangle) Init() (err error) {
	start := time.Now()
	defer func() { t.metrics.observe("init", start, err) }()

	t.mu.Lock()
	defer t.mu.Unlock()

	switch s := t.State(); s {
	case StateUninitialized:
	case StateActive:
		return provider.NewError(provider.ErrCInvalidArgument, "tangle is already initialized").In("", "init")
	default:
		return stateError(s, "init")
	}

	if len(t.providers) == 0 {
		return provider.NewError(provider.ErrCStorageInit, "no providers registered").In("", "init")
	}

	for i, p := range t.providers {
		if err := p.Open(t.order); err != nil {
			for j := i - 1; j >= 0; j-- {
				if cerr := t.providers[j].Close(); cerr != nil {
					log.Errorf("rollback: failed to close provider %s: %v", t.providers[j].Name(), cerr)
				}
			}
			if provider.CodeOf(err) != provider.ErrCStorageInit {
				return provider.WrapError(provider.ErrCStorageInit, err).In(p.Name(), "init")
			}
			return provider.Annotate(err, provider.ErrCStorageInit, p.Name(), "init", 0, "")
		}
	}

	t.state.Store(int32(StateActive))
	log.Infof("initialized with providers [%s]", strings.Join(t.names(), ", "))
	return nil
}

// Shutdown closes every provider in reverse registration order. Close errors
// don't stop the remaining providers from being closed; they are returned
// combined after all providers were closed.
func (t *Tangle) Shutdown() (err error) {
	start := time.Now()
	defer func() { t.metrics.observe("shutdown", start, err) }()

	// wait for in-flight operations
	t.mu.Lock()
	defer t.mu.Unlock()

	if s := t.State(); s != StateActive {
		return stateError(s, "shutdown")
	}
	t.state.Store(int32(StateShuttingDown))

	for i := len(t.providers) - 1; i >= 0; i-- {
		p := t.providers[i]
		if cerr := p.Close(); cerr != nil {
			log.Errorf("failed to close provider %s: %v", p.Name(), cerr)
			err = multierr.Append(err, provider.Annotate(cerr, provider.ErrCStorageWrite, p.Name(), "shutdown", 0, ""))
		}
	}

	t.state.Store(int32(StateClosed))
	log.Infof("shut down %d providers", len(t.providers))
	return err
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func (t *Tangle) names() []string {
	names := make([]string, len(t.providers))
	for i, p := range t.providers {
		names[i] = p.Name()
	}
	return names
}

// enter acquires the shared lock if the tangle is active.
// The returned function releases it.
func (t *Tangle) enter(op string) (func(), error) {
	t.mu.RLock()
	if err := stateError(t.State(), op); err != nil {
		t.mu.RUnlock()
		return nil, err
	}
	return t.mu.RUnlock, nil
}

func (t *Tangle) checkColumn(op string, c model.ColumnID, key model.Indexable) error {
	if _, ok := t.columns[c]; !ok {
		return provider.NewError(provider.ErrCInvalidArgument, "unknown column").In("", op).At(c, key)
	}
	return nil
}

// FanOutError is returned when an operation succeeded on some providers and
// failed on others. It matches provider.ErrPartialFanOut and unwraps to the
// error of the first failed provider.
type FanOutError struct {
	Op        string
	Succeeded []string
	Failed    []string
	Err       error
}

func (e *FanOutError) Error() string {
	return fmt.Sprintf("tangledb %s (op=%s succeeded=[%s] failed=[%s]): %v",
		provider.ErrCPartialFanOut, e.Op, strings.Join(e.Succeeded, ","), strings.Join(e.Failed, ","), e.Err)
}

func (e *FanOutError) Unwrap() error {
	return e.Err
}

func (e *FanOutError) Is(target error) bool {
	var pe *provider.Error
	return errors.As(target, &pe) && pe.Code == provider.ErrCPartialFanOut
}

// fanOut calls fn for every provider in registration order. All providers are
// attempted; the first error is returned, as a *FanOutError if other providers succeeded.
func (t *Tangle) fanOut(op string, feature provider.Feature, fallback provider.Code, c model.ColumnID, key model.Indexable, fn func(p provider.Provider) error) error {
	var first error
	var succeeded, failed []string

	for _, p := range t.providers {
		var err error
		if !p.SupportsFeature(feature) {
			err = provider.NewError(provider.ErrCUnsupported, fmt.Sprintf("%s is not supported", feature))
		} else {
			err = fn(p)
		}
		if err != nil {
			failed = append(failed, p.Name())
			if first == nil {
				first = provider.Annotate(err, fallback, p.Name(), op, c, key)
			}
			continue
		}
		succeeded = append(succeeded, p.Name())
	}

	if first == nil {
		return nil
	}
	if len(succeeded) > 0 {
		log.Warningf("%s applied partially: succeeded=%v failed=%v: %v", op, succeeded, failed, first)
		return &FanOutError{Op: op, Succeeded: succeeded, Failed: failed, Err: first}
	}
	return first
}

// --------------------------------------------------------------------------
// Read Operations
// --------------------------------------------------------------------------

// Load returns the value of the first provider (in registration order) that
// holds key. A missing key is reported as loaded == false, never as an error.
func (t *Tangle) Load(column model.ColumnID, key model.Indexable) (value model.Value, loaded bool, err error) {
	start := time.Now()
	defer func() { t.metrics.observe("load", start, err) }()

	release, err := t.enter("load")
	if err != nil {
		return model.Value{}, false, err
	}
	defer release()

	if err := t.checkColumn("load", column, key); err != nil {
		return model.Value{}, false, err
	}

	for _, p := range t.providers {
		if !p.SupportsFeature(provider.FeatureGet) {
			continue
		}
		v, ok, err := p.Get(column, key)
		if err != nil {
			return model.Value{}, false, provider.Annotate(err, provider.ErrCStorageRead, p.Name(), "load", column, key)
		}
		if ok {
			t.metrics.hit(p.Name())
			return v, true, nil
		}
	}
	t.metrics.miss()
	return model.Value{}, false, nil
}

// LoadAs loads key from the typed column and decodes it.
func LoadAs[T model.Persistable](t *Tangle, column model.TypedColumn[T], key model.Indexable) (T, bool, error) {
	var zero T
	v, ok, err := t.Load(column.ID, key)
	if err != nil || !ok {
		return zero, ok, err
	}
	out, err := column.Decode(key, v)
	if err != nil {
		return zero, false, provider.WrapError(provider.ErrCStorageRead, err).In("", "load").At(column.ID, key)
	}
	return out, true, nil
}

// Entry is a key and its value.
type Entry struct {
	Key   model.Indexable
	Value model.Value
}

// Scan calls fn for every key of column held by any provider, in ascending key
// order. If several providers hold a key, the value of the first one wins.
func (t *Tangle) Scan(column model.ColumnID, fn func(key model.Indexable, value model.Value) bool) (err error) {
	start := time.Now()
	defer func() { t.metrics.observe("scan", start, err) }()

	entries, err := t.collect(column)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !fn(e.Key, e.Value) {
			break
		}
	}
	return nil
}

// FetchAll returns all entries of column in ascending key order (see Scan).
func (t *Tangle) FetchAll(column model.ColumnID) (entries []Entry, err error) {
	start := time.Now()
	defer func() { t.metrics.observe("fetch-all", start, err) }()

	return t.collect(column)
}

// collect merges the column of all providers. fn callbacks of Scan run after
// the shared lock was released.
func (t *Tangle) collect(column model.ColumnID) ([]Entry, error) {
	release, err := t.enter("scan")
	if err != nil {
		return nil, err
	}
	defer release()

	if err := t.checkColumn("scan", column, ""); err != nil {
		return nil, err
	}

	seen := make(map[model.Indexable]struct{})
	var entries []Entry
	for _, p := range t.providers {
		if !p.SupportsFeature(provider.FeatureScan) {
			continue
		}
		err := p.Scan(column, func(key model.Indexable, value model.Value) bool {
			if _, ok := seen[key]; !ok {
				seen[key] = struct{}{}
				entries = append(entries, Entry{Key: key, Value: value})
			}
			return true
		})
		if err != nil {
			return nil, provider.Annotate(err, provider.ErrCStorageRead, p.Name(), "scan", column, "")
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

// --------------------------------------------------------------------------
// Write Operations
// --------------------------------------------------------------------------

// Store writes value under key into the column of value, on every provider.
func (t *Tangle) Store(key model.Indexable, value model.Persistable) (err error) {
	start := time.Now()
	defer func() { t.metrics.observe("store", start, err) }()

	release, err := t.enter("store")
	if err != nil {
		return err
	}
	defer release()

	if value == nil {
		return provider.NewError(provider.ErrCInvalidArgument, "nil value").In("", "store").At(0, key)
	}
	column := value.Column()
	if err := t.checkColumn("store", column, key); err != nil {
		return err
	}

	v := model.ValueOf(value)
	return t.fanOut("store", provider.FeaturePut, provider.ErrCStorageWrite, column, key, func(p provider.Provider) error {
		return p.Put(column, key, v)
	})
}

// Delete removes key from column on every provider. Deleting an absent key is not an error.
func (t *Tangle) Delete(column model.ColumnID, key model.Indexable) (err error) {
	start := time.Now()
	defer func() { t.metrics.observe("delete", start, err) }()

	release, err := t.enter("delete")
	if err != nil {
		return err
	}
	defer release()

	if err := t.checkColumn("delete", column, key); err != nil {
		return err
	}
	return t.fanOut("delete", provider.FeatureDelete, provider.ErrCStorageWrite, column, key, func(p provider.Provider) error {
		return p.Delete(column, key)
	})
}

// ClearColumn removes every record of column on every provider.
func (t *Tangle) ClearColumn(column model.ColumnID) (err error) {
	start := time.Now()
	defer func() { t.metrics.observe("clear-column", start, err) }()

	release, err := t.enter("clear-column")
	if err != nil {
		return err
	}
	defer release()

	if err := t.checkColumn("clear-column", column, ""); err != nil {
		return err
	}
	log.Infof("clearing column %s", column)
	return t.fanOut("clear-column", provider.FeatureClearColumn, provider.ErrCStorageWrite, column, "", func(p provider.Provider) error {
		return p.ClearColumn(column)
	})
}

// ClearMetadata removes the metadata of every record of column on every
// provider. Payloads stay loadable.
func (t *Tangle) ClearMetadata(column model.ColumnID) (err error) {
	start := time.Now()
	defer func() { t.metrics.observe("clear-metadata", start, err) }()

	release, err := t.enter("clear-metadata")
	if err != nil {
		return err
	}
	defer release()

	if err := t.checkColumn("clear-metadata", column, ""); err != nil {
		return err
	}
	log.Infof("clearing metadata of column %s", column)
	return t.fanOut("clear-metadata", provider.FeatureClearMetadata, provider.ErrCStorageWrite, column, "", func(p provider.Provider) error {
		return p.ClearMetadata(column)
	})
}
