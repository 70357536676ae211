package bench

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/GalRogozinski/tangledb/cmd/util"
	"github.com/GalRogozinski/tangledb/lib/common"
	"github.com/GalRogozinski/tangledb/lib/model"
	"github.com/GalRogozinski/tangledb/lib/tangle"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/rcrowley/go-metrics"
	"go.uber.org/multierr"
)

var log = logger.GetLogger("bench")

// KeyWidth is the width of a transaction hash in trytes.
const KeyWidth = 81

// Options configures a benchmark run.
type Options struct {
	Txs        int           // transactions per iteration
	Iterations int           // measured iterations per scenario
	Warmups    int           // unmeasured iterations per scenario
	Skip       []string      // scenarios not to run
	Dir        string        // root directory for the data of all scenarios
	Config     common.Config // provider configuration, directories are replaced per scenario
}

// Result is the outcome of one scenario.
type Result struct {
	Scenario   string
	Skipped    bool
	Txs        int
	Iterations int64
	Mean       time.Duration // per iteration
	Min        time.Duration
	Max        time.Duration
	P95        time.Duration
}

// PerTx returns the mean time spent on a single transaction.
func (r Result) PerTx() time.Duration {
	if r.Txs == 0 {
		return 0
	}
	return r.Mean / time.Duration(r.Txs)
}

type transaction struct {
	key    model.Indexable
	record *model.Record
}

type scenario struct {
	name     string
	populate bool // store all transactions before every iteration
	run      func(t *tangle.Tangle, txs []transaction) error
}

// scenarios in execution order
var scenarios = []scenario{
	{
		name: "persist",
		run: func(t *tangle.Tangle, txs []transaction) error {
			for _, tx := range txs {
				if err := t.Store(tx.key, tx.record); err != nil {
					return err
				}
			}
			return nil
		},
	},
	{
		name:     "delete",
		populate: true,
		run: func(t *tangle.Tangle, txs []transaction) error {
			for _, tx := range txs {
				if err := t.Delete(model.ColumnTransaction, tx.key); err != nil {
					return err
				}
			}
			return nil
		},
	},
	{
		name:     "drop-all",
		populate: true,
		run:      clearTransactions,
	},
	{
		name:     "delete-batch",
		populate: true,
		run: func(t *tangle.Tangle, txs []transaction) error {
			refs := make([]model.KeyRef, len(txs))
			for i, tx := range txs {
				refs[i] = model.KeyRef{Column: model.ColumnTransaction, Key: tx.key}
			}
			return t.DeleteBatch(refs)
		},
	},
}

// Scenarios returns the names of all scenarios in execution order.
func Scenarios() []string {
	names := make([]string, len(scenarios))
	for i, s := range scenarios {
		names[i] = s.name
	}
	return names
}

// generateTransactions creates n transactions whose hashes and trytes are
// derived from consecutive words of the key sequence.
func generateTransactions(n int) []transaction {
	keys := model.GenerateKeys(n, KeyWidth)
	txs := make([]transaction, n)
	for i, key := range keys {
		trytes := model.ExpandTrytes(string(key), model.TransactionTrytesSize)
		txs[i] = transaction{
			key:    key,
			record: model.NewRecord(model.ColumnTransaction, []byte(trytes), nil),
		}
	}
	return txs
}

func clearTransactions(t *tangle.Tangle, _ []transaction) error {
	if err := t.ClearColumn(model.ColumnTransaction); err != nil {
		return err
	}
	return t.ClearMetadata(model.ColumnTransaction)
}

func populate(t *tangle.Tangle, txs []transaction) error {
	pairs := make([]tangle.Pair, len(txs))
	for i, tx := range txs {
		pairs[i] = tangle.Pair{Key: tx.key, Value: tx.record}
	}
	return t.SaveBatch(pairs)
}

// ValidateSkip returns an error for every name that is not a scenario.
func ValidateSkip(skip []string) error {
	for _, name := range skip {
		if !shouldSkip(name, Scenarios()) {
			return fmt.Errorf("unknown scenario %q (must be one of %s)", name, strings.Join(Scenarios(), ", "))
		}
	}
	return nil
}

func shouldSkip(name string, skip []string) bool {
	for _, s := range skip {
		if s == name {
			return true
		}
	}
	return false
}

// Run executes all scenarios that are not skipped and records the iteration
// times in registry under the scenario names.
func Run(opts Options, registry metrics.Registry) ([]Result, error) {
	if opts.Txs <= 0 || opts.Iterations <= 0 || opts.Warmups < 0 {
		return nil, fmt.Errorf("txs and iterations must be positive, warmups must not be negative")
	}
	if err := ValidateSkip(opts.Skip); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create benchmark directory: %w", err)
	}

	txs := generateTransactions(opts.Txs)
	results := make([]Result, 0, len(scenarios))

	for _, s := range scenarios {
		if shouldSkip(s.name, opts.Skip) {
			results = append(results, Result{Scenario: s.name, Skipped: true})
			continue
		}

		timer := metrics.GetOrRegisterTimer(s.name, registry)
		if err := runTrial(s, opts, txs, timer); err != nil {
			return results, fmt.Errorf("scenario %s failed: %w", s.name, err)
		}

		snap := timer.Snapshot()
		results = append(results, Result{
			Scenario:   s.name,
			Txs:        opts.Txs,
			Iterations: snap.Count(),
			Mean:       time.Duration(snap.Mean()),
			Min:        time.Duration(snap.Min()),
			Max:        time.Duration(snap.Max()),
			P95:        time.Duration(snap.Percentile(0.95)),
		})
	}
	return results, nil
}

// runTrial opens a fresh tangle for the scenario, runs all iterations and
// removes the scenario data afterwards.
func runTrial(s scenario, opts Options, txs []transaction, timer metrics.Timer) (err error) {
	config := opts.Config
	config.DataDir = filepath.Join(opts.Dir, s.name, "data")
	if config.LogDir != "" {
		config.LogDir = filepath.Join(opts.Dir, s.name, "log")
	}
	config.SnapshotPath = ""

	log.Infof("trial setup: %s (%d transactions)", s.name, len(txs))
	t, err := util.OpenTangle(config)
	if err != nil {
		return err
	}
	defer func() {
		log.Infof("trial teardown: %s", s.name)
		err = multierr.Combine(err, t.Shutdown(), os.RemoveAll(filepath.Join(opts.Dir, s.name)))
	}()

	for i := 0; i < opts.Warmups+opts.Iterations; i++ {
		if s.populate {
			if err := populate(t, txs); err != nil {
				return err
			}
		}

		start := time.Now()
		if err := s.run(t, txs); err != nil {
			return err
		}
		if i >= opts.Warmups {
			timer.UpdateSince(start)
		}

		if err := clearTransactions(t, txs); err != nil {
			return err
		}
	}
	return nil
}
