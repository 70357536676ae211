package tangle

import (
	"fmt"
	"time"

	"github.com/GalRogozinski/tangledb/lib/model"
	"github.com/GalRogozinski/tangledb/lib/provider"
)

// Batch is an ordered list of writes and deletes. Later items override
// earlier ones for the same column and key. A Batch is not safe for concurrent use.
type Batch struct {
	items []model.BatchItem
	err   error // first invalid item, reported by Apply
}

// NewBatch creates an empty batch.
func NewBatch() *Batch {
	return &Batch{}
}

// Write appends a write of value under key to the column of value.
// A nil value is not appended; it makes Apply fail with InvalidArgument.
func (b *Batch) Write(key model.Indexable, value model.Persistable) *Batch {
	if value == nil {
		if b.err == nil {
			b.err = provider.NewError(provider.ErrCInvalidArgument, "nil value").In("", "batch").At(0, key)
		}
		return b
	}
	b.items = append(b.items, model.Write(key, value))
	return b
}

// Delete appends a delete of key in column.
func (b *Batch) Delete(column model.ColumnID, key model.Indexable) *Batch {
	b.items = append(b.items, model.Delete(column, key))
	return b
}

// Len returns the number of items in the batch.
func (b *Batch) Len() int {
	return len(b.items)
}

// Items returns a copy of the items in batch order.
func (b *Batch) Items() []model.BatchItem {
	out := make([]model.BatchItem, len(b.items))
	copy(out, b.items)
	return out
}

// Pair is a key and the value to store under it.
type Pair struct {
	Key   model.Indexable
	Value model.Persistable
}

// --------------------------------------------------------------------------
// Submission
// --------------------------------------------------------------------------

func (t *Tangle) validateBatch(op string, b *Batch) error {
	if b.err != nil {
		return b.err
	}
	for _, item := range b.items {
		if err := t.checkColumn(op, item.Column, item.Key); err != nil {
			return err
		}
	}
	return nil
}

// Apply submits the batch to every provider with one WriteBatch call each.
// Each provider applies the batch atomically; across providers the same
// partial failure rules as for Store apply. An empty batch is a no-op.
// Failed batches are not retried.
func (t *Tangle) Apply(b *Batch) (err error) {
	start := time.Now()
	defer func() { t.metrics.observe("batch", start, err) }()

	release, err := t.enter("batch")
	if err != nil {
		return err
	}
	defer release()

	if b == nil || (b.Len() == 0 && b.err == nil) {
		return nil
	}
	if err := t.validateBatch("batch", b); err != nil {
		return err
	}

	items := b.items
	return t.fanOut("batch", provider.FeatureBatch, provider.ErrCStorageWrite, 0, "", func(p provider.Provider) error {
		return p.WriteBatch(items)
	})
}

// ApplyTo submits the batch to the named provider only.
func (t *Tangle) ApplyTo(name string, b *Batch) (err error) {
	start := time.Now()
	defer func() { t.metrics.observe("batch", start, err) }()

	release, err := t.enter("batch")
	if err != nil {
		return err
	}
	defer release()

	var target provider.Provider
	for _, p := range t.providers {
		if p.Name() == name {
			target = p
			break
		}
	}
	if target == nil {
		return provider.NewError(provider.ErrCInvalidArgument, fmt.Sprintf("unknown provider %q", name)).In(name, "batch")
	}

	if b == nil || (b.Len() == 0 && b.err == nil) {
		return nil
	}
	if err := t.validateBatch("batch", b); err != nil {
		return err
	}
	if !target.SupportsFeature(provider.FeatureBatch) {
		return provider.NewError(provider.ErrCUnsupported, "batches are not supported").In(name, "batch")
	}
	return provider.Annotate(target.WriteBatch(b.items), provider.ErrCStorageWrite, name, "batch", 0, "")
}

// DeleteBatch deletes all referenced keys with one batch per provider.
func (t *Tangle) DeleteBatch(refs []model.KeyRef) error {
	b := NewBatch()
	for _, ref := range refs {
		b.Delete(ref.Column, ref.Key)
	}
	return t.Apply(b)
}

// SaveBatch stores all pairs with one batch per provider.
func (t *Tangle) SaveBatch(pairs []Pair) error {
	b := NewBatch()
	for _, pair := range pairs {
		if pair.Value == nil {
			return provider.NewError(provider.ErrCInvalidArgument, "nil value").In("", "batch").At(0, pair.Key)
		}
		b.Write(pair.Key, pair.Value)
	}
	return t.Apply(b)
}
