package tangle

import (
	"errors"
	"testing"

	"github.com/GalRogozinski/tangledb/lib/model"
	"github.com/GalRogozinski/tangledb/lib/provider"
	"github.com/GalRogozinski/tangledb/lib/provider/engines/memory"
)

func TestBatch(t *testing.T) {
	t.Run("Builder", func(t *testing.T) {
		b := NewBatch().
			Write("a", rec(model.ColumnTransaction, "1", "")).
			Delete(model.ColumnApprovee, "b")

		if b.Len() != 2 {
			t.Fatalf("Expected 2 items, got %d", b.Len())
		}
		items := b.Items()
		if items[0].Kind != model.BatchWrite || items[0].Column != model.ColumnTransaction || items[0].Key != "a" {
			t.Errorf("Unexpected first item %s", items[0])
		}
		if items[1].Kind != model.BatchDelete || items[1].Column != model.ColumnApprovee {
			t.Errorf("Unexpected second item %s", items[1])
		}

		// Items returns a copy
		items[0].Key = "changed"
		if b.Items()[0].Key != "a" {
			t.Errorf("Items must not expose the internal slice")
		}
	})

	t.Run("LastWriteWins", func(t *testing.T) {
		tg := newTangle(t, memory.New("a", nil), memory.New("b", nil))
		defer tg.Shutdown()

		b := NewBatch().
			Write("k", rec(model.ColumnTransaction, "first", "")).
			Write("gone", rec(model.ColumnTransaction, "x", "")).
			Write("k", rec(model.ColumnTransaction, "second", "")).
			Delete(model.ColumnTransaction, "gone")
		if err := tg.Apply(b); err != nil {
			t.Fatalf("Unexpected error during Apply: %v", err)
		}

		expectLoad(t, tg, model.ColumnTransaction, "k", "second")
		expectMissing(t, tg, model.ColumnTransaction, "gone")
	})

	t.Run("Empty", func(t *testing.T) {
		tg := newTangle(t, memory.New("mem", nil))
		defer tg.Shutdown()

		if err := tg.Apply(NewBatch()); err != nil {
			t.Errorf("Empty batch should succeed, got %v", err)
		}
		if err := tg.Apply(nil); err != nil {
			t.Errorf("Nil batch should succeed, got %v", err)
		}
		if err := tg.DeleteBatch(nil); err != nil {
			t.Errorf("Empty DeleteBatch should succeed, got %v", err)
		}
		if err := tg.SaveBatch(nil); err != nil {
			t.Errorf("Empty SaveBatch should succeed, got %v", err)
		}
	})

	t.Run("InvalidColumnRejectedUpFront", func(t *testing.T) {
		tg := newTangle(t, memory.New("mem", nil))
		defer tg.Shutdown()

		b := NewBatch().
			Write("k", rec(model.ColumnTransaction, "v", "")).
			Delete(0, "k")
		if err := tg.Apply(b); !errors.Is(err, provider.ErrInvalidArgument) {
			t.Errorf("Expected InvalidArgument, got %v", err)
		}
		expectMissing(t, tg, model.ColumnTransaction, "k")
	})

	t.Run("NilValueRejected", func(t *testing.T) {
		tg := newTangle(t, memory.New("mem", nil))
		defer tg.Shutdown()

		b := NewBatch().
			Write("ok", rec(model.ColumnTransaction, "v", "")).
			Write("nil", nil)
		if b.Len() != 1 {
			t.Errorf("Expected the nil write not to be appended, got %d items", b.Len())
		}
		if err := tg.Apply(b); !errors.Is(err, provider.ErrInvalidArgument) {
			t.Errorf("Expected InvalidArgument, got %v", err)
		}
		expectMissing(t, tg, model.ColumnTransaction, "ok")

		if err := tg.ApplyTo("mem", NewBatch().Write("nil", nil)); !errors.Is(err, provider.ErrInvalidArgument) {
			t.Errorf("Expected InvalidArgument from ApplyTo, got %v", err)
		}
	})

	t.Run("SaveBatch", func(t *testing.T) {
		tg := newTangle(t, memory.New("mem", nil))
		defer tg.Shutdown()

		pairs := []Pair{
			{Key: "tx", Value: rec(model.ColumnTransaction, "tx", "")},
			{Key: "ms", Value: rec(model.ColumnMilestone, "ms", "")},
		}
		if err := tg.SaveBatch(pairs); err != nil {
			t.Fatalf("Unexpected error during SaveBatch: %v", err)
		}
		expectLoad(t, tg, model.ColumnTransaction, "tx", "tx")
		expectLoad(t, tg, model.ColumnMilestone, "ms", "ms")

		if err := tg.SaveBatch([]Pair{{Key: "nil"}}); !errors.Is(err, provider.ErrInvalidArgument) {
			t.Errorf("Expected InvalidArgument for a nil value, got %v", err)
		}
	})

	t.Run("ApplyTo", func(t *testing.T) {
		tg := newTangle(t, memory.New("a", nil), memory.New("b", nil))
		defer tg.Shutdown()

		if err := tg.ApplyTo("b", NewBatch().Write("k", rec(model.ColumnTransaction, "only-b", ""))); err != nil {
			t.Fatalf("Unexpected error during ApplyTo: %v", err)
		}
		expectLoad(t, tg, model.ColumnTransaction, "k", "only-b")

		if err := tg.ApplyTo("unknown", NewBatch()); !errors.Is(err, provider.ErrInvalidArgument) {
			t.Errorf("Expected InvalidArgument for an unknown provider, got %v", err)
		}
	})

	t.Run("ClosedTangle", func(t *testing.T) {
		tg := newTangle(t, memory.New("mem", nil))
		if err := tg.Shutdown(); err != nil {
			t.Fatal(err)
		}
		if err := tg.Apply(NewBatch().Delete(model.ColumnTransaction, "k")); !errors.Is(err, provider.ErrAlreadyClosed) {
			t.Errorf("Expected AlreadyClosed, got %v", err)
		}
	})
}
