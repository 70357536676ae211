package model

import (
	"sort"
	"testing"
)

func TestIndexable(t *testing.T) {
	a := KeyFromBytes([]byte("A999"))
	b := Indexable("B999")

	if a.Compare(b) >= 0 {
		t.Errorf("Expected %q < %q", a, b)
	}
	if a.Compare(Indexable("A999")) != 0 {
		t.Errorf("Expected equal keys to compare as 0")
	}

	raw := a.Bytes()
	raw[0] = 'X'
	if a != "A999" {
		t.Errorf("Bytes must return a copy, key changed to %q", a)
	}

	m := map[Indexable]int{a: 1}
	if m[Indexable("A999")] != 1 {
		t.Errorf("Expected keys with equal bytes to be equal map keys")
	}
}

func TestColumns(t *testing.T) {
	for _, c := range AllColumns() {
		if !c.Valid() {
			t.Errorf("Column %d should be valid", c)
		}
		parsed, err := ParseColumn(c.String())
		if err != nil {
			t.Errorf("ParseColumn(%s) failed: %v", c, err)
		}
		if parsed != c {
			t.Errorf("Expected %s, got %s", c, parsed)
		}
	}

	if ColumnID(0).Valid() || columnEnd.Valid() {
		t.Errorf("Zero and sentinel columns must not be valid")
	}
	if _, err := ParseColumn("no-such-column"); err == nil {
		t.Errorf("Expected error for unknown column")
	}
	if c, _ := ParseColumn(" Transaction "); c != ColumnTransaction {
		t.Errorf("ParseColumn should ignore case and spaces, got %s", c)
	}
}

func TestValue(t *testing.T) {
	v := Value{Payload: []byte("payload"), Metadata: []byte("meta")}
	c := v.Clone()
	c.Payload[0] = 'X'
	if !v.Equal(Value{Payload: []byte("payload"), Metadata: []byte("meta")}) {
		t.Errorf("Clone must not share memory with the original")
	}

	if (Value{Payload: []byte("a")}).Equal(Value{Payload: []byte("a"), Metadata: []byte{}}) {
		t.Errorf("nil metadata and empty metadata must differ")
	}
	if (Value{Payload: []byte("a")}).Clone().Metadata != nil {
		t.Errorf("Clone must keep nil metadata nil")
	}
}

func TestBatchItems(t *testing.T) {
	rec := NewRecord(ColumnTransaction, []byte("tx"), []byte("meta"))

	w := Write("k", rec)
	if w.Kind != BatchWrite || w.Column != ColumnTransaction || w.Key != "k" {
		t.Errorf("Unexpected write item %s", w)
	}
	if !w.Value.Equal(Value{Payload: []byte("tx"), Metadata: []byte("meta")}) {
		t.Errorf("Write item should carry the record value")
	}

	d := Delete(ColumnAddress, "k")
	if d.Kind != BatchDelete || d.Column != ColumnAddress {
		t.Errorf("Unexpected delete item %s", d)
	}

	col := RecordColumn(ColumnTag)
	decoded, err := col.Decode("k", Value{Payload: []byte("x")})
	if err != nil || decoded.Column() != ColumnTag || string(decoded.Bytes()) != "x" {
		t.Errorf("RecordColumn decoded %+v (err %v)", decoded, err)
	}
}

func TestNextWord(t *testing.T) {
	cases := []struct{ in, out string }{
		{"", "A"},
		{"A", "B"},
		{"Y", "Z"},
		{"Z", "ZA"},
		{"ZA", "ZB"},
		{"ZZ", "ZZA"},
		{"AZ", "BZ"},
		{"b", "C"},
	}
	for _, c := range cases {
		if got := NextWord(c.in); got != c.out {
			t.Errorf("NextWord(%q) = %q, expected %q", c.in, got, c.out)
		}
	}
}

func TestGenerateKeys(t *testing.T) {
	keys := GenerateKeys(1000, 81)
	if len(keys) != 1000 {
		t.Fatalf("Expected 1000 keys, got %d", len(keys))
	}

	seen := make(map[Indexable]bool, len(keys))
	for _, k := range keys {
		if k.Len() != 81 {
			t.Errorf("Key %q has length %d", k, k.Len())
		}
		if seen[k] {
			t.Errorf("Duplicate key %q", k)
		}
		seen[k] = true
	}

	if keys[0] != Indexable(ExpandTrytes("A", 81)) {
		t.Errorf("First key should be the padded 'A', got %q", keys[0])
	}

	if ExpandTrytes("ABC", 2) != "ABC" {
		t.Errorf("ExpandTrytes must not truncate")
	}

	sorted := sort.SliceIsSorted(keys[:26], func(i, j int) bool { return keys[i].Compare(keys[j]) < 0 })
	if !sorted {
		t.Errorf("The first 26 keys should be in ascending order")
	}
}
