package model

import (
	"bytes"
	"fmt"
	"strings"
)

// --------------------------------------------------------------------------
// Keys
// --------------------------------------------------------------------------

// Indexable is an opaque, immutable key. Two keys are equal iff their bytes are equal.
type Indexable string

// KeyFromBytes creates a key from a byte slice. The slice is copied.
func KeyFromBytes(b []byte) Indexable {
	return Indexable(b)
}

// Bytes returns the canonical byte representation of the key (a fresh copy).
func (k Indexable) Bytes() []byte {
	return []byte(k)
}

// Compare returns -1, 0 or +1 depending on the byte order of k and o.
func (k Indexable) Compare(o Indexable) int {
	return strings.Compare(string(k), string(o))
}

// Len returns the length of the key in bytes.
func (k Indexable) Len() int {
	return len(k)
}

// --------------------------------------------------------------------------
// Columns
// --------------------------------------------------------------------------

// ColumnID identifies the column (entity type) a value belongs to.
// The zero value is not a valid column.
type ColumnID uint8

const (
	ColumnTransaction ColumnID = iota + 1 // transaction records (payload) and their metadata
	ColumnMilestone                       // milestone records
	ColumnStateDiff                       // ledger state diffs
	ColumnAddress                         // address -> transaction index
	ColumnApprovee                        // approvee -> transaction index
	ColumnBundle                          // bundle -> transaction index
	ColumnObsoleteTag                     // obsolete tag -> transaction index
	ColumnTag                             // tag -> transaction index

	columnEnd // sentinel, must stay last
)

var columnNames = map[ColumnID]string{
	ColumnTransaction: "transaction",
	ColumnMilestone:   "milestone",
	ColumnStateDiff:   "state-diff",
	ColumnAddress:     "address",
	ColumnApprovee:    "approvee",
	ColumnBundle:      "bundle",
	ColumnObsoleteTag: "obsolete-tag",
	ColumnTag:         "tag",
}

func (c ColumnID) String() string {
	if name, ok := columnNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", uint8(c))
}

// Valid reports whether c is one of the declared columns.
func (c ColumnID) Valid() bool {
	return c > 0 && c < columnEnd
}

// AllColumns returns all declared columns in ascending order.
func AllColumns() []ColumnID {
	cols := make([]ColumnID, 0, int(columnEnd)-1)
	for c := ColumnID(1); c < columnEnd; c++ {
		cols = append(cols, c)
	}
	return cols
}

// ParseColumn returns the column with the given name (see ColumnID.String).
func ParseColumn(name string) (ColumnID, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for c, n := range columnNames {
		if n == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown column %q", name)
}

// --------------------------------------------------------------------------
// Values
// --------------------------------------------------------------------------

// Persistable is a value bound to exactly one column. The primary payload and the
// metadata are serialized independently so the metadata can be cleared on its own.
type Persistable interface {
	// Column returns the column this value belongs to.
	Column() ColumnID
	// Bytes returns the serialized primary payload.
	Bytes() []byte
	// Metadata returns the serialized metadata or nil if there is none.
	Metadata() []byte
}

// Value is the unit stored and returned by providers.
type Value struct {
	Payload  []byte
	Metadata []byte // nil = no metadata
}

// ValueOf extracts the storable value of a Persistable.
func ValueOf(p Persistable) Value {
	return Value{Payload: p.Bytes(), Metadata: p.Metadata()}
}

// Clone returns a deep copy of the value.
func (v Value) Clone() Value {
	out := Value{Payload: make([]byte, len(v.Payload))}
	copy(out.Payload, v.Payload)
	if v.Metadata != nil {
		out.Metadata = make([]byte, len(v.Metadata))
		copy(out.Metadata, v.Metadata)
	}
	return out
}

// Equal reports whether both values hold the same bytes.
// A nil and an empty metadata slice are not equal: nil means "no metadata".
func (v Value) Equal(o Value) bool {
	if (v.Metadata == nil) != (o.Metadata == nil) {
		return false
	}
	return bytes.Equal(v.Payload, o.Payload) && bytes.Equal(v.Metadata, o.Metadata)
}

// Record is a generic Persistable.
type Record struct {
	Col  ColumnID
	Data []byte
	Meta []byte
}

// NewRecord creates a record for the given column.
func NewRecord(column ColumnID, data, meta []byte) *Record {
	return &Record{Col: column, Data: data, Meta: meta}
}

func (r *Record) Column() ColumnID { return r.Col }
func (r *Record) Bytes() []byte    { return r.Data }
func (r *Record) Metadata() []byte { return r.Meta }

// TypedColumn binds a column to the decoder of its entity type.
type TypedColumn[T Persistable] struct {
	ID     ColumnID
	Decode func(key Indexable, v Value) (T, error)
}

// RecordColumn returns a TypedColumn decoding into *Record.
func RecordColumn(column ColumnID) TypedColumn[*Record] {
	return TypedColumn[*Record]{
		ID: column,
		Decode: func(_ Indexable, v Value) (*Record, error) {
			return &Record{Col: column, Data: v.Payload, Meta: v.Metadata}, nil
		},
	}
}

// --------------------------------------------------------------------------
// Batch Items
// --------------------------------------------------------------------------

// BatchKind distinguishes the variants of a BatchItem.
type BatchKind uint8

const (
	BatchWrite BatchKind = iota + 1 // upsert Value under Key in Column
	BatchDelete                     // remove Key from Column
)

func (k BatchKind) String() string {
	switch k {
	case BatchWrite:
		return "Write"
	case BatchDelete:
		return "Delete"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(k))
	}
}

// BatchItem is a single operation of an ordered batch.
type BatchItem struct {
	Kind   BatchKind
	Column ColumnID
	Key    Indexable
	Value  Value // only set for BatchWrite
}

// Write creates a write item. The column is taken from the value.
func Write(key Indexable, value Persistable) BatchItem {
	return BatchItem{
		Kind:   BatchWrite,
		Column: value.Column(),
		Key:    key,
		Value:  ValueOf(value),
	}
}

// Delete creates a delete item.
func Delete(column ColumnID, key Indexable) BatchItem {
	return BatchItem{
		Kind:   BatchDelete,
		Column: column,
		Key:    key,
	}
}

func (i BatchItem) String() string {
	return fmt.Sprintf("BatchItem{Kind: %s, Column: %s, Key: %q}", i.Kind, i.Column, string(i.Key))
}

// KeyRef addresses a record without loading it.
type KeyRef struct {
	Column ColumnID
	Key    Indexable
}
