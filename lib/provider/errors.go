package provider

import (
	"errors"
	"fmt"
	"strings"

	"github.com/GalRogozinski/tangledb/lib/model"
)

// --------------------------------------------------------------------------
// Error Codes
// --------------------------------------------------------------------------

type Code uint64

const (
	ErrCStorageInit     Code = iota + 1 // 1: medium unreachable or corrupt at open
	ErrCStorageWrite                    // 2: I/O failure during put/delete/batch/clear
	ErrCStorageRead                     // 3: I/O failure (or corruption) during get/scan
	ErrCNotInitialized                  // 4: operation before open/init
	ErrCAlreadyClosed                   // 5: operation after close/shutdown
	ErrCPartialFanOut                   // 6: a fan-out succeeded on some providers and failed on others
	ErrCUnsupported                     // 7: operation not supported by the provider
	ErrCInvalidArgument                 // 8: unknown column, nil value, ...
)

func (c Code) String() string {
	switch c {
	case ErrCStorageInit:
		return "StorageInitError"
	case ErrCStorageWrite:
		return "StorageWriteError"
	case ErrCStorageRead:
		return "StorageReadError"
	case ErrCNotInitialized:
		return "NotInitializedError"
	case ErrCAlreadyClosed:
		return "AlreadyClosedError"
	case ErrCPartialFanOut:
		return "PartialFanOutError"
	case ErrCUnsupported:
		return "UnsupportedOperation"
	case ErrCInvalidArgument:
		return "InvalidArgument"
	default:
		return fmt.Sprintf("Unknown(%d)", uint64(c))
	}
}

// Sentinels for errors.Is. Any *Error matches the sentinel with the same code.
var (
	ErrStorageInit     = &Error{Code: ErrCStorageInit}
	ErrStorageWrite    = &Error{Code: ErrCStorageWrite}
	ErrStorageRead     = &Error{Code: ErrCStorageRead}
	ErrNotInitialized  = &Error{Code: ErrCNotInitialized}
	ErrAlreadyClosed   = &Error{Code: ErrCAlreadyClosed}
	ErrPartialFanOut   = &Error{Code: ErrCPartialFanOut}
	ErrUnsupported     = &Error{Code: ErrCUnsupported}
	ErrInvalidArgument = &Error{Code: ErrCInvalidArgument}
)

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is the error type returned by providers and the tangle. It carries a
// code, the identity of the provider and the column/key the operation addressed.
type Error struct {
	Code     Code
	Provider string          // provider name, empty if not known
	Op       string          // operation name (get, put, batch, ...)
	Column   model.ColumnID  // 0 if the operation is not bound to a column
	Key      model.Indexable // empty if the operation is not bound to a key
	Msg      string
	Err      error // underlying engine error, may be nil
}

// maxKeyInMsg limits how much of a key is printed, keys can be kilobytes long.
const maxKeyInMsg = 24

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString("tangledb ")
	sb.WriteString(e.Code.String())

	var ctx []string
	if e.Provider != "" {
		ctx = append(ctx, "provider="+e.Provider)
	}
	if e.Op != "" {
		ctx = append(ctx, "op="+e.Op)
	}
	if e.Column != 0 {
		ctx = append(ctx, "column="+e.Column.String())
	}
	if e.Key != "" {
		k := string(e.Key)
		if len(k) > maxKeyInMsg {
			k = k[:maxKeyInMsg] + "..."
		}
		ctx = append(ctx, fmt.Sprintf("key=%q", k))
	}
	if len(ctx) > 0 {
		sb.WriteString(" (")
		sb.WriteString(strings.Join(ctx, " "))
		sb.WriteString(")")
	}
	if e.Msg != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Msg)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying engine error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new Error with the given code and message.
func NewError(code Code, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// WrapError creates a new Error with the given code wrapping err.
func WrapError(code Code, err error) *Error {
	return &Error{
		Code: code,
		Err:  err,
	}
}

// In sets the provider and operation of the error and returns it.
func (e *Error) In(provider, op string) *Error {
	e.Provider = provider
	e.Op = op
	return e
}

// At sets the column and key of the error and returns it.
func (e *Error) At(column model.ColumnID, key model.Indexable) *Error {
	e.Column = column
	e.Key = key
	return e
}

// Annotate returns err enriched with provider and operation context.
// An *Error is copied and only its missing fields are filled in; any other
// error is wrapped with the fallback code.
func Annotate(err error, fallback Code, provider, op string, column model.ColumnID, key model.Indexable) error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		cp := *pe
		if cp.Provider == "" {
			cp.Provider = provider
		}
		if cp.Op == "" {
			cp.Op = op
		}
		if cp.Column == 0 {
			cp.Column = column
		}
		if cp.Key == "" {
			cp.Key = key
		}
		return &cp
	}
	return WrapError(fallback, err).In(provider, op).At(column, key)
}

// CodeOf returns the code of the first *Error in err's chain, or 0.
func CodeOf(err error) Code {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return 0
}
