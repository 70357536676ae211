package tangle

import (
	"fmt"

	"github.com/GalRogozinski/tangledb/lib/provider"
)

// State is the lifecycle state of a Tangle.
type State int32

const (
	StateUninitialized State = iota // providers can be added, Init not called yet
	StateActive                     // Init succeeded, operations are accepted
	StateShuttingDown               // Shutdown is closing the providers
	StateClosed                     // every provider was closed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateActive:
		return "Active"
	case StateShuttingDown:
		return "ShuttingDown"
	case StateClosed:
		return "Closed"
	default:
		return fmt.Sprintf("Unknown(%d)", int32(s))
	}
}

// stateError returns the error for an operation issued in state s, or nil if s is Active.
func stateError(s State, op string) error {
	switch s {
	case StateActive:
		return nil
	case StateUninitialized:
		return provider.NewError(provider.ErrCNotInitialized, "tangle is not initialized").In("", op)
	default:
		return provider.NewError(provider.ErrCAlreadyClosed, fmt.Sprintf("tangle is %s", s)).In("", op)
	}
}
