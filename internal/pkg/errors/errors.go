package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrConfiguration marks fatal setup problems: no topic column, no graph store.
	ErrConfiguration = errors.New("configuration error")
	// ErrStoreConfiguration matches only configuration errors about the graph
	// store, which affect every course rather than one input.
	ErrStoreConfiguration = errors.New("graph store configuration error")
	// ErrDecoding marks input that no configured text encoding could decode.
	ErrDecoding = errors.New("decoding error")
	// ErrStoreUnavailable marks an unreachable graph backend.
	ErrStoreUnavailable = errors.New("graph store unavailable")
)

// ConfigScope says what a ConfigurationError is about.
type ConfigScope int

const (
	// ScopeInput covers one syllabus file or table.
	ScopeInput ConfigScope = iota
	// ScopeStore covers the graph backend.
	ScopeStore
)

type ConfigurationError struct {
	Scope   ConfigScope
	Reason  string
	Headers []string
}

func (e *ConfigurationError) Error() string {
	if e == nil {
		return ErrConfiguration.Error()
	}
	if len(e.Headers) > 0 {
		return fmt.Sprintf("%s: %s (headers: %s)", ErrConfiguration, e.Reason, strings.Join(e.Headers, ", "))
	}
	return fmt.Sprintf("%s: %s", ErrConfiguration, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	switch target {
	case ErrConfiguration:
		return true
	case ErrStoreConfiguration:
		return e != nil && e.Scope == ScopeStore
	}
	return false
}

type DecodingError struct {
	Tried []string
}

func (e *DecodingError) Error() string {
	if e == nil || len(e.Tried) == 0 {
		return ErrDecoding.Error()
	}
	return fmt.Sprintf("%s: no supported encoding succeeded (tried %s)", ErrDecoding, strings.Join(e.Tried, ", "))
}

func (e *DecodingError) Is(target error) bool { return target == ErrDecoding }

// StoreError wraps a backend failure that prevented the store from serving a call.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	if e == nil {
		return ErrStoreUnavailable.Error()
	}
	if e.Err == nil {
		return fmt.Sprintf("%s (%s)", ErrStoreUnavailable, e.Op)
	}
	return fmt.Sprintf("%s (%s): %v", ErrStoreUnavailable, e.Op, e.Err)
}

func (e *StoreError) Is(target error) bool { return target == ErrStoreUnavailable }

func (e *StoreError) Unwrap() error { return e.Err }

func Unavailable(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}
