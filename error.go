// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chanrt

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrArgumentNull reports a required argument that was nil.
	ErrArgumentNull = errors.New("chanrt: argument is nil")

	// ErrArgumentOutOfRange reports an argument outside its valid range.
	ErrArgumentOutOfRange = errors.New("chanrt: argument out of range")

	// ErrInvalidOperation reports misuse: double scheduling, double release,
	// writes after extraction, repeated extraction.
	ErrInvalidOperation = errors.New("chanrt: invalid operation")

	// ErrObjectDisposed reports use of an object after Close.
	ErrObjectDisposed = errors.New("chanrt: object disposed")

	// ErrQuotaExceeded is matched by every [*QuotaExceededError].
	ErrQuotaExceeded = errors.New("chanrt: quota exceeded")
)

// ArgumentError carries the offending parameter of a rejected call.
// Kind is [ErrArgumentNull] or [ErrArgumentOutOfRange].
type ArgumentError struct {
	Kind  error
	Name  string
	Value any
}

func (e *ArgumentError) Error() string {
	if e.Kind == ErrArgumentNull {
		return e.Kind.Error() + ": " + e.Name
	}
	return fmt.Sprintf("%v: %s = %v", e.Kind, e.Name, e.Value)
}

func (e *ArgumentError) Unwrap() error { return e.Kind }

func argNull(name string) error {
	return &ArgumentError{Kind: ErrArgumentNull, Name: name}
}

func argOutOfRange(name string, value any) error {
	return &ArgumentError{Kind: ErrArgumentOutOfRange, Name: name, Value: value}
}

// QuotaExceededError is returned when a write would take a buffer past its
// quota. It is an invalid operation: errors.Is matches both
// [ErrQuotaExceeded] and [ErrInvalidOperation].
type QuotaExceededError struct {
	Quota int
}

func (e *QuotaExceededError) Error() string {
	return "chanrt: buffer quota of " + strconv.Itoa(e.Quota) + " bytes exceeded"
}

func (e *QuotaExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded || target == ErrInvalidOperation
}

// FatalError is the panic value for unrecoverable scheduler states.
// It is never returned as an error.
type FatalError struct {
	Msg string
}

func (e *FatalError) Error() string { return "chanrt: fatal: " + e.Msg }
