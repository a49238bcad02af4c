// Copyright 2025 Fedict
// SPDX-License-Identifier: Apache-2.0

package triplestore

import (
	"errors"
	"fmt"
)

var (
	// Matches every failure of an exchange with the store
	ErrStoreOperationFailed = errors.New("triplestore operation failed")
	// Matches failures of exchanges that modify the store
	ErrStoreWrite = errors.New("triplestore write failed")
	// Returned when a delete names neither a subject nor a graph
	ErrMissingFilter = errors.New("neither subject nor graph given")
)

// OperationError wraps the cause of a failed store exchange
type OperationError struct {
	// name of the gateway operation, e.g. "fetch" or "add"
	Op    string
	Write bool
	// the response status, 0 when no response was received
	Status int
	Err    error
}

func (e *OperationError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d): %v", ErrStoreOperationFailed, e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", ErrStoreOperationFailed, e.Op, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

func (e *OperationError) Is(target error) bool {
	switch target {
	case ErrStoreOperationFailed:
		return true
	case ErrStoreWrite:
		return e.Write
	}
	return false
}
