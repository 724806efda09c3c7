package services

import (
	"errors"
	"fmt"
)

// ConflictError signals a create for a feed key that already exists upstream.
type ConflictError struct {
	Key string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("feed %s already exists", e.Key)
}

func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// NoDataError signals a feed that exists but has no readings yet. Distinct
// from the gateway's not-found kind.
type NoDataError struct {
	Key string
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("no data available for feed %s", e.Key)
}

func IsNoData(err error) bool {
	var nde *NoDataError
	return errors.As(err, &nde)
}
