package store

import (
	"errors"
	"fmt"
)

// ErrRecordNotFound is matched by errors.Is for every failed point lookup.
var ErrRecordNotFound = errors.New("record not found")

// NotFoundError reports a point lookup that matched no row.
type NotFoundError struct {
	Model  string
	Column string
	Key    any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found (%s=%v)", e.Model, e.Column, e.Key)
}

func (e *NotFoundError) Unwrap() error {
	return ErrRecordNotFound
}

// InvalidIncludeError reports a plan entry that cannot be preloaded.
type InvalidIncludeError struct {
	Model    string
	Relation string
	Reason   string
}

func (e *InvalidIncludeError) Error() string {
	return fmt.Sprintf("cannot preload %s.%s: %s", e.Model, e.Relation, e.Reason)
}
