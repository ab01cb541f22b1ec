package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced to feed consumers.
type ErrorKind string

const (
	// KindTransport is a stream-level failure or unexpected closure.
	KindTransport ErrorKind = "transport"
	// KindDataFormat is a message that is not a JSON list of records.
	KindDataFormat ErrorKind = "data_format"
	// KindRecordShape is a single record missing required fields.
	KindRecordShape ErrorKind = "record_shape"
	// KindConfigFetch is a collaborator polling failure.
	KindConfigFetch ErrorKind = "config_fetch"
)

// FeedError carries an ErrorKind alongside the underlying error.
type FeedError struct {
	Kind ErrorKind
	Err  error
}

func (e *FeedError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *FeedError) Unwrap() error {
	return e.Err
}

// NewFeedError wraps err with kind.
func NewFeedError(kind ErrorKind, err error) *FeedError {
	return &FeedError{Kind: kind, Err: err}
}

// KindOf returns the ErrorKind of err, or KindTransport if err carries none.
func KindOf(err error) ErrorKind {
	var fe *FeedError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindTransport
}
