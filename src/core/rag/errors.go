package rag

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyDocument  = errors.New("document is empty")
	ErrInvalidSplit   = errors.New("chunk overlap must be smaller than chunk size")
	ErrIndexNotLoaded = errors.New("vector index is not loaded")
	ErrIndexLoaded    = errors.New("vector index is already loaded")
	ErrVectorCount    = errors.New("chunk and vector counts differ")
)

// Kind classifies why answering a query failed.
type Kind int

const (
	KindEmptyQuery Kind = iota + 1
	KindRetrieval
	KindGeneration
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindEmptyQuery:
		return "empty query"
	case KindRetrieval:
		return "retrieval"
	case KindGeneration:
		return "generation"
	case KindTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// QueryError is the error returned by Answerer.Answer.
type QueryError struct {
	Kind Kind
	Err  error
}

func (e *QueryError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// KindOf reports the Kind carried by err, or 0 when err is not a QueryError.
func KindOf(err error) Kind {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Kind
	}
	return 0
}
