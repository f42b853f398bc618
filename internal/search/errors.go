package search

import (
	"errors"
	"fmt"
)

var (
	// ErrEmbeddingFailed is returned when the query text could not be turned into a vector.
	ErrEmbeddingFailed = errors.New("failed to generate embedding")
	// ErrStorageUnavailable marks a store that could not be reached or queried.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrNotFound marks a hit whose backing row no longer exists.
	ErrNotFound = errors.New("not found")
	// ErrTimeout is returned when the caller's deadline expires mid-query.
	ErrTimeout = errors.New("query timed out")
	// ErrDimensionMismatch is wrapped by DecodeError when vector lengths disagree.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// DecodeError reports a stored vector that does not have the expected shape.
type DecodeError struct {
	Category Category
	Key      string
	Len      int
	Want     int
	Err      error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("decode vector: got %d, want %d", e.Len, e.Want)
	if e.Category != "" {
		msg += fmt.Sprintf(" (category=%s", e.Category)
		if e.Key != "" {
			msg += " key=" + e.Key
		}
		msg += ")"
	} else if e.Key != "" {
		msg += " (key=" + e.Key + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Stage names a step of the query pipeline.
type Stage string

const (
	StageEmbedding Stage = "embedding"
	StageRanking   Stage = "ranking"
	StageMerging   Stage = "merging"
	StageHydrating Stage = "hydrating"
)

// StageError attaches pipeline context to an underlying failure.
type StageError struct {
	Stage    Stage
	Category Category
	Key      string
	Err      error
}

func (e *StageError) Error() string {
	msg := string(e.Stage)
	if e.Category != "" {
		msg += " " + string(e.Category)
	}
	if e.Key != "" {
		msg += " [" + e.Key + "]"
	}
	return msg + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error { return e.Err }

// IsDecodeError reports whether err carries a DecodeError anywhere in its chain.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
