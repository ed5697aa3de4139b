package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	// ErrStoreUnavailable means the record store could not be read or written.
	// It is fatal to the run.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrCollectionNotFound is returned when moving a collection that does not exist.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrCollectionExists is returned when a move would overwrite a collection.
	ErrCollectionExists = errors.New("collection already exists")
	// ErrConfiguration is returned at startup before any mutation.
	ErrConfiguration = errors.New("configuration error")
	// ErrRunInProgress is returned when the run lock is held by another process.
	ErrRunInProgress = errors.New("another run is in progress")
	// ErrInvalidSubscription rejects a creator or feed before it is stored.
	ErrInvalidSubscription = errors.New("invalid subscription")
)

// FailureKind classifies collaborator failures for retry decisions.
type FailureKind string

const (
	FailureTransient FailureKind = "transient"
	FailurePermanent FailureKind = "permanent"
)

// FetchError is returned by source fetchers.
type FetchError struct {
	Source string
	Kind   FailureKind
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s (%s): %v", e.Source, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Transient reports whether the fetch may succeed on retry.
func (e *FetchError) Transient() bool { return e.Kind == FailureTransient }

// JudgementError is returned by judges. Malformed output is permanent.
type JudgementError struct {
	Malformed bool
	Err       error
}

func (e *JudgementError) Error() string {
	if e.Malformed {
		return fmt.Sprintf("malformed judgement: %v", e.Err)
	}
	return fmt.Sprintf("judgement unavailable: %v", e.Err)
}

func (e *JudgementError) Unwrap() error { return e.Err }

func (e *JudgementError) Transient() bool { return !e.Malformed }

// DraftError is returned by drafters.
type DraftError struct {
	Kind FailureKind
	Err  error
}

func (e *DraftError) Error() string {
	return fmt.Sprintf("draft (%s): %v", e.Kind, e.Err)
}

func (e *DraftError) Unwrap() error { return e.Err }

func (e *DraftError) Transient() bool { return e.Kind == FailureTransient }

// KindForStatus classifies an HTTP response status. Rate limiting, request
// timeouts and server errors are transient; other client errors are not.
func KindForStatus(code int) FailureKind {
	switch {
	case code == http.StatusTooManyRequests, code == http.StatusRequestTimeout:
		return FailureTransient
	case code >= http.StatusInternalServerError:
		return FailureTransient
	default:
		return FailurePermanent
	}
}

type transient interface {
	Transient() bool
}

// IsTransient reports whether err is worth retrying. Typed collaborator errors
// decide for themselves; timeouts and network errors are transient; everything
// else, including a cancelled context, is not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var t transient
	if errors.As(err, &t) {
		return t.Transient()
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
