package store

import (
	"errors"
	"fmt"
)

var (
	ErrNotImplemented = errors.New("operation not implemented by this store")
	ErrUnavailable    = errors.New("store unavailable")
	ErrRejected       = errors.New("store rejected the request")
	ErrNotFound       = errors.New("record not found")
)

// OpError records which adapter operation failed and how the store answered.
type OpError struct {
	Op         string
	Entity     string
	StatusCode int
	Detail     string
	Err        error
}

func (e *OpError) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Err)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	return msg
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func NotImplemented(op, entity string) error {
	return &OpError{Op: op, Entity: entity, Err: ErrNotImplemented}
}

func Unavailable(op, entity string, cause error) error {
	return &OpError{Op: op, Entity: entity, Err: ErrUnavailable, Detail: causeText(cause)}
}

func Rejected(op, entity string, cause error) error {
	return &OpError{Op: op, Entity: entity, Err: ErrRejected, Detail: causeText(cause)}
}

func NotFound(op, entity, id string) error {
	return &OpError{Op: op, Entity: entity, Err: ErrNotFound, Detail: id}
}

func causeText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Kind returns a short label for metrics and logs.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotImplemented):
		return "not_implemented"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	case errors.Is(err, ErrRejected):
		return "rejected"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "unknown"
	}
}
