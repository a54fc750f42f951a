package api

import (
	"errors"
	"net/http"

	"github.com/okian/acerace/internal/adapters/repository"
	"github.com/okian/acerace/internal/domain/picks"
	"github.com/okian/acerace/internal/domain/ranking"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = errors.New("backpressure")
	ErrUnauthorized = errors.New("missing or invalid bearer token")
	ErrForbidden    = errors.New("admin role required")
)

// opError tags an error with the operation that produced it. It unwraps to
// both its kind and its cause.
type opError struct {
	op   string
	kind error
	err  error
}

func (e *opError) Error() string {
	msg := e.op
	if e.kind != nil {
		msg += ": " + e.kind.Error()
	}
	if e.err != nil {
		msg += ": " + e.err.Error()
	}
	return msg
}

func (e *opError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.kind != nil {
		out = append(out, e.kind)
	}
	if e.err != nil {
		out = append(out, e.err)
	}
	return out
}

// NewKind returns an error of kind raised by op.
func NewKind(op string, kind error) error {
	return &opError{op: op, kind: kind}
}

// Wrap tags err with op.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &opError{op: op, err: err}
}

// WrapKind tags err with op and classifies it as kind.
func WrapKind(op string, kind, err error) error {
	return &opError{op: op, kind: kind, err: err}
}

// classify maps an error to an HTTP status and a stable error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, picks.ErrHalfFull):
		// A pick set that is malformed on arrival is a bad request; one that
		// collides with stored picks is a conflict.
		if errors.Is(err, repository.ErrInvalid) {
			return http.StatusBadRequest, "half_full"
		}
		return http.StatusConflict, "half_full"
	case errors.Is(err, picks.ErrDuplicatePick):
		if errors.Is(err, repository.ErrInvalid) {
			return http.StatusBadRequest, "duplicate_pick"
		}
		return http.StatusConflict, "duplicate_pick"
	case errors.Is(err, picks.ErrNotReady):
		return http.StatusBadRequest, "incomplete_picks"
	case errors.Is(err, picks.ErrHalfMismatch):
		return http.StatusBadRequest, "half_mismatch"
	case errors.Is(err, ranking.ErrUnknownSortKey):
		return http.StatusBadRequest, "unknown_sort_key"
	case errors.Is(err, ErrBadRequest), errors.Is(err, repository.ErrInvalid):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, repository.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, "forbidden"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
