package errs

import (
	"errors"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

type Kind string

const (
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindNotFound   Kind = "not_found"
	KindGateway    Kind = "gateway"
	KindDecode     Kind = "decode"
	KindInternal   Kind = "internal" // store and infrastructure faults
)

const (
	ReasonInternal    = "INTERNAL_ERROR"
	ReasonInvalidHash = "INVALID_HASH"
)

var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrConflict   = &Error{Kind: KindConflict}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrGateway    = &Error{Kind: KindGateway}
	ErrDecode     = &Error{Kind: KindDecode}
	ErrInternal   = &Error{Kind: KindInternal}
)

// Error is a classified failure. Reason is a stable upper-snake code that is
// returned to callers verbatim.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	reason := e.Reason
	if reason == "" {
		reason = string(e.Kind)
	}
	if e.Err != nil {
		return reason + ": " + e.Err.Error()
	}
	return reason
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches on kind, and on reason when the target carries one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

func Validation(reason string) *Error {
	return &Error{Kind: KindValidation, Reason: reason}
}

func Conflict(reason string) *Error {
	return &Error{Kind: KindConflict, Reason: reason}
}

func NotFound(reason string) *Error {
	return &Error{Kind: KindNotFound, Reason: reason}
}

func Gateway(reason string, err error) *Error {
	return &Error{Kind: KindGateway, Reason: reason, Err: err}
}

func Decode(err error) *Error {
	return &Error{Kind: KindDecode, Reason: ReasonInvalidHash, Err: err}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Reason: ReasonInternal, Err: err}
}

// Classify returns err as a classified error, treating anything unclassified
// as internal.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) && classified != nil {
		return classified
	}
	return Internal(err)
}

func (e *Error) ToServiceError() *goerrors.Error {
	if e == nil {
		return nil
	}
	category, status := serviceCategory(e.Kind)
	return goerrors.New(e.Error(), category).
		WithCode(status).
		WithTextCode(e.Reason).
		WithMetadata(map[string]any{
			"kind": string(e.Kind),
		})
}

func serviceCategory(kind Kind) (goerrors.Category, int) {
	switch kind {
	case KindValidation:
		return goerrors.CategoryValidation, http.StatusBadRequest
	case KindDecode:
		return goerrors.CategoryBadInput, http.StatusBadRequest
	case KindNotFound:
		return goerrors.CategoryNotFound, http.StatusNotFound
	case KindConflict:
		return goerrors.CategoryConflict, http.StatusConflict
	case KindGateway:
		return goerrors.CategoryExternal, http.StatusBadGateway
	default:
		return goerrors.CategoryInternal, http.StatusInternalServerError
	}
}
