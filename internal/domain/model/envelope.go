package model

import (
	"errors"

	"github.com/ivankudzin/oneclick/internal/domain/errs"
)

type EnvelopeStatus string

const (
	EnvelopeStatusOK    EnvelopeStatus = "ok"
	EnvelopeStatusError EnvelopeStatus = "error"
)

// Envelope is the uniform result of every orchestrator operation. Err is set
// only when Status is error.
type Envelope[T any] struct {
	Status  EnvelopeStatus
	Data    T
	Message string
	Err     *errs.Error
}

func OK[T any](data T) Envelope[T] {
	return Envelope[T]{Status: EnvelopeStatusOK, Data: data}
}

func OKWithMessage[T any](data T, message string) Envelope[T] {
	return Envelope[T]{Status: EnvelopeStatusOK, Data: data, Message: message}
}

func Fail[T any](err error) Envelope[T] {
	return Envelope[T]{Status: EnvelopeStatusError, Err: errs.Classify(err)}
}

func (e Envelope[T]) IsOK() bool {
	return e.Status == EnvelopeStatusOK
}

// Reason returns the classified error code, or "" for ok envelopes.
func (e Envelope[T]) Reason() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Reason
}

func (e Envelope[T]) Is(target error) bool {
	if e.Err == nil {
		return false
	}
	return errors.Is(e.Err, target)
}
