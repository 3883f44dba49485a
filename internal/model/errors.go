package model

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	ErrData             = errors.New("data error")
	ErrConfig           = errors.New("config error")
	ErrComputation      = errors.New("computation error")
	ErrModel            = errors.New("model error")
	ErrInsufficientData = errors.New("insufficient data")
)

// Error reports which component rejected which input and why.
type Error struct {
	Kind      error  // one of the Err* kinds above
	Component string // e.g. "feature", "backtest"
	Input     string // offending input, e.g. "test_size_months"
	Msg       string // violated invariant
	Err       error  // optional cause
}

func (e *Error) Error() string {
	s := fmt.Sprintf("%s: %v: %s: %s", e.Component, e.Kind, e.Input, e.Msg)
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Is matches the error kind, so errors.Is(err, ErrConfig) works on wrapped *Error values.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error { return e.Err }

// DataErrorf builds a data-kind error.
func DataErrorf(component, input, format string, args ...any) error {
	return &Error{Kind: ErrData, Component: component, Input: input, Msg: fmt.Sprintf(format, args...)}
}

// ConfigErrorf builds a config-kind error.
func ConfigErrorf(component, input, format string, args ...any) error {
	return &Error{Kind: ErrConfig, Component: component, Input: input, Msg: fmt.Sprintf(format, args...)}
}

// ComputationErrorf builds a computation-kind error.
func ComputationErrorf(component, input, format string, args ...any) error {
	return &Error{Kind: ErrComputation, Component: component, Input: input, Msg: fmt.Sprintf(format, args...)}
}

// ModelError wraps a fit/predict failure from a regression backend.
func ModelError(component, input string, err error) error {
	return &Error{Kind: ErrModel, Component: component, Input: input, Msg: "backend failure", Err: err}
}
