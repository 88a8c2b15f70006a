package utils

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a conversion failure. Both kinds are fatal.
type ErrorKind int

const (
	ErrConfiguration ErrorKind = iota
	ErrIO
)

func (k ErrorKind) String() string {
	switch k {
	case ErrConfiguration:
		return "configuration error"
	case ErrIO:
		return "io error"
	default:
		return "unknown error"
	}
}

// ConversionError wraps an error with its kind and the operation that failed.
type ConversionError struct {
	Kind ErrorKind
	Op   string
	Path string
	Err  error
}

func (e *ConversionError) Error() string {
	msg := e.Kind.String() + ": " + e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConversionError) Unwrap() error { return e.Err }

// ConfigErrorf builds a ConfigurationError for op with a formatted cause.
func ConfigErrorf(op, format string, args ...any) error {
	return &ConversionError{Kind: ErrConfiguration, Op: op, Err: fmt.Errorf(format, args...)}
}

// WrapIO tags err as an IOError. Returns nil for a nil err.
func WrapIO(err error, op, path string) error {
	if err == nil {
		return nil
	}
	return &ConversionError{Kind: ErrIO, Op: op, Path: path, Err: err}
}

// IsConfigurationError reports whether err (or anything it wraps) is a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConversionError
	return errors.As(err, &ce) && ce.Kind == ErrConfiguration
}

// IsIOError reports whether err (or anything it wraps) is an IOError.
func IsIOError(err error) bool {
	var ce *ConversionError
	return errors.As(err, &ce) && ce.Kind == ErrIO
}
