package errors

import (
	"context"
	"encoding/json"
	"errors"
	"net"
)

// Converter turns a backend-defined error value into a harmonized error.
// Backend authors register one converter per error type they produce; the
// built-in default mapping covers common Go error shapes so a custom
// converter is optional.
type Converter interface {
	Convert(err error) (*ServerError, bool)
}

// ConverterFunc adapts a function to the Converter interface.
type ConverterFunc func(err error) (*ServerError, bool)

func (f ConverterFunc) Convert(err error) (*ServerError, bool) {
	return f(err)
}

// Harmonizer applies registered converters in order, falling back to the
// default mapping. The zero value is usable and applies defaults only.
type Harmonizer struct {
	converters []Converter
}

// NewHarmonizer creates a harmonizer with the given converters. Converters
// run in registration order; the first match wins.
func NewHarmonizer(converters ...Converter) *Harmonizer {
	return &Harmonizer{converters: converters}
}

// Register appends a converter. Not safe for concurrent use with Harmonize;
// register everything during backend initialization.
func (h *Harmonizer) Register(c Converter) {
	h.converters = append(h.converters, c)
}

// Harmonize converts any error into a harmonized error. Already-harmonized
// errors pass through unchanged, including ones wrapped with fmt.Errorf.
func (h *Harmonizer) Harmonize(err error) *ServerError {
	if err == nil {
		return nil
	}

	var se *ServerError
	if errors.As(err, &se) {
		return se
	}

	for _, c := range h.converters {
		if converted, ok := c.Convert(err); ok {
			return converted
		}
	}

	return defaultConvert(err)
}

// defaultConvert is the out-of-the-box mapping for common Go error shapes.
func defaultConvert(err error) *ServerError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Wrap(KindTimeout, "operation timed out", err)
	case errors.Is(err, context.Canceled):
		return Wrap(KindInternal, "operation canceled", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return Wrap(KindTimeout, "network timeout", err)
		}
		return Wrap(KindNetwork, "network failure", err)
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return Wrap(KindValidation, "malformed JSON", err)
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return Wrap(KindValidation, "mistyped JSON value", err)
	}

	return Wrap(KindInternal, "internal error", err)
}

// defaultHarmonizer backs the package-level Harmonize.
var defaultHarmonizer = &Harmonizer{}

// Harmonize converts an error using only the default mapping. Routers that
// need backend-specific conversions hold their own Harmonizer.
func Harmonize(err error) *ServerError {
	return defaultHarmonizer.Harmonize(err)
}
