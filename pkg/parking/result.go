package parking

import "fmt"

// MalformedError reports an upstream payload whose overall shape could not be used.
type MalformedError struct {
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed payload: %s", e.Reason)
}

// ParseResult is either a decoded value or the reason the payload was malformed.
type ParseResult[T any] struct {
	value  T
	reason string
	ok     bool
}

// Ok wraps a successfully decoded value.
func Ok[T any](v T) ParseResult[T] {
	return ParseResult[T]{value: v, ok: true}
}

// Malformed records why a payload could not be decoded.
func Malformed[T any](format string, args ...any) ParseResult[T] {
	return ParseResult[T]{reason: fmt.Sprintf(format, args...)}
}

// Get returns the value and whether the result is Ok.
func (r ParseResult[T]) Get() (T, bool) {
	return r.value, r.ok
}

// IsMalformed reports whether the payload was rejected.
func (r ParseResult[T]) IsMalformed() bool {
	return !r.ok
}

// Reason is empty for Ok results.
func (r ParseResult[T]) Reason() string {
	return r.reason
}

// Unwrap converts the result into the usual (value, error) pair.
func (r ParseResult[T]) Unwrap() (T, error) {
	if !r.ok {
		return r.value, &MalformedError{Reason: r.reason}
	}
	return r.value, nil
}
