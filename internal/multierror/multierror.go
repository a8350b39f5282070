package multierror

import (
	"fmt"
	"strings"
	"sync"
)

// Error combines multiple keyed errors into one. It is used when an
// operation fans out over several targets (replicas, cluster names) and
// each failure needs to stay attributable to its target.
type Error[T comparable] struct {
	mu     sync.Mutex
	errors map[T]error
}

// New creates an empty Error.
func New[T comparable]() *Error[T] {
	return &Error[T]{
		errors: make(map[T]error),
	}
}

// Add records an error under the given key, replacing any previous one.
func (m *Error[T]) Add(key T, err error) {
	m.mu.Lock()
	m.errors[key] = err
	m.mu.Unlock()
}

// Get returns the error recorded under the given key.
func (m *Error[T]) Get(key T) (error, bool) {
	if err := m.errors[key]; err != nil {
		return err, true
	}

	return nil, false
}

// Len returns the number of recorded errors.
func (m *Error[T]) Len() int {
	return len(m.errors)
}

// Error returns a string representation of all recorded errors.
func (m *Error[T]) Error() string {
	var sb strings.Builder
	for k, v := range m.errors {
		fmt.Fprintf(&sb, "%v: %s; ", k, v)
	}

	return strings.TrimSuffix(sb.String(), "; ")
}

// Unwrap returns the recorded errors as a slice.
func (m *Error[T]) Unwrap() []error {
	errs := make([]error, 0, len(m.errors))
	for _, v := range m.errors {
		errs = append(errs, v)
	}

	return errs
}

// Combined returns the Error itself if it holds at least one error, and
// nil otherwise, so it can be returned directly from a function.
func (m *Error[T]) Combined() error {
	if len(m.errors) == 0 {
		return nil
	}

	return m
}
