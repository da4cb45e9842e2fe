package util

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/wkalt/lazytree/util/log"
)

/*
Utility functions.
*/

////////////////////////////////////////////////////////////////////////////////

// When returns a if cond is true, otherwise b.
func When[T any](cond bool, a, b T) T {
	if cond {
		return a
	}
	return b
}

// Filter returns the elements of xs for which f returns true.
func Filter[T any](f func(T) bool, xs []T) []T {
	result := make([]T, 0, len(xs))
	for _, x := range xs {
		if f(x) {
			result = append(result, x)
		}
	}
	return result
}

// Map applies f to each element of xs.
func Map[T any, U any](f func(T) U, xs []T) []U {
	result := make([]U, len(xs))
	for i, x := range xs {
		result[i] = f(x)
	}
	return result
}

// EnsureDirectoryExists creates dir and any missing parents.
func EnsureDirectoryExists(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to make directory: %w", err)
		}
	}
	return nil
}

// MaybeWarn logs a warning if f returns an error. It is intended to wrap
// deferred Close calls where an error would not alter program execution.
func MaybeWarn(ctx context.Context, f func() error) {
	if err := f(); err != nil {
		log.Warnf(ctx, "warning: %v", err)
	}
}

// CloseAll closes all closers and returns a wrapped error of the first error
// encountered, annotating the result with any additional errors.
func CloseAll[T io.Closer](closers ...T) error {
	errs := make([]error, len(closers))
	for i, c := range closers {
		if err := c.Close(); err != nil {
			errs[i] = err
		}
	}
	errored := Filter(func(e error) bool { return e != nil }, errs)
	if len(errored) > 0 {
		rest := When(
			len(errored) > 1,
			fmt.Sprintf(" (other errors: %s)", strings.Join(
				Map(func(e error) string { return e.Error() }, errored[1:]), ", ")),
			"",
		)
		return fmt.Errorf("failed to close resource: %w%s", errored[0], rest)
	}
	return nil
}
