package client

import (
	"errors"
	"io"
	"iter"
	"log/slog"
)

// lineSource produces the payload lines of a streamed response.
type lineSource interface {
	Next() (string, error)
	Close() error
}

// Stream is a forward-only sequence of values decoded one line at a time
// from a streamed response. The first failure ends the stream and is
// reported by Err. The connection is released when the stream ends or is
// closed.
//
//	for s.Next() {
//		use(s.Current())
//	}
//	if err := s.Err(); err != nil { ... }
type Stream[T any] struct {
	src    lineSource
	path   string
	logger *slog.Logger
	cur    T
	err    error
	done   bool
}

func newStream[T any](src lineSource, path string, logger *slog.Logger) *Stream[T] {
	return &Stream[T]{src: src, path: path, logger: logger}
}

// Next decodes the next value. It returns false at the end of the stream or
// on the first error.
func (s *Stream[T]) Next() bool {
	if s.done {
		return false
	}

	line, err := s.src.Next()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			s.err = err
		}
		s.finish()
		return false
	}

	v, err := decodeStreamLine[T](line, s.path)
	if err != nil {
		s.logger.Warn("plugin daemon stream failed", "path", s.path, "error", err)
		s.err = err
		s.finish()
		return false
	}

	s.cur = v
	return true
}

// Current returns the value decoded by the last successful Next.
func (s *Stream[T]) Current() T {
	return s.cur
}

// Err returns the error that ended the stream, or nil after a clean end.
func (s *Stream[T]) Err() error {
	return s.err
}

// Close releases the connection. It is safe to call more than once.
func (s *Stream[T]) Close() error {
	s.done = true
	return s.src.Close()
}

// All ranges over the remaining values. A failure is yielded once as the
// final pair. Breaking out of the loop closes the stream.
func (s *Stream[T]) All() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		defer s.Close()
		for s.Next() {
			if !yield(s.cur, nil) {
				return
			}
		}
		if s.err != nil {
			var zero T
			yield(zero, s.err)
		}
	}
}

// Collect drains the stream into a slice.
func (s *Stream[T]) Collect() ([]T, error) {
	var out []T
	for v, err := range s.All() {
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *Stream[T]) finish() {
	s.done = true
	_ = s.src.Close()
}
