package ai

import (
	"io"
	"strings"
	"sync"
)

// Stream yields response fragments of a single model call in arrival order.
// Next returns io.EOF after the last fragment.
type Stream struct {
	next      func() (string, error)
	closer    func()
	err       error
	closeOnce sync.Once
}

func NewStream(next func() (string, error), closer func()) *Stream {
	return &Stream{next: next, closer: closer}
}

// Next returns the next fragment. Once an error (including io.EOF) has been
// returned, every later call returns the same error.
func (s *Stream) Next() (string, error) {
	if s.err != nil {
		return "", s.err
	}
	chunk, err := s.next()
	if err != nil {
		s.err = err
		s.Close()
		return "", err
	}
	return chunk, nil
}

func (s *Stream) Close() {
	s.closeOnce.Do(func() {
		if s.closer != nil {
			s.closer()
		}
	})
}

// Collect drains s and returns the concatenated text. onChunk, when set,
// receives each fragment as it arrives; its error aborts the stream.
func Collect(s *Stream, onChunk func(string) error) (string, error) {
	defer s.Close()
	var sb strings.Builder
	for {
		chunk, err := s.Next()
		if err == io.EOF {
			return sb.String(), nil
		}
		if err != nil {
			return "", err
		}
		if chunk == "" {
			continue
		}
		sb.WriteString(chunk)
		if onChunk != nil {
			if err := onChunk(chunk); err != nil {
				return "", err
			}
		}
	}
}
