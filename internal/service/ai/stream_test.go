package ai

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func sliceStream(chunks []string, closed *bool) *Stream {
	i := 0
	return NewStream(func() (string, error) {
		if i >= len(chunks) {
			return "", io.EOF
		}
		c := chunks[i]
		i++
		return c, nil
	}, func() {
		if closed != nil {
			*closed = true
		}
	})
}

func TestCollectConcatenatesInOrder(t *testing.T) {
	chunks := []string{"The ", "", "total is ", "540 kcal."}
	var closed bool
	var seen []string
	got, err := Collect(sliceStream(chunks, &closed), func(c string) error {
		seen = append(seen, c)
		return nil
	})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if got != strings.Join(chunks, "") {
		t.Fatalf("unexpected text %q", got)
	}
	if len(seen) != 3 {
		t.Fatalf("empty fragments should be skipped, saw %v", seen)
	}
	if !closed {
		t.Fatalf("stream not closed")
	}
}

func TestStreamErrorIsSticky(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	s := NewStream(func() (string, error) {
		calls++
		if calls == 1 {
			return "partial", nil
		}
		return "", boom
	}, nil)

	if _, err := Collect(s, nil); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := s.Next(); !errors.Is(err, boom) {
		t.Fatalf("expected sticky error, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("source polled after failure: %d calls", calls)
	}
}

func TestCollectCallbackAborts(t *testing.T) {
	stop := errors.New("client gone")
	_, err := Collect(sliceStream([]string{"a", "b"}, nil), func(string) error { return stop })
	if !errors.Is(err, stop) {
		t.Fatalf("expected callback error, got %v", err)
	}
}
