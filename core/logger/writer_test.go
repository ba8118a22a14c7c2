package logger

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

var errDiskFull = errors.New("disk full")

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errDiskFull }

func TestWriterKeepsHealthySinks(t *testing.T) {
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{brokenWriter{}, buf}, 1024)

	for _, line := range []string{"one\n", "two\n"} {
		if err := aw.Write([]byte(line)); err != nil {
			t.Fatalf("write %q: %v", line, err)
		}
	}
	if err := aw.Flush(); !errors.Is(err, errDiskFull) {
		t.Fatalf("flush error = %v, want disk full", err)
	}
	if err := aw.Close(); !errors.Is(err, errDiskFull) {
		t.Fatalf("close error = %v, want disk full", err)
	}
	if got := buf.String(); got != "one\ntwo\n" {
		t.Fatalf("healthy sink got %q", got)
	}
}

func TestWriterFailsWhenEverySinkFailed(t *testing.T) {
	aw := newAsyncWriter([]io.Writer{brokenWriter{}}, 1024)
	defer aw.Close()

	if err := aw.Write([]byte("one\n")); err != nil {
		t.Fatalf("first write: %v", err)
	}
	_ = aw.Flush()
	if err := aw.Write([]byte("two\n")); !errors.Is(err, errDiskFull) {
		t.Fatalf("write after sink failure = %v, want disk full", err)
	}
}

func TestWriterAfterClose(t *testing.T) {
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	if err := aw.Write([]byte("kept\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := aw.Write([]byte("late\n")); !errors.Is(err, errWriterClosed) {
		t.Fatalf("write after close = %v, want errWriterClosed", err)
	}
	if err := aw.Flush(); err != nil {
		t.Fatalf("flush after close: %v", err)
	}
	if err := aw.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if got := buf.String(); got != "kept\n" {
		t.Fatalf("sink got %q", got)
	}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func TestWriterCloseWhileWriting(t *testing.T) {
	out := &lockedBuffer{}
	aw := newAsyncWriter([]io.Writer{out}, 64)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				if err := aw.Write([]byte("x\n")); err != nil && !errors.Is(err, errWriterClosed) {
					t.Errorf("write: %v", err)
					return
				}
			}
		}()
	}
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	wg.Wait()

	out.mu.Lock()
	defer out.mu.Unlock()
	if n := strings.Count(out.buf.String(), "x\n"); n > 800 {
		t.Fatalf("wrote %d lines, want at most 800", n)
	}
}

func TestRatioSamplerWindow(t *testing.T) {
	s := newRatioSampler(2, 5)
	var kept int
	for range 20 {
		if s.Allow() {
			kept++
		}
	}
	if kept != 8 {
		t.Fatalf("kept %d of 20, want 8", kept)
	}

	s.Set(0, 0)
	for range 3 {
		if !s.Allow() {
			t.Fatal("disabled sampler must keep every event")
		}
	}
}

func TestStatus(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{errDiskFull, "fail"},
		{context.Canceled, "cancelled"},
		{context.DeadlineExceeded, "cancelled"},
	}
	for _, tc := range cases {
		if got := Status(tc.err); got != tc.want {
			t.Fatalf("Status(%v) = %q, want %q", tc.err, got, tc.want)
		}
		if _, ok := normalizeStatus(Status(tc.err)); !ok {
			t.Fatalf("Status(%v) is outside the status vocabulary", tc.err)
		}
	}
}

func TestSummarizeStrings(t *testing.T) {
	got, more := SummarizeStrings([]string{"a", " ", "b", "c"}, 2)
	if got != "a, b" || !more {
		t.Fatalf("got %q/%v", got, more)
	}
	got, more = SummarizeStrings([]string{"a", ""}, 2)
	if got != "a" || more {
		t.Fatalf("got %q/%v", got, more)
	}
	if RoundMS(-time.Second) != 0 {
		t.Fatal("negative duration must round to zero")
	}
}
