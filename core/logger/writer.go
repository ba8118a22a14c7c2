package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

var errWriterClosed = errors.New("logger: writer closed")

// sink is one output. A sink that fails once is muted so the others keep
// receiving lines.
type sink struct {
	w   *bufio.Writer
	err error
}

// asyncWriter fans log lines out to its sinks from a single goroutine.
type asyncWriter struct {
	queue    chan []byte
	flushReq chan chan error
	done     chan struct{}

	mu     sync.RWMutex // guards closed and every send on queue
	closed bool

	sinkMu sync.Mutex
	sinks  []*sink
}

func newAsyncWriter(writers []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	w := &asyncWriter{
		queue:    make(chan []byte, 256),
		flushReq: make(chan chan error),
		done:     make(chan struct{}),
	}
	for _, out := range writers {
		if out != nil {
			w.sinks = append(w.sinks, &sink{w: bufio.NewWriterSize(out, bufSize)})
		}
	}
	go w.loop()
	return w
}

func (w *asyncWriter) loop() {
	defer close(w.done)
	for {
		select {
		case line, ok := <-w.queue:
			if !ok {
				w.flush()
				return
			}
			w.write(line)
		case ack := <-w.flushReq:
			ack <- w.flush()
		}
	}
}

// Write copies p and queues it, blocking rather than dropping when the
// queue is full. It fails once the writer is closed or every sink has failed.
func (w *asyncWriter) Write(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	line := make([]byte, len(p))
	copy(line, p)

	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return errWriterClosed
	}
	if err := w.deadErr(); err != nil {
		return err
	}
	w.queue <- line
	return nil
}

// Flush waits until every line queued so far has reached the sinks and
// reports the sinks that have failed. After Close it is a no-op.
func (w *asyncWriter) Flush() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return nil
	}
	ack := make(chan error, 1)
	w.flushReq <- ack
	return <-ack
}

// Close drains the queue and returns every sink error seen.
func (w *asyncWriter) Close() error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()
	<-w.done
	return w.errs(false)
}

func (w *asyncWriter) write(line []byte) {
	w.sinkMu.Lock()
	defer w.sinkMu.Unlock()
	for _, s := range w.sinks {
		if s.err != nil {
			continue
		}
		if _, err := s.w.Write(line); err != nil {
			s.err = err
			continue
		}
		s.err = s.w.Flush()
	}
}

func (w *asyncWriter) flush() error {
	return w.errs(true)
}

// errs joins the sink errors, flushing healthy sinks first when flush is set.
func (w *asyncWriter) errs(flush bool) error {
	w.sinkMu.Lock()
	defer w.sinkMu.Unlock()
	var errs []error
	for _, s := range w.sinks {
		if flush && s.err == nil {
			s.err = s.w.Flush()
		}
		if s.err != nil {
			errs = append(errs, s.err)
		}
	}
	return errors.Join(errs...)
}

// deadErr is non-nil only when there were sinks and all of them failed.
func (w *asyncWriter) deadErr() error {
	w.sinkMu.Lock()
	defer w.sinkMu.Unlock()
	var errs []error
	for _, s := range w.sinks {
		if s.err == nil {
			return nil
		}
		errs = append(errs, s.err)
	}
	return errors.Join(errs...)
}
