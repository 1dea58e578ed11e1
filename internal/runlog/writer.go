package runlog

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Writer multiplexes several streams into one io.Writer. Records are written by a
// single goroutine in the order the stream writers were called.
type Writer struct {
	chunks    chan Chunk
	done      chan struct{}
	closeOnce sync.Once
	now       func() time.Time
}

// NewWriter starts a Writer on top of w. Call Close to flush pending records.
func NewWriter(w io.Writer) *Writer {
	lw := &Writer{
		chunks: make(chan Chunk, 100),
		done:   make(chan struct{}),
		now:    time.Now,
	}
	go func() {
		defer close(lw.done)
		failed := false
		for chunk := range lw.chunks {
			if failed {
				continue
			}
			if _, err := w.Write(Format(chunk)); err != nil {
				slog.Error("Failed to write run log", "stream", chunk.Stream, "error", err)
				failed = true
			}
		}
	}()
	return lw
}

// Stream returns an io.Writer that records everything written to it under name.
func (lw *Writer) Stream(name string) (io.Writer, error) {
	if !ValidStream(name) {
		return nil, fmt.Errorf("invalid stream name %q", name)
	}
	return &streamWriter{name: name, log: lw}, nil
}

// Close waits until every record has been written. The stream writers must not be
// used afterwards.
func (lw *Writer) Close() {
	lw.closeOnce.Do(func() {
		close(lw.chunks)
	})
	<-lw.done
}

type streamWriter struct {
	name string
	log  *Writer
}

func (sw *streamWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	sw.log.chunks <- Chunk{
		Stream:    sw.name,
		Timestamp: sw.log.now().UTC(),
		Data:      append([]byte(nil), p...),
	}
	return len(p), nil
}
