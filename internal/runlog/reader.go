package runlog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"
)

// Reader decodes records written by Writer.
type Reader struct {
	r *bufio.Reader
}

// NewReader returns a Reader reading from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next returns the next record, or io.EOF when the log ends cleanly.
func (lr *Reader) Next() (Chunk, error) {
	var chunk Chunk

	stream, err := lr.r.ReadString(' ')
	if err != nil {
		if errors.Is(err, io.EOF) && stream == "" {
			return chunk, io.EOF
		}
		return chunk, fmt.Errorf("reading stream: %w", unexpected(err))
	}
	chunk.Stream = stream[:len(stream)-1]

	ts, err := lr.r.ReadString(' ')
	if err != nil {
		return chunk, fmt.Errorf("reading timestamp: %w", unexpected(err))
	}
	chunk.Timestamp, err = time.Parse(timestampLayout, ts[:len(ts)-1])
	if err != nil {
		return chunk, fmt.Errorf("parsing timestamp: %w", err)
	}

	lengthStr, err := lr.r.ReadString(':')
	if err != nil {
		return chunk, fmt.Errorf("reading length: %w", unexpected(err))
	}
	length, err := strconv.Atoi(lengthStr[:len(lengthStr)-1])
	if err != nil || length < 0 {
		return chunk, fmt.Errorf("parsing length %q", lengthStr[:len(lengthStr)-1])
	}

	if b, err := lr.r.ReadByte(); err != nil || b != ' ' {
		return chunk, fmt.Errorf("expected space after length")
	}

	chunk.Data = make([]byte, length)
	if _, err := io.ReadFull(lr.r, chunk.Data); err != nil {
		return chunk, fmt.Errorf("reading content (%d bytes): %w", length, unexpected(err))
	}

	if b, err := lr.r.ReadByte(); err != nil || b != '\n' {
		return chunk, fmt.Errorf("expected newline after content")
	}
	return chunk, nil
}

// ReadAll decodes every record.
func ReadAll(r io.Reader) ([]Chunk, error) {
	lr := NewReader(r)
	var chunks []Chunk
	for {
		chunk, err := lr.Next()
		if errors.Is(err, io.EOF) {
			return chunks, nil
		}
		if err != nil {
			return chunks, err
		}
		chunks = append(chunks, chunk)
	}
}

// Streams decodes every record and concatenates the data per stream.
func Streams(r io.Reader) (map[string][]byte, error) {
	chunks, err := ReadAll(r)
	result := make(map[string][]byte)
	for _, chunk := range chunks {
		result[chunk.Stream] = append(result[chunk.Stream], chunk.Data...)
	}
	return result, err
}

func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
