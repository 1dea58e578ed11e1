package runlog

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	t.Parallel()
	chunk := Chunk{
		Stream:    "stdout",
		Timestamp: time.Date(2025, 1, 7, 12, 34, 56, 789000000, time.UTC),
		Data:      []byte("Hello world\n"),
	}
	require.Equal(t, "stdout 2025-01-07T12:34:56.789000000Z 12: Hello world\n\n", string(Format(chunk)))
}

func TestValidStream(t *testing.T) {
	t.Parallel()
	require.True(t, ValidStream("stdout"))
	require.True(t, ValidStream("stage.1/stderr"))
	require.False(t, ValidStream(""))
	require.False(t, ValidStream("std out"))
	require.False(t, ValidStream(strings.Repeat("a", 65)))
}

func TestWriterRoundTrip(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	w := NewWriter(&buf)

	stdout, err := w.Stream("stdout")
	require.NoError(t, err)
	stderr, err := w.Stream("stderr")
	require.NoError(t, err)

	_, err = stdout.Write([]byte("line1\n"))
	require.NoError(t, err)
	_, err = stderr.Write([]byte("oops"))
	require.NoError(t, err)
	_, err = stdout.Write([]byte{0, 1, 2, '\n', 0xff})
	require.NoError(t, err)
	n, err := stdout.Write(nil)
	require.NoError(t, err)
	require.Zero(t, n)
	w.Close()

	chunks, err := ReadAll(&buf)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	require.Equal(t, "stdout", chunks[0].Stream)
	require.Equal(t, "line1\n", string(chunks[0].Data))
	require.Equal(t, "stderr", chunks[1].Stream)
	require.Equal(t, "oops", string(chunks[1].Data))
	require.Equal(t, []byte{0, 1, 2, '\n', 0xff}, chunks[2].Data)
	require.False(t, chunks[0].Timestamp.IsZero())
}

func TestWriterInvalidStream(t *testing.T) {
	t.Parallel()
	w := NewWriter(io.Discard)
	defer w.Close()
	_, err := w.Stream("not valid")
	require.Error(t, err)
}

func TestWriterCloseTwice(t *testing.T) {
	t.Parallel()
	w := NewWriter(io.Discard)
	w.Close()
	w.Close()
}

func TestStreams(t *testing.T) {
	t.Parallel()
	input := "stdout 2025-01-07T12:00:00.000000000Z 4: foo\n\n" +
		"stderr 2025-01-07T12:00:01.000000000Z 3: err\n" +
		"stdout 2025-01-07T12:00:02.000000000Z 4: bar\n\n"

	streams, err := Streams(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, "foo\nbar\n", string(streams["stdout"]))
	require.Equal(t, "err", string(streams["stderr"]))
}

func TestReaderTruncated(t *testing.T) {
	t.Parallel()
	input := "stdout 2025-01-07T12:00:00.000000000Z 4: foo\n\n" +
		"stdout 2025-01-07T12:00:01.000000000Z 10: shor"

	streams, err := Streams(strings.NewReader(input))
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.Equal(t, "foo\n", string(streams["stdout"]))
}

func TestReaderMalformed(t *testing.T) {
	t.Parallel()
	for name, input := range map[string]string{
		"bad timestamp":     "stdout yesterday 3: abc\n",
		"bad length":        "stdout 2025-01-07T12:00:00.000000000Z x: abc\n",
		"missing space":     "stdout 2025-01-07T12:00:00.000000000Z 3:abc\n",
		"missing separator": "stdout 2025-01-07T12:00:00.000000000Z 3: abcd",
	} {
		_, err := ReadAll(strings.NewReader(input))
		require.Error(t, err, name)
	}
}

func TestReaderEmpty(t *testing.T) {
	t.Parallel()
	chunks, err := ReadAll(strings.NewReader(""))
	require.NoError(t, err)
	require.Empty(t, chunks)
}
