package runlog

import (
	"fmt"
	"regexp"
	"time"
)

const timestampLayout = "2006-01-02T15:04:05.000000000Z"

var streamPattern = regexp.MustCompile(`^[a-zA-Z0-9_./-]{1,64}$`)

// Chunk is one record of the log.
type Chunk struct {
	Stream    string
	Timestamp time.Time
	Data      []byte
}

// ValidStream reports whether name can be used as a stream name.
func ValidStream(name string) bool {
	return streamPattern.MatchString(name)
}

// Format encodes a chunk as one record.
func Format(chunk Chunk) []byte {
	out := fmt.Appendf(nil, "%s %s %d: ", chunk.Stream, chunk.Timestamp.UTC().Format(timestampLayout), len(chunk.Data))
	out = append(out, chunk.Data...)
	return append(out, '\n')
}
