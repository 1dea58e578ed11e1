// Package runlog records the output streams of a pipeline run in a single file.
//
// Every write to a stream becomes one record:
//
//	stream timestamp length: content\n
//
//   - stream: the stream name, matching [a-zA-Z0-9_./-]{1,64}. For example stdout or stderr.
//   - timestamp: UTC time of the write, 2006-01-02T15:04:05.000000000Z
//   - length: number of content bytes
//   - content: exactly length bytes, copied unchanged. Binary data and newlines are allowed.
//
// The trailing newline is always written, so a record whose content ends with a
// newline ends with two of them. A record cut short by a crash is detected because
// the content is shorter than length or the separator is missing.
//
// Example:
//
//	stdout 2025-01-07T12:34:56.789000000Z 12: Hello world\n
//	\n
//	stderr 2025-01-07T12:34:57.000000000Z 7: prompt>\n
package runlog
