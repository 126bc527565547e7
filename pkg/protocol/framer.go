package protocol

import "bytes"

// MaxFrameSize bounds the bytes buffered while waiting for a line break.
const MaxFrameSize = 4096

// Framer reassembles link chunks into lines. Chunks carry no framing:
// one chunk may hold several lines or part of one.
type Framer struct {
	buf     []byte
	dropped int
}

// Push appends chunk and returns every completed line, terminator included.
func (f *Framer) Push(chunk []byte) []string {
	f.buf = append(f.buf, chunk...)

	var lines []string
	for {
		i := bytes.IndexByte(f.buf, '\n')
		if i < 0 {
			break
		}
		lines = append(lines, string(f.buf[:i+1]))
		f.buf = f.buf[i+1:]
	}

	if len(f.buf) > MaxFrameSize {
		f.dropped += len(f.buf)
		f.buf = nil
	}
	if len(f.buf) == 0 {
		f.buf = nil
	}
	return lines
}

// Pending returns the number of buffered bytes without a line break yet.
func (f *Framer) Pending() int {
	return len(f.buf)
}

// Dropped returns the number of bytes discarded because a line grew too long.
func (f *Framer) Dropped() int {
	return f.dropped
}

// Reset discards any partial line.
func (f *Framer) Reset() {
	f.buf = nil
}
