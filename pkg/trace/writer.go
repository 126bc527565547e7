package trace

import (
	"fmt"
	"os"

	"github.com/gwillem/armconsole/pkg/protocol"
	"github.com/gwillem/armconsole/pkg/robot"
)

// Writer appends CRLF-terminated lines to a trace file. Every line goes
// straight to the file so a crash loses nothing already captured.
type Writer struct {
	f     *os.File
	path  string
	lines int
}

// OpenWriter opens path for appending, creating it if needed.
func OpenWriter(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileOpen, err)
	}
	return &Writer{f: f, path: path}, nil
}

// Path returns the file path.
func (w *Writer) Path() string {
	return w.path
}

// Lines returns how many lines were written.
func (w *Writer) Lines() int {
	return w.lines
}

// WriteLine appends text and a line terminator.
func (w *Writer) WriteLine(text string) error {
	if _, err := w.f.WriteString(text + protocol.Terminator); err != nil {
		return fmt.Errorf("write trace line: %w", err)
	}
	w.lines++
	return nil
}

// WritePose appends p in report form.
func (w *Writer) WritePose(p robot.Pose) error {
	return w.WriteLine(p.TraceLine())
}

// WritePoses appends every pose in order.
func (w *Writer) WritePoses(poses []robot.Pose) error {
	for _, p := range poses {
		if err := w.WritePose(p); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the file.
func (w *Writer) Close() error {
	if err := w.f.Close(); err != nil {
		return fmt.Errorf("close trace: %w", err)
	}
	return nil
}
