// Package trace records position reports to trace files and plays trace
// files back as motion commands.
package trace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gwillem/armconsole/pkg/log"
)

var (
	// ErrFileOpen is returned when a trace file cannot be opened.
	ErrFileOpen = errors.New("trace file open failed")

	// ErrBusy is returned when a capture is started while one is running.
	ErrBusy = errors.New("capture already running")
)

const (
	namePrefix = "teach_record_"
	nameLayout = "20060102_150405"
	nameExt    = ".txt"
)

// DefaultDir returns ~/Documents/TeachRecords.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, "Documents", "TeachRecords"), nil
}

// NewName returns the trace file name for a capture started at t.
func NewName(t time.Time) string {
	return namePrefix + t.Format(nameLayout) + nameExt
}

// Store is a directory of trace files.
type Store struct {
	dir string
	now func() time.Time
	log log.Logger
}

// NewStore opens dir, creating it if needed.
func NewStore(dir string, logger log.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create trace dir: %w", err)
	}
	return &Store{dir: dir, now: time.Now, log: log.OrNop(logger).WithName("trace")}, nil
}

// Dir returns the directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path resolves a trace name inside the store. Absolute paths are
// returned unchanged.
func (s *Store) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.dir, filepath.Base(name))
}

// Create opens a new timestamped trace file for appending.
func (s *Store) Create() (*Writer, error) {
	return OpenWriter(filepath.Join(s.dir, NewName(s.now())))
}

// List returns the trace file names, oldest first.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read trace dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), nameExt) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes a trace file.
func (s *Store) Delete(name string) error {
	if err := os.Remove(s.Path(name)); err != nil {
		return fmt.Errorf("delete trace: %w", err)
	}
	s.log.Info("trace deleted", "name", name)
	return nil
}

// Watch signals on the returned channel whenever a trace file in the store
// is created, written, renamed or removed. Signals are coalesced. The
// channel is closed when ctx is done.
func (s *Store) Watch(ctx context.Context) (<-chan struct{}, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(s.dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", s.dir, err)
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer w.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !strings.HasSuffix(ev.Name, nameExt) {
					continue
				}
				select {
				case out <- struct{}{}:
				default:
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.log.Warn("trace dir watch", "error", err)
			}
		}
	}()
	return out, nil
}
