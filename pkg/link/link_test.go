package link

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.bug.st/serial"

	"github.com/gwillem/armconsole/pkg/log"
	"github.com/gwillem/armconsole/pkg/metrics"
)

// fakePort feeds reads from a channel and records writes.
type fakePort struct {
	mu      sync.Mutex
	written bytes.Buffer
	reads   chan []byte
	readErr chan error
	closed  chan struct{}
	once    sync.Once
}

func newFakePort() *fakePort {
	return &fakePort{
		reads:   make(chan []byte, 8),
		readErr: make(chan error, 1),
		closed:  make(chan struct{}),
	}
}

func (p *fakePort) Read(buf []byte) (int, error) {
	select {
	case data := <-p.reads:
		return copy(buf, data), nil
	case err := <-p.readErr:
		return 0, err
	case <-p.closed:
		return 0, serial.PortError{}
	}
}

func (p *fakePort) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.Write(data)
}

func (p *fakePort) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

func (p *fakePort) Written() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.String()
}

func (p *fakePort) isClosed() bool {
	select {
	case <-p.closed:
		return true
	default:
		return false
	}
}

func openerFor(p *fakePort) Opener {
	return func(string, int) (Port, error) { return p, nil }
}

func nextEvent(t *testing.T, l *Link) Event {
	t.Helper()
	select {
	case ev := <-l.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for link event")
		return nil
	}
}

func noEvent(t *testing.T, l *Link) {
	t.Helper()
	select {
	case ev := <-l.Events():
		t.Fatalf("unexpected event %#v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func quit(t *testing.T, l *Link) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := l.Quit(ctx); err != nil {
		t.Fatalf("Quit() error = %v", err)
	}
}

func TestLink_OpenWriteReceiveClose(t *testing.T) {
	port := newFakePort()
	l := New(WithOpener(openerFor(port)))
	defer quit(t, l)

	l.Open("/dev/ttyUSB0", 115200)
	if ev, ok := nextEvent(t, l).(Connected); !ok || ev.Port != "/dev/ttyUSB0" {
		t.Fatalf("first event = %#v, want Connected", ev)
	}

	l.Write([]byte("#GETJPOS\r\n"))
	port.reads <- []byte("ok 1 2 3")

	ev, ok := nextEvent(t, l).(Received)
	if !ok {
		t.Fatalf("event = %#v, want Received", ev)
	}
	if string(ev.Data) != "ok 1 2 3" {
		t.Errorf("Received.Data = %q", ev.Data)
	}

	l.Close()
	if _, ok := nextEvent(t, l).(Disconnected); !ok {
		t.Fatal("Close() should emit Disconnected")
	}
	if got := port.Written(); got != "#GETJPOS\r\n" {
		t.Errorf("written = %q, want %q", got, "#GETJPOS\r\n")
	}
	if !port.isClosed() {
		t.Error("port should be closed after Close()")
	}
}

func TestLink_OpenFailureOnlyLogged(t *testing.T) {
	l := New(WithOpener(func(string, int) (Port, error) {
		return nil, &serial.PortError{}
	}))
	defer quit(t, l)

	l.Open("/dev/missing", 115200)
	noEvent(t, l)
}

func TestLink_OpenTwiceKeepsFirstPort(t *testing.T) {
	first := newFakePort()
	var opened atomic.Int32
	l := New(WithOpener(func(string, int) (Port, error) {
		opened.Add(1)
		return first, nil
	}))
	defer quit(t, l)

	l.Open("a", 9600)
	nextEvent(t, l)
	l.Open("b", 9600)
	noEvent(t, l)

	if n := opened.Load(); n != 1 {
		t.Errorf("opener called %d times, want 1", n)
	}
}

func TestLink_WriteWhileClosedDropped(t *testing.T) {
	port := newFakePort()
	l := New(WithOpener(openerFor(port)))
	defer quit(t, l)

	l.Write([]byte("!STOP\r\n"))
	noEvent(t, l)

	l.Open("a", 9600)
	nextEvent(t, l)
	l.Close()
	nextEvent(t, l)

	if got := port.Written(); got != "" {
		t.Errorf("written = %q, want nothing", got)
	}
}

func TestLink_WriteQueueFullDrops(t *testing.T) {
	// No worker drains this link, so the queue stays full.
	l := &Link{log: log.NewNopLogger(), reqs: make(chan request, 2), quit: make(chan struct{})}
	before := testutil.ToFloat64(metrics.WritesDropped)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			l.Write([]byte("!STOP\r\n"))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Write() blocked on a full queue")
	}

	if n := len(l.reqs); n != 2 {
		t.Errorf("queued %d writes, want 2", n)
	}
	if got := testutil.ToFloat64(metrics.WritesDropped) - before; got != 3 {
		t.Errorf("WritesDropped grew by %v, want 3", got)
	}
}

func TestLink_ReadFaultDisconnects(t *testing.T) {
	port := newFakePort()
	l := New(WithOpener(openerFor(port)))
	defer quit(t, l)

	l.Open("a", 9600)
	nextEvent(t, l)

	port.readErr <- io.EOF

	errEv, ok := nextEvent(t, l).(Error)
	if !ok {
		t.Fatalf("event = %#v, want Error", errEv)
	}
	if errEv.Code != ResourceError {
		t.Errorf("Error.Code = %d, want %d", errEv.Code, ResourceError)
	}
	if errEv.Message != "SerialPortError ErrorCode: 9" {
		t.Errorf("Error.Message = %q", errEv.Message)
	}
	if _, ok := nextEvent(t, l).(Disconnected); !ok {
		t.Fatal("read fault should be followed by Disconnected")
	}
	if !port.isClosed() {
		t.Error("port should be released after a read fault")
	}
}

func TestLink_QuitReleasesPort(t *testing.T) {
	port := newFakePort()
	l := New(WithOpener(openerFor(port)))

	l.Open("a", 9600)
	nextEvent(t, l)

	quit(t, l)
	if !port.isClosed() {
		t.Error("Quit() should close the open port")
	}

	// Requests after Quit are dropped without blocking.
	l.Write([]byte("x"))
	l.Close()
	quit(t, l)
}

func TestLink_QuitContextExpired(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The worker may or may not have finished; either outcome is valid, but
	// a cancelled context must never hang.
	if err := l.Quit(ctx); err != nil && !errors.Is(err, context.Canceled) {
		t.Errorf("Quit() error = %v, want nil or context.Canceled", err)
	}
	quit(t, l)
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		err      error
		fallback ErrorCode
		expected ErrorCode
	}{
		{nil, ReadError, NoError},
		{io.EOF, ReadError, ResourceError},
		{errors.New("boom"), ReadError, ReadError},
		{errors.New("boom"), WriteError, WriteError},
		{&serial.PortError{}, ReadError, OpenError}, // zero code is PortBusy
		{serial.PortError{}, WriteError, OpenError},
		{fmt.Errorf("write: %w", &serial.PortError{}), WriteError, OpenError},
	}

	for _, tt := range tests {
		if got := CodeOf(tt.err, tt.fallback); got != tt.expected {
			t.Errorf("CodeOf(%v, %d) = %d, want %d", tt.err, tt.fallback, got, tt.expected)
		}
	}
}

func TestCodeOf_DriverError(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs /dev/null")
	}
	// /dev/null opens but is not a terminal, so the driver rejects it.
	port, err := OpenSerial("/dev/null", 115200)
	if err == nil {
		port.Close()
		t.Skip("driver accepted /dev/null")
	}
	code, ok := portErrorCode(err)
	if !ok {
		t.Skipf("driver returned %T, not a PortError", err)
	}

	got := CodeOf(err, ReadError)
	if code == serial.InvalidSerialPort && got != ResourceError {
		t.Errorf("CodeOf(%v) = %s, want %s", err, got, ResourceError)
	}
	if got == ReadError || got == NoError {
		t.Errorf("CodeOf(%v) = %s, want a driver code (port code %d)", err, got, code)
	}
}

func TestErrorCode_String(t *testing.T) {
	if NotOpenError != 13 {
		t.Errorf("NotOpenError = %d, want 13", NotOpenError)
	}
	if got := PermissionError.String(); got != "permission denied" {
		t.Errorf("PermissionError.String() = %q", got)
	}
	if got := ErrorCode(42).String(); got != "unknown error" {
		t.Errorf("ErrorCode(42).String() = %q", got)
	}
}
