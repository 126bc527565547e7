// Package link owns the serial connection to the arm controller.
//
// All device I/O happens on a worker goroutine started by New. Callers send
// open, write and close requests without blocking on I/O and receive
// Connected, Disconnected, Received and Error events from Events.
package link

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/gwillem/armconsole/pkg/log"
	"github.com/gwillem/armconsole/pkg/metrics"
)

// Option configures a Link.
type Option func(*Link)

// WithOpener replaces the serial port opener, mostly for tests.
func WithOpener(open Opener) Option {
	return func(l *Link) { l.open = open }
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(l *Link) { l.log = log.OrNop(logger) }
}

// WithEventBuffer sets the capacity of the events channel.
func WithEventBuffer(n int) Option {
	return func(l *Link) {
		if n >= 0 {
			l.eventBuf = n
		}
	}
}

type reqKind int

const (
	reqOpen reqKind = iota
	reqWrite
	reqClose
)

type request struct {
	kind reqKind
	port string
	baud int
	data []byte
}

// Link is an asynchronous serial link.
type Link struct {
	open     Opener
	log      log.Logger
	eventBuf int

	reqs   chan request
	events chan Event

	quitOnce sync.Once
	quit     chan struct{} // closed when the caller asks the worker to stop
	disposed chan struct{} // closed once the worker released the port
	done     chan struct{} // closed when the worker goroutine returned
}

// New creates a link and starts its worker goroutine.
func New(opts ...Option) *Link {
	l := &Link{
		open:     OpenSerial,
		log:      log.NewNopLogger(),
		eventBuf: 64,
		reqs:     make(chan request, 64),
		quit:     make(chan struct{}),
		disposed: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.events = make(chan Event, l.eventBuf)

	go l.run()
	return l
}

// Events returns the event stream. It is never closed.
func (l *Link) Events() <-chan Event {
	return l.events
}

// Open asks the worker to open port at baud. Success is reported as a
// Connected event; failure is only logged.
func (l *Link) Open(port string, baud int) {
	l.post(request{kind: reqOpen, port: port, baud: baud})
}

// Write queues data for the device. It never blocks: when the request
// queue is full the data is dropped and counted.
func (l *Link) Write(data []byte) {
	req := request{kind: reqWrite, data: append([]byte(nil), data...)}
	select {
	case l.reqs <- req:
	case <-l.quit:
		l.log.Debug("link stopping, write dropped", "bytes", len(data))
	default:
		metrics.WritesDropped.Inc()
		l.log.Warn("link request queue full, write dropped", "bytes", len(data))
	}
}

// Close asks the worker to close the port.
func (l *Link) Close() {
	l.post(request{kind: reqClose})
}

// Quit stops the worker. The worker first releases the device, then
// acknowledges, and only then exits; Quit returns after both steps.
func (l *Link) Quit(ctx context.Context) error {
	l.quitOnce.Do(func() { close(l.quit) })

	select {
	case <-l.disposed:
	case <-ctx.Done():
		return fmt.Errorf("wait for port release: %w", ctx.Err())
	}

	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for link worker: %w", ctx.Err())
	}
}

func (l *Link) post(req request) {
	select {
	case l.reqs <- req:
	case <-l.quit:
		l.log.Debug("link stopping, request dropped", "kind", int(req.kind))
	}
}

func (l *Link) run() {
	defer close(l.done)

	var s *session
	for {
		var chunks <-chan readResult
		if s != nil {
			chunks = s.chunks
		}

		select {
		case <-l.quit:
			if s != nil {
				l.dispose(s)
			}
			close(l.disposed)
			return
		case req := <-l.reqs:
			s = l.handle(s, req)
		case r := <-chunks:
			s = l.handleRead(s, r)
		}
	}
}

func (l *Link) handle(s *session, req request) *session {
	switch req.kind {
	case reqOpen:
		if s != nil {
			l.log.Warn("serial port open failed: already open", "port", req.port, "open", s.name)
			return s
		}
		port, err := l.open(req.port, req.baud)
		if err != nil {
			l.log.Error(err, "serial port open failed", "port", req.port, "baud", req.baud)
			return nil
		}
		l.log.Info("serial port opened", "port", req.port, "baud", req.baud)
		metrics.LinkConnected.Set(1)
		l.emit(Connected{Port: req.port})
		return startSession(req.port, port)

	case reqWrite:
		if s == nil {
			l.log.Warn("write on closed port dropped", "bytes", len(req.data))
			return nil
		}
		n, err := s.port.Write(req.data)
		metrics.BytesSent.Add(float64(n))
		if err != nil {
			l.log.Error(err, "serial write failed", "port", s.name)
			l.emitError(CodeOf(err, WriteError))
		}
		return s

	case reqClose:
		if s == nil {
			l.log.Debug("close on closed port ignored")
			return nil
		}
		l.dispose(s)
		l.emit(Disconnected{})
		return nil
	}
	return s
}

func (l *Link) handleRead(s *session, r readResult) *session {
	if r.err != nil {
		l.log.Error(r.err, "serial read failed", "port", s.name)
		l.emitError(CodeOf(r.err, ReadError))
		l.dispose(s)
		l.emit(Disconnected{})
		return nil
	}

	metrics.BytesReceived.Add(float64(len(r.data)))
	l.log.Debug("serial port received", "bytes", len(r.data), "data", string(r.data))
	l.emit(Received{Data: r.data})
	return s
}

func (l *Link) dispose(s *session) {
	if err := s.close(); err != nil {
		l.log.Warn("serial port close", "port", s.name, "error", err)
	}
	metrics.LinkConnected.Set(0)
	l.log.Info("serial port closed", "port", s.name)
}

func (l *Link) emitError(code ErrorCode) {
	if code == NoError {
		return
	}
	metrics.LinkErrors.WithLabelValues(strconv.Itoa(int(code))).Inc()
	l.emit(newError(code))
}

func (l *Link) emit(ev Event) {
	select {
	case l.events <- ev:
	case <-l.quit:
	}
}

type readResult struct {
	data []byte
	err  error
}

// session is one open port plus the goroutine reading it.
type session struct {
	name   string
	port   Port
	chunks chan readResult
	stop   chan struct{}
	exited chan struct{}
}

func startSession(name string, port Port) *session {
	s := &session{
		name:   name,
		port:   port,
		chunks: make(chan readResult),
		stop:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go s.read()
	return s
}

func (s *session) read() {
	defer close(s.exited)

	buf := make([]byte, 1024)
	for {
		n, err := s.port.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case s.chunks <- readResult{data: chunk}:
			case <-s.stop:
				return
			}
		}
		if err != nil {
			select {
			case s.chunks <- readResult{err: err}:
			case <-s.stop:
			}
			return
		}
		select {
		case <-s.stop:
			return
		default:
		}
	}
}

// close stops the reader and releases the port. The reader is joined so
// no read is in flight once close returns.
func (s *session) close() error {
	close(s.stop)
	err := s.port.Close()
	<-s.exited
	return err
}
