// Package console runs the arm console: it owns the link events, the jog
// controller, capture and playback, and trajectory authoring, all on one
// goroutine.
package console

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gwillem/armconsole/pkg/arm"
	"github.com/gwillem/armconsole/pkg/link"
	"github.com/gwillem/armconsole/pkg/log"
	"github.com/gwillem/armconsole/pkg/metrics"
	"github.com/gwillem/armconsole/pkg/protocol"
	"github.com/gwillem/armconsole/pkg/robot"
	"github.com/gwillem/armconsole/pkg/sched"
	"github.com/gwillem/armconsole/pkg/teach"
	"github.com/gwillem/armconsole/pkg/trace"
	"github.com/gwillem/armconsole/pkg/trajectory"
)

var (
	// ErrWaypointsMissing is returned when a line or circle is added before
	// its waypoints were captured.
	ErrWaypointsMissing = errors.New("waypoints missing")

	// ErrNoTrajectory is returned when a shape is added with no trajectory open.
	ErrNoTrajectory = errors.New("no trajectory open")

	// ErrNotSimple is returned by Send for commands that take parameters.
	ErrNotSimple = errors.New("command takes parameters")
)

// quitTimeout bounds the link teardown in Run.
const quitTimeout = 3 * time.Second

// Link is the serial link the console drives. *link.Link satisfies it.
type Link interface {
	Open(port string, baud int)
	Write(data []byte)
	Close()
	Events() <-chan link.Event
	Quit(ctx context.Context) error
}

// State is a snapshot of the console for display.
type State struct {
	Connected bool
	Port      string
	Speed     float64

	Jog     string
	Session teach.Session

	Capturing   bool
	CapturePath string

	Playing   bool
	Remaining int

	Trajectory string
	Waypoints  map[teach.Slot]bool

	// PendingPoint names the slot waiting for its pose report, if any.
	PendingPoint string

	Pose      robot.Pose
	HasPose   bool
	Reports   int
	LastError string
	Timestamp time.Time
}

// Config holds configuration for the console.
type Config struct {
	Store  *trace.Store
	Speed  float64
	Logger log.Logger

	// Line configures how AddLine samples a segment.
	Line trajectory.LineOptions
	// CirclePoints is the number of points AddCircle writes.
	CirclePoints int

	// Scheduler overrides the timer source. Timers must fire on the
	// console goroutine; nil uses the console's own loop.
	Scheduler sched.Scheduler
}

// Console is the cooperative core behind the UI. Its methods may be called
// from any goroutine while Run is running, but not from callbacks running
// on the console goroutine itself.
type Console struct {
	link  Link
	loop  *sched.Loop
	log   log.Logger
	store *trace.Store

	arm      *arm.Arm
	framer   protocol.Framer
	teach    *teach.Controller
	recorder *trace.Recorder
	player   *trace.Player

	lineOpts     trajectory.LineOptions
	circlePoints int
	authoring    *trace.Writer

	speed     float64
	connected bool
	port      string
	pose      robot.Pose
	hasPose   bool
	reports   int
	lastErr   string

	stateCh chan State
	logCh   chan string
}

// New creates a console on top of l.
func New(l Link, cfg Config) (*Console, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("create console: trace store is required")
	}
	if cfg.Speed == 0 {
		cfg.Speed = robot.DefaultSpeed
	}
	if err := robot.ValidateSpeed(cfg.Speed); err != nil {
		return nil, fmt.Errorf("create console: %w", err)
	}

	c := &Console{
		link:         l,
		loop:         sched.NewLoop(64),
		log:          log.OrNop(cfg.Logger).WithName("console"),
		store:        cfg.Store,
		lineOpts:     cfg.Line,
		circlePoints: cfg.CirclePoints,
		speed:        cfg.Speed,
		stateCh:      make(chan State, 1),
		logCh:        make(chan string, 10),
	}

	s := cfg.Scheduler
	if s == nil {
		s = c.loop
	}

	c.arm = arm.New(l, cfg.Logger)
	c.teach = teach.NewController(c.arm, s, c.currentSpeed, cfg.Logger)
	c.recorder = trace.NewRecorder(cfg.Store, c.arm, s, cfg.Logger)
	c.player = trace.NewPlayer(c.arm, s, c.currentSpeed, cfg.Logger)
	c.player.OnFinish(func(path string) {
		c.logf("Playback of %s finished", filepath.Base(path))
		c.publish()
	})
	return c, nil
}

// States returns a channel that receives state updates.
func (c *Console) States() <-chan State {
	return c.stateCh
}

// Logs returns a channel that receives log messages.
func (c *Console) Logs() <-chan string {
	return c.logCh
}

// Run processes link events, timer ticks and API calls until ctx is done.
// On return every timer is stopped, open files are closed and the link has
// been shut down, in that order.
func (c *Console) Run(ctx context.Context) error {
	defer c.shutdown()

	c.publish()
	events := c.link.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-c.loop.Tasks():
			fn()
		case ev := <-events:
			c.handleEvent(ev)
		}
	}
}

func (c *Console) shutdown() {
	c.teach.Release()
	c.player.Stop()
	if _, err := c.recorder.Stop(); err != nil {
		c.log.Error(err, "close capture")
	}
	c.closeTrajectory()
	c.loop.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), quitTimeout)
	defer cancel()
	if err := c.link.Quit(ctx); err != nil {
		c.log.Error(err, "link shutdown")
	}
	c.logf("Console stopped")
}

// do runs fn on the console goroutine and returns its error.
func (c *Console) do(fn func() error) error {
	var err error
	if cerr := c.loop.Call(context.Background(), func() { err = fn() }); cerr != nil {
		return fmt.Errorf("console: %w", cerr)
	}
	return err
}

func (c *Console) currentSpeed() float64 {
	return c.speed
}

func (c *Console) logf(format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	select {
	case c.logCh <- msg:
	default:
		// Drop if channel full
	}
}

func (c *Console) snapshot() State {
	session, _ := c.teach.Session()
	filled := make(map[teach.Slot]bool, len(teach.AllSlots()))
	for _, s := range teach.AllSlots() {
		filled[s] = c.teach.Waypoints().Filled(s)
	}

	st := State{
		Connected:   c.connected,
		Port:        c.port,
		Speed:       c.speed,
		Jog:         c.teach.State(),
		Session:     session,
		Capturing:   c.recorder.Capturing(),
		CapturePath: c.recorder.Path(),
		Playing:     c.player.Playing(),
		Remaining:   c.player.Remaining(),
		Waypoints:   filled,
		Pose:        c.pose,
		HasPose:     c.hasPose,
		Reports:     c.reports,
		LastError:   c.lastErr,
		Timestamp:   time.Now(),
	}
	if c.authoring != nil {
		st.Trajectory = c.authoring.Path()
	}
	if slot, ok := c.teach.PendingPoint(); ok {
		st.PendingPoint = slot.String()
	}
	return st
}

func (c *Console) publish() {
	s := c.snapshot()
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		c.stateCh <- s
	}
}

func (c *Console) handleEvent(ev link.Event) {
	switch ev := ev.(type) {
	case link.Connected:
		c.connected = true
		c.port = ev.Port
		c.lastErr = ""
		c.framer.Reset()
		c.logf("Connected to %s", ev.Port)

	case link.Disconnected:
		c.connected = false
		c.teach.Release()
		c.player.Stop()
		c.logf("Disconnected from %s", c.port)

	case link.Received:
		c.handleReceived(ev.Data)

	case link.Error:
		c.lastErr = ev.Message
		c.logf("Serial error: %s (%s)", ev.Message, ev.Code)
		c.log.Warn("serial driver error", "code", int(ev.Code), "message", ev.Message)
	}
	c.publish()
}

func (c *Console) handleReceived(data []byte) {
	for _, line := range c.framer.Push(data) {
		rep, err := protocol.Decode(line)
		switch {
		case errors.Is(err, protocol.ErrNotReport):
			if text := strings.TrimSpace(line); text != "" {
				c.logf("<- %s", text)
			}
			continue
		case err != nil:
			metrics.DecodeFailures.Inc()
			c.log.Warn("dropped report", "error", err)
			c.logf("Dropped malformed report: %s", strings.TrimSpace(line))
			continue
		}

		metrics.Reports.Inc()
		c.pose = rep.Pose
		c.hasPose = true
		c.reports++

		if slot, ok := c.teach.HandleReport(rep); ok {
			c.logf("Captured %s:%s", slot, rep.Text)
		}
		c.recorder.HandleReport(rep)
	}
}
