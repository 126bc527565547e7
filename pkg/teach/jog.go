// Package teach drives press-and-hold jogging and waypoint capture.
//
// A jog starts when a button is pressed: the controller asks the arm for
// its pose, waits for the reply and then nudges one axis by one unit per
// timer tick until the button is released.
package teach

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/looplab/fsm"

	"github.com/gwillem/armconsole/pkg/log"
	"github.com/gwillem/armconsole/pkg/protocol"
	"github.com/gwillem/armconsole/pkg/robot"
	"github.com/gwillem/armconsole/pkg/sched"
)

// Jog states.
const (
	StateIdle     = "idle"
	StateAwaiting = "awaiting"
	StateJogging  = "jogging"
)

const (
	eventPress     = "press"
	eventReference = "reference"
	eventRelease   = "release"
)

// ErrAxis is returned for an axis index outside the pose.
var ErrAxis = errors.New("axis out of range")

// JogStep is how far one tick moves the jogged axis.
const JogStep = 1.0

// Operation is the jog direction.
type Operation int

const (
	Increment Operation = iota
	Decrement
)

func (o Operation) String() string {
	if o == Decrement {
		return "decrement"
	}
	return "increment"
}

func (o Operation) delta() float64 {
	if o == Decrement {
		return -JogStep
	}
	return JogStep
}

// Session is the jog in progress.
type Session struct {
	Move   robot.MoveType
	Op     Operation
	Axis   int
	Vector robot.Vector
}

// Sender issues controller commands. *arm.Arm satisfies it.
type Sender interface {
	Send(cmd protocol.Command) error
}

// JogPeriod returns the jog tick period for speed: 40ms at speed 100.
func JogPeriod(speed float64) time.Duration {
	return time.Duration(40 * (100 / speed) * float64(time.Millisecond))
}

// Controller is the jog state machine plus the point-capture workflow.
// It is not safe for concurrent use; all calls, timer callbacks included,
// must happen on one goroutine.
type Controller struct {
	send  Sender
	speed func() float64
	log   log.Logger

	fsm     *fsm.FSM
	timer   sched.Timer
	session Session

	waypoints Waypoints
	pending   Slot
	capturing bool
}

// NewController creates an idle controller. speed reports the current
// operator speed.
func NewController(send Sender, s sched.Scheduler, speed func() float64, logger log.Logger) *Controller {
	c := &Controller{
		send:  send,
		speed: speed,
		log:   log.OrNop(logger).WithName("teach"),
	}
	c.timer = s.NewTimer(c.tick)

	c.fsm = fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: eventPress, Src: []string{StateIdle, StateAwaiting, StateJogging}, Dst: StateAwaiting},
			{Name: eventReference, Src: []string{StateAwaiting}, Dst: StateJogging},
			{Name: eventRelease, Src: []string{StateAwaiting, StateJogging}, Dst: StateIdle},
		},
		fsm.Callbacks{
			"enter_" + StateJogging: func(_ context.Context, _ *fsm.Event) {
				c.timer.Start(JogPeriod(c.session.Vector.Speed))
			},
			"leave_" + StateJogging: func(_ context.Context, _ *fsm.Event) {
				c.timer.Stop()
			},
		},
	)
	return c
}

// State returns the jog state.
func (c *Controller) State() string {
	return c.fsm.Current()
}

// Session returns the jog in progress.
func (c *Controller) Session() (Session, bool) {
	if c.fsm.Is(StateIdle) {
		return Session{}, false
	}
	return c.session, true
}

// Press starts a jog of axis in the space of move. A jog already running
// is replaced.
func (c *Controller) Press(move robot.MoveType, op Operation, axis int) error {
	if axis < 0 || axis >= robot.PoseSize {
		return fmt.Errorf("press: %w: %d", ErrAxis, axis)
	}

	c.timer.Stop()
	c.session = Session{Move: move, Op: op, Axis: axis}
	if err := c.event(eventPress); err != nil {
		return fmt.Errorf("press: %w", err)
	}

	c.log.Debug("jog pressed", "move", move.String(), "op", op.String(), "axis", axis)
	return c.send.Send(protocol.PositionRequest(move))
}

// Release ends the jog. Replies still in flight are discarded when they arrive.
func (c *Controller) Release() {
	c.timer.Stop()
	if c.fsm.Can(eventRelease) {
		if err := c.event(eventRelease); err != nil {
			c.log.Warn("jog release", "error", err)
		}
	}
	c.session = Session{}
}

// HandleReport feeds a position report to the controller. It returns the
// slot the report was captured into, if a point capture was pending.
func (c *Controller) HandleReport(rep protocol.PositionReport) (Slot, bool) {
	slot, captured := c.capture(rep)

	if !c.fsm.Is(StateAwaiting) {
		return slot, captured
	}

	c.session.Vector = robot.Vector{Pose: rep.Pose, Speed: c.speed()}
	if err := c.event(eventReference); err != nil {
		c.log.Error(err, "start jog")
	}
	return slot, captured
}

func (c *Controller) tick() {
	if !c.fsm.Is(StateJogging) {
		c.timer.Stop()
		return
	}

	c.session.Vector.Pose[c.session.Axis] += c.session.Op.delta()
	c.session.Vector.Speed = c.speed()
	if err := c.send.Send(protocol.Move(c.session.Move, c.session.Vector)); err != nil {
		c.log.Error(err, "jog tick")
	}
}

// event fires a transition. Pressing again while a reference pose is
// outstanding is a self transition, which is not an error here.
func (c *Controller) event(name string) error {
	err := c.fsm.Event(context.Background(), name)
	var noTransition fsm.NoTransitionError
	if errors.As(err, &noTransition) {
		return nil
	}
	return err
}

// Waypoints returns the captured waypoints.
func (c *Controller) Waypoints() *Waypoints {
	return &c.waypoints
}

// CapturePoint requests the Cartesian pose and stores the next report in slot.
func (c *Controller) CapturePoint(slot Slot) error {
	if !slot.valid() {
		return fmt.Errorf("capture point: unknown slot %d", int(slot))
	}
	c.pending = slot
	c.capturing = true
	return c.send.Send(protocol.PositionRequest(robot.Line))
}

// PendingPoint returns the slot waiting for a report.
func (c *Controller) PendingPoint() (Slot, bool) {
	return c.pending, c.capturing
}

func (c *Controller) capture(rep protocol.PositionReport) (Slot, bool) {
	if !c.capturing {
		return 0, false
	}
	c.waypoints.Set(c.pending, rep.Pose)
	c.capturing = false
	c.log.Info("waypoint captured", "slot", c.pending.String(), "pose", rep.Text)
	return c.pending, true
}
