package teach

import (
	"errors"
	"testing"
	"time"

	"github.com/gwillem/armconsole/pkg/protocol"
	"github.com/gwillem/armconsole/pkg/robot"
	"github.com/gwillem/armconsole/pkg/sched"
)

type sent struct {
	cmds []protocol.Command
}

func (s *sent) Send(cmd protocol.Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	s.cmds = append(s.cmds, cmd)
	return nil
}

func (s *sent) last() protocol.Command {
	return s.cmds[len(s.cmds)-1]
}

func newTestController(speed float64) (*Controller, *sent, *sched.ManualTimer) {
	var m sched.Manual
	var s sent
	c := NewController(&s, &m, func() float64 { return speed }, nil)
	return c, &s, m.Timers()[0]
}

func report(p robot.Pose) protocol.PositionReport {
	return protocol.PositionReport{Pose: p, Text: p.TraceLine()}
}

func TestJogPeriod(t *testing.T) {
	tests := []struct {
		speed    float64
		expected time.Duration
	}{
		{100, 40 * time.Millisecond},
		{50, 80 * time.Millisecond},
		{200, 20 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := JogPeriod(tt.speed); got != tt.expected {
			t.Errorf("JogPeriod(%v) = %v, want %v", tt.speed, got, tt.expected)
		}
	}
}

func TestController_PressSendsPositionRequest(t *testing.T) {
	tests := []struct {
		move     robot.MoveType
		expected protocol.Kind
	}{
		{robot.Joint, protocol.GetJointPos},
		{robot.Line, protocol.GetLinearPos},
	}
	for _, tt := range tests {
		c, s, timer := newTestController(100)
		if err := c.Press(tt.move, Increment, 2); err != nil {
			t.Fatalf("Press(%s) error = %v", tt.move, err)
		}
		if got := s.last().Kind; got != tt.expected {
			t.Errorf("Press(%s) sent %s, want %s", tt.move, got, tt.expected)
		}
		if c.State() != StateAwaiting {
			t.Errorf("State() = %s, want %s", c.State(), StateAwaiting)
		}
		if timer.Active() {
			t.Error("timer active before the reference pose arrived")
		}
	}
}

func TestController_PressBadAxis(t *testing.T) {
	c, s, _ := newTestController(100)
	for _, axis := range []int{-1, 6} {
		if err := c.Press(robot.Joint, Increment, axis); !errors.Is(err, ErrAxis) {
			t.Errorf("Press(axis %d) error = %v, want ErrAxis", axis, err)
		}
	}
	if len(s.cmds) != 0 {
		t.Errorf("bad presses sent %d commands", len(s.cmds))
	}
	if c.State() != StateIdle {
		t.Errorf("State() = %s, want %s", c.State(), StateIdle)
	}
}

func TestController_JogTicks(t *testing.T) {
	c, s, timer := newTestController(100)
	c.Press(robot.Joint, Increment, 0)
	c.HandleReport(report(robot.Pose{}))

	if c.State() != StateJogging {
		t.Fatalf("State() = %s, want %s", c.State(), StateJogging)
	}
	if !timer.Active() || timer.Period() != 40*time.Millisecond {
		t.Fatalf("timer active=%v period=%v, want active at 40ms", timer.Active(), timer.Period())
	}

	timer.Fire(10)

	session, _ := c.Session()
	if session.Vector.Pose[0] != 10 {
		t.Errorf("after 10 ticks pose[0] = %v, want 10", session.Vector.Pose[0])
	}
	got, _ := protocol.Encode(s.last())
	if string(got) != "&10,0,0,0,0,0,100\r\n" {
		t.Errorf("last command = %q", got)
	}
	if n := len(s.cmds); n != 11 {
		t.Errorf("sent %d commands, want 1 request + 10 moves", n)
	}
}

func TestController_TickChangesOneComponent(t *testing.T) {
	start := robot.Pose{93.37, 0, 165, -180, 75, -180}
	for axis := 0; axis < robot.PoseSize; axis++ {
		c, _, timer := newTestController(100)
		c.Press(robot.Line, Decrement, axis)
		c.HandleReport(report(start))
		timer.Fire(1)

		session, _ := c.Session()
		for i, v := range session.Vector.Pose {
			want := start[i]
			if i == axis {
				want--
			}
			if v != want {
				t.Errorf("axis %d: pose[%d] = %v, want %v", axis, i, v, want)
			}
		}
	}
}

func TestController_TickRestampsSpeed(t *testing.T) {
	var m sched.Manual
	var s sent
	speed := 100.0
	c := NewController(&s, &m, func() float64 { return speed }, nil)
	timer := m.Timers()[0]

	c.Press(robot.Joint, Increment, 5)
	c.HandleReport(report(robot.Pose{}))
	speed = 25
	timer.Fire(1)

	got, _ := protocol.Encode(s.last())
	if string(got) != "&0,0,0,0,0,1,25\r\n" {
		t.Errorf("tick command = %q, want speed 25", got)
	}
}

func TestController_ReleaseStopsJog(t *testing.T) {
	c, s, timer := newTestController(100)
	c.Press(robot.Joint, Increment, 1)
	c.HandleReport(report(robot.Pose{}))
	timer.Fire(3)

	c.Release()
	if timer.Active() {
		t.Error("timer active after Release()")
	}
	if c.State() != StateIdle {
		t.Errorf("State() = %s, want %s", c.State(), StateIdle)
	}
	if _, ok := c.Session(); ok {
		t.Error("Session() still present after Release()")
	}

	n := len(s.cmds)
	c.tick()
	if len(s.cmds) != n {
		t.Error("tick after Release() sent a command")
	}
}

func TestController_LateReplyDiscarded(t *testing.T) {
	c, s, timer := newTestController(100)
	c.Press(robot.Joint, Increment, 0)
	c.Release()

	c.HandleReport(report(robot.Pose{1, 2, 3, 4, 5, 6}))

	if c.State() != StateIdle {
		t.Errorf("State() = %s after late reply, want %s", c.State(), StateIdle)
	}
	if timer.Active() || timer.Starts() != 0 {
		t.Errorf("timer started by a late reply (starts=%d)", timer.Starts())
	}
	if len(s.cmds) != 1 {
		t.Errorf("sent %d commands, want only the position request", len(s.cmds))
	}
}

func TestController_PressWhileJogging(t *testing.T) {
	c, s, timer := newTestController(100)
	c.Press(robot.Joint, Increment, 0)
	c.HandleReport(report(robot.Pose{}))

	if err := c.Press(robot.Line, Decrement, 3); err != nil {
		t.Fatalf("second Press() error = %v", err)
	}
	if timer.Active() {
		t.Error("previous jog timer still active after a new press")
	}
	if c.State() != StateAwaiting {
		t.Errorf("State() = %s, want %s", c.State(), StateAwaiting)
	}
	if s.last().Kind != protocol.GetLinearPos {
		t.Errorf("second press sent %s, want get_linear_pos", s.last().Kind)
	}

	// A press while still awaiting is allowed too.
	if err := c.Press(robot.Line, Decrement, 3); err != nil {
		t.Errorf("Press() while awaiting error = %v", err)
	}
}

func TestController_CapturePoint(t *testing.T) {
	c, s, _ := newTestController(100)

	if err := c.CapturePoint(CircleCenter); err != nil {
		t.Fatalf("CapturePoint() error = %v", err)
	}
	if s.last().Kind != protocol.GetLinearPos {
		t.Errorf("CapturePoint() sent %s, want get_linear_pos", s.last().Kind)
	}
	if slot, ok := c.PendingPoint(); !ok || slot != CircleCenter {
		t.Errorf("PendingPoint() = %v, %v", slot, ok)
	}

	pose := robot.Pose{10, 20, 30, 0, 0, 0}
	slot, captured := c.HandleReport(report(pose))
	if !captured || slot != CircleCenter {
		t.Errorf("HandleReport() = %v, %v, want circle center captured", slot, captured)
	}
	if got, ok := c.Waypoints().Pose(CircleCenter); !ok || got != pose {
		t.Errorf("Waypoints().Pose(CircleCenter) = %v, %v", got, ok)
	}

	// Only the next report is captured.
	if _, captured := c.HandleReport(report(robot.Pose{})); captured {
		t.Error("second report was captured")
	}
	if c.State() != StateIdle {
		t.Errorf("point capture changed jog state to %s", c.State())
	}

	if err := c.CapturePoint(Slot(9)); err == nil {
		t.Error("CapturePoint(9) should fail")
	}
}
