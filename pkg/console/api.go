package console

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gwillem/armconsole/pkg/arm"
	"github.com/gwillem/armconsole/pkg/protocol"
	"github.com/gwillem/armconsole/pkg/robot"
	"github.com/gwillem/armconsole/pkg/teach"
	"github.com/gwillem/armconsole/pkg/trace"
	"github.com/gwillem/armconsole/pkg/trajectory"
)

// Connect opens port. The result arrives as a state update.
func (c *Console) Connect(port string, baud int) error {
	return c.do(func() error {
		if baud <= 0 {
			baud = robot.DefaultBaudRate
		}
		c.logf("Connecting to %s at %d baud", port, baud)
		c.link.Open(port, baud)
		return nil
	})
}

// Disconnect closes the port.
func (c *Console) Disconnect() error {
	return c.do(func() error {
		c.link.Close()
		return nil
	})
}

// SetSpeed sets the operator speed used by new motion commands and timers.
func (c *Console) SetSpeed(speed float64) error {
	return c.do(func() error {
		if err := robot.ValidateSpeed(speed); err != nil {
			return err
		}
		c.speed = speed
		c.publish()
		return nil
	})
}

// Speed returns the operator speed.
func (c *Console) Speed() (float64, error) {
	var speed float64
	err := c.do(func() error {
		speed = c.speed
		return nil
	})
	return speed, err
}

// simpleCommands maps each parameterless command to the arm call sending it.
var simpleCommands = map[protocol.Kind]func(*arm.Arm) error{
	protocol.Stop:         (*arm.Arm).Stop,
	protocol.Start:        (*arm.Arm).Start,
	protocol.Home:         (*arm.Arm).Home,
	protocol.Calibrate:    (*arm.Arm).Calibrate,
	protocol.Reset:        (*arm.Arm).Reset,
	protocol.Disable:      (*arm.Arm).Disable,
	protocol.GetJointPos:  (*arm.Arm).RequestJointPos,
	protocol.GetLinearPos: (*arm.Arm).RequestLinearPos,
}

// Send sends a command without parameters, such as Start or Home.
func (c *Console) Send(kind protocol.Kind) error {
	return c.do(func() error {
		send, ok := simpleCommands[kind]
		if !ok {
			return fmt.Errorf("send %s: %w", kind, ErrNotSimple)
		}
		return send(c.arm)
	})
}

// EmergencyStop halts the arm and cancels jogging and playback.
func (c *Console) EmergencyStop() error {
	return c.do(func() error {
		c.player.Stop()
		c.teach.Release()
		c.logf("Emergency stop")
		err := c.arm.Stop()
		c.publish()
		return err
	})
}

// Rest parks the arm in the rest pose at the current speed.
func (c *Console) Rest() error {
	return c.do(func() error {
		return c.arm.Rest(c.speed)
	})
}

// SetMode selects a 1-based controller mode.
func (c *Console) SetMode(mode int) error {
	return c.do(func() error {
		return c.arm.SetMode(mode)
	})
}

// SetGain sets one PID term for a 1-based joint.
func (c *Console) SetGain(kind protocol.Kind, joint int, value float64) error {
	return c.do(func() error {
		return c.arm.SetGain(kind, joint, value)
	})
}

// ApplyGains sends every configured gain.
func (c *Console) ApplyGains(g robot.Gains) error {
	return c.do(func() error {
		if err := c.arm.ApplyGains(g); err != nil {
			return err
		}
		c.logf("Applied gains for %d joints", len(g))
		return nil
	})
}

// RequestJointPos asks the arm for its joint angles.
func (c *Console) RequestJointPos() error {
	return c.do(c.arm.RequestJointPos)
}

// RequestLinearPos asks the arm for its Cartesian pose.
func (c *Console) RequestLinearPos() error {
	return c.do(c.arm.RequestLinearPos)
}

// PressJog starts jogging axis in the given direction.
func (c *Console) PressJog(move robot.MoveType, op teach.Operation, axis int) error {
	return c.do(func() error {
		err := c.teach.Press(move, op, axis)
		c.publish()
		return err
	})
}

// ReleaseJog stops jogging.
func (c *Console) ReleaseJog() error {
	return c.do(func() error {
		c.teach.Release()
		c.publish()
		return nil
	})
}

// StartCapture starts recording a new trace and returns its path.
func (c *Console) StartCapture() (string, error) {
	var path string
	err := c.do(func() error {
		if c.authoring != nil {
			return fmt.Errorf("start capture: %w", trace.ErrBusy)
		}
		p, err := c.recorder.Start()
		if err != nil {
			c.logf("Capture failed: %v", err)
			return err
		}
		path = p
		c.logf("Capturing to %s", filepath.Base(p))
		c.publish()
		return nil
	})
	return path, err
}

// StopCapture stops recording and returns the number of captured lines.
func (c *Console) StopCapture() (int, error) {
	var lines int
	err := c.do(func() error {
		n, err := c.recorder.Stop()
		lines = n
		c.logf("Capture stopped, %d lines", n)
		c.publish()
		return err
	})
	return lines, err
}

// Play replays the named trace from its start.
func (c *Console) Play(name string) (int, error) {
	return c.startPlayback(name, c.player.Play)
}

// Resume replays the named trace, skipping lines already played.
func (c *Console) Resume(name string) (int, error) {
	return c.startPlayback(name, c.player.Resume)
}

func (c *Console) startPlayback(name string, start func(string) (int, error)) (int, error) {
	var queued int
	err := c.do(func() error {
		n, err := start(c.store.Path(name))
		if err != nil {
			c.logf("Playback failed: %v", err)
			return err
		}
		queued = n
		c.logf("Playing %s, %d commands", name, n)
		c.publish()
		return nil
	})
	return queued, err
}

// StopPlayback cancels the running playback.
func (c *Console) StopPlayback() error {
	return c.do(func() error {
		c.player.Stop()
		c.publish()
		return nil
	})
}

// BeginTrajectory opens a new trace file for authored lines and circles.
// A trajectory already open is closed first.
func (c *Console) BeginTrajectory() (string, error) {
	var path string
	err := c.do(func() error {
		if c.recorder.Capturing() {
			return fmt.Errorf("begin trajectory: %w", trace.ErrBusy)
		}
		c.closeTrajectory()

		w, err := c.store.Create()
		if err != nil {
			c.logf("Trajectory failed: %v", err)
			return fmt.Errorf("begin trajectory: %w", err)
		}
		c.authoring = w
		path = w.Path()
		c.logf("Authoring trajectory %s", filepath.Base(path))
		c.publish()
		return nil
	})
	return path, err
}

// CapturePoint stores the next Cartesian pose report in slot.
func (c *Console) CapturePoint(slot teach.Slot) error {
	return c.do(func() error {
		err := c.teach.CapturePoint(slot)
		c.publish()
		return err
	})
}

// AddLine writes the line between the captured line waypoints and clears them.
func (c *Console) AddLine() (int, error) {
	var written int
	err := c.do(func() error {
		w := c.teach.Waypoints()
		if err := c.checkShape(w, teach.LineSlots); err != nil {
			return fmt.Errorf("add line: %w", err)
		}

		start, _ := w.Pose(teach.LineStart)
		end, _ := w.Pose(teach.LineEnd)
		poses := trajectory.Line(start, end, c.lineOpts)
		if err := c.authoring.WritePoses(poses); err != nil {
			return fmt.Errorf("add line: %w", err)
		}

		w.Clear(teach.LineSlots...)
		written = len(poses)
		c.logf("Added line, %d points", written)
		c.publish()
		return nil
	})
	return written, err
}

// AddCircle writes the circle through the captured circle waypoints and
// clears them. Collinear waypoints write nothing.
func (c *Console) AddCircle() (int, error) {
	var written int
	err := c.do(func() error {
		w := c.teach.Waypoints()
		if err := c.checkShape(w, teach.CircleSlots); err != nil {
			return fmt.Errorf("add circle: %w", err)
		}

		start, _ := w.Pose(teach.CircleStart)
		center, _ := w.Pose(teach.CircleCenter)
		end, _ := w.Pose(teach.CircleEnd)
		poses, err := trajectory.CircleArc(center, start, end, c.circlePoints, start)
		if err != nil {
			c.logf("Circle rejected: %v", err)
			return fmt.Errorf("add circle: %w", err)
		}
		if err := c.authoring.WritePoses(poses); err != nil {
			return fmt.Errorf("add circle: %w", err)
		}

		w.Clear(teach.CircleSlots...)
		written = len(poses)
		c.logf("Added circle, %d points", written)
		c.publish()
		return nil
	})
	return written, err
}

func (c *Console) checkShape(w *teach.Waypoints, slots []teach.Slot) error {
	if c.authoring == nil {
		return ErrNoTrajectory
	}
	if w.AllFilled(slots...) {
		return nil
	}
	var missing []string
	for _, s := range slots {
		if !w.Filled(s) {
			missing = append(missing, s.String())
		}
	}
	return fmt.Errorf("%w: %s", ErrWaypointsMissing, strings.Join(missing, ", "))
}

// EndTrajectory closes the trajectory file.
func (c *Console) EndTrajectory() error {
	return c.do(func() error {
		if c.authoring == nil {
			return ErrNoTrajectory
		}
		path := c.authoring.Path()
		lines := c.authoring.Lines()
		c.closeTrajectory()
		c.logf("Trajectory %s closed, %d points", filepath.Base(path), lines)
		c.publish()
		return nil
	})
}

func (c *Console) closeTrajectory() {
	if c.authoring == nil {
		return
	}
	if err := c.authoring.Close(); err != nil {
		c.log.Error(err, "close trajectory")
	}
	c.authoring = nil
}

// Traces lists the stored trace names.
func (c *Console) Traces() ([]string, error) {
	return c.store.List()
}

// DeleteTrace removes a stored trace.
func (c *Console) DeleteTrace(name string) error {
	return c.do(func() error {
		if path := c.store.Path(name); path == c.recorder.Path() || (c.authoring != nil && path == c.authoring.Path()) {
			return fmt.Errorf("delete trace: %w", trace.ErrBusy)
		}
		if err := c.store.Delete(name); err != nil {
			return err
		}
		c.logf("Deleted %s", name)
		return nil
	})
}
