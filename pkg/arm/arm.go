// Package arm sends controller commands over a serial link.
package arm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gwillem/armconsole/pkg/log"
	"github.com/gwillem/armconsole/pkg/metrics"
	"github.com/gwillem/armconsole/pkg/protocol"
	"github.com/gwillem/armconsole/pkg/robot"
)

// Writer accepts wire bytes. *link.Link satisfies it.
type Writer interface {
	Write(data []byte)
}

// Arm represents the robot arm behind a link.
type Arm struct {
	w   Writer
	log log.Logger
}

// New creates an arm that writes to w.
func New(w Writer, logger log.Logger) *Arm {
	return &Arm{w: w, log: log.OrNop(logger).WithName("arm")}
}

// Send encodes cmd and writes it.
func (a *Arm) Send(cmd protocol.Command) error {
	data, err := protocol.Encode(cmd)
	if err != nil {
		return fmt.Errorf("encode %s: %w", cmd.Kind, err)
	}

	a.w.Write(data)
	metrics.CommandsSent.WithLabelValues(cmd.Kind.String()).Inc()
	a.log.Debug("command sent", "kind", cmd.Kind.String(), "line", strings.TrimRight(string(data), protocol.Terminator))
	return nil
}

// SendRaw writes an already encoded line.
func (a *Arm) SendRaw(line []byte) {
	a.w.Write(line)
	metrics.CommandsSent.WithLabelValues("raw").Inc()
	a.log.Debug("raw line sent", "line", strings.TrimRight(string(line), protocol.Terminator))
}

// Start enables the drives.
func (a *Arm) Start() error {
	return a.Send(protocol.Simple(protocol.Start))
}

// Stop halts all motion immediately.
func (a *Arm) Stop() error {
	return a.Send(protocol.Simple(protocol.Stop))
}

// Home moves to the home pose.
func (a *Arm) Home() error {
	return a.Send(protocol.Simple(protocol.Home))
}

// Calibrate runs the controller's calibration routine.
func (a *Arm) Calibrate() error {
	return a.Send(protocol.Simple(protocol.Calibrate))
}

// Reset resets the controller.
func (a *Arm) Reset() error {
	return a.Send(protocol.Simple(protocol.Reset))
}

// Disable releases the drives.
func (a *Arm) Disable() error {
	return a.Send(protocol.Simple(protocol.Disable))
}

// RequestPosition asks for the pose in the space of m.
func (a *Arm) RequestPosition(m robot.MoveType) error {
	return a.Send(protocol.PositionRequest(m))
}

// RequestJointPos asks for the joint angles.
func (a *Arm) RequestJointPos() error {
	return a.RequestPosition(robot.Joint)
}

// RequestLinearPos asks for the Cartesian pose.
func (a *Arm) RequestLinearPos() error {
	return a.RequestPosition(robot.Line)
}

// SetMode selects a 1-based controller mode.
func (a *Arm) SetMode(mode int) error {
	if mode < 1 {
		return fmt.Errorf("set mode: mode %d must be 1 or greater", mode)
	}
	return a.Send(protocol.Mode(mode))
}

// Move moves to v in the space of m.
func (a *Arm) Move(m robot.MoveType, v robot.Vector) error {
	if err := robot.ValidateSpeed(v.Speed); err != nil {
		return fmt.Errorf("move %s: %w", m, err)
	}
	return a.Send(protocol.Move(m, v))
}

// Rest parks the arm in the rest pose.
func (a *Arm) Rest(speed float64) error {
	return a.Move(robot.Joint, robot.Vector{Pose: robot.RestPose, Speed: speed})
}

// SetGain sets one gain term for a 1-based joint.
func (a *Arm) SetGain(kind protocol.Kind, joint int, value float64) error {
	cmd, err := protocol.Gain(kind, joint, value)
	if err != nil {
		return fmt.Errorf("set gain: %w", err)
	}
	return a.Send(cmd)
}

// ApplyGains sends kp, ki and kd for every configured joint.
func (a *Arm) ApplyGains(g robot.Gains) error {
	var errs []error
	for _, jg := range g.Ordered() {
		for _, term := range []struct {
			kind  protocol.Kind
			value float64
		}{
			{protocol.SetGainP, jg.PID.Kp},
			{protocol.SetGainI, jg.PID.Ki},
			{protocol.SetGainD, jg.PID.Kd},
		} {
			if err := a.SetGain(term.kind, jg.Joint, term.value); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", jg.Name, err))
			}
		}
	}
	return errors.Join(errs...)
}
