// Package protocol encodes commands for the arm controller's ASCII line
// protocol and decodes the position reports it sends back.
package protocol

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gwillem/armconsole/pkg/robot"
)

// Kind identifies a controller command.
type Kind int

const (
	Stop Kind = iota
	Start
	Home
	Calibrate
	Reset
	Disable
	GetJointPos
	GetLinearPos
	SetMode
	MoveJoint
	MoveLine
	SetGainP
	SetGainI
	SetGainD

	numKinds
)

// ErrArity is returned when a command carries the wrong number of parameters.
var ErrArity = errors.New("wrong parameter count")

type spec struct {
	name   string
	prefix string
	arity  int
}

// specs is indexed by Kind; the array length makes a missing entry a compile error.
var specs = [numKinds]spec{
	Stop:         {"stop", "!STOP", 0},
	Start:        {"start", "!START", 0},
	Home:         {"home", "!HOME", 0},
	Calibrate:    {"calibrate", "!CALIBRATION", 0},
	Reset:        {"reset", "!RESET", 0},
	Disable:      {"disable", "!DISABLE", 0},
	GetJointPos:  {"get_joint_pos", "#GETJPOS", 0},
	GetLinearPos: {"get_linear_pos", "#GETLPOS", 0},
	SetMode:      {"set_mode", "#CMDMODE", 1},
	MoveJoint:    {"move_joint", "&", robot.PoseSize + 1},
	MoveLine:     {"move_line", "@", robot.PoseSize + 1},
	SetGainP:     {"set_gain_p", "#SET_DCE_KP", 2},
	SetGainI:     {"set_gain_i", "#SET_DCE_KI", 2},
	SetGainD:     {"set_gain_d", "#SET_DCE_KD", 2},
}

func (k Kind) valid() bool {
	return k >= 0 && k < numKinds
}

func (k Kind) String() string {
	if !k.valid() {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return specs[k].name
}

// Prefix returns the fixed wire prefix for k.
func (k Kind) Prefix() string {
	if !k.valid() {
		return ""
	}
	return specs[k].prefix
}

// Arity returns the number of parameters k carries.
func (k Kind) Arity() int {
	if !k.valid() {
		return 0
	}
	return specs[k].arity
}

// IsGain reports whether k is one of the PID gain setters.
func (k Kind) IsGain() bool {
	return k == SetGainP || k == SetGainI || k == SetGainD
}

// Command is a controller command with its string-encoded parameters.
type Command struct {
	Kind   Kind
	Params []string
}

// NewCommand builds a command and checks its parameter count.
func NewCommand(kind Kind, params ...string) (Command, error) {
	cmd := Command{Kind: kind, Params: params}
	if err := cmd.Validate(); err != nil {
		return Command{}, err
	}
	return cmd, nil
}

// Validate checks the kind and parameter count.
func (c Command) Validate() error {
	if !c.Kind.valid() {
		return fmt.Errorf("unknown command kind %d", int(c.Kind))
	}
	if len(c.Params) != c.Kind.Arity() {
		return fmt.Errorf("%s: %w: got %d, want %d", c.Kind, ErrArity, len(c.Params), c.Kind.Arity())
	}
	return nil
}

// Simple returns a parameterless command. Kinds that take parameters yield
// a command that fails validation.
func Simple(kind Kind) Command {
	return Command{Kind: kind}
}

// MoveJointTo returns a joint-space move to v.
func MoveJointTo(v robot.Vector) Command {
	return Command{Kind: MoveJoint, Params: v.Params()}
}

// MoveLineTo returns a Cartesian move to v.
func MoveLineTo(v robot.Vector) Command {
	return Command{Kind: MoveLine, Params: v.Params()}
}

// Move returns MoveJointTo or MoveLineTo depending on m.
func Move(m robot.MoveType, v robot.Vector) Command {
	if m == robot.Line {
		return MoveLineTo(v)
	}
	return MoveJointTo(v)
}

// PositionRequest returns the query matching m.
func PositionRequest(m robot.MoveType) Command {
	if m == robot.Line {
		return Simple(GetLinearPos)
	}
	return Simple(GetJointPos)
}

// Mode returns a SetMode command for a 1-based controller mode.
func Mode(mode int) Command {
	return Command{Kind: SetMode, Params: []string{strconv.Itoa(mode)}}
}

// Gain returns a gain command for a 1-based joint number.
func Gain(kind Kind, joint int, value float64) (Command, error) {
	if !kind.IsGain() {
		return Command{}, fmt.Errorf("%s is not a gain command", kind)
	}
	if joint < 1 || joint > robot.PoseSize {
		return Command{}, fmt.Errorf("joint %d out of range 1-%d", joint, robot.PoseSize)
	}
	return Command{Kind: kind, Params: []string{strconv.Itoa(joint), robot.FormatFloat(value)}}, nil
}
