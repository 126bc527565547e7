package protocol

import (
	"errors"
	"strings"
	"testing"

	"github.com/gwillem/armconsole/pkg/robot"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name     string
		cmd      Command
		expected string
	}{
		{"stop", Simple(Stop), "!STOP\r\n"},
		{"start", Simple(Start), "!START\r\n"},
		{"home", Simple(Home), "!HOME\r\n"},
		{"calibrate", Simple(Calibrate), "!CALIBRATION\r\n"},
		{"reset", Simple(Reset), "!RESET\r\n"},
		{"disable", Simple(Disable), "!DISABLE\r\n"},
		{"get joint pos", Simple(GetJointPos), "#GETJPOS\r\n"},
		{"get linear pos", Simple(GetLinearPos), "#GETLPOS\r\n"},
		{"set mode", Mode(2), "#CMDMODE2\r\n"},
		{"move joint", Command{MoveJoint, []string{"1", "2", "3", "4", "5", "6", "50"}}, "&1,2,3,4,5,6,50\r\n"},
		{"move line", Command{MoveLine, []string{"93.37", "0", "165", "-180", "75", "-180", "100"}}, "@93.37,0,165,-180,75,-180,100\r\n"},
		{"gain p", Command{SetGainP, []string{"1", "2.5"}}, "#SET_DCE_KP 1 2.5\r\n"},
		{"gain i", Command{SetGainI, []string{"3", "0.1"}}, "#SET_DCE_KI 3 0.1\r\n"},
		{"gain d", Command{SetGainD, []string{"6", "0"}}, "#SET_DCE_KD 6 0\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.cmd)
			if err != nil {
				t.Fatalf("Encode(%v) error = %v", tt.cmd, err)
			}
			if string(got) != tt.expected {
				t.Errorf("Encode(%v) = %q, want %q", tt.cmd, got, tt.expected)
			}
			if !strings.HasSuffix(string(got), "\r\n") {
				t.Errorf("Encode(%v) does not end with CRLF", tt.cmd)
			}
		})
	}
}

func TestEncode_EveryKindHasPrefix(t *testing.T) {
	for k := Kind(0); k < numKinds; k++ {
		if k.Prefix() == "" {
			t.Errorf("kind %d has no prefix", k)
		}
		params := make([]string, k.Arity())
		for i := range params {
			params[i] = "1"
		}
		got, err := Encode(Command{Kind: k, Params: params})
		if err != nil {
			t.Errorf("Encode(%s) error = %v", k, err)
			continue
		}
		if !strings.HasPrefix(string(got), k.Prefix()) || !strings.HasSuffix(string(got), Terminator) {
			t.Errorf("Encode(%s) = %q", k, got)
		}
	}
}

func TestEncode_Arity(t *testing.T) {
	tests := []Command{
		{MoveJoint, []string{"1", "2", "3"}},
		{MoveLine, nil},
		{SetMode, nil},
		{SetGainP, []string{"1"}},
		{Stop, []string{"1"}},
	}
	for _, cmd := range tests {
		if _, err := Encode(cmd); !errors.Is(err, ErrArity) {
			t.Errorf("Encode(%v) error = %v, want ErrArity", cmd, err)
		}
	}

	if _, err := Encode(Command{Kind: Kind(99)}); err == nil {
		t.Error("Encode() with an unknown kind should fail")
	}
}

func TestNewCommand(t *testing.T) {
	cmd, err := NewCommand(MoveJoint, "1", "2", "3", "4", "5", "6", "50")
	if err != nil {
		t.Fatalf("NewCommand() error = %v", err)
	}
	got, _ := Encode(cmd)
	if string(got) != "&1,2,3,4,5,6,50\r\n" {
		t.Errorf("Encode(NewCommand(...)) = %q", got)
	}

	if _, err := NewCommand(SetMode); !errors.Is(err, ErrArity) {
		t.Errorf("NewCommand(SetMode) error = %v, want ErrArity", err)
	}
}

func TestMoveConstructors(t *testing.T) {
	v := robot.Vector{Pose: robot.Pose{1, 2, 3, 4, 5, 6}, Speed: 50}

	got, _ := Encode(Move(robot.Joint, v))
	if string(got) != "&1,2,3,4,5,6,50\r\n" {
		t.Errorf("Move(Joint) = %q", got)
	}
	got, _ = Encode(Move(robot.Line, v))
	if string(got) != "@1,2,3,4,5,6,50\r\n" {
		t.Errorf("Move(Line) = %q", got)
	}

	if PositionRequest(robot.Joint).Kind != GetJointPos {
		t.Error("PositionRequest(Joint) should be GetJointPos")
	}
	if PositionRequest(robot.Line).Kind != GetLinearPos {
		t.Error("PositionRequest(Line) should be GetLinearPos")
	}
}

func TestGain(t *testing.T) {
	cmd, err := Gain(SetGainI, 2, 1.25)
	if err != nil {
		t.Fatalf("Gain() error = %v", err)
	}
	got, _ := Encode(cmd)
	if string(got) != "#SET_DCE_KI 2 1.25\r\n" {
		t.Errorf("Gain() = %q", got)
	}

	if _, err := Gain(Stop, 1, 1); err == nil {
		t.Error("Gain(Stop) should fail")
	}
	if _, err := Gain(SetGainP, 0, 1); err == nil {
		t.Error("Gain() with joint 0 should fail")
	}
	if _, err := Gain(SetGainP, 7, 1); err == nil {
		t.Error("Gain() with joint 7 should fail")
	}
}

func TestDecode(t *testing.T) {
	report := "ok 93.37 0.00 165.00 -180.00 75.00 -180.00\r\n"

	rep, err := Decode(report)
	if err != nil {
		t.Fatalf("Decode(%q) error = %v", report, err)
	}
	want := robot.Pose{93.37, 0, 165, -180, 75, -180}
	if rep.Pose != want {
		t.Errorf("Decode() pose = %v, want %v", rep.Pose, want)
	}
	if rep.Text != " 93.37 0.00 165.00 -180.00 75.00 -180.00" {
		t.Errorf("Decode() text = %q", rep.Text)
	}
}

func TestDecode_TrailingAck(t *testing.T) {
	rep, err := Decode(" 1.00 2.00 3.00 4.00 5.00 6.00 ok\r\n")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if rep.Pose != (robot.Pose{1, 2, 3, 4, 5, 6}) {
		t.Errorf("Decode() pose = %v", rep.Pose)
	}
	if rep.Text != " 1.00 2.00 3.00 4.00 5.00 6.00" {
		t.Errorf("Decode() text = %q, want no trailing separator", rep.Text)
	}
}

func TestDecode_NotReport(t *testing.T) {
	tests := []string{
		"",
		"ok\r\n",
		"ok 1 2 3 4 5 6\r\n",
		"ok" + strings.Repeat(" ", 28), // exactly 30 characters
		"plain status line without the ack marker\r\n",
	}

	for _, text := range tests {
		if _, err := Decode(text); !errors.Is(err, ErrNotReport) {
			t.Errorf("Decode(%q) error = %v, want ErrNotReport", text, err)
		}
	}
}

func TestDecode_ParseFailure(t *testing.T) {
	tests := []string{
		"ok 1.00 2.00 three 4.00 5.00 6.00 7.00\r\n",
		"ok this line is long enough but has no numbers\r\n",
		strings.Repeat("x", 29) + "ok",
	}
	for _, text := range tests {
		_, err := Decode(text)
		if !errors.Is(err, ErrParseFailure) {
			t.Errorf("Decode(%q) error = %v, want ErrParseFailure", text, err)
		}
	}
}

func TestIsReport_LengthBoundary(t *testing.T) {
	for n := 2; n <= 40; n++ {
		text := "ok" + strings.Repeat("0", n-2)
		if got, want := IsReport(text), n > 30; got != want {
			t.Errorf("IsReport(len %d) = %v, want %v", n, got, want)
		}
	}
}
