package protocol

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gwillem/armconsole/pkg/robot"
)

// Terminator ends every command and report line.
const Terminator = "\r\n"

const (
	ackToken = "ok"
	// minReportLen: a chunk must be longer than this to be a report.
	// Shorter "ok" lines are plain acknowledgements.
	minReportLen = 30
)

var (
	// ErrNotReport is returned by Decode for text that is not a position report.
	ErrNotReport = errors.New("not a position report")

	// ErrParseFailure is returned by Decode for a report whose values do not parse.
	ErrParseFailure = errors.New("malformed position report")
)

// PositionReport is a decoded pose report.
type PositionReport struct {
	Pose robot.Pose
	// Text is the report with the ack token and line breaks removed,
	// which is the form trace files store.
	Text string
}

// Encode renders cmd as wire bytes.
func Encode(cmd Command) ([]byte, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString(cmd.Kind.Prefix())

	switch cmd.Kind {
	case SetMode:
		sb.WriteString(cmd.Params[0])
	case MoveJoint, MoveLine:
		sb.WriteString(strings.Join(cmd.Params, ","))
	case SetGainP, SetGainI, SetGainD:
		for _, p := range cmd.Params {
			sb.WriteByte(' ')
			sb.WriteString(p)
		}
	}

	sb.WriteString(Terminator)
	return []byte(sb.String()), nil
}

// IsReport applies the report heuristic: the text carries the ack token
// and is longer than a bare acknowledgement.
func IsReport(text string) bool {
	return strings.Contains(text, ackToken) && len(text) > minReportLen
}

// StripReport removes the ack token and line breaks from text.
func StripReport(text string) string {
	text = strings.ReplaceAll(text, ackToken, "")
	text = strings.ReplaceAll(text, "\r", "")
	return strings.ReplaceAll(text, "\n", "")
}

// Decode parses a position report. The first space-separated token after
// the ack token is removed is a label and is skipped.
func Decode(text string) (PositionReport, error) {
	if !IsReport(text) {
		return PositionReport{}, ErrNotReport
	}

	stripped := StripReport(text)
	tokens := strings.Split(stripped, " ")
	pose, err := robot.ParsePose(strings.Fields(strings.Join(tokens[1:], " ")))
	if err != nil {
		return PositionReport{}, fmt.Errorf("%w: %q: %v", ErrParseFailure, stripped, err)
	}

	// A trailing ack leaves a separator behind; playback would read it as
	// an empty parameter.
	return PositionReport{Pose: pose, Text: strings.TrimRight(stripped, " \t")}, nil
}
