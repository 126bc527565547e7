package trace

import (
	"strings"

	"github.com/gwillem/armconsole/pkg/protocol"
	"github.com/gwillem/armconsole/pkg/robot"
)

// PlaybackCommand turns a stored trace line into a Cartesian move at
// speed. Stored lines start with the space left behind by the removed ack
// token; that space becomes the comma at offset 1, which is dropped, and
// the remaining spaces separate parameters. Blank lines yield false.
func PlaybackCommand(line string, speed float64) ([]byte, bool) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return nil, false
	}

	s := strings.ReplaceAll(protocol.MoveLine.Prefix()+line, " ", ",")
	if len(s) > 1 {
		s = s[:1] + s[2:]
	}
	return []byte(s + "," + robot.FormatFloat(speed) + protocol.Terminator), true
}
