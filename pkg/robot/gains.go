package robot

import (
	"encoding/json"
	"fmt"
	"os"
)

// PID holds the position-loop gains for a single joint.
type PID struct {
	Kp float64 `json:"kp" mapstructure:"kp"`
	Ki float64 `json:"ki" mapstructure:"ki"`
	Kd float64 `json:"kd" mapstructure:"kd"`
}

// Gains holds PID gains for the joints, keyed by joint name.
type Gains map[AxisName]PID

// JointGain is one joint's gains with its 1-based device joint number.
type JointGain struct {
	Joint int
	Name  AxisName
	PID   PID
}

// LoadGains loads gains from a JSON file.
func LoadGains(path string) (Gains, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read gains file: %w", err)
	}

	// Parse into a map with string keys first
	var raw map[string]PID
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse gains JSON: %w", err)
	}

	gains := make(Gains, len(raw))
	for name, pid := range raw {
		if _, ok := JointNumber(AxisName(name)); !ok {
			return nil, fmt.Errorf("unknown joint %q", name)
		}
		gains[AxisName(name)] = pid
	}

	return gains, nil
}

// Ordered returns the configured joints in joint order.
func (g Gains) Ordered() []JointGain {
	out := make([]JointGain, 0, len(g))
	// Use AllJoints() to ensure consistent ordering
	for i, name := range AllJoints() {
		if pid, ok := g[name]; ok {
			out = append(out, JointGain{Joint: i + 1, Name: name, PID: pid})
		}
	}
	return out
}
