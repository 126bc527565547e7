package teach

import (
	"fmt"

	"github.com/gwillem/armconsole/pkg/robot"
)

// Slot names a waypoint used to author a line or circle.
type Slot int

const (
	LineStart Slot = iota
	LineEnd
	CircleStart
	CircleCenter
	CircleEnd

	numSlots
)

var slotNames = [numSlots]string{
	LineStart:    "line start",
	LineEnd:      "line end",
	CircleStart:  "circle start",
	CircleCenter: "circle center",
	CircleEnd:    "circle end",
}

func (s Slot) String() string {
	if !s.valid() {
		return fmt.Sprintf("slot(%d)", int(s))
	}
	return slotNames[s]
}

func (s Slot) valid() bool {
	return s >= 0 && s < numSlots
}

// AllSlots returns every slot in order.
func AllSlots() []Slot {
	return []Slot{LineStart, LineEnd, CircleStart, CircleCenter, CircleEnd}
}

// LineSlots are the slots a line segment needs.
var LineSlots = []Slot{LineStart, LineEnd}

// CircleSlots are the slots a circle needs.
var CircleSlots = []Slot{CircleStart, CircleCenter, CircleEnd}

// Waypoints holds captured poses per slot.
type Waypoints struct {
	poses  [numSlots]robot.Pose
	filled [numSlots]bool
}

// Set stores pose in slot and marks it filled.
func (w *Waypoints) Set(slot Slot, pose robot.Pose) {
	if !slot.valid() {
		return
	}
	w.poses[slot] = pose
	w.filled[slot] = true
}

// Filled reports whether slot holds a pose.
func (w *Waypoints) Filled(slot Slot) bool {
	return slot.valid() && w.filled[slot]
}

// AllFilled reports whether every given slot holds a pose.
func (w *Waypoints) AllFilled(slots ...Slot) bool {
	for _, s := range slots {
		if !w.Filled(s) {
			return false
		}
	}
	return true
}

// Pose returns the pose in slot.
func (w *Waypoints) Pose(slot Slot) (robot.Pose, bool) {
	if !w.Filled(slot) {
		return robot.Pose{}, false
	}
	return w.poses[slot], true
}

// Clear empties the given slots, or all of them when none are given.
func (w *Waypoints) Clear(slots ...Slot) {
	if len(slots) == 0 {
		slots = AllSlots()
	}
	for _, s := range slots {
		if s.valid() {
			w.poses[s] = robot.Pose{}
			w.filled[s] = false
		}
	}
}
