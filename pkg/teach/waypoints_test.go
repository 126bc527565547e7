package teach

import (
	"testing"

	"github.com/gwillem/armconsole/pkg/robot"
)

func TestWaypoints(t *testing.T) {
	var w Waypoints
	for _, s := range AllSlots() {
		if w.Filled(s) {
			t.Errorf("Filled(%s) = true on an empty set", s)
		}
	}

	w.Set(LineStart, robot.Pose{1})
	w.Set(LineEnd, robot.Pose{2})
	if !w.AllFilled(LineSlots...) {
		t.Error("AllFilled(line slots) = false after setting both")
	}
	if w.AllFilled(CircleSlots...) {
		t.Error("AllFilled(circle slots) = true with no circle points")
	}

	w.Clear(LineStart)
	if w.Filled(LineStart) || !w.Filled(LineEnd) {
		t.Error("Clear(LineStart) should only clear line start")
	}
	if _, ok := w.Pose(LineStart); ok {
		t.Error("Pose(LineStart) ok after Clear")
	}

	w.Clear()
	if w.Filled(LineEnd) {
		t.Error("Clear() should clear every slot")
	}

	if w.Filled(Slot(-1)) || w.Filled(numSlots) {
		t.Error("out of range slots must never be filled")
	}
}

func TestSlot_String(t *testing.T) {
	tests := []struct {
		slot     Slot
		expected string
	}{
		{LineStart, "line start"},
		{CircleEnd, "circle end"},
		{Slot(7), "slot(7)"},
	}
	for _, tt := range tests {
		if got := tt.slot.String(); got != tt.expected {
			t.Errorf("Slot(%d).String() = %q, want %q", int(tt.slot), got, tt.expected)
		}
	}
}
