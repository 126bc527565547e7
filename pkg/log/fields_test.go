package log

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestToFields(t *testing.T) {
	err := errors.New("boom")

	tests := []struct {
		name  string
		input []any
		want  []string
	}{
		{"empty input", []any{}, nil},
		{"pairs", []any{"port", "/dev/ttyUSB0", "baud", 115200, "open", true}, []string{"port", "baud", "open"}},
		{"error only", []any{err}, []string{"error"}},
		{"field passthrough", []any{zap.String("x", "y"), "n", 1}, []string{"x", "n"}},
		{"odd number of args", []any{"key1", "val1", "key2"}, []string{"key1", "arg#2"}},
		{"non-string key", []any{123, "value"}, []string{"invalid_key_1"}},
		{"duration and time", []any{"period", 40 * time.Millisecond, "at", time.Now()}, []string{"period", "at"}},
		{"bytes", []any{"data", []byte("ok 1 2 3")}, []string{"data"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := toFields(tt.input...)
			if len(fields) != len(tt.want) {
				t.Fatalf("toFields(%v) returned %d fields, want %d", tt.input, len(fields), len(tt.want))
			}
			for i, f := range fields {
				if f.Key != tt.want[i] {
					t.Errorf("field[%d].Key = %q, want %q", i, f.Key, tt.want[i])
				}
			}
		})
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("OrNop(nil) returned nil")
	}
	l := NewNopLogger()
	if OrNop(l) != l {
		t.Error("OrNop should return the given logger")
	}
}

func TestNewLogger_BadLevelFallsBackToInfo(t *testing.T) {
	opts := NewOptions()
	opts.Level = "loud"
	opts.OutputPaths = []string{"stderr"}
	l, err := NewLogger(opts)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	l.Info("hello", "k", "v")
}
