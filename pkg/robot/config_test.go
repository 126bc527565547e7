package robot

import (
	"path/filepath"
	"testing"
)

func TestConfig_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "armconsole.json")

	cfg := DefaultConfig()
	cfg.Port = "/dev/ttyUSB0"
	cfg.Speed = 40
	cfg.Mode = 2
	cfg.Gains = Gains{J1: PID{Kp: 3, Ki: 0.5, Kd: 0.1}}

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}

	got, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatalf("LoadConfigFrom() error = %v", err)
	}
	if got.Port != cfg.Port || got.BaudRate != DefaultBaudRate || got.Speed != 40 || got.Mode != 2 {
		t.Errorf("LoadConfigFrom() = %+v", got)
	}
	if got.Gains[J1].Ki != 0.5 {
		t.Errorf("LoadConfigFrom() gains = %+v", got.Gains)
	}
}

func TestLoadConfigFrom_EnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "armconsole.json")
	if err := DefaultConfig().SaveTo(path); err != nil {
		t.Fatal(err)
	}

	t.Setenv("ARMCONSOLE_PORT", "/dev/ttyACM3")
	t.Setenv("ARMCONSOLE_SPEED", "25")

	got, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatalf("LoadConfigFrom() error = %v", err)
	}
	if got.Port != "/dev/ttyACM3" {
		t.Errorf("Port = %q, want /dev/ttyACM3", got.Port)
	}
	if got.Speed != 25 {
		t.Errorf("Speed = %v, want 25", got.Speed)
	}
}

func TestConfigExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "armconsole.json")
	if ConfigExists(path) {
		t.Errorf("ConfigExists(%q) = true before saving", path)
	}
	if err := DefaultConfig().SaveTo(path); err != nil {
		t.Fatal(err)
	}
	if !ConfigExists(path) {
		t.Errorf("ConfigExists(%q) = false after saving", path)
	}
}

func TestLoadConfigFrom_Missing(t *testing.T) {
	if _, err := LoadConfigFrom(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("LoadConfigFrom() on a missing file should fail")
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Speed = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() with zero speed should fail")
	}
	cfg = DefaultConfig()
	cfg.BaudRate = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() with zero baud should fail")
	}
}
