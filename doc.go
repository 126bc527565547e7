// Package armconsole is a control console for serial robot arms that speak
// a line-based ASCII command protocol.
//
// It jogs the arm joint by joint or along Cartesian axes, records taught
// motion to plain text trace files, replays them at an adjustable speed, and
// authors straight-line and circular paths from captured waypoints.
//
// # Installation
//
//	go install github.com/gwillem/armconsole/cmd/armconsole@latest
//
// # Usage
//
// First, choose the serial port and default speed:
//
//	armconsole setup
//
// Then start the console:
//
//	armconsole console
//
// Traces can be replayed without the console:
//
//	armconsole replay teach_record_20240101_120000.txt
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/armconsole: CLI with setup, console, info, replay and ports commands
//   - pkg/link: Serial worker and its event stream
//   - pkg/protocol: Command encoding, report decoding and line framing
//   - pkg/arm: Command facade over the link
//   - pkg/teach: Jog controller and waypoint capture
//   - pkg/trace: Trace files, recording and playback
//   - pkg/trajectory: Line and circle path generation
//   - pkg/console: The single-goroutine core the UI drives
//   - pkg/robot: Poses, axes, gains and configuration
//   - pkg/sched: Cooperative timers
//   - pkg/log, pkg/metrics: Logging and prometheus collectors
package armconsole
