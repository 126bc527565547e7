package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/gwillem/armconsole/pkg/log"
	"github.com/gwillem/armconsole/pkg/robot"
	"github.com/gwillem/armconsole/pkg/trace"
)

type Options struct {
	Config string      `short:"c" long:"config" description:"Configuration file (default: armconsole.json)"`
	Log    log.Options `group:"Logging Options"`

	Setup   SetupCommand   `command:"setup" description:"Choose the serial port and default speed"`
	Console ConsoleCommand `command:"console" alias:"ui" description:"Start the interactive arm console"`
	Info    InfoCommand    `command:"info" description:"Print the current joint and Cartesian pose"`
	Replay  ReplayCommand  `command:"replay" description:"Play a trace file without the console"`
	Ports   PortsCommand   `command:"ports" description:"List serial ports"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "armconsole - teach, record and replay a serial robot arm"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}

func configPath() string {
	if opts.Config == "" {
		return robot.DefaultConfigFile
	}
	return opts.Config
}

// loadConfig reads the configuration file and checks a port was chosen.
func loadConfig() (*robot.Config, error) {
	path := configPath()
	if !robot.ConfigExists(path) {
		return nil, fmt.Errorf("no configuration found at %s (run 'armconsole setup' first)", path)
	}
	cfg, err := robot.LoadConfigFrom(path)
	if err != nil {
		return nil, err
	}
	if !cfg.IsConfigured() {
		return nil, fmt.Errorf("no serial port configured in %s (run 'armconsole setup' first)", path)
	}
	return cfg, nil
}

// newLogger builds the process logger. When no output was given on the
// command line, entries go to defaultOutput.
func newLogger(defaultOutput string) (log.Logger, error) {
	o := opts.Log
	if len(o.OutputPaths) == 0 {
		o.OutputPaths = []string{defaultOutput}
	}
	logger, err := log.NewLogger(&o)
	if err != nil {
		return nil, err
	}
	log.SetDefault(logger)
	return logger, nil
}

func openStore(cfg *robot.Config, logger log.Logger) (*trace.Store, error) {
	dir := cfg.TraceDir
	if dir == "" {
		d, err := trace.DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	return trace.NewStore(dir, logger)
}
