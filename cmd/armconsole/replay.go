package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/gwillem/armconsole/pkg/console"
)

type ReplayCommand struct {
	Speed float64 `short:"s" long:"speed" description:"Playback speed (defaults to the configured speed)"`
	Args  struct {
		Trace string `positional-arg-name:"trace" required:"yes" description:"Trace name in the trace directory, or a path to a trace file"`
	} `positional-args:"yes"`
}

func (c *ReplayCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger("stderr")
	if err != nil {
		return err
	}
	defer logger.Sync()

	s, err := startSession(cfg, logger)
	if err != nil {
		return err
	}
	defer s.close()

	if c.Speed != 0 {
		if err := s.con.SetSpeed(c.Speed); err != nil {
			return err
		}
	}

	go func() {
		for msg := range s.con.Logs() {
			fmt.Println(statusStyle.Render(msg))
		}
	}()

	if err := s.connect(cfg); err != nil {
		return err
	}

	name, err := traceArg(c.Args.Trace)
	if err != nil {
		return err
	}
	n, err := s.con.Play(name)
	if err != nil {
		return err
	}
	if n == 0 {
		fmt.Println("Nothing to play.")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	_, err = s.waitFor(ctx, func(st console.State) bool { return !st.Playing })
	if errors.Is(err, context.Canceled) {
		fmt.Println()
		return s.con.EmergencyStop()
	}
	if err != nil {
		return err
	}
	fmt.Println(successStyle.Render(fmt.Sprintf("Replayed %d commands.", n)))
	return nil
}

// traceArg keeps bare names for lookup in the trace directory and makes
// anything with a directory part absolute, relative to the working directory.
func traceArg(arg string) (string, error) {
	if filepath.Base(arg) == arg {
		return arg, nil
	}
	path, err := filepath.Abs(arg)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", arg, err)
	}
	return path, nil
}
