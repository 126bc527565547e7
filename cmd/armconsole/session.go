package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gwillem/armconsole/pkg/console"
	"github.com/gwillem/armconsole/pkg/link"
	"github.com/gwillem/armconsole/pkg/log"
	"github.com/gwillem/armconsole/pkg/robot"
)

const connectTimeout = 5 * time.Second

// session runs a console without the TUI, for one-shot commands.
type session struct {
	con    *console.Console
	cancel context.CancelFunc
	done   chan error

	// last is the most recent state seen by waitFor.
	last console.State
}

func startSession(cfg *robot.Config, logger log.Logger) (*session, error) {
	store, err := openStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	con, err := console.New(link.New(link.WithLogger(logger)), console.Config{
		Store:  store,
		Speed:  cfg.Speed,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{con: con, cancel: cancel, done: make(chan error, 1)}
	go func() {
		s.done <- con.Run(ctx)
	}()
	return s, nil
}

// connect opens the configured port and waits until the link reports it.
func (s *session) connect(cfg *robot.Config) error {
	if err := s.con.Connect(cfg.Port, cfg.BaudRate); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if _, err := s.waitFor(ctx, func(st console.State) bool { return st.Connected }); err != nil {
		return fmt.Errorf("connect to %s: %w", cfg.Port, err)
	}
	if cfg.Mode > 0 {
		return s.con.SetMode(cfg.Mode)
	}
	return nil
}

// waitFor returns the first state update that satisfies ok.
func (s *session) waitFor(ctx context.Context, ok func(console.State) bool) (console.State, error) {
	for {
		select {
		case <-ctx.Done():
			return console.State{}, ctx.Err()
		case err := <-s.done:
			s.done <- err
			return console.State{}, fmt.Errorf("console stopped: %w", err)
		case st := <-s.con.States():
			s.last = st
			if ok(st) {
				return st, nil
			}
		}
	}
}

// close stops the console and waits for the link to shut down.
func (s *session) close() error {
	s.cancel()
	err := <-s.done
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
