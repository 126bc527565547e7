package trace

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/gwillem/armconsole/pkg/log"
	"github.com/gwillem/armconsole/pkg/sched"
)

// RawSender writes encoded lines to the arm. *arm.Arm satisfies it.
type RawSender interface {
	SendRaw(line []byte)
}

// PlaybackPeriod returns the playback tick period for speed: 20ms at
// speed 100.
func PlaybackPeriod(speed float64) time.Duration {
	return time.Duration(20 * (100 / speed) * float64(time.Millisecond))
}

// Player replays a trace file one command per tick.
type Player struct {
	send  RawSender
	speed func() float64
	timer sched.Timer
	log   log.Logger

	path     string
	queue    [][]byte
	progress map[string]int
	onFinish func(path string)
}

// NewPlayer creates an idle player. speed reports the current operator speed.
func NewPlayer(send RawSender, s sched.Scheduler, speed func() float64, logger log.Logger) *Player {
	p := &Player{
		send:     send,
		speed:    speed,
		log:      log.OrNop(logger).WithName("player"),
		progress: make(map[string]int),
	}
	p.timer = s.NewTimer(p.tick)
	return p
}

// OnFinish registers fn to run when a playback drains its queue.
func (p *Player) OnFinish(fn func(path string)) {
	p.onFinish = fn
}

// Playing reports whether a playback is running.
func (p *Player) Playing() bool {
	return p.timer.Active()
}

// Remaining returns the number of queued commands.
func (p *Player) Remaining() int {
	return len(p.queue)
}

// Progress returns how many lines of path were already played.
func (p *Player) Progress(path string) int {
	return p.progress[path]
}

// Play replays path from its first line.
func (p *Player) Play(path string) (int, error) {
	delete(p.progress, path)
	return p.start(path)
}

// Resume replays path, skipping the lines an earlier playback of the same
// file already sent.
func (p *Player) Resume(path string) (int, error) {
	return p.start(path)
}

// Stop cancels the playback. Progress is kept for Resume.
func (p *Player) Stop() {
	p.timer.Stop()
	p.queue = nil
}

func (p *Player) start(path string) (int, error) {
	p.Stop()

	lines, err := readLines(path)
	if err != nil {
		p.log.Error(err, "start playback", "path", path)
		return 0, fmt.Errorf("start playback: %w", err)
	}

	speed := p.speed()
	skip := p.progress[path]
	var queue [][]byte
	n := 0
	for _, line := range lines {
		cmd, ok := PlaybackCommand(line, speed)
		if !ok {
			continue
		}
		n++
		if n <= skip {
			continue
		}
		queue = append(queue, cmd)
	}

	p.path = path
	p.queue = queue
	if len(queue) == 0 {
		p.log.Info("nothing to play", "path", path, "skipped", skip)
		return 0, nil
	}

	p.timer.Start(PlaybackPeriod(speed))
	p.log.Info("playback started", "path", path, "commands", len(queue), "skipped", skip)
	return len(queue), nil
}

func (p *Player) tick() {
	if len(p.queue) == 0 {
		p.finish()
		return
	}

	p.send.SendRaw(p.queue[0])
	p.queue = p.queue[1:]
	p.progress[p.path]++

	if len(p.queue) == 0 {
		p.finish()
	}
}

func (p *Player) finish() {
	p.timer.Stop()
	p.queue = nil
	p.log.Info("playback finished", "path", p.path)
	if p.onFinish != nil {
		p.onFinish(p.path)
	}
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileOpen, err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	return lines, nil
}
