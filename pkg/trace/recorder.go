package trace

import (
	"fmt"
	"time"

	"github.com/gwillem/armconsole/pkg/log"
	"github.com/gwillem/armconsole/pkg/protocol"
	"github.com/gwillem/armconsole/pkg/sched"
)

// PollPeriod is how often a capture asks for the Cartesian pose.
const PollPeriod = 300 * time.Millisecond

// Poller asks the arm for its Cartesian pose. *arm.Arm satisfies it.
type Poller interface {
	RequestLinearPos() error
}

// Recorder captures position reports into a new trace file while the
// operator drags the arm.
type Recorder struct {
	store *Store
	poll  Poller
	timer sched.Timer
	log   log.Logger

	w *Writer
}

// NewRecorder creates an idle recorder.
func NewRecorder(store *Store, poll Poller, s sched.Scheduler, logger log.Logger) *Recorder {
	r := &Recorder{
		store: store,
		poll:  poll,
		log:   log.OrNop(logger).WithName("recorder"),
	}
	r.timer = s.NewTimer(r.tick)
	return r
}

// Capturing reports whether a capture is running.
func (r *Recorder) Capturing() bool {
	return r.w != nil
}

// Path returns the file of the running capture.
func (r *Recorder) Path() string {
	if r.w == nil {
		return ""
	}
	return r.w.Path()
}

// Start opens a new trace file and starts polling. On failure no timer runs.
func (r *Recorder) Start() (string, error) {
	if r.w != nil {
		return "", fmt.Errorf("start capture: %w", ErrBusy)
	}

	w, err := r.store.Create()
	if err != nil {
		r.log.Error(err, "start capture")
		return "", fmt.Errorf("start capture: %w", err)
	}
	r.w = w
	r.timer.Start(PollPeriod)
	r.log.Info("capture started", "path", w.Path())
	return w.Path(), nil
}

// HandleReport appends rep while capturing. It reports whether the line
// was written.
func (r *Recorder) HandleReport(rep protocol.PositionReport) bool {
	if r.w == nil {
		return false
	}
	if err := r.w.WriteLine(rep.Text); err != nil {
		r.log.Error(err, "capture report", "path", r.w.Path())
		return false
	}
	return true
}

// Stop cancels polling and closes the file. It returns the number of
// captured lines.
func (r *Recorder) Stop() (int, error) {
	r.timer.Stop()
	if r.w == nil {
		return 0, nil
	}

	w := r.w
	r.w = nil
	r.log.Info("capture stopped", "path", w.Path(), "lines", w.Lines())
	return w.Lines(), w.Close()
}

func (r *Recorder) tick() {
	if err := r.poll.RequestLinearPos(); err != nil {
		r.log.Error(err, "capture poll")
	}
}
