package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/armconsole/pkg/console"
	"github.com/gwillem/armconsole/pkg/link"
	"github.com/gwillem/armconsole/pkg/log"
	"github.com/gwillem/armconsole/pkg/metrics"
	"github.com/gwillem/armconsole/pkg/protocol"
	"github.com/gwillem/armconsole/pkg/robot"
	"github.com/gwillem/armconsole/pkg/teach"
	"github.com/gwillem/armconsole/pkg/trace"
	"github.com/gwillem/armconsole/pkg/trajectory"
)

type ConsoleCommand struct {
	MetricsAddr   string  `long:"metrics-addr" description:"Serve prometheus metrics on this address (e.g. :9100)"`
	Speed         float64 `short:"s" long:"speed" description:"Initial speed (defaults to the configured speed)"`
	SegmentLength float64 `long:"segment-length" description:"Split authored lines into pieces of at most this length; 0 writes the two endpoints"`
	CirclePoints  int     `long:"circle-points" default:"100" description:"Points per authored circle"`
	NoConnect     bool    `long:"no-connect" description:"Do not open the port on start"`
}

const (
	headerHeight = 2 // title + blank line
	statusHeight = 3 // status rows + blank
	legendHeight = 2 // legend row + blank
	tracesHeight = 7 // trace list box
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	maxTraces    = 5 // number of trace names to show
	borderSize   = 2 // chart border
	speedStep    = 10
)

// Pose component colors, by index
var axisColors = [robot.PoseSize]string{
	"196", // red
	"208", // orange
	"226", // yellow
	"46",  // green
	"51",  // cyan
	"201", // magenta
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

type consoleModel struct {
	con      *console.Console
	calls    *dispatcher
	cfg      *robot.Config
	chart    *streamlinechart.Model
	width    int      // terminal width
	height   int      // terminal height
	logs     []string // last N log messages
	quitting bool

	state    console.State
	lastPose robot.Pose
	hasPose  bool

	move robot.MoveType
	axis int
	slot teach.Slot

	traces   []string
	selected int
}

// Messages from the console
type stateMsg console.State
type logMsg string
type tracesMsg []string
type errMsg struct{ err error }

func waitForState(con *console.Console) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-con.States())
	}
}

func waitForLog(con *console.Console) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-con.Logs())
	}
}

func loadTraces(con *console.Console) tea.Cmd {
	return func() tea.Msg {
		names, err := con.Traces()
		if err != nil {
			return errMsg{err}
		}
		return tracesMsg(names)
	}
}

var errCallQueueFull = errors.New("console busy, key dropped")

// dispatcher runs console calls one at a time in the order they were queued.
type dispatcher struct {
	jobs chan func() error
}

func newDispatcher() *dispatcher {
	return &dispatcher{jobs: make(chan func() error, 64)}
}

// enqueue queues fn without blocking. It reports false when the queue is full.
func (d *dispatcher) enqueue(fn func() error) bool {
	select {
	case d.jobs <- fn:
		return true
	default:
		return false
	}
}

// run executes queued calls until ctx is done, handing errors to report.
func (d *dispatcher) run(ctx context.Context, report func(error)) {
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-d.jobs:
			if err := fn(); err != nil {
				report(err)
			}
		}
	}
}

// call queues fn on the dispatcher from the UI goroutine.
func (m consoleModel) call(fn func() error) tea.Cmd {
	if m.calls.enqueue(fn) {
		return nil
	}
	return func() tea.Msg { return errMsg{errCallQueueFull} }
}

func initialConsoleModel(con *console.Console, calls *dispatcher, cfg *robot.Config) consoleModel {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(-400, 400),
	)
	for i, color := range axisColors {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(color))
		chart.SetDataSetStyles(dataSetName(i), runes.ThinLineStyle, style)
	}

	return consoleModel{
		con:   con,
		calls: calls,
		cfg:   cfg,
		chart: &chart,
		move:  robot.Joint,
	}
}

func dataSetName(i int) string {
	return fmt.Sprintf("p%d", i+1)
}

func (m *consoleModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *consoleModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20 // default size before we know terminal size
	}
	width = m.width - borderSize - 2
	if width < 40 {
		width = 40
	}
	height = m.height - headerHeight - statusHeight - legendHeight - tracesHeight - footerHeight - borderSize
	if height < 8 {
		height = 8
	}
	return width, height
}

func (m *consoleModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func (m consoleModel) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.con),
		waitForLog(m.con),
		loadTraces(m.con),
	)
}

func (m consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case stateMsg:
		st := console.State(msg)
		var cmds []tea.Cmd
		if st.Connected && !m.state.Connected {
			cmds = append(cmds, m.onConnect()...)
		}
		// Only update the chart when the pose moved (freeze when idle)
		if st.HasPose && (!m.hasPose || st.Pose != m.lastPose) {
			for i, v := range st.Pose {
				m.chart.PushDataSet(dataSetName(i), v)
			}
			m.chart.DrawAll()
			m.lastPose = st.Pose
			m.hasPose = true
		}
		m.state = st
		cmds = append(cmds, waitForState(m.con))
		return m, tea.Batch(cmds...)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.con)

	case tracesMsg:
		m.traces = msg
		if m.selected >= len(m.traces) {
			m.selected = max(len(m.traces)-1, 0)
		}
		return m, nil

	case errMsg:
		m.addLog(errorStyle.Render(fmt.Sprintf("[%s] %v", time.Now().Format("15:04:05"), msg.err)))
		return m, nil
	}

	return m, nil
}

// onConnect pushes the configured mode and gains to a freshly opened link.
func (m consoleModel) onConnect() []tea.Cmd {
	var cmds []tea.Cmd
	if m.cfg.Mode > 0 {
		mode := m.cfg.Mode
		cmds = append(cmds, m.call(func() error { return m.con.SetMode(mode) }))
	}
	if len(m.cfg.Gains) > 0 {
		gains := m.cfg.Gains
		cmds = append(cmds, m.call(func() error { return m.con.ApplyGains(gains) }))
	}
	return cmds
}

func (m consoleModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	con := m.con
	key := msg.String()

	switch key {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "c":
		return m, m.call(func() error { return con.Connect(m.cfg.Port, m.cfg.BaudRate) })
	case "d":
		return m, m.call(con.Disconnect)
	case "x", "esc":
		return m, m.call(con.EmergencyStop)
	case "S":
		return m, m.call(func() error { return con.Send(protocol.Start) })
	case "H":
		return m, m.call(func() error { return con.Send(protocol.Home) })
	case "K":
		return m, m.call(func() error { return con.Send(protocol.Calibrate) })
	case "R":
		return m, m.call(func() error { return con.Send(protocol.Reset) })
	case "r":
		return m, m.call(con.Rest)
	case "[", "]":
		speed := m.state.Speed - speedStep
		if key == "]" {
			speed = m.state.Speed + speedStep
		}
		return m, m.call(func() error { return con.SetSpeed(speed) })

	// Jogging
	case "m":
		if m.move == robot.Joint {
			m.move = robot.Line
		} else {
			m.move = robot.Joint
		}
		return m, nil
	case "1", "2", "3", "4", "5", "6":
		m.axis = int(key[0] - '1')
		return m, nil
	case "+", "=", "-":
		op := teach.Increment
		if key == "-" {
			op = teach.Decrement
		}
		move, axis := m.move, m.axis
		return m, m.call(func() error { return con.PressJog(move, op, axis) })
	case " ":
		return m, m.call(con.ReleaseJog)

	// Capture and playback
	case "t":
		if m.state.Capturing {
			return m, m.call(func() error {
				_, err := con.StopCapture()
				return err
			})
		}
		return m, m.call(func() error {
			_, err := con.StartCapture()
			return err
		})
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
		return m, nil
	case "down", "j":
		if m.selected < len(m.traces)-1 {
			m.selected++
		}
		return m, nil
	case "p", "P":
		name, ok := m.selectedTrace()
		if !ok {
			return m, nil
		}
		play := con.Play
		if key == "P" {
			play = con.Resume
		}
		return m, m.call(func() error {
			_, err := play(name)
			return err
		})
	case "s":
		return m, m.call(con.StopPlayback)
	case "D":
		name, ok := m.selectedTrace()
		if !ok {
			return m, nil
		}
		return m, m.call(func() error { return con.DeleteTrace(name) })

	// Trajectory authoring
	case "n":
		return m, m.call(func() error {
			_, err := con.BeginTrajectory()
			return err
		})
	case "w":
		m.slot = (m.slot + 1) % teach.Slot(len(teach.AllSlots()))
		return m, nil
	case "enter":
		slot := m.slot
		return m, m.call(func() error { return con.CapturePoint(slot) })
	case "L":
		return m, m.call(func() error {
			_, err := con.AddLine()
			return err
		})
	case "O":
		return m, m.call(func() error {
			_, err := con.AddCircle()
			return err
		})
	case "E":
		return m, m.call(con.EndTrajectory)
	}

	return m, nil
}

func (m consoleModel) selectedTrace() (string, bool) {
	if m.selected < 0 || m.selected >= len(m.traces) {
		return "", false
	}
	return m.traces[m.selected], true
}

func (m consoleModel) View() string {
	if m.quitting {
		return "Console stopped.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("armconsole"))
	if m.state.Connected {
		sb.WriteString(activeStyle.Render(fmt.Sprintf(" - %s", m.state.Port)))
	} else {
		sb.WriteString(statusStyle.Render(" - disconnected"))
	}
	sb.WriteString(fmt.Sprintf("  speed %s", robot.FormatFloat(m.state.Speed)))
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n\n")

	sb.WriteString(m.renderStatus())
	sb.WriteString("\n\n")

	// Chart
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	// Legend
	sb.WriteString(renderLegend(m.move))
	sb.WriteString("\n")

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(max(m.width-4, 20))

	sb.WriteString(boxStyle.Render(m.renderTraces()))
	sb.WriteString("\n")

	// Log box
	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render(helpText)
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(boxStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

const helpText = "c connect  d disconnect  x stop  m joint/line  1-6 axis  +/- jog  space release  " +
	"t capture  p play  P resume  s stop playback  n trajectory  w slot  enter point  L line  O circle  E end  q quit"

func (m consoleModel) renderStatus() string {
	st := m.state

	jog := fmt.Sprintf("jog %s %s axis %d", st.Jog, m.move, m.axis+1)
	if st.Jog != teach.StateIdle {
		jog = activeStyle.Render(jog)
	}

	var parts []string
	parts = append(parts, jog)
	if st.Capturing {
		parts = append(parts, activeStyle.Render("capturing "+filepath.Base(st.CapturePath)))
	}
	if st.Playing {
		parts = append(parts, activeStyle.Render(fmt.Sprintf("playing, %d left", st.Remaining)))
	}
	if st.PendingPoint != "" {
		parts = append(parts, activeStyle.Render("waiting for "+st.PendingPoint))
	}
	if st.LastError != "" {
		parts = append(parts, errorStyle.Render(st.LastError))
	}
	line := strings.Join(parts, "  ")

	var slots []string
	for _, s := range teach.AllSlots() {
		label := s.String()
		if st.Waypoints[s] {
			label += " ✓"
		}
		if s == m.slot {
			label = "[" + label + "]"
		}
		slots = append(slots, label)
	}
	traj := statusStyle.Render("no trajectory")
	if st.Trajectory != "" {
		traj = activeStyle.Render(filepath.Base(st.Trajectory))
	}
	return line + "\n" + traj + "  " + statusStyle.Render(strings.Join(slots, "  "))
}

func (m consoleModel) renderTraces() string {
	if len(m.traces) == 0 {
		return statusStyle.Render("No traces recorded yet")
	}
	first := max(0, m.selected-maxTraces/2)
	last := min(len(m.traces), first+maxTraces)
	first = max(0, last-maxTraces)

	lines := make([]string, 0, maxTraces)
	for i := first; i < last; i++ {
		name := m.traces[i]
		if i == m.selected {
			lines = append(lines, activeStyle.Render("> "+name))
			continue
		}
		lines = append(lines, "  "+name)
	}
	return strings.Join(lines, "\n")
}

func renderLegend(move robot.MoveType) string {
	var items []string
	for i, name := range robot.Axes(move) {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(axisColors[i])).Bold(true)
		items = append(items, colorStyle.Render("━━")+" "+string(name))
	}
	return strings.Join(items, "  ")
}

func (c *ConsoleCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if c.Speed != 0 {
		cfg.Speed = c.Speed
	}

	// stdout belongs to the TUI
	logger, err := newLogger("armconsole.log")
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}

	con, err := console.New(link.New(link.WithLogger(logger)), console.Config{
		Store:        store,
		Speed:        cfg.Speed,
		Logger:       logger,
		Line:         trajectory.LineOptions{SegmentLength: c.SegmentLength},
		CirclePoints: c.CirclePoints,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	calls := newDispatcher()
	p := tea.NewProgram(initialConsoleModel(con, calls, cfg), tea.WithAltScreen())

	g.Go(func() error {
		if err := con.Run(ctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		defer cancel()
		_, err := p.Run()
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		p.Quit()
		return nil
	})
	g.Go(func() error {
		calls.run(ctx, func(err error) { p.Send(errMsg{err}) })
		return nil
	})
	g.Go(func() error {
		return watchTraces(ctx, store, con, p)
	})
	if c.MetricsAddr != "" {
		g.Go(func() error {
			return serveMetrics(ctx, c.MetricsAddr, logger)
		})
	}

	if !c.NoConnect {
		if err := con.Connect(cfg.Port, cfg.BaudRate); err != nil {
			logger.Error(err, "connect on start")
		}
	}

	return g.Wait()
}

// watchTraces refreshes the TUI's trace list whenever the trace directory changes.
func watchTraces(ctx context.Context, store *trace.Store, con *console.Console, p *tea.Program) error {
	changes, err := store.Watch(ctx)
	if err != nil {
		// The list still loads on start; it just won't refresh live.
		log.Std().Error(err, "watch trace directory")
		return nil
	}
	for range changes {
		names, err := con.Traces()
		if err != nil {
			p.Send(errMsg{err})
			continue
		}
		p.Send(tracesMsg(names))
	}
	return nil
}

func serveMetrics(ctx context.Context, addr string, logger log.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving metrics", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
