package main

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/armconsole/pkg/console"
	"github.com/gwillem/armconsole/pkg/robot"
)

const replyTimeout = 2 * time.Second

type InfoCommand struct {
	Timeout time.Duration `long:"timeout" default:"2s" description:"How long to wait for each reply"`
}

func (c *InfoCommand) Execute(args []string) error {
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

	fmt.Printf("Connecting to %s at %d baud...\n", cfg.Port, cfg.BaudRate)
	if err := s.connect(cfg); err != nil {
		return err
	}

	joints, err := c.query(s, s.con.RequestJointPos)
	if err != nil {
		return fmt.Errorf("read joint position: %w", err)
	}
	linear, err := c.query(s, s.con.RequestLinearPos)
	if err != nil {
		return fmt.Errorf("read linear position: %w", err)
	}

	fmt.Println()
	fmt.Println(titleStyle.Render("Arm position"))
	fmt.Println(renderPoseTable(joints, linear))
	return nil
}

// query sends a position request and waits for the next report.
func (c *InfoCommand) query(s *session, request func() error) (robot.Pose, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout())
	defer cancel()

	before := s.last.Reports
	if err := request(); err != nil {
		return robot.Pose{}, err
	}
	st, err := s.waitFor(ctx, func(st console.State) bool { return st.Reports > before })
	if err != nil {
		return robot.Pose{}, err
	}
	return st.Pose, nil
}

func (c *InfoCommand) timeout() time.Duration {
	if c.Timeout <= 0 {
		return replyTimeout
	}
	return c.Timeout
}

func renderPoseTable(joints, linear robot.Pose) string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	axisStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	jointNames := robot.AllJoints()
	cartNames := robot.AllCartesian()
	rows := make([][]string, 0, robot.PoseSize)
	for i := 0; i < robot.PoseSize; i++ {
		rows = append(rows, []string{
			string(jointNames[i]),
			robot.FormatFloat(joints[i]),
			string(cartNames[i]),
			robot.FormatFloat(linear[i]),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(statusStyle).
		Headers("Joint", "Angle", "Axis", "Value").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col%2 == 0 {
				return axisStyle
			}
			return cellStyle
		})
	return t.Render()
}
