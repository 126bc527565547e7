package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/gwillem/armconsole/pkg/link"
	"github.com/gwillem/armconsole/pkg/robot"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

var baudRates = []int{9600, 19200, 38400, 57600, 115200, 230400}

type SetupCommand struct {
	Gains string `long:"gains" description:"JSON file with per-joint PID gains to store in the config"`
}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("armconsole setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━"))
	fmt.Println()

	cfg := robot.DefaultConfig()
	if robot.ConfigExists(configPath()) {
		existing, err := robot.LoadConfigFrom(configPath())
		if err != nil {
			return err
		}
		cfg = existing
	}

	if c.Gains != "" {
		gains, err := robot.LoadGains(c.Gains)
		if err != nil {
			return err
		}
		cfg.Gains = gains
		fmt.Printf("Loaded gains for %d joints from %s\n\n", len(gains), c.Gains)
	}

	ports, err := link.ListPorts()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing ports: %v\n", err)
	}

	speed := robot.FormatFloat(cfg.Speed)
	mode := strconv.Itoa(cfg.Mode)

	form := huh.NewForm(
		huh.NewGroup(
			portField(ports, &cfg.Port),
			huh.NewSelect[int]().
				Title("Baud rate").
				Options(baudOptions()...).
				Value(&cfg.BaudRate),
			huh.NewInput().
				Title("Speed").
				Description("Default motion speed, 100 is nominal").
				Value(&speed).
				Validate(validateSpeed),
			huh.NewInput().
				Title("Command mode").
				Description("Sent on connect; 0 leaves the controller's mode unchanged").
				Value(&mode).
				Validate(validateMode),
			huh.NewInput().
				Title("Trace directory").
				Description("Leave empty for ~/Documents/TeachRecords").
				Value(&cfg.TraceDir),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		return nil
	}

	cfg.Speed, _ = strconv.ParseFloat(strings.TrimSpace(speed), 64)
	cfg.Mode, _ = strconv.Atoi(strings.TrimSpace(mode))
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.SaveTo(configPath()); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", configPath())
	fmt.Println()
	fmt.Println("Start the console with: " + subHeaderStyle.Render("armconsole console"))
	return nil
}

func portField(ports []string, value *string) huh.Field {
	if len(ports) == 0 {
		return huh.NewInput().
			Title("Serial port").
			Description("No ports were detected; enter the device path").
			Value(value).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return fmt.Errorf("port is required")
				}
				return nil
			})
	}
	options := make([]huh.Option[string], 0, len(ports))
	for _, p := range ports {
		options = append(options, huh.NewOption(p, p))
	}
	return huh.NewSelect[string]().
		Title("Serial port").
		Description("The port the arm controller is attached to").
		Options(options...).
		Value(value)
}

func baudOptions() []huh.Option[int] {
	options := make([]huh.Option[int], 0, len(baudRates))
	for _, b := range baudRates {
		options = append(options, huh.NewOption(strconv.Itoa(b), b))
	}
	return options
}

func validateSpeed(s string) error {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("not a number")
	}
	return robot.ValidateSpeed(f)
}

func validateMode(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return fmt.Errorf("mode must be 0 or a positive number")
	}
	return nil
}
