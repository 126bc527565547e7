package main

import (
	"fmt"

	"github.com/gwillem/armconsole/pkg/link"
)

type PortsCommand struct{}

func (c *PortsCommand) Execute(args []string) error {
	ports, err := link.ListPorts()
	if err != nil {
		return fmt.Errorf("list ports: %w", err)
	}
	if len(ports) == 0 {
		fmt.Println(dimStyle.Render("No serial ports found."))
		return nil
	}

	var configured string
	if cfg, err := loadConfig(); err == nil {
		configured = cfg.Port
	}
	for _, p := range ports {
		if p == configured {
			fmt.Println(successStyle.Render(p + " (configured)"))
			continue
		}
		fmt.Println(p)
	}
	return nil
}
