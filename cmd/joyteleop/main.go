package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
)

// Globals are the flags shared by every command.
type Globals struct {
	ConfigDir string `help:"Directory holding joyteleop_config.yaml." default:"config" env:"JOYTELEOP_CONFIG_DIR" type:"path"`
	LogLevel  string `help:"Override logging.level (debug, info, warn, error)." env:"JOYTELEOP_LOG_LEVEL"`
}

// CLI is the joyteleop command line.
type CLI struct {
	Globals

	Run   RunCmd   `cmd:"" default:"1" help:"Translate controller input into robot commands (default)."`
	Check CheckCmd `cmd:"" help:"Validate the configuration and print the effective teleop profile."`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("joyteleop"),
		kong.Description("Joystick teleoperation for MiR robots."),
		kong.UsageOnError(),
	)

	if err := ctx.Run(&cli.Globals); err != nil {
		fmt.Fprintln(os.Stderr, "joyteleop:", err)
		os.Exit(1)
	}
}
