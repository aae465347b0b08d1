package main

import (
	"fmt"
	"os"

	"github.com/open-teleop/joyteleop/pkg/config"
	customlog "github.com/open-teleop/joyteleop/pkg/log"
	"github.com/open-teleop/joyteleop/services"
)

// CheckCmd loads both configuration files without starting anything.
type CheckCmd struct{}

func (c *CheckCmd) Run(g *Globals) error {
	bootstrap, err := config.LoadBootstrapConfig(g.ConfigDir)
	if err != nil {
		return err
	}

	svc, err := services.NewTeleopConfigService(profilePath(g.ConfigDir, bootstrap), customlog.NewNopLogger())
	if err != nil {
		return err
	}
	data, err := svc.GetCurrentConfigYAML()
	if err != nil {
		return err
	}

	fmt.Printf("# input: %s, sink: %s, remote enabled: %t\n", bootstrap.Input.Type, bootstrap.Sink.Type, bootstrap.Remote.Enabled)
	_, err = os.Stdout.Write(data)
	return err
}
