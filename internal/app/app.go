// Package app wires configuration, logging and the demo circuit into a
// runnable simulation instance.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/gridsim/internal/components"
	"github.com/vk/gridsim/internal/config"
	"github.com/vk/gridsim/internal/ctxlog"
	"github.com/vk/gridsim/internal/iface"
	"github.com/vk/gridsim/internal/sim"
	"github.com/vk/gridsim/internal/solver"
	"github.com/vk/gridsim/internal/transport/socketio"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ScenarioPath string
	LogFormat    string
	LogLevel     string
}

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	model  *config.Model
}

// NewApp constructs the application: it configures an isolated logger and
// loads the scenario.
func NewApp(outW io.Writer, appConfig *Config) (*App, error) {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	model, err := config.Load(appConfig.ScenarioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load scenario: %w", err)
	}
	logger.Debug("Scenario loaded.", "simulation", model.Simulation.Name)

	return &App{
		outW:   outW,
		logger: logger,
		model:  model,
	}, nil
}

// Run builds the built-in demo circuit, attaches the configured external
// interfaces and steps the simulation to its final time.
//
// The demo is a driven RC divider: source -> n1 -- R1 -- n2, with R2 and C
// from n2 to ground. Each configured interface exports the divider output
// voltage and imports the source setpoint.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	gnd := components.Ground()
	n1 := components.NewNode("n1", 0)
	n2 := components.NewNode("n2", 1)

	vs := components.NewVoltageSource("vs", n1, gnd, 10.0, 0)
	r1 := components.NewResistor("r1", n1, n2, 100)
	r2 := components.NewResistor("r2", n2, gnd, 100)
	c1 := components.NewCapacitor("c1", n2, gnd, 1e-6)

	sys := solver.NewSystem(2, 1)
	s, err := sim.New(a.model.Simulation.Name, sys, sim.Config{
		TimeStep:  a.model.Simulation.TimeStep,
		FinalTime: a.model.Simulation.Duration,
	})
	if err != nil {
		return err
	}
	s.AddComponent(vs)
	s.AddComponent(r1)
	s.AddComponent(r2)
	s.AddComponent(c1)

	for _, ic := range a.model.Interfaces {
		worker := socketio.NewWorker(socketio.Config{
			URL:                ic.URL,
			Namespace:          ic.Namespace,
			EventName:          ic.Name,
			InsecureSkipVerify: ic.InsecureSkipVerify,
			Logger:             a.logger,
		})
		in := iface.New(ic.Name, worker, iface.Config{
			Downsampling: ic.Downsampling,
			Logger:       a.logger,
		})
		if err := in.ExportAttribute(r2.IntfVoltage); err != nil {
			return err
		}
		if err := in.ImportAttribute(vs.VoltageRef, ic.BlockOnRead); err != nil {
			return err
		}
		s.AddInterface(in)
	}

	return s.Run(ctx)
}
