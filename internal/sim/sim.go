// Package sim drives the time-domain stepping loop: it assembles the task
// set from components, the solver and external interfaces, derives the
// schedule once and then steps the system under a context.
package sim

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/gridsim/internal/components"
	"github.com/vk/gridsim/internal/ctxlog"
	"github.com/vk/gridsim/internal/iface"
	"github.com/vk/gridsim/internal/scheduler"
	"github.com/vk/gridsim/internal/solver"
	"github.com/vk/gridsim/internal/task"
)

// Config holds the stepping parameters of a simulation.
type Config struct {
	// TimeStep is the integration step in seconds.
	TimeStep float64
	// FinalTime is the simulated duration in seconds.
	FinalTime float64
}

// Simulation owns one system, its components and interfaces, and the
// stepping loop that advances them.
type Simulation struct {
	name string
	cfg  Config

	sys    *solver.System
	comps  []components.MNAComponent
	ifaces []*iface.Interface
	extra  []task.Task

	sched       *scheduler.Sequential
	initialized bool
}

// New creates a simulation over the given system.
func New(name string, sys *solver.System, cfg Config) (*Simulation, error) {
	if cfg.TimeStep <= 0 {
		return nil, errors.New("time step must be positive")
	}
	if cfg.FinalTime <= 0 {
		return nil, errors.New("final time must be positive")
	}
	return &Simulation{
		name:  name,
		cfg:   cfg,
		sys:   sys,
		sched: scheduler.NewSequential(),
	}, nil
}

// AddComponent registers a circuit model. Must be called before Initialize.
func (s *Simulation) AddComponent(c components.MNAComponent) {
	s.comps = append(s.comps, c)
}

// AddInterface registers an external interface. The simulation opens it at
// the start of Run and closes it when the loop ends.
func (s *Simulation) AddInterface(i *iface.Interface) {
	s.ifaces = append(s.ifaces, i)
}

// AddTasks registers additional tasks (loggers, probes) alongside the
// component and solver tasks.
func (s *Simulation) AddTasks(tasks ...task.Task) {
	s.extra = append(s.extra, tasks...)
}

// Initialize stamps and factorizes the system and derives the global task
// schedule. It runs once; Run calls it if needed.
func (s *Simulation) Initialize(ctx context.Context) error {
	if s.initialized {
		return nil
	}
	logger := ctxlog.FromContext(ctx)

	for _, c := range s.comps {
		if err := c.Initialize(s.cfg.TimeStep, s.sys); err != nil {
			return fmt.Errorf("initialize component %s: %w", c.Name(), err)
		}
	}
	for _, c := range s.comps {
		if err := c.Stamp(s.sys.A()); err != nil {
			return fmt.Errorf("stamp component %s: %w", c.Name(), err)
		}
	}
	if err := s.sys.Factorize(); err != nil {
		return err
	}

	for _, i := range s.ifaces {
		s.sched.AddTasks(i.Tasks()...)
	}
	for _, c := range s.comps {
		s.sched.AddTasks(c.Tasks()...)
	}
	s.sched.AddTasks(s.sys.Tasks()...)
	s.sched.AddTasks(s.extra...)

	if err := s.sched.Initialize(ctx); err != nil {
		return err
	}
	logger.Debug("Simulation initialized.",
		"simulation", s.name, "components", len(s.comps), "interfaces", len(s.ifaces))
	s.initialized = true
	return nil
}

// Schedule exposes the derived task order. It is empty before Initialize.
func (s *Simulation) Schedule() []task.Task { return s.sched.Order() }

// Run steps the simulation from t=0 to the configured final time. All
// registered interfaces are opened before the first step and closed after
// the last, draining their outbound queues.
func (s *Simulation) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	if err := s.Initialize(ctx); err != nil {
		return err
	}

	for idx, i := range s.ifaces {
		if err := i.Open(ctx); err != nil {
			// Close whatever opened before the failure.
			for _, prev := range s.ifaces[:idx] {
				_ = prev.Close()
			}
			return err
		}
	}
	defer func() {
		for _, i := range s.ifaces {
			if err := i.Close(); err != nil {
				logger.Error("Closing interface failed.", "interface", i.Name(), "error", err)
			}
		}
	}()

	logger.Info("Simulation started.",
		"simulation", s.name, "timeStep", s.cfg.TimeStep, "finalTime", s.cfg.FinalTime)

	time := 0.0
	for step := uint64(0); time < s.cfg.FinalTime; step++ {
		if err := ctx.Err(); err != nil {
			logger.Warn("Simulation cancelled.", "time", time, "step", step)
			return err
		}
		if err := s.sched.Step(ctx, time, step); err != nil {
			return err
		}
		time += s.cfg.TimeStep
	}

	logger.Info("Simulation finished.", "simulation", s.name, "time", time)
	return nil
}
