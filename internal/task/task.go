// Package task defines the unit of per-step work and its dependency
// declarations. Tasks are plain data plus an Execute function; all
// ordering logic lives in the scheduler that consumes them.
package task

import "github.com/vk/gridsim/internal/attribute"

// Task is one stepwise responsibility of a component or subsystem.
//
// The three declaration lists drive scheduling: previous-step dependencies
// are satisfied by the prior timestep and never impose same-step ordering
// (they exist to break cycles between components), current-step
// dependencies must be produced by another task's Modifies list before the
// task runs, and Modifies names the attributes this task makes available
// to later same-step consumers.
type Task interface {
	Name() string

	// Execute runs the task for one step. Tasks must not block except
	// where the contract explicitly allows it (the external interface's
	// import task).
	Execute(time float64, step uint64) error

	PrevStepDeps() []attribute.Base
	AttributeDeps() []attribute.Base
	Modifies() []attribute.Base
}

// Decl carries a task's name and declaration lists. Components embed it so
// a task implementation only has to supply Execute.
type Decl struct {
	TaskName string
	Prev     []attribute.Base
	Deps     []attribute.Base
	Mods     []attribute.Base
}

func (d *Decl) Name() string                    { return d.TaskName }
func (d *Decl) PrevStepDeps() []attribute.Base  { return d.Prev }
func (d *Decl) AttributeDeps() []attribute.Base { return d.Deps }
func (d *Decl) Modifies() []attribute.Base      { return d.Mods }

// Func adapts a bare function to a Task using the declarations in Decl.
type Func struct {
	Decl
	Fn func(time float64, step uint64) error
}

func (f *Func) Execute(time float64, step uint64) error {
	return f.Fn(time, step)
}
