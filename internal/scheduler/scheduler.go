package scheduler

import (
	"context"
	"fmt"

	"github.com/vk/gridsim/internal/attribute"
	"github.com/vk/gridsim/internal/ctxlog"
	"github.com/vk/gridsim/internal/dag"
	"github.com/vk/gridsim/internal/task"
)

// Sequential runs tasks one after another on the simulation goroutine in a
// topological order of their current-step dependencies.
//
// The aggregate of all tasks' declarations forms a directed graph: an edge
// runs from every task that modifies an attribute to every task that
// declares it as a current-step dependency. Previous-step dependencies add
// no edges; they are satisfied by the prior timestep and exist precisely
// to break cycles between components.
type Sequential struct {
	tasks []task.Task
	order []task.Task
}

// NewSequential returns a scheduler with no tasks registered.
func NewSequential() *Sequential {
	return &Sequential{}
}

// AddTasks registers tasks for scheduling. It must be called before
// Initialize.
func (s *Sequential) AddTasks(tasks ...task.Task) {
	s.tasks = append(s.tasks, tasks...)
}

// Initialize derives the global execution order from the registered tasks'
// declarations. A current-step dependency no task produces is treated as
// an initial-value attribute and imposes no ordering. A dependency cycle
// is an error.
func (s *Sequential) Initialize(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	graph := dag.New()
	ids := make([]string, len(s.tasks))
	byID := make(map[string]task.Task, len(s.tasks))
	for i, t := range s.tasks {
		ids[i] = fmt.Sprintf("%03d:%s", i, t.Name())
		byID[ids[i]] = t
		graph.AddNode(ids[i])
	}

	// Index producers by the attribute they modify. Attribute identity is
	// the shared handle itself.
	producers := make(map[attribute.Base][]string)
	for i, t := range s.tasks {
		for _, attr := range t.Modifies() {
			producers[attr] = append(producers[attr], ids[i])
		}
	}

	for i, t := range s.tasks {
		for _, attr := range t.AttributeDeps() {
			prods, ok := producers[attr]
			if !ok {
				logger.Debug("Dependency has no producing task, treating as initial value.",
					"task", t.Name())
				continue
			}
			for _, prodID := range prods {
				if prodID == ids[i] {
					// A task may both read and update the same attribute.
					continue
				}
				if err := graph.AddEdge(prodID, ids[i]); err != nil {
					return fmt.Errorf("schedule graph edge: %w", err)
				}
			}
		}
	}

	sorted, err := graph.Sort()
	if err != nil {
		return fmt.Errorf("schedule tasks: %w", err)
	}

	s.order = make([]task.Task, len(sorted))
	for i, id := range sorted {
		s.order[i] = byID[id]
	}
	logger.Debug("Task schedule derived.", "tasks", len(s.order))
	return nil
}

// Order returns the derived execution order. It is empty before Initialize.
func (s *Sequential) Order() []task.Task { return s.order }

// Step invokes every task once for the given simulation time and step
// count. The first task error aborts the step.
func (s *Sequential) Step(ctx context.Context, time float64, step uint64) error {
	for _, t := range s.order {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.Execute(time, step); err != nil {
			return fmt.Errorf("task %s failed at t=%g step=%d: %w", t.Name(), time, step, err)
		}
	}
	return nil
}
