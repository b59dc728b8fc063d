// Package solver holds the modified-nodal-analysis system glue: the
// stamped system matrix, its one-time LU factorization and the per-step
// assemble/solve tasks that connect component stamps to the solved vector
// every other task reads.
package solver

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/vk/gridsim/internal/attribute"
	"github.com/vk/gridsim/internal/task"
)

// ErrBranchOverflow is returned when more branch rows are allocated than
// the system was sized for.
var ErrBranchOverflow = errors.New("no free branch row in system matrix")

// System is one MNA formulation: node voltage unknowns first, then one row
// per voltage-defined branch. Components stamp the matrix once at
// initialization and contribute per-step right-side vectors; the solve
// task publishes the solution through the left-vector attribute.
type System struct {
	nodeCount   int
	branchCount int
	nextBranch  int

	a  *mat.Dense
	lu mat.LU

	attrs attribute.Map

	// RightVector is the assembled source vector for the current step.
	RightVector *attribute.Static[*mat.VecDense]
	// LeftVector is the solved unknown vector (node voltages, then branch
	// currents).
	LeftVector *attribute.Static[*mat.VecDense]

	sources []attribute.Attribute[*mat.VecDense]
}

// NewSystem sizes a system for the given node and voltage-branch counts.
func NewSystem(nodeCount, branchCount int) *System {
	dim := nodeCount + branchCount
	attrs := make(attribute.Map)
	return &System{
		nodeCount:   nodeCount,
		branchCount: branchCount,
		a:           mat.NewDense(dim, dim, nil),
		attrs:       attrs,
		RightVector: attribute.New("right_vector", attrs, mat.NewVecDense(dim, nil)),
		LeftVector:  attribute.New("left_vector", attrs, mat.NewVecDense(dim, nil)),
	}
}

// Dim returns the matrix dimension.
func (s *System) Dim() int { return s.nodeCount + s.branchCount }

// NodeCount returns the number of node voltage unknowns.
func (s *System) NodeCount() int { return s.nodeCount }

// A exposes the system matrix for component stamping.
func (s *System) A() *mat.Dense { return s.a }

// AllocBranch hands out the next free branch row.
func (s *System) AllocBranch() (int, error) {
	if s.nextBranch >= s.branchCount {
		return 0, fmt.Errorf("%w: %d rows sized", ErrBranchOverflow, s.branchCount)
	}
	row := s.nodeCount + s.nextBranch
	s.nextBranch++
	return row, nil
}

// AddRightSideSource registers one component's right-side contribution;
// the assemble task sums all registered sources each step.
func (s *System) AddRightSideSource(src attribute.Attribute[*mat.VecDense]) {
	s.sources = append(s.sources, src)
}

// Factorize LU-decomposes the stamped matrix. It is called once after all
// components have stamped; the factorization is reused every step.
func (s *System) Factorize() error {
	s.lu.Factorize(s.a)
	// A singular matrix surfaces on the first solve; detect it here where
	// the error message can still point at system assembly.
	var probe mat.VecDense
	if err := s.lu.SolveVecTo(&probe, false, mat.NewVecDense(s.Dim(), nil)); err != nil {
		return fmt.Errorf("system matrix is singular: %w", err)
	}
	return nil
}

// Tasks returns the per-step {assemble right side, solve} pair.
func (s *System) Tasks() []task.Task {
	sourceAttrs := make([]attribute.Base, len(s.sources))
	for i, src := range s.sources {
		sourceAttrs[i] = src
	}
	return []task.Task{
		&assembleTask{sys: s, Decl: task.Decl{
			TaskName: "System.AssembleRightSide",
			Deps:     sourceAttrs,
			Mods:     []attribute.Base{s.RightVector},
		}},
		&solveTask{sys: s, Decl: task.Decl{
			TaskName: "System.Solve",
			Deps:     []attribute.Base{s.RightVector},
			Mods:     []attribute.Base{s.LeftVector},
		}},
	}
}

type assembleTask struct {
	task.Decl
	sys *System
}

func (t *assembleTask) Execute(float64, uint64) error {
	b := t.sys.RightVector.Get()
	b.Zero()
	for _, src := range t.sys.sources {
		b.AddVec(b, src.Get())
	}
	return nil
}

type solveTask struct {
	task.Decl
	sys *System
}

func (t *solveTask) Execute(time float64, step uint64) error {
	x := t.sys.LeftVector.Get()
	if err := t.sys.lu.SolveVecTo(x, false, t.sys.RightVector.Get()); err != nil {
		return fmt.Errorf("solve at t=%g step=%d: %w", time, step, err)
	}
	return nil
}
