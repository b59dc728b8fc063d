package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/vk/gridsim/internal/attribute"
)

func TestAllocBranch(t *testing.T) {
	s := NewSystem(2, 2)
	assert.Equal(t, 4, s.Dim())
	assert.Equal(t, 2, s.NodeCount())

	row, err := s.AllocBranch()
	require.NoError(t, err)
	assert.Equal(t, 2, row, "branch rows follow the node rows")

	row, err = s.AllocBranch()
	require.NoError(t, err)
	assert.Equal(t, 3, row)

	_, err = s.AllocBranch()
	assert.ErrorIs(t, err, ErrBranchOverflow)
}

func TestFactorizeRejectsSingular(t *testing.T) {
	s := NewSystem(2, 0)
	// An unstamped matrix is all zeros and cannot be factorized usefully.
	err := s.Factorize()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "singular")
}

func TestAssembleAndSolve(t *testing.T) {
	// One node with two parallel conductances of 0.5 S and a summed current
	// injection: g*v = i, so v = i / 1.0.
	s := NewSystem(1, 0)
	s.A().Set(0, 0, 1.0)
	require.NoError(t, s.Factorize())

	srcA := attribute.New[*mat.VecDense]("a.right_vector", nil, mat.NewVecDense(1, []float64{2}))
	srcB := attribute.New[*mat.VecDense]("b.right_vector", nil, mat.NewVecDense(1, []float64{3}))
	s.AddRightSideSource(srcA)
	s.AddRightSideSource(srcB)

	tasks := s.Tasks()
	require.Len(t, tasks, 2)
	assemble, solve := tasks[0], tasks[1]

	require.NoError(t, assemble.Execute(0, 0))
	assert.Equal(t, 5.0, s.RightVector.Get().AtVec(0), "sources are summed")

	require.NoError(t, solve.Execute(0, 0))
	assert.InDelta(t, 5.0, s.LeftVector.Get().AtVec(0), 1e-12)

	// The right side is rebuilt from scratch every step, not accumulated.
	srcA.Get().SetVec(0, -1)
	require.NoError(t, assemble.Execute(0, 1))
	assert.Equal(t, 2.0, s.RightVector.Get().AtVec(0))
	require.NoError(t, solve.Execute(0, 1))
	assert.InDelta(t, 2.0, s.LeftVector.Get().AtVec(0), 1e-12)
}

func TestTaskDeclarations(t *testing.T) {
	s := NewSystem(1, 0)
	src := attribute.New[*mat.VecDense]("c.right_vector", nil, mat.NewVecDense(1, nil))
	s.AddRightSideSource(src)

	tasks := s.Tasks()
	assemble, solve := tasks[0], tasks[1]

	assert.Equal(t, []attribute.Base{src}, assemble.AttributeDeps())
	assert.Equal(t, []attribute.Base{s.RightVector}, assemble.Modifies())
	assert.Equal(t, []attribute.Base{s.RightVector}, solve.AttributeDeps())
	assert.Equal(t, []attribute.Base{s.LeftVector}, solve.Modifies())
}
