package components

import (
	"gonum.org/v1/gonum/mat"

	"github.com/vk/gridsim/internal/attribute"
	"github.com/vk/gridsim/internal/solver"
	"github.com/vk/gridsim/internal/task"
)

// Capacitor is a two-terminal capacitance represented by its trapezoidal
// companion model: a constant conductance in parallel with a current
// source recomputed each step from the previous step's state. That
// recomputation is exactly why its pre-step task declares previous-step
// dependencies: the cycle through voltage and current is broken across
// timesteps.
type Capacitor struct {
	Component

	capacitance float64
	n1, n2      *Node

	IntfVoltage *attribute.Static[float64]
	IntfCurrent *attribute.Static[float64]
	// RightVector is this component's contribution to the system's source
	// vector.
	RightVector *attribute.Static[*mat.VecDense]

	equivCond    float64
	equivCurrent float64

	leftVector attribute.Attribute[*mat.VecDense]
}

// NewCapacitor creates a capacitor between n1 and n2.
func NewCapacitor(name string, n1, n2 *Node, capacitance float64) *Capacitor {
	c := &Capacitor{
		Component:   newComponent(name),
		capacitance: capacitance,
		n1:          n1,
		n2:          n2,
	}
	c.IntfVoltage = attribute.New(name+".v_intf", c.attrs, 0.0)
	c.IntfCurrent = attribute.New(name+".i_intf", c.attrs, 0.0)
	return c
}

func (c *Capacitor) Initialize(timeStep float64, sys *solver.System) error {
	c.equivCond = 2 * c.capacitance / timeStep
	c.RightVector = attribute.New(c.Name()+".right_vector", c.attrs, mat.NewVecDense(sys.Dim(), nil))
	sys.AddRightSideSource(c.RightVector)
	c.leftVector = sys.LeftVector
	return nil
}

func (c *Capacitor) Stamp(a *mat.Dense) error {
	stampConductance(a, c.n1, c.n2, c.equivCond)
	return nil
}

func (c *Capacitor) Tasks() []task.Task {
	return []task.Task{
		&capacitorPreStep{comp: c, Decl: task.Decl{
			TaskName: c.Name() + ".MnaPreStep",
			Prev:     []attribute.Base{c.IntfVoltage, c.IntfCurrent},
			Mods:     []attribute.Base{c.RightVector},
		}},
		&capacitorPostStep{comp: c, Decl: task.Decl{
			TaskName: c.Name() + ".MnaPostStep",
			Deps:     []attribute.Base{c.leftVector},
			Mods:     []attribute.Base{c.IntfVoltage, c.IntfCurrent},
		}},
	}
}

type capacitorPreStep struct {
	task.Decl
	comp *Capacitor
}

func (t *capacitorPreStep) Execute(float64, uint64) error {
	c := t.comp
	c.equivCurrent = c.equivCond*c.IntfVoltage.Get() + c.IntfCurrent.Get()
	b := c.RightVector.Get()
	b.Zero()
	addToNode(b, c.n1, c.equivCurrent)
	addToNode(b, c.n2, -c.equivCurrent)
	return nil
}

type capacitorPostStep struct {
	task.Decl
	comp *Capacitor
}

func (t *capacitorPostStep) Execute(float64, uint64) error {
	c := t.comp
	x := c.leftVector.Get()
	v := nodeVoltage(x, c.n1) - nodeVoltage(x, c.n2)
	c.IntfVoltage.Set(v)
	c.IntfCurrent.Set(c.equivCond*v - c.equivCurrent)
	return nil
}
