package components

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/vk/gridsim/internal/attribute"
	"github.com/vk/gridsim/internal/solver"
	"github.com/vk/gridsim/internal/task"
)

// VoltageSource is an ideal voltage source between n1 (positive terminal)
// and n2, carried on its own MNA branch row. With a nonzero frequency the
// reference is the sine amplitude; at zero frequency it is a DC setpoint.
// The reference attribute is the natural import target for an external
// interface driving the simulation.
type VoltageSource struct {
	Component

	n1, n2    *Node
	frequency float64
	branchRow int

	// VoltageRef is the source setpoint (amplitude for AC, value for DC).
	VoltageRef *attribute.Static[float64]

	IntfVoltage *attribute.Static[float64]
	IntfCurrent *attribute.Static[float64]
	RightVector *attribute.Static[*mat.VecDense]

	leftVector attribute.Attribute[*mat.VecDense]
}

// NewVoltageSource creates an ideal source between n1 and n2. frequency 0
// means DC.
func NewVoltageSource(name string, n1, n2 *Node, voltageRef, frequency float64) *VoltageSource {
	v := &VoltageSource{
		Component: newComponent(name),
		n1:        n1,
		n2:        n2,
		frequency: frequency,
	}
	v.VoltageRef = attribute.New(name+".V_ref", v.attrs, voltageRef)
	v.IntfVoltage = attribute.New(name+".v_intf", v.attrs, 0.0)
	v.IntfCurrent = attribute.New(name+".i_intf", v.attrs, 0.0)
	return v
}

func (v *VoltageSource) Initialize(_ float64, sys *solver.System) error {
	row, err := sys.AllocBranch()
	if err != nil {
		return err
	}
	v.branchRow = row
	v.RightVector = attribute.New(v.Name()+".right_vector", v.attrs, mat.NewVecDense(sys.Dim(), nil))
	sys.AddRightSideSource(v.RightVector)
	v.leftVector = sys.LeftVector
	return nil
}

func (v *VoltageSource) Stamp(a *mat.Dense) error {
	stampVoltageSource(a, v.n1, v.n2, v.branchRow)
	return nil
}

func (v *VoltageSource) Tasks() []task.Task {
	return []task.Task{
		&vsourcePreStep{comp: v, Decl: task.Decl{
			TaskName: v.Name() + ".MnaPreStep",
			Deps:     []attribute.Base{v.VoltageRef},
			Mods:     []attribute.Base{v.RightVector, v.IntfVoltage},
		}},
		&vsourcePostStep{comp: v, Decl: task.Decl{
			TaskName: v.Name() + ".MnaPostStep",
			Deps:     []attribute.Base{v.leftVector},
			Mods:     []attribute.Base{v.IntfCurrent},
		}},
	}
}

type vsourcePreStep struct {
	task.Decl
	comp *VoltageSource
}

func (t *vsourcePreStep) Execute(time float64, _ uint64) error {
	v := t.comp
	value := v.VoltageRef.Get()
	if v.frequency > 0 {
		value *= math.Sin(2 * math.Pi * v.frequency * time)
	}
	v.IntfVoltage.Set(value)
	b := v.RightVector.Get()
	b.Zero()
	b.SetVec(v.branchRow, value)
	return nil
}

type vsourcePostStep struct {
	task.Decl
	comp *VoltageSource
}

func (t *vsourcePostStep) Execute(float64, uint64) error {
	v := t.comp
	// The branch row's unknown is the current through the source.
	v.IntfCurrent.Set(v.leftVector.Get().AtVec(v.branchRow))
	return nil
}

// CurrentSource is an ideal current source injecting its setpoint into n1
// and drawing it from n2.
type CurrentSource struct {
	Component

	n1, n2 *Node

	// CurrentRef is the injected current setpoint.
	CurrentRef *attribute.Static[float64]

	IntfVoltage *attribute.Static[float64]
	IntfCurrent *attribute.Static[float64]
	RightVector *attribute.Static[*mat.VecDense]

	leftVector attribute.Attribute[*mat.VecDense]
}

// NewCurrentSource creates an ideal current source between n1 and n2.
func NewCurrentSource(name string, n1, n2 *Node, currentRef float64) *CurrentSource {
	c := &CurrentSource{
		Component: newComponent(name),
		n1:        n1,
		n2:        n2,
	}
	c.CurrentRef = attribute.New(name+".I_ref", c.attrs, currentRef)
	c.IntfVoltage = attribute.New(name+".v_intf", c.attrs, 0.0)
	c.IntfCurrent = attribute.New(name+".i_intf", c.attrs, 0.0)
	return c
}

func (c *CurrentSource) Initialize(_ float64, sys *solver.System) error {
	c.RightVector = attribute.New(c.Name()+".right_vector", c.attrs, mat.NewVecDense(sys.Dim(), nil))
	sys.AddRightSideSource(c.RightVector)
	c.leftVector = sys.LeftVector
	return nil
}

// Stamp is a no-op: an ideal current source only contributes to the right
// side.
func (c *CurrentSource) Stamp(*mat.Dense) error { return nil }

func (c *CurrentSource) Tasks() []task.Task {
	return []task.Task{
		&csourcePreStep{comp: c, Decl: task.Decl{
			TaskName: c.Name() + ".MnaPreStep",
			Deps:     []attribute.Base{c.CurrentRef},
			Mods:     []attribute.Base{c.RightVector, c.IntfCurrent},
		}},
		&csourcePostStep{comp: c, Decl: task.Decl{
			TaskName: c.Name() + ".MnaPostStep",
			Deps:     []attribute.Base{c.leftVector},
			Mods:     []attribute.Base{c.IntfVoltage},
		}},
	}
}

type csourcePreStep struct {
	task.Decl
	comp *CurrentSource
}

func (t *csourcePreStep) Execute(float64, uint64) error {
	c := t.comp
	i := c.CurrentRef.Get()
	c.IntfCurrent.Set(i)
	b := c.RightVector.Get()
	b.Zero()
	addToNode(b, c.n1, i)
	addToNode(b, c.n2, -i)
	return nil
}

type csourcePostStep struct {
	task.Decl
	comp *CurrentSource
}

func (t *csourcePostStep) Execute(float64, uint64) error {
	c := t.comp
	x := c.leftVector.Get()
	c.IntfVoltage.Set(nodeVoltage(x, c.n1) - nodeVoltage(x, c.n2))
	return nil
}
