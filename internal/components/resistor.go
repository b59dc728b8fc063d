package components

import (
	"gonum.org/v1/gonum/mat"

	"github.com/vk/gridsim/internal/attribute"
	"github.com/vk/gridsim/internal/solver"
	"github.com/vk/gridsim/internal/task"
)

// Resistor is a constant two-terminal resistance. Its only per-step work
// is reading the solved vector back into its interface quantities.
type Resistor struct {
	Component

	resistance float64
	n1, n2     *Node

	// IntfVoltage is the branch voltage v(n1) - v(n2).
	IntfVoltage *attribute.Static[float64]
	// IntfCurrent is the branch current flowing from n1 to n2.
	IntfCurrent *attribute.Static[float64]

	leftVector attribute.Attribute[*mat.VecDense]
}

// NewResistor creates a resistor between n1 and n2.
func NewResistor(name string, n1, n2 *Node, resistance float64) *Resistor {
	r := &Resistor{
		Component:  newComponent(name),
		resistance: resistance,
		n1:         n1,
		n2:         n2,
	}
	r.IntfVoltage = attribute.New(name+".v_intf", r.attrs, 0.0)
	r.IntfCurrent = attribute.New(name+".i_intf", r.attrs, 0.0)
	return r
}

func (r *Resistor) Initialize(_ float64, sys *solver.System) error {
	r.leftVector = sys.LeftVector
	return nil
}

func (r *Resistor) Stamp(a *mat.Dense) error {
	stampConductance(a, r.n1, r.n2, 1/r.resistance)
	return nil
}

func (r *Resistor) Tasks() []task.Task {
	return []task.Task{
		&resistorPostStep{comp: r, Decl: task.Decl{
			TaskName: r.Name() + ".MnaPostStep",
			Deps:     []attribute.Base{r.leftVector},
			Mods:     []attribute.Base{r.IntfVoltage, r.IntfCurrent},
		}},
	}
}

type resistorPostStep struct {
	task.Decl
	comp *Resistor
}

func (t *resistorPostStep) Execute(float64, uint64) error {
	x := t.comp.leftVector.Get()
	v := nodeVoltage(x, t.comp.n1) - nodeVoltage(x, t.comp.n2)
	t.comp.IntfVoltage.Set(v)
	t.comp.IntfCurrent.Set(v / t.comp.resistance)
	return nil
}
