// Package components provides minimal single-phase time-domain circuit
// models built on the attribute/task substrate. Each model registers its
// electrical quantities as attributes, stamps the MNA system matrix once
// and declares its per-step work as tasks with explicit previous-step,
// current-step and modified attribute lists.
package components

import (
	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/vk/gridsim/internal/attribute"
	"github.com/vk/gridsim/internal/solver"
	"github.com/vk/gridsim/internal/task"
)

// MNAComponent is a circuit model participating in the MNA formulation.
type MNAComponent interface {
	Name() string

	// Initialize sets up the companion model for the given timestep and
	// registers right-side contributions with the system.
	Initialize(timeStep float64, sys *solver.System) error

	// Stamp adds the component's constant contribution to the system
	// matrix. It runs once, before factorization.
	Stamp(a *mat.Dense) error

	// Tasks returns the component's per-step work.
	Tasks() []task.Task
}

// Component carries the identity and attribute registry shared by every
// model.
type Component struct {
	uid   uuid.UUID
	name  string
	attrs attribute.Map
}

func newComponent(name string) Component {
	return Component{
		uid:   uuid.New(),
		name:  name,
		attrs: make(attribute.Map),
	}
}

func (c *Component) Name() string { return c.name }

// UID returns the component's unique identifier.
func (c *Component) UID() uuid.UUID { return c.uid }

// Attributes exposes the component's attribute map, keyed by name.
func (c *Component) Attributes() attribute.Map { return c.attrs }

// Node is a topological connection point. Its index addresses the node's
// voltage unknown in the system vectors; ground carries no unknown.
type Node struct {
	name  string
	index int
}

// NewNode creates a node bound to the given matrix index.
func NewNode(name string, index int) *Node {
	return &Node{name: name, index: index}
}

// Ground returns the reference node.
func Ground() *Node {
	return &Node{name: "gnd", index: -1}
}

func (n *Node) Name() string     { return n.name }
func (n *Node) MatrixIndex() int { return n.index }
func (n *Node) IsGround() bool   { return n.index < 0 }

// nodeVoltage reads a node's solved voltage; ground is always zero.
func nodeVoltage(x *mat.VecDense, n *Node) float64 {
	if n.IsGround() {
		return 0
	}
	return x.AtVec(n.MatrixIndex())
}

// addToNode accumulates a source contribution into a right-side vector,
// skipping ground.
func addToNode(b *mat.VecDense, n *Node, v float64) {
	if n.IsGround() {
		return
	}
	b.SetVec(n.MatrixIndex(), b.AtVec(n.MatrixIndex())+v)
}
