package components

import "gonum.org/v1/gonum/mat"

// stampConductance adds a two-terminal conductance between n1 and n2,
// skipping the rows and columns of ground.
func stampConductance(a *mat.Dense, n1, n2 *Node, g float64) {
	i, j := n1.MatrixIndex(), n2.MatrixIndex()
	if i >= 0 {
		a.Set(i, i, a.At(i, i)+g)
	}
	if j >= 0 {
		a.Set(j, j, a.At(j, j)+g)
	}
	if i >= 0 && j >= 0 {
		a.Set(i, j, a.At(i, j)-g)
		a.Set(j, i, a.At(j, i)-g)
	}
}

// stampVoltageSource adds the branch row coupling for an ideal voltage
// source between n1 (positive terminal) and n2; row is the branch row
// carrying the source current unknown.
func stampVoltageSource(a *mat.Dense, n1, n2 *Node, row int) {
	if i := n1.MatrixIndex(); i >= 0 {
		a.Set(i, row, 1)
		a.Set(row, i, 1)
	}
	if j := n2.MatrixIndex(); j >= 0 {
		a.Set(j, row, -1)
		a.Set(row, j, -1)
	}
}
