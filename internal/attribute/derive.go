package attribute

import (
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// Actor is an update function used by derived attributes: it recomputes the
// dependent value from the source attribute (getter) or pushes the
// dependent value back into it (setter).
type Actor[U, T any] func(dep *U, src Attribute[T])

// Scalar covers the value types the scaling projection works on.
type Scalar interface {
	~float64 | ~complex128
}

// Derive builds a new dynamic attribute that is a live view over src. The
// getter becomes an on-get rule and the setter an on-set rule; either may
// be nil for a one-way view. src is recorded as the dependency of both.
func Derive[U, T any](src Attribute[T], getter, setter Actor[U, T]) *Dynamic[U] {
	d := newDynamic[U]("")
	if getter != nil {
		// AddRule on a dynamic attribute cannot fail for known kinds.
		_ = d.AddRule(OnGet, Rule[U]{
			Apply: func(dep *U) { getter(dep, src) },
			Deps:  []Base{src},
		})
	}
	if setter != nil {
		_ = d.AddRule(OnSet, Rule[U]{
			Apply: func(dep *U) { setter(dep, src) },
			Deps:  []Base{src},
		})
	}
	return d
}

// DeriveReal projects the real part of a complex attribute. Setting the
// derived attribute replaces the real part and keeps the imaginary part.
func DeriveReal(src Attribute[complex128]) *Dynamic[float64] {
	return Derive(src,
		func(dep *float64, src Attribute[complex128]) {
			*dep = real(src.Get())
		},
		func(dep *float64, src Attribute[complex128]) {
			cur := src.Get()
			src.Set(complex(*dep, imag(cur)))
		})
}

// DeriveImag projects the imaginary part of a complex attribute.
func DeriveImag(src Attribute[complex128]) *Dynamic[float64] {
	return Derive(src,
		func(dep *float64, src Attribute[complex128]) {
			*dep = imag(src.Get())
		},
		func(dep *float64, src Attribute[complex128]) {
			cur := src.Get()
			src.Set(complex(real(cur), *dep))
		})
}

// DeriveMag projects the magnitude of a complex attribute. Setting the
// derived attribute rescales the source while keeping its phase.
func DeriveMag(src Attribute[complex128]) *Dynamic[float64] {
	return Derive(src,
		func(dep *float64, src Attribute[complex128]) {
			*dep = cmplx.Abs(src.Get())
		},
		func(dep *float64, src Attribute[complex128]) {
			src.Set(cmplx.Rect(*dep, cmplx.Phase(src.Get())))
		})
}

// DerivePhase projects the phase of a complex attribute in radians.
// Setting the derived attribute rotates the source while keeping its
// magnitude.
func DerivePhase(src Attribute[complex128]) *Dynamic[float64] {
	return Derive(src,
		func(dep *float64, src Attribute[complex128]) {
			*dep = cmplx.Phase(src.Get())
		},
		func(dep *float64, src Attribute[complex128]) {
			src.Set(cmplx.Rect(cmplx.Abs(src.Get()), *dep))
		})
}

// DeriveScaled is a view of src multiplied by scale. The projection is
// reversible for nonzero scale.
func DeriveScaled[T Scalar](src Attribute[T], scale T) *Dynamic[T] {
	return Derive(src,
		func(dep *T, src Attribute[T]) {
			*dep = scale * src.Get()
		},
		func(dep *T, src Attribute[T]) {
			src.Set(*dep / scale)
		})
}

// DeriveCoeff projects a single coefficient of a real matrix attribute.
// Setting the derived attribute writes the coefficient back through the
// source's set path.
func DeriveCoeff(src Attribute[*mat.Dense], row, col int) *Dynamic[float64] {
	return Derive(src,
		func(dep *float64, src Attribute[*mat.Dense]) {
			*dep = src.Get().At(row, col)
		},
		func(dep *float64, src Attribute[*mat.Dense]) {
			cur := src.Get()
			cur.Set(row, col, *dep)
			src.Set(cur)
		})
}

// DeriveCoeffCmplx projects a single coefficient of a complex matrix
// attribute.
func DeriveCoeffCmplx(src Attribute[*mat.CDense], row, col int) *Dynamic[complex128] {
	return Derive(src,
		func(dep *complex128, src Attribute[*mat.CDense]) {
			*dep = src.Get().At(row, col)
		},
		func(dep *complex128, src Attribute[*mat.CDense]) {
			cur := src.Get()
			cur.Set(row, col, *dep)
			src.Set(cur)
		})
}
