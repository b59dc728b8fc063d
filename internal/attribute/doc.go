// Package attribute implements the typed, dependency-tracked state cells
// that every simulation quantity lives in. An attribute is either static
// (a plain value) or dynamic (a value plus ordered update rules that run
// on get, on set, or once at first access). Dynamic attributes can mirror
// other attributes and expose live, bidirectional projections of their
// value (real part, magnitude, scaling, matrix coefficients).
//
// Attributes are shared by reference: components register them into their
// name-keyed maps, schedulers read their dependency sets to order work,
// and the external interface snapshots them onto the wire as cty values.
package attribute
