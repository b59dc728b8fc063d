// Package dag provides the directed acyclic graph the scheduler uses to
// derive a global task order from per-task attribute declarations.
package dag
