// Package scheduler orders and invokes tasks each timestep consistent with
// their declared attribute dependencies. The stepping loop is
// single-threaded and cooperative: tasks run to completion in a fixed
// topological order derived once at initialization.
package scheduler
