// Package dynamo holds the numeric primitives shared by the trajectory
// planner and the simulation that verifies its results: state and input
// vectors, the [System] and [Integrator] contracts, open-loop [Input]
// signals and run [Metric]s.
//
// The domain errors in this package are wrapped by the planner and the
// simulator and can be matched with errors.Is.
package dynamo
