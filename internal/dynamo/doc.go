// Package dynamo provides the core primitives shared by the hydrological
// models and the adaptive integrator.
//
// The package defines the fundamental interfaces and types:
//
//   - [State]: vector of storages (one entry per reservoir)
//   - [System]: interval-indexed right-hand side dX/dt = f(s, t, X)
//   - [Options]: integration options (step bounds, tolerances, order)
//   - [Metric], [Observer], [StepObserver]: run instrumentation
//
// A System is evaluated inside forcing interval s (1-based), which is how
// a model looks up precipitation and evaporation for the current output
// interval without interpolating between samples.
//
// # Example
//
//	crr := models.NewCRR(params, forcing)
//	s := sim.New(crr, dynamo.DefaultOptions(crr.StateDim()))
//	result, _ := s.Run(ctx, x0, tout)
//
// # Thread Safety
//
// Systems must be free of side effects in Derive. Integrators and
// simulators own scratch buffers and are NOT safe for concurrent use; use
// sim.Ensemble to run independent trajectories in parallel.
package dynamo
