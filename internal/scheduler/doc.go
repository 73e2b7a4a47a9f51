// Package scheduler walks a dependency graph in topological order with
// bounded concurrency.
//
// State is a streaming form of Kahn's algorithm: it tracks, per node, how many
// dependencies are still outstanding and queues nodes the moment that count
// reaches zero. Scheduler drives a State from a single coordinator goroutine;
// visits run concurrently but their completions are handled one at a time,
// so State needs no locking.
//
// Failure policy:
//   - early exit (default): the first Stop sets capacity to zero. Visits
//     already in flight finish, nothing new starts, and Start returns a
//     *StopError once the last one reports back.
//   - drain: a Stop still completes its node, dependents are unlocked and the
//     whole graph is visited. Start returns a *StopError for the first Stop.
//
// Cancel, or canceling the context passed to Start, stops admission the same
// way early exit does; it never interrupts a running visit.
package scheduler
