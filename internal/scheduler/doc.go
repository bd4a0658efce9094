// Package scheduler executes a batch of run descriptors on a bounded pool of
// workers. Every run is isolated: a failure or timeout is recorded in that
// run's own report and never stops its siblings. RunAll returns only after
// every run has reported.
package scheduler
