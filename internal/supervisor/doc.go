// Package supervisor runs agent workers as cooperatively cancelled
// goroutines.
//
// Each node gets one Handle; the supervisor guarantees at most one live
// worker per handle. Stopping is always cooperative: the supervisor cancels
// the worker's context and waits out a grace period, but a worker that
// ignores cancellation is reported, never killed.
package supervisor
