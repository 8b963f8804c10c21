// Package agent implements the body of a voice-agent worker goroutine.
//
// A worker is started by the supervisor with a cancellable context and a
// config lookup. It does not own its config: the registry's store is the
// source of truth, re-read while the worker waits for a complete config.
package agent
