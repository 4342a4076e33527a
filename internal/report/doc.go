// Package report defines the events a build emits and the sinks that
// consume them.
//
// A build emits one Plan event, one Recipe event per action run, one Target
// event per target that reaches a final status, and one Summary event.
// Sinks are called from several goroutines and must be safe for concurrent
// use.
package report
