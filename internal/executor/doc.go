// Package executor runs recipe commands as external processes.
//
// Each command runs through the shell in its own process group so a timeout
// or cancellation can terminate everything it started. Standard output and
// standard error are captured in full and reported together with the exit
// status and timing.
package executor
