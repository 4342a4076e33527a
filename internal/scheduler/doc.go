// Package scheduler turns a set of requested targets into recipe runs.
//
// An update first plans: it collects the dependency closure of the roots,
// marks every target launched and predicts which ones are stale. A single
// coordinating goroutine then walks the closure bottom-up. When all
// dependencies of a target are final, the coordinator commits the target's
// plan, binds it, decides whether it is stale and, if so, queues its recipes.
// At most Options.Jobs recipes run at once; their results come back over a
// channel and are applied on the coordinating goroutine only.
//
// Dependencies declared on a launched target while the update runs are
// folded into the schedule before the target is committed.
package scheduler
