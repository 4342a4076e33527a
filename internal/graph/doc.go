// Package graph is the target registry and dependency graph.
//
// Targets live in an arena indexed by symbol.Handle. Each handle owns a
// forward list (what it depends on) and a reverse list (who depends on it).
// Every mutation happens under one writer lock, and an edge insertion that
// would close a cycle is rolled back before the lock is released, so readers
// never observe a cyclic graph.
package graph
