// Package target defines the build target record and its small value types:
// flags, binding state, build progress, build status, variable bindings and
// recipes.
//
// Targets are owned by the graph package, which guards every field with its
// lock; the types here carry no synchronization of their own.
package target
