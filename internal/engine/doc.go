// Package engine is the entry point a front end drives: it declares targets,
// dependencies, variables and recipes, then asks for updates.
//
// An Engine owns one graph for its whole life. Declarations may be made from
// any goroutine, including while an update runs.
package engine
