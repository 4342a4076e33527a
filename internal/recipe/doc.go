// Package recipe renders recipe command templates.
//
// Commands are HCL templates. A template sees the bound location of the
// target being built as `target`, the locations of all targets of the recipe
// as `targets`, the locations of the target's dependencies as `sources`, every
// target variable as a list under `var`, and every variable whose name is a
// valid identifier as a space-joined string. A small set of string functions
// (upper, lower, join, split, replace, format, trimspace, concat, length) is
// available.
//
// Shell parameter expansion must be escaped as `$${NAME}`; `$NAME` needs no
// escaping. The classic `$(<)` and `$(>)` forms expand to the target and the
// sources.
package recipe
