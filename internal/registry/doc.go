// Package registry provides the central "glue" between configuration and
// compiled Go code.
//
// The Registry stores two typed mappings: transform kinds (the string used in
// a `transform "<kind>"` block) to the Go constructors that implement them,
// and task identifiers to prepared task descriptors. Both are populated once
// at startup and then resolved while graphs are constructed, so a typo in a
// pipeline or watch rule is reported before any task runs.
package registry
