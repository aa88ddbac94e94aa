// Package graph models a pipeline as a tree of Leaf, Sequence and Parallel
// nodes and builds that tree from configured pipelines.
//
// A Sequence runs its children in order. A Parallel starts all of its
// children and waits for every one of them. A Leaf wraps one task. Stages
// of a configured pipeline become a Sequence of Parallel groups; a stage
// with a single member collapses to that member, and a stage member may name
// another pipeline, which nests its Sequence in place.
//
// The tree carries no execution state. The executor package walks it.
package graph
