// Package dag holds the reference graph between tasks. A composite task
// contributes one edge per child it names; the runner builds the graph for
// the subtree it is about to execute and rejects it if it contains a cycle,
// since a cyclic composite would recurse forever.
package dag
