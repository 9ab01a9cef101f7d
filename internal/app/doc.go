// Package app wires a loaded pipeline into a runner and drives one
// invocation of it. It is decoupled from the CLI so tests can build an App
// from a pipeline file and a custom set of modules.
package app
