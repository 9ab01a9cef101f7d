// Package registry provides the central "glue" for the module system.
//
// The Registry maps the kind label of a `task "<kind>" "<name>"` block to the
// compiled Go module that implements it. Each module contributes a factory
// that receives the decoded `arguments` and returns the leaf action.
//
// During application startup the registry is populated by every module's
// Register method and then validated against the loaded pipeline, so a typo
// in a kind is reported before anything runs.
package registry
