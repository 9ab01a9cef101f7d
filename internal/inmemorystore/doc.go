// Package inmemorystore provides an ephemeral, thread-safe, in-memory
// implementation of the runstore.Store interface.
//
// # Characteristics
//
//   - **Ephemeral:** Created fresh for each process, timestamps are lost on exit.
//   - **Thread-Safe:** Watch-triggered runs of different tasks record concurrently.
//   - **Monotonic:** A late-finishing older run never rewinds a task's timestamp.
//
// For timestamps that must survive a restart, use filestore.
package inmemorystore
