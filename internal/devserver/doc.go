// Package devserver implements the two serving strategies of the `serve`
// leaf: a static file server that pushes live-reload events to browsers over
// socket.io, and a supervisor that restarts a command whenever a reload is
// requested. A Hub decouples whoever detects changes from whichever strategy
// is running.
package devserver
