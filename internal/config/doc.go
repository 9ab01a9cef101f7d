// Package config defines the format-agnostic pipeline model, along with the
// interfaces (Loader, Converter) for loading it and for decoding a leaf
// task's arguments into a module's input struct.
//
// The `config.Model` is the single source of truth for the `app` package,
// which turns it into runner registrations. Concrete implementations of the
// interfaces, such as for HCL, are provided in separate packages.
package config
