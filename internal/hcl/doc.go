// Package hcl provides the concrete HCL implementation for the configuration
// loading and argument decoding interfaces defined in the `config` package.
// It is responsible for file parsing, route evaluation, HCL-to-model
// translation, and binding `arguments` blocks to module input structs.
package hcl
