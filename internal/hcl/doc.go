// Package hcl provides the concrete HCL implementation for the configuration
// loading and option decoding interfaces defined in the `config` package.
// It is responsible for all file parsing, HCL-to-model translation, and the
// built-in default pipeline file.
package hcl
