// Package hcl provides the concrete HCL implementation of config.Loader.
// It is responsible for file discovery, parsing, and translating HCL blocks
// into the format-agnostic plan model.
package hcl
