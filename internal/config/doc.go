// Package config defines the format-agnostic model of a task plan, along with
// the Loader interface for reading plans from various sources.
//
// The Model is the single source of truth for the app package, which turns it
// into a registry of runnable tasks. Concrete loaders, such as the HCL one,
// live in separate packages.
package config
