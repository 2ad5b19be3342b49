// Package registry holds the ordered set of tasks that make up one run.
//
// The Registry is populated during setup, validated once, and then handed to
// the executor. Insertion order is the reporting order, independent of the
// order in which tasks actually complete. Dependency edges are declared data;
// Validate rejects unknown dependencies and cycles before anything runs so a
// bad plan fails fast instead of deadlocking mid-run.
package registry
