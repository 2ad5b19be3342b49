// Package remote provides a local stand-in for work that executes in an
// external job service and can only be observed by polling.
//
// A Proxy submits its payload once, at construction. Observe polls the service
// explicitly and caches the first terminal observation forever; non-terminal
// statuses and transport failures are never cached. Nothing in this package
// polls in the background or as a side effect of formatting.
package remote
