// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the primary execution lifecycle: load a
// plan, connect remote job services, build and run the task graph, and report
// the outcome. It is decoupled from any specific entrypoint like a CLI.
package app
