// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the primary execution lifecycle, decoupled
// from any specific entrypoint like a CLI or server.
//
// An App loads the pipeline configuration, prepares every task through the
// builder, validates the two entry pipelines and then runs whichever entry
// point it is asked for.
package app
