// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the run lifecycle: loading profiles and
// scenario definitions, executing scenarios locally or against the CPLUS
// API, and emitting reports, styles and history entries. It is decoupled
// from any specific entrypoint like a CLI.
package app
