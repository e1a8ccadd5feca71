// Package main hosts the catalogsync CLI.
//
// Commands run the same pipeline as the HTTP server in-process: a single
// batch, a whole-catalog job, or queries against the stored outcomes.
// Results are written to stdout as JSON; logs go to stderr.
package main
