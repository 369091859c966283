// Package output renders command results for the terminal.
//
// Successful results go to the standard stream, either as indented JSON
// or as a single status line. Failures always go to the error stream as
// exactly one human-readable message, optionally followed by detail lines.
package output
