// Package tasks runs single Data Hub administration operations.
//
// Each task validates its input locally, makes at most one logical remote
// call and reports exactly once through a Reporter. Tasks never return Go
// errors: the outcome is a Result tagged Success, ValidationError,
// RemoteError or OutputError, which the command layer maps to an exit code.
package tasks
