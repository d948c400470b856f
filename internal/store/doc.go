// Package store defines interfaces for progress persistence dependencies.
// Implementations live in other packages; this package must not import
// database drivers or concrete clients.
package store
