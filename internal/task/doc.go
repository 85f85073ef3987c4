// Package task holds the reminder task model and the in-memory task store.
//
// The store keeps tasks in insertion order and writes the full list through a
// Backend after every mutation. Persistence problems are logged and never
// surface to callers; Err reports the most recent one for callers that care
// (the CLI exits non-zero on it).
package task
