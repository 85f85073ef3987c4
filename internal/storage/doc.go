package storage

// Package storage provides the persistence backends behind task.Store.
//
// Drivers:
//   - "json": a single JSON document {"tasks": [...]}, rewritten on every save (default)
//   - "sqlite": a SQLite database file; the tasks table is rewritten in one transaction
