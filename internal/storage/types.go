package storage

import (
	"errors"
	"time"
)

var ErrUnknownDriver = errors.New("unknown storage driver")

// Config configures storage.
//
// Driver values:
//   - "json" (alias "file"): flat JSON file at Path
//   - "sqlite" (alias "sqlite3"): SQLite database file at Path
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// document is the on-disk shape of the json driver.
type document struct {
	Tasks []record `json:"tasks"`
}

// record mirrors task.Task but tolerates "last_triggered": null from older files.
type record struct {
	ID            int     `json:"id"`
	Content       string  `json:"content"`
	Weekdays      []int   `json:"weekdays"`
	Time          string  `json:"time"`
	Enabled       bool    `json:"enabled"`
	LastTriggered *string `json:"last_triggered"`
}
