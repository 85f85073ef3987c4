package notifier

import (
	"context"
	"time"
)

// Config controls the async notification pipeline.
type Config struct {
	Popup         bool
	Workers       int
	QueueSize     int
	RatePerSec    int
	RetryMax      int
	RetryBase     time.Duration
	RetryMaxDelay time.Duration
}

// Kind tags what produced a Message.
type Kind string

const (
	KindTask    Kind = "task"
	KindSummary Kind = "summary"
)

// Message is one notification, rendered by each sink in its own way.
type Message struct {
	Kind   Kind
	TaskID int
	Title  string
	Body   string
	// Persistent asks sinks that support it to keep the message until dismissed.
	Persistent bool
}

// Sink is a delivery target. Send is called from worker goroutines and must
// honor ctx.
type Sink interface {
	Name() string
	Send(ctx context.Context, m Message) error
}

type HistoryItem struct {
	At     time.Time
	Kind   Kind
	TaskID int
	Title  string
	Sinks  []string
}

// NotificationEvent is the eventbus payload for notifier lifecycle events.
type NotificationEvent struct {
	Kind   Kind      `json:"kind"`
	TaskID int       `json:"task_id,omitempty"`
	Sink   string    `json:"sink,omitempty"`
	At     time.Time `json:"at"`
	Error  string    `json:"error,omitempty"`
}
