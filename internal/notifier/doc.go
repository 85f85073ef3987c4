// Package notifier delivers reminder notifications.
//
// Notify only enqueues; a small worker pool drains the queue, waits on a
// token-bucket rate limiter and hands each message to every configured Sink
// (log, desktop, telegram). Failed sends are retried per sink with jittered
// exponential backoff. Outcomes are published on the event bus.
//
// # Popup mode
//
// With Popup enabled, task messages are marked Persistent. The desktop sink
// maps that to a critical notification that stays until dismissed.
//
// # History
//
// The service keeps a bounded in-memory history of delivered messages.
package notifier
