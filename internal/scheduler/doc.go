// Package scheduler fires due reminders.
//
// A cron trigger ("@every <interval>", 10s by default) calls Check, which
// evaluates the task list at most once per wall-clock minute. A task fires
// when today is one of its weekdays, its time equals the current HH:MM and it
// has not already fired today. Firing enqueues a notification and stamps the
// task's last_triggered with today's date.
//
// Minutes that pass while the daemon is not running are not caught up.
package scheduler
