package notifier

import (
	"fmt"
	"strings"

	"weeklyreminder/internal/task"
)

const (
	TaskTitle    = "📅 Weekly reminder"
	SummaryTitle = "📅 Weekly reminder is running"
)

// FromTask builds the notification for a fired task: "⏰ HH:MM" then the content.
func FromTask(t task.Task, persistent bool) Message {
	return Message{
		Kind:       KindTask,
		TaskID:     t.ID,
		Title:      TaskTitle,
		Body:       fmt.Sprintf("⏰ %s\n\n%s", t.Time, t.Content),
		Persistent: persistent,
	}
}

// Summary lists the given tasks, one "HH:MM content" line each.
func Summary(pending []task.Task) Message {
	var b strings.Builder
	if len(pending) == 0 {
		b.WriteString("No more reminders today.")
	} else {
		fmt.Fprintf(&b, "%d more today:", len(pending))
		for _, t := range pending {
			fmt.Fprintf(&b, "\n⏰ %s  %s", t.Time, t.Content)
		}
	}
	return Message{Kind: KindSummary, Title: SummaryTitle, Body: b.String()}
}
