package notifier

import (
	"context"

	logx "weeklyreminder/pkg/logx"
)

// LogSink writes every message to the logger. It never fails.
type LogSink struct {
	log logx.Logger
}

func NewLogSink(log logx.Logger) *LogSink {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &LogSink{log: log}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Send(ctx context.Context, m Message) error {
	s.log.Info(m.Title,
		logx.String("kind", string(m.Kind)),
		logx.Int("task_id", m.TaskID),
		logx.String("body", m.Body),
		logx.Bool("persistent", m.Persistent),
	)
	return nil
}
