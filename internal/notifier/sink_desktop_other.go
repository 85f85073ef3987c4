//go:build !linux

package notifier

import "context"

// DesktopSink is unavailable outside Linux; NewDesktopSink reports ErrUnsupported.
type DesktopSink struct{}

func NewDesktopSink(cfg DesktopConfig) (*DesktopSink, error) { return nil, ErrUnsupported }

func (s *DesktopSink) Name() string { return "desktop" }

func (s *DesktopSink) Send(ctx context.Context, m Message) error { return ErrUnsupported }

func (s *DesktopSink) Close() error { return nil }
