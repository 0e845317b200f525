package migrator

import (
	"fmt"
	"strings"
	"sync"

	sdklogging "github.com/Layr-Labs/eigensdk-go/logging"

	"github.com/AvaProtocol/bot-migrator/pkg/logger"
)

// captureBuffer is shared by a capture logger and every child created with
// With, so one batch collects a single ordered list of lines.
type captureBuffer struct {
	mu      sync.Mutex
	lines   []string
	stopped bool
}

func (b *captureBuffer) add(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return
	}
	b.lines = append(b.lines, line)
}

// captureLogger forwards to its delegate and records a copy of every line
// written while the batch runs. It replaces any process wide hook: only
// output written through this logger ends up in the migration log.
type captureLogger struct {
	delegate logger.Logger
	buf      *captureBuffer
	tags     []any
}

func newCaptureLogger(delegate logger.Logger) *captureLogger {
	return &captureLogger{
		delegate: logger.EnsureLogger(delegate),
		buf:      &captureBuffer{},
	}
}

// stop ends recording and returns what was captured.
func (c *captureLogger) stop() []string {
	c.buf.mu.Lock()
	defer c.buf.mu.Unlock()
	c.buf.stopped = true
	out := make([]string, len(c.buf.lines))
	copy(out, c.buf.lines)
	return out
}

func (c *captureLogger) record(level, msg string, tags []any) {
	var sb strings.Builder
	sb.WriteString("[")
	sb.WriteString(level)
	sb.WriteString("] ")
	sb.WriteString(msg)

	all := append(append([]any{}, c.tags...), tags...)
	for i := 0; i < len(all); i += 2 {
		if i+1 < len(all) {
			fmt.Fprintf(&sb, " %v=%v", all[i], all[i+1])
		} else {
			fmt.Fprintf(&sb, " %v", all[i])
		}
	}
	c.buf.add(sb.String())
}

func (c *captureLogger) Debug(msg string, tags ...any) {
	c.record("debug", msg, tags)
	c.delegate.Debug(msg, tags...)
}

func (c *captureLogger) Info(msg string, tags ...any) {
	c.record("info", msg, tags)
	c.delegate.Info(msg, tags...)
}

func (c *captureLogger) Warn(msg string, tags ...any) {
	c.record("warn", msg, tags)
	c.delegate.Warn(msg, tags...)
}

func (c *captureLogger) Error(msg string, tags ...any) {
	c.record("error", msg, tags)
	c.delegate.Error(msg, tags...)
}

func (c *captureLogger) Fatal(msg string, tags ...any) {
	c.record("fatal", msg, tags)
	c.delegate.Fatal(msg, tags...)
}

func (c *captureLogger) Debugf(template string, args ...any) {
	c.record("debug", fmt.Sprintf(template, args...), nil)
	c.delegate.Debugf(template, args...)
}

func (c *captureLogger) Infof(template string, args ...any) {
	c.record("info", fmt.Sprintf(template, args...), nil)
	c.delegate.Infof(template, args...)
}

func (c *captureLogger) Warnf(template string, args ...any) {
	c.record("warn", fmt.Sprintf(template, args...), nil)
	c.delegate.Warnf(template, args...)
}

func (c *captureLogger) Errorf(template string, args ...any) {
	c.record("error", fmt.Sprintf(template, args...), nil)
	c.delegate.Errorf(template, args...)
}

func (c *captureLogger) Fatalf(template string, args ...any) {
	c.record("fatal", fmt.Sprintf(template, args...), nil)
	c.delegate.Fatalf(template, args...)
}

func (c *captureLogger) With(tags ...any) sdklogging.Logger {
	return &captureLogger{
		delegate: c.delegate.With(tags...),
		buf:      c.buf,
		tags:     append(append([]any{}, c.tags...), tags...),
	}
}
