// Package logging routes zap output to a platform log sink that takes a
// numeric priority, a tag and a message, the shape of a mobile system log.
//
// The zap logger name becomes the tag, so a logger obtained with
// Named("TarkkaNative") writes every line under that tag.
package logging

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Priority is a platform log priority.
type Priority int

const (
	Verbose Priority = 2
	Debug   Priority = 3
	Info    Priority = 4
	Warn    Priority = 5
	Error   Priority = 6
	Fatal   Priority = 7
)

func (p Priority) String() string {
	switch p {
	case Verbose:
		return "V"
	case Debug:
		return "D"
	case Info:
		return "I"
	case Warn:
		return "W"
	case Error:
		return "E"
	case Fatal:
		return "F"
	default:
		return fmt.Sprintf("P%d", int(p))
	}
}

// PriorityOf maps a zap level to a platform priority.
func PriorityOf(l zapcore.Level) Priority {
	switch {
	case l < zapcore.DebugLevel:
		return Verbose
	case l == zapcore.DebugLevel:
		return Debug
	case l == zapcore.InfoLevel:
		return Info
	case l == zapcore.WarnLevel:
		return Warn
	case l == zapcore.ErrorLevel:
		return Error
	default:
		return Fatal
	}
}

// DefaultTag is used for entries logged through an unnamed logger.
const DefaultTag = "TranslatorBridge"

// Sink receives formatted log lines.
type Sink interface {
	Write(priority Priority, tag, msg string)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(priority Priority, tag, msg string)

func (f SinkFunc) Write(priority Priority, tag, msg string) { f(priority, tag, msg) }

type core struct {
	zapcore.LevelEnabler
	sink   Sink
	fields []zapcore.Field
}

// NewCore returns a zap core that writes to sink.
// Structured fields are appended to the message as key=value pairs.
func NewCore(sink Sink, enab zapcore.LevelEnabler) zapcore.Core {
	return &core{LevelEnabler: enab, sink: sink}
}

// New returns a logger writing to sink at debug level and above.
func New(sink Sink, opts ...zap.Option) *zap.Logger {
	return zap.New(NewCore(sink, zapcore.DebugLevel), opts...)
}

func (c *core) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.fields = make([]zapcore.Field, 0, len(c.fields)+len(fields))
	clone.fields = append(clone.fields, c.fields...)
	clone.fields = append(clone.fields, fields...)
	return &clone
}

func (c *core) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *core) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	tag := ent.LoggerName
	if tag == "" {
		tag = DefaultTag
	}
	c.sink.Write(PriorityOf(ent.Level), tag, formatMessage(ent.Message, c.fields, fields))
	return nil
}

func (c *core) Sync() error {
	return nil
}

func formatMessage(msg string, groups ...[]zapcore.Field) string {
	n := 0
	for _, g := range groups {
		n += len(g)
	}
	if n == 0 {
		return msg
	}

	var sb strings.Builder
	sb.WriteString(msg)
	for _, g := range groups {
		for _, f := range g {
			// Each field gets its own encoder to keep declaration order.
			enc := zapcore.NewMapObjectEncoder()
			f.AddTo(enc)
			// A field may expand to several keys; sort them so lines are stable.
			for _, k := range slices.Sorted(maps.Keys(enc.Fields)) {
				sb.WriteByte(' ')
				sb.WriteString(k)
				sb.WriteByte('=')
				fmt.Fprint(&sb, enc.Fields[k])
			}
		}
	}
	return sb.String()
}

// WriterSink writes lines as "P/tag: msg" to an io.Writer.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink creates a sink over w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Write(priority Priority, tag, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "%s/%s: %s\n", priority, tag, msg)
}

// Line is one recorded log line.
type Line struct {
	Priority Priority
	Tag      string
	Msg      string
}

// Recorder is a Sink that keeps every line in memory.
type Recorder struct {
	mu    sync.Mutex
	lines []Line
}

func (r *Recorder) Write(priority Priority, tag, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, Line{Priority: priority, Tag: tag, Msg: msg})
}

// Lines returns a copy of the recorded lines.
func (r *Recorder) Lines() []Line {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Line(nil), r.lines...)
}

// Filter returns recorded lines with the given tag and priority.
func (r *Recorder) Filter(tag string, priority Priority) []Line {
	var out []Line
	for _, l := range r.Lines() {
		if l.Tag == tag && l.Priority == priority {
			out = append(out, l)
		}
	}
	return out
}

// Contains reports whether any line with tag contains substr.
func (r *Recorder) Contains(tag, substr string) bool {
	for _, l := range r.Lines() {
		if l.Tag == tag && strings.Contains(l.Msg, substr) {
			return true
		}
	}
	return false
}
