// Package logging is the reporting collaborator threaded through the
// conversion pipeline and the batch orchestrator.
package logging

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
)

type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
}

type Field struct {
	Key   string
	Value any
}

func String(key, value string) Field    { return Field{key, value} }
func Int(key string, value int) Field   { return Field{key, value} }
func Bool(key string, value bool) Field { return Field{key, value} }
func Err(err error) Field               { return Field{"error", err} }
func Any(key string, value any) Field   { return Field{key, value} }

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	default:
		return "ERROR"
	}
}

// Std writes "[LEVEL] msg key=value ..." lines through a stdlib log.Logger.
type Std struct {
	l      *log.Logger
	min    Level
	fields []Field
}

func NewStd(w io.Writer, min Level) *Std {
	return &Std{l: log.New(w, "", log.LstdFlags), min: min}
}

func (s *Std) Debug(msg string, fields ...Field) { s.log(LevelDebug, msg, fields) }
func (s *Std) Info(msg string, fields ...Field)  { s.log(LevelInfo, msg, fields) }
func (s *Std) Warn(msg string, fields ...Field)  { s.log(LevelWarn, msg, fields) }
func (s *Std) Error(msg string, fields ...Field) { s.log(LevelError, msg, fields) }

func (s *Std) With(fields ...Field) Logger {
	merged := make([]Field, 0, len(s.fields)+len(fields))
	merged = append(merged, s.fields...)
	merged = append(merged, fields...)
	return &Std{l: s.l, min: s.min, fields: merged}
}

func (s *Std) log(level Level, msg string, fields []Field) {
	if level < s.min {
		return
	}
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(level.String())
	b.WriteString("] ")
	b.WriteString(msg)
	for _, f := range s.fields {
		writeField(&b, f)
	}
	for _, f := range fields {
		writeField(&b, f)
	}
	s.l.Print(b.String())
}

func writeField(b *strings.Builder, f Field) {
	v := fmt.Sprint(f.Value)
	if strings.ContainsAny(v, " \t\"") {
		v = fmt.Sprintf("%q", v)
	}
	fmt.Fprintf(b, " %s=%s", f.Key, v)
}

type Nop struct{}

func (Nop) Debug(string, ...Field) {}
func (Nop) Info(string, ...Field)  {}
func (Nop) Warn(string, ...Field)  {}
func (Nop) Error(string, ...Field) {}
func (Nop) With(...Field) Logger   { return Nop{} }

// Entry is one message captured by a Recorder.
type Entry struct {
	Level  Level
	Msg    string
	Fields []Field
}

// Field returns the value of the named field, or nil.
func (e Entry) Field(key string) any {
	for _, f := range e.Fields {
		if f.Key == key {
			return f.Value
		}
	}
	return nil
}

// Recorder keeps every entry in memory. It is safe for concurrent use.
type Recorder struct {
	mu      *sync.Mutex
	entries *[]Entry
	fields  []Field
}

func NewRecorder() *Recorder {
	return &Recorder{mu: &sync.Mutex{}, entries: &[]Entry{}}
}

func (r *Recorder) Debug(msg string, fields ...Field) { r.add(LevelDebug, msg, fields) }
func (r *Recorder) Info(msg string, fields ...Field)  { r.add(LevelInfo, msg, fields) }
func (r *Recorder) Warn(msg string, fields ...Field)  { r.add(LevelWarn, msg, fields) }
func (r *Recorder) Error(msg string, fields ...Field) { r.add(LevelError, msg, fields) }

func (r *Recorder) With(fields ...Field) Logger {
	merged := append(append([]Field{}, r.fields...), fields...)
	return &Recorder{mu: r.mu, entries: r.entries, fields: merged}
}

func (r *Recorder) add(level Level, msg string, fields []Field) {
	all := append(append([]Field{}, r.fields...), fields...)
	r.mu.Lock()
	*r.entries = append(*r.entries, Entry{Level: level, Msg: msg, Fields: all})
	r.mu.Unlock()
}

// Entries returns a copy of what was recorded at or above min.
func (r *Recorder) Entries(min Level) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Entry
	for _, e := range *r.entries {
		if e.Level >= min {
			out = append(out, e)
		}
	}
	return out
}
