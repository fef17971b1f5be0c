package trust

import (
	"fmt"
	"io"
	"os"
	"sync"
)

type MaskLevel int

const (
	Nothing   MaskLevel = 0x0
	ErrorMask MaskLevel = 0x1
	WarnMask  MaskLevel = 0x2
	InfoMask  MaskLevel = 0x4
	DebugMask MaskLevel = 0x8
	StatsMask MaskLevel = 0x10
	fatalMask MaskLevel = 0x80
)

// Logger prints masked log lines onto a single writer.  The package level
// functions use a default Logger that writes to stderr.
type Logger struct {
	mu    sync.Mutex
	out   io.Writer
	level MaskLevel
	exit  func(int)
}

var std = NewLogger(os.Stderr)

// NewLogger returns a logger on w with every level turned on.
func NewLogger(w io.Writer) *Logger {
	return &Logger{
		out:   w,
		level: fatalMask | StatsMask | ErrorMask | WarnMask | InfoMask | DebugMask,
		exit:  os.Exit,
	}
}

// Default is the logger used by the package level functions.
func Default() *Logger {
	return std
}

// SetOutput changes where the default logger writes and returns the old writer.
func SetOutput(w io.Writer) io.Writer {
	std.mu.Lock()
	defer std.mu.Unlock()
	prev := std.out
	std.out = w
	return prev
}

// SetLevel lets you set an error mask directly. You can pass in something like
// ErrorMask | DebugMask to control exactly what gets printed.  It returns the
// previous mask.
func SetLevel(mask MaskLevel) MaskLevel {
	return std.SetLevel(mask)
}

func Level() MaskLevel {
	return std.Level()
}

func LevelToString() string {
	return std.LevelToString()
}

// SetLevel is the per-logger version of the package function SetLevel.
func (l *Logger) SetLevel(mask MaskLevel) MaskLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	if mask&0x1f == 0 {
		fmt.Fprintf(l.out, " WARN: trust.SetLevel is turning off log messages\n")
	}
	r := l.level & 0x1f
	l.level = (mask & 0x1f) | fatalMask
	return r
}

func (l *Logger) Level() MaskLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level & 0x1f
}

// SetExit replaces the function Fatalf calls after printing.  Tests use this
// to keep the process alive.
func (l *Logger) SetExit(fn func(int)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.exit = fn
}

func (l *Logger) LevelToString() string {
	level := l.Level()
	result := ""
	if level&ErrorMask > 0 {
		result += "error "
	}
	if level&WarnMask > 0 {
		result += "warn "
	}
	if level&InfoMask > 0 {
		result += "info "
	}
	if level&DebugMask > 0 {
		result += "debug "
	}
	if level&StatsMask > 0 {
		result += "stats"
	}
	return result
}

func (l *Logger) logf(m MaskLevel, format string, params ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.level&m == 0 {
		return
	}
	start := 0
	switch {
	case m&fatalMask > 0:
		fmt.Fprint(l.out, "FATAL:")
	case m&ErrorMask > 0:
		fmt.Fprint(l.out, "ERROR:")
	case m&WarnMask > 0:
		fmt.Fprint(l.out, " WARN:")
	case m&InfoMask > 0:
		fmt.Fprint(l.out, " INFO:")
	case m&DebugMask > 0:
		fmt.Fprint(l.out, "DEBUG:")
	case m&StatsMask > 0:
		s, ok := params[0].(string)
		if !ok {
			s = "unknown"
		}
		fmt.Fprintf(l.out, "STATS[%s]:", s)
		start = 1
	}
	if len(format) == 0 {
		format = "\n"
	} else if format[len(format)-1] != '\n' {
		format += "\n"
	}
	fmt.Fprintf(l.out, format, params[start:]...)
}

//Fatalf prints the given log message (format + params) and then exits with
//the exitCode provided.  Fatalf is not maskable.
func (l *Logger) Fatalf(exitCode int, format string, params ...interface{}) {
	l.logf(fatalMask, format, params...)
	l.mu.Lock()
	exit := l.exit
	l.mu.Unlock()
	exit(exitCode)
}

func (l *Logger) Errorf(format string, params ...interface{}) {
	l.logf(ErrorMask, format, params...)
}

func (l *Logger) Warnf(format string, params ...interface{}) {
	l.logf(WarnMask, format, params...)
}

func (l *Logger) Infof(format string, params ...interface{}) {
	l.logf(InfoMask, format, params...)
}

func (l *Logger) Debugf(format string, params ...interface{}) {
	l.logf(DebugMask, format, params...)
}

func (l *Logger) Statsf(category string, format string, params ...interface{}) {
	l.logf(StatsMask, format, append([]interface{}{category}, params...)...)
}

//Fatalf prints the given log message (format + params) on the default logger
//and then exits with the exitCode provided.  Fatalf is not maskable.
func Fatalf(exitCode int, format string, params ...interface{}) {
	std.Fatalf(exitCode, format, params...)
}

//Errorf prints the given log message (format + params) using the ErrorMask level.
func Errorf(format string, params ...interface{}) {
	std.Errorf(format, params...)
}

//Warnf prints the given log message (format + params) using the WarnMask level.
func Warnf(format string, params ...interface{}) {
	std.Warnf(format, params...)
}

//Infof prints the given log message (format + params) using the InfoMask level.
func Infof(format string, params ...interface{}) {
	std.Infof(format, params...)
}

//Debugf prints the given log message (format + params) using the DebugMask level.
func Debugf(format string, params ...interface{}) {
	std.Debugf(format, params...)
}

//Statsf prints the given log message (format + params) using the StatsMask level and
//takes an extra parameter that will be visible in the log message as the category
//of stats that is reported.
func Statsf(category string, format string, params ...interface{}) {
	std.Statsf(category, format, params...)
}

// ParseLevel turns a comma-free word list like "error warn info" into a mask.
// Unknown words are ignored.
func ParseLevel(words []string) MaskLevel {
	result := Nothing
	for _, w := range words {
		switch w {
		case "error":
			result |= ErrorMask
		case "warn":
			result |= WarnMask
		case "info":
			result |= InfoMask
		case "debug":
			result |= DebugMask
		case "stats":
			result |= StatsMask
		}
	}
	return result
}
