// Package log provides a leveled, asynchronous logging facility for all
// entropyd components. Log calls are cheap: lines are pushed into a
// buffered channel and formatted by a single writer goroutine, so logging
// never blocks the entropy hot path.
package log

import (
	"flag"
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tevino/abool"
)

// Severity describes a log level.
type Severity uint32

// Log levels.
const (
	TraceLevel    Severity = 1
	DebugLevel    Severity = 2
	InfoLevel     Severity = 3
	WarningLevel  Severity = 4
	ErrorLevel    Severity = 5
	CriticalLevel Severity = 6
)

type logLine struct {
	msg   string
	level Severity
	time  time.Time
	file  string
	line  int
}

var (
	logBuffer = make(chan *logLine, 1024)

	logLevel = uint32(InfoLevel)

	started        = abool.NewBool(false)
	startedSignal  = make(chan struct{})
	shutdownSignal = make(chan struct{})
	writerDone     = make(chan struct{})

	logLevelFlag string
)

func init() {
	flag.StringVar(&logLevelFlag, "log", "info", "set log level to [trace|debug|info|warning|error|critical]")
}

// SetLogLevel sets the minimum level that is logged.
func SetLogLevel(level Severity) {
	atomic.StoreUint32(&logLevel, uint32(level))
}

// GetLogLevel returns the current minimum log level.
func GetLogLevel() Severity {
	return Severity(atomic.LoadUint32(&logLevel))
}

// ParseLevel returns the Severity for the given level name, or 0 if the
// name is not a valid level.
func ParseLevel(level string) Severity {
	switch strings.ToLower(level) {
	case "trace":
		return TraceLevel
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warning":
		return WarningLevel
	case "error":
		return ErrorLevel
	case "critical":
		return CriticalLevel
	}
	return 0
}

// Start starts the logging system. Must be called before logging output
// is written; lines logged earlier are buffered.
func Start() error {
	if !started.SetToIf(false, true) {
		return nil
	}

	if level := ParseLevel(logLevelFlag); level > 0 {
		SetLogLevel(level)
	} else {
		fmt.Printf("log: invalid log level %q, falling back to info\n", logLevelFlag)
	}

	go writer()
	close(startedSignal)
	return nil
}

// Shutdown flushes buffered lines and stops the writer.
func Shutdown() {
	if started.IsSet() {
		close(shutdownSignal)
		<-writerDone
	}
}

func log(level Severity, msg string) {
	if uint32(level) < atomic.LoadUint32(&logLevel) {
		return
	}

	_, file, line, ok := runtime.Caller(2)
	if !ok {
		file = "?"
		line = 0
	} else {
		// only use the last two path segments
		if idx := strings.LastIndex(file, "/"); idx > 0 {
			if idx := strings.LastIndex(file[:idx], "/"); idx > 0 {
				file = file[idx+1:]
			}
		}
	}

	ll := &logLine{
		msg:   msg,
		level: level,
		time:  time.Now(),
		file:  file,
		line:  line,
	}

	select {
	case logBuffer <- ll:
	default:
		// buffer full, drop to stdout directly instead of blocking
		fmt.Println(formatLine(ll))
	}
}

// Trace logs a message at trace level.
func Trace(msg string) { log(TraceLevel, msg) }

// Tracef formats and logs a message at trace level.
func Tracef(format string, args ...interface{}) { log(TraceLevel, fmt.Sprintf(format, args...)) }

// Debug logs a message at debug level.
func Debug(msg string) { log(DebugLevel, msg) }

// Debugf formats and logs a message at debug level.
func Debugf(format string, args ...interface{}) { log(DebugLevel, fmt.Sprintf(format, args...)) }

// Info logs a message at info level.
func Info(msg string) { log(InfoLevel, msg) }

// Infof formats and logs a message at info level.
func Infof(format string, args ...interface{}) { log(InfoLevel, fmt.Sprintf(format, args...)) }

// Warning logs a message at warning level.
func Warning(msg string) { log(WarningLevel, msg) }

// Warningf formats and logs a message at warning level.
func Warningf(format string, args ...interface{}) { log(WarningLevel, fmt.Sprintf(format, args...)) }

// Error logs a message at error level.
func Error(msg string) { log(ErrorLevel, msg) }

// Errorf formats and logs a message at error level.
func Errorf(format string, args ...interface{}) { log(ErrorLevel, fmt.Sprintf(format, args...)) }

// Critical logs a message at critical level.
func Critical(msg string) { log(CriticalLevel, msg) }

// Criticalf formats and logs a message at critical level.
func Criticalf(format string, args ...interface{}) { log(CriticalLevel, fmt.Sprintf(format, args...)) }
