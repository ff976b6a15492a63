package log

import (
	"fmt"
	"time"
)

func (s Severity) String() string {
	switch s {
	case TraceLevel:
		return "TRAC"
	case DebugLevel:
		return "DEBU"
	case InfoLevel:
		return "INFO"
	case WarningLevel:
		return "WARN"
	case ErrorLevel:
		return "ERRO"
	case CriticalLevel:
		return "CRIT"
	default:
		return "NONE"
	}
}

func formatLine(line *logLine) string {
	return fmt.Sprintf(
		"%s %s %s:%d %s",
		line.time.Format("060102 15:04:05.000"),
		line.level,
		line.file,
		line.line,
		line.msg,
	)
}

func writer() {
	defer close(writerDone)

	for {
		select {
		case line := <-logBuffer:
			fmt.Println(formatLine(line))
		case <-shutdownSignal:
			// flush remaining lines
			for {
				select {
				case line := <-logBuffer:
					fmt.Println(formatLine(line))
				case <-time.After(10 * time.Millisecond):
					return
				}
			}
		}
	}
}
