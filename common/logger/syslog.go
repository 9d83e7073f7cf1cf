package logger

import (
	"log/syslog"
	"strings"
)

// SyslogWriteSyncer implements [zapcore.WriteSyncer] allowing Zap output to be
// redirected to syslog.
type SyslogWriteSyncer struct {
	writer *syslog.Writer
}

// NewSyslogWriteSyncer connects to the local syslog daemon. The priority is only used if the level
// cannot be parsed from a log message. The tag defaults to os.Args[0] when empty.
func NewSyslogWriteSyncer(priority syslog.Priority, tag string) (*SyslogWriteSyncer, error) {
	writer, err := syslog.New(priority, tag)
	if err != nil {
		return nil, err
	}
	return &SyslogWriteSyncer{
		writer: writer,
	}, nil
}

// Write translates a console encoded zap entry (<TIMESTAMP>\t<LEVEL>\t<REST>) into a syslog message
// with the matching severity. The timestamp is dropped, syslog has its own.
func (s *SyslogWriteSyncer) Write(p []byte) (n int, err error) {

	fields := strings.SplitN(strings.TrimSuffix(string(p), "\n"), "\t", 3)
	// Probably the message format changed, lets just write it to syslog as is:
	if len(fields) < 3 {
		return s.writer.Write(p)
	}
	level, msg := fields[1], fields[2]

	// Map the log levels defined by zapcore's level.go to the syslog severity
	// levels defined in RFC5424 (https://datatracker.ietf.org/doc/html/rfc5424).
	switch level {
	case "debug":
		return len(p), s.writer.Debug(msg)
	case "info":
		return len(p), s.writer.Info(msg)
	case "warn":
		return len(p), s.writer.Warning(msg)
	case "error":
		return len(p), s.writer.Err(msg)
	case "dpanic", "panic", "fatal":
		return len(p), s.writer.Crit(msg)
	default:
		return s.writer.Write(p)
	}
}

// Sync is a no-op, the syslog package hands every message over immediately.
func (s *SyslogWriteSyncer) Sync() error {
	return nil
}
