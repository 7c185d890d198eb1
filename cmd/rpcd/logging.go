package main

import (
	"fmt"
	"io"
	"log/syslog"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// buildLogger fans a logrus logger's output out across every -o sink
// the user named: "stdout", "syslog", or "file:<path>", repeatable and
// combined via io.MultiWriter.
func buildLogger(outputs []string, verbose bool) (*logrus.Logger, error) {
	writers := make([]io.Writer, 0, len(outputs))
	for _, spec := range outputs {
		w, err := openSink(spec)
		if err != nil {
			return nil, err
		}
		writers = append(writers, w)
	}
	if len(writers) == 0 {
		writers = append(writers, os.Stdout)
	}

	logger := logrus.New()
	logger.SetOutput(io.MultiWriter(writers...))
	logger.SetLevel(logrus.InfoLevel)
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	return logger, nil
}

func openSink(spec string) (io.Writer, error) {
	switch {
	case spec == "stdout":
		return os.Stdout, nil
	case spec == "syslog":
		w, err := syslog.New(syslog.LOG_DAEMON|syslog.LOG_INFO, "rpcd")
		if err != nil {
			return nil, fmt.Errorf("logging: open syslog: %w", err)
		}
		return w, nil
	case strings.HasPrefix(spec, "file:"):
		path := strings.TrimPrefix(spec, "file:")
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("logging: open %s: %w", path, err)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("logging: unrecognized output %q (want stdout, syslog, or file:<path>)", spec)
	}
}
