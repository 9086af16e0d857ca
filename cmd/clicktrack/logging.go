package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

type logOptions struct {
	verbose   bool
	quiet     bool
	noConsole bool
	logFile   string
	level     string
}

func (o logOptions) resolveLevel() (logrus.Level, error) {
	switch {
	case o.verbose && o.quiet:
		return 0, errors.New("-v and -q are mutually exclusive")
	case o.verbose:
		return logrus.DebugLevel, nil
	case o.quiet:
		return logrus.WarnLevel, nil
	case o.level == "":
		return logrus.InfoLevel, nil
	}
	return logrus.ParseLevel(o.level)
}

// newLogger builds the process logger; the returned func closes the log file
func newLogger(o logOptions, console io.Writer) (*logrus.Logger, func(), error) {
	level, err := o.resolveLevel()
	if err != nil {
		return nil, nil, err
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetLevel(level)

	var outputs []io.Writer
	if !o.noConsole {
		outputs = append(outputs, console)
	}
	closeFn := func() {}
	if o.logFile != "" {
		f, err := os.OpenFile(o.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		outputs = append(outputs, f)
		closeFn = func() { _ = f.Close() }
	}

	switch len(outputs) {
	case 0:
		logger.SetOutput(io.Discard)
	case 1:
		logger.SetOutput(outputs[0])
	default:
		logger.SetOutput(io.MultiWriter(outputs...))
	}
	return logger, closeFn, nil
}
