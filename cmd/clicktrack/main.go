package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/ankogit/clicktrack/internal/config"
)

const name = "clicktrack"

var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// run executes one command line and returns the process exit code
func run(ctx context.Context, args []string, stdout, stderr io.Writer) (code int) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "%s: failed to load configuration: %v\n", name, err)
		return 2
	}

	opts := logOptions{level: cfg.LogLevel, logFile: cfg.LogFile}
	var showVersion bool
	var presetPath string

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&opts.verbose, "v", false, "Verbose output")
	fs.BoolVar(&opts.verbose, "verbose", false, "Verbose output")
	fs.BoolVar(&opts.quiet, "q", false, "Quiet output")
	fs.BoolVar(&opts.quiet, "quiet", false, "Quiet output")
	fs.BoolVar(&opts.noConsole, "nk", false, "Do not log to console")
	fs.BoolVar(&opts.noConsole, "no-console", false, "Do not log to console")
	fs.StringVar(&opts.logFile, "log-file", opts.logFile, "Optional log file")
	fs.StringVar(&presetPath, "preset", "", "YAML preset with default wav options")
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.Usage = func() { usage(fs) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if showVersion {
		fmt.Fprintf(stdout, "%s %s\n", name, version)
		return 0
	}

	logger, closeLog, err := newLogger(opts, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", name, err)
		return 2
	}
	defer closeLog()

	// Contract violations panic; log them like any other fatal error
	defer func() {
		if r := recover(); r != nil {
			logger.WithField("panic", r).
				WithField("stack", string(debug.Stack())).
				Error("Fatal error")
			code = 1
		}
	}()

	if presetPath != "" {
		if err := cfg.ApplyPreset(presetPath); err != nil {
			logger.WithError(err).Error("Failed to load preset")
			return 2
		}
	}

	h, rest, err := lookup(fs.Args())
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", name, err)
		usage(fs)
		return 2
	}

	logger.Infof("============== %s %s ==============", name, version)
	env := &commandEnv{cfg: cfg, logger: logger, stdout: stdout, stderr: stderr}
	if err := h(ctx, env, rest); err != nil {
		var uerr usageError
		switch {
		case errors.As(err, &uerr):
			fmt.Fprintf(stderr, "%s: %v\n", name, err)
			return 2
		case errors.Is(err, context.Canceled):
			logger.Error("Interrupted by user")
			return 130
		}
		logger.WithError(err).Error("Fatal error")
		return 1
	}
	return 0
}

func usage(fs *flag.FlagSet) {
	out := fs.Output()
	fmt.Fprintf(out, "usage: %s [global flags] <command> <subcommand> [args]\n\ncommands:\n", name)
	for _, c := range commandList() {
		fmt.Fprintf(out, "  %-18s %s\n", c.path, c.help)
	}
	fmt.Fprintln(out, "\nglobal flags:")
	fs.PrintDefaults()
}
