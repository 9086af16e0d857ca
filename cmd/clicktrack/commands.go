package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ankogit/clicktrack/internal/click"
	"github.com/ankogit/clicktrack/internal/config"
	"github.com/ankogit/clicktrack/internal/timing"
	"github.com/ankogit/clicktrack/internal/wav"
)

type commandEnv struct {
	cfg    *config.Config
	logger *logrus.Logger
	stdout io.Writer
	stderr io.Writer
}

type handler func(ctx context.Context, env *commandEnv, args []string) error

type command struct {
	run  handler
	help string
}

// commands maps "<command> <subcommand>" to its handler
var commands = map[string]map[string]command{
	"generate": {
		"wav":    {generateWav, "Generate a WAV click track"},
		"preset": {generatePreset, "Write wav options as a YAML preset"},
	},
	"inspect": {
		"wav": {inspectWav, "Describe a WAV click track"},
	},
}

// usageError is a command line mistake rather than a failed run
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}

func lookup(args []string) (handler, []string, error) {
	if len(args) < 2 {
		return nil, nil, errors.New("missing command")
	}
	subs, ok := commands[args[0]]
	if !ok {
		return nil, nil, fmt.Errorf("unknown command %q", args[0])
	}
	c, ok := subs[args[1]]
	if !ok {
		return nil, nil, fmt.Errorf("unknown subcommand %q for %s", args[1], args[0])
	}
	return c.run, args[2:], nil
}

type commandHelp struct {
	path string
	help string
}

func commandList() []commandHelp {
	var list []commandHelp
	for cmd, subs := range commands {
		for sub, c := range subs {
			list = append(list, commandHelp{path: cmd + " " + sub, help: c.help})
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].path < list[j].path })
	return list
}

// parseInterspersed parses flags that may appear before or after positional arguments
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

func parseCommand(fs *flag.FlagSet, args []string, want string) (string, error) {
	positional, err := parseInterspersed(fs, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return "", err
		}
		return "", usageError{err}
	}
	if len(positional) != 1 {
		return "", usageErrorf("%s needs exactly one %s", fs.Name(), want)
	}
	return positional[0], nil
}

func wavOptionFlags(fs *flag.FlagSet, d *config.Defaults) {
	alias := func(short, long string, register func(name string)) {
		register(short)
		register(long)
	}
	alias("b", "bpm", func(n string) { fs.Float64Var(&d.BPM, n, d.BPM, "Tempo in quarter beats per minute") })
	alias("p", "ppq", func(n string) { fs.IntVar(&d.PPQ, n, d.PPQ, "Parts per quarter note (24, 48)") })
	alias("f", "frequency", func(n string) { fs.StringVar(&d.Frequency, n, d.Frequency, "Sampling frequency (44.1, 48, 96)") })
	alias("a", "amplitude", func(n string) { fs.IntVar(&d.Amplitude, n, d.Amplitude, "Amplitude in % (25, 50, 75, 100)") })
	alias("d", "depth", func(n string) { fs.IntVar(&d.Depth, n, d.Depth, "Sample bit depth (16, 24)") })
	alias("w", "width", func(n string) { fs.IntVar(&d.Width, n, d.Width, "Pulse width in % (5, 10, 25, 50)") })
	fs.BoolVar(&d.Bipolar, "bipolar", d.Bipolar, "Generate a bipolar wave")
}

// durationFromFlags returns nil when no duration flag was given
func durationFromFlags(minutes, beats, bars string) (timing.Duration, error) {
	var given []string
	for flagName, v := range map[string]string{"--minutes": minutes, "--beats": beats, "--bars": bars} {
		if v != "" {
			given = append(given, flagName)
		}
	}
	if len(given) > 1 {
		sort.Strings(given)
		return nil, usageErrorf("%s are mutually exclusive", strings.Join(given, ", "))
	}

	switch {
	case minutes != "":
		e, err := config.ParseMinutes(minutes)
		if err != nil {
			return nil, usageError{err}
		}
		return e, nil
	case beats != "":
		n, err := config.ParseCount("beats", beats)
		if err != nil {
			return nil, usageError{err}
		}
		return timing.Beats(n), nil
	case bars != "":
		n, err := config.ParseCount("bars", bars)
		if err != nil {
			return nil, usageError{err}
		}
		return timing.Bars(n), nil
	}
	return nil, nil
}

func generateWav(ctx context.Context, env *commandEnv, args []string) error {
	fs := flag.NewFlagSet("generate wav", flag.ContinueOnError)
	fs.SetOutput(env.stderr)
	d := env.cfg.Defaults
	wavOptionFlags(fs, &d)
	var minutes, beats, bars string
	fs.StringVar(&minutes, "minutes", "", "Click track duration as MM:SS")
	fs.StringVar(&beats, "beats", "", "Click track duration in beats (quarter notes)")
	fs.StringVar(&bars, "bars", "", "Click track duration in 4/4 bars")

	path, err := parseCommand(fs, args, "<file path>")
	if errors.Is(err, flag.ErrHelp) {
		return nil
	} else if err != nil {
		return err
	}
	if err := d.Validate(); err != nil {
		return usageError{err}
	}
	dur, err := durationFromFlags(minutes, beats, bars)
	if err != nil {
		return err
	}
	rate, err := config.SampleRate(d.Frequency)
	if err != nil {
		return usageError{err}
	}

	synth := click.New(env.logger)
	res, err := synth.Render(ctx, click.Request{
		Path:             path,
		TempoBPM:         d.BPM,
		PPQ:              d.PPQ,
		SampleRate:       rate,
		AmplitudePercent: d.Amplitude,
		BitDepth:         d.Depth,
		DutyCyclePercent: d.Width,
		Bipolar:          d.Bipolar,
		Duration:         dur,
	})
	if err != nil {
		return err
	}

	fields := logrus.Fields{
		"path":   path,
		"frames": res.Frames,
		"mode":   res.Schedule.Mode.String(),
	}
	if drift := res.Schedule.Drift(); drift != 0 {
		fields["drift"] = drift
	}
	env.logger.WithFields(fields).Info("Click track written")
	return nil
}

func generatePreset(ctx context.Context, env *commandEnv, args []string) error {
	fs := flag.NewFlagSet("generate preset", flag.ContinueOnError)
	fs.SetOutput(env.stderr)
	d := env.cfg.Defaults
	wavOptionFlags(fs, &d)

	path, err := parseCommand(fs, args, "<file path>")
	if errors.Is(err, flag.ErrHelp) {
		return nil
	} else if err != nil {
		return err
	}
	if err := d.Validate(); err != nil {
		return usageError{err}
	}

	data, err := config.MarshalPreset(d)
	if err != nil {
		return fmt.Errorf("failed to encode preset: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write preset: %w", err)
	}
	env.logger.Infof("Preset written to %s", path)
	return nil
}

func inspectWav(ctx context.Context, env *commandEnv, args []string) error {
	fs := flag.NewFlagSet("inspect wav", flag.ContinueOnError)
	fs.SetOutput(env.stderr)

	path, err := parseCommand(fs, args, "<file path>")
	if errors.Is(err, flag.ErrHelp) {
		return nil
	} else if err != nil {
		return err
	}

	info, err := wav.Inspect(path)
	if err != nil {
		return fmt.Errorf("failed to inspect %s: %w", path, err)
	}
	env.logger.WithFields(logrus.Fields{
		"channels": info.Channels,
		"depth":    info.BitDepth,
		"rate":     info.SampleRate,
		"frames":   info.Frames,
	}).Debug("Inspected WAV file")

	fmt.Fprintf(env.stdout, "file:   %s\n", path)
	fmt.Fprintf(env.stdout, "format: PCM, %d channel(s), %d bit, %d Hz\n", info.Channels, info.BitDepth, info.SampleRate)
	fmt.Fprintf(env.stdout, "frames: %d (%s)\n", info.Frames, info.Duration())
	fmt.Fprintf(env.stdout, "levels: %d .. %d\n", info.Min, info.Max)
	fmt.Fprintf(env.stdout, "pulse:  %d rising edges, %.2f Hz\n", info.RisingEdges, info.PulseFrequency())
	return nil
}
