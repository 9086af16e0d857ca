package click

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/ankogit/clicktrack/internal/audio"
	"github.com/ankogit/clicktrack/internal/timing"
	"github.com/ankogit/clicktrack/internal/wav"
)

// checkEvery is how many samples are rendered between context checks in elapsed mode
const checkEvery = 4096

// errAborted fails a run that unwound without an error, i.e. a panic
var errAborted = errors.New("render aborted")

// Request is one validated synthesis request
type Request struct {
	Path             string
	TempoBPM         float64
	PPQ              int
	SampleRate       int
	AmplitudePercent int
	BitDepth         int
	DutyCyclePercent int
	Bipolar          bool
	Duration         timing.Duration
}

// Result summarizes a finished render
type Result struct {
	Schedule  timing.Schedule
	Amplitude int32
	Frames    int
}

// plan holds the immutable wave parameters of one run
type plan struct {
	schedule  timing.Schedule
	packer    audio.Packer
	wave      audio.Wave
	amplitude int32
	bitDepth  int
}

func (p plan) format() wav.Format {
	return wav.Format{
		Channels:       audio.Channels,
		BytesPerSample: audio.BytesPerSample(p.bitDepth),
		SampleRate:     p.schedule.SampleRate,
	}
}

// Synth renders click tracks
type Synth struct {
	logger logrus.FieldLogger
	state  *State
}

// New creates a synth that reports diagnostics to logger
func New(logger logrus.FieldLogger) *Synth {
	return &Synth{
		logger: logger,
		state:  NewState(),
	}
}

// State returns the state of the most recent run
func (s *Synth) State() *State {
	return s.state
}

// Render writes the click track to req.Path.
// Nothing is created at req.Path unless the render completes.
func (s *Synth) Render(ctx context.Context, req Request) (Result, error) {
	s.state = NewState()

	p, err := s.prepare(req)
	if err != nil {
		s.state.fail(err)
		return Result{}, err
	}

	w, err := wav.Create(req.Path, p.format(), p.schedule.RenderedSamples())
	if err != nil {
		err = &ResourceError{Op: "create", Path: req.Path, Err: err}
		s.state.fail(err)
		return Result{}, err
	}
	return s.run(ctx, w, p, req.Path)
}

// RenderTo writes the click track to ws; req.Path is only used for logging
func (s *Synth) RenderTo(ctx context.Context, ws io.WriteSeeker, req Request) (Result, error) {
	s.state = NewState()

	p, err := s.prepare(req)
	if err != nil {
		s.state.fail(err)
		return Result{}, err
	}

	w, err := wav.NewWriter(ws, p.format(), p.schedule.RenderedSamples())
	if err != nil {
		err = &ResourceError{Op: "create", Path: req.Path, Err: err}
		s.state.fail(err)
		return Result{}, err
	}
	return s.run(ctx, w, p, req.Path)
}

// prepare validates the request and resolves its schedule
func (s *Synth) prepare(req Request) (plan, error) {
	s.logger.Infof("Generating WAV file %s", req.Path)
	if req.Duration == nil {
		return plan{}, ErrMissingDuration
	}

	packer, err := audio.NewPacker(req.BitDepth)
	if err != nil {
		return plan{}, err
	}
	amplitude, err := audio.ScaleAmplitude(req.BitDepth, req.AmplitudePercent)
	if err != nil {
		return plan{}, err
	}

	sched, err := timing.Resolve(req.Duration, req.TempoBPM, req.PPQ, req.SampleRate)
	if err != nil {
		return plan{}, err
	}

	wave, err := audio.NewWave(sched.SamplesPerTick, amplitude, float64(req.DutyCyclePercent)/100, req.Bipolar)
	if err != nil {
		return plan{}, err
	}
	p := plan{
		schedule:  sched,
		packer:    packer,
		wave:      wave,
		amplitude: amplitude,
		bitDepth:  req.BitDepth,
	}

	s.state.advance(PhaseResolved)
	s.logPlan(req, p)
	return p, nil
}

func (s *Synth) logPlan(req Request, p plan) {
	sched := p.schedule
	s.logger.Infof("%s @ %v bpm = %v second(s)", req.Duration, sched.TempoBPM, sched.Seconds)
	s.logger.Infof("Each tick has %d whole samples and a remainder of %s samples",
		sched.WholeSamplesPerTick(), sched.TickRemainder().RatString())
	s.logger.Infof("Needs %d samples for %v second(s)", sched.TotalSamples, sched.Seconds)
	if sched.Mode != timing.ModeElapsed {
		s.logger.WithFields(logrus.Fields{
			"mode":         sched.Mode.String(),
			"units":        sched.Units,
			"unit_samples": sched.UnitSamples,
			"rendered":     sched.RenderedSamples(),
			"drift":        sched.Drift(),
		}).Debug("Rendering whole units")
	}
	s.logger.Infof("Bit depth = %d, %d bytes/sample", p.bitDepth, audio.BytesPerSample(p.bitDepth))
	s.logger.Infof("The resulting output waveform has a frequency of %v Hz.", sched.Frequency())
}

// run renders the schedule into w; w is aborted on any failure
func (s *Synth) run(ctx context.Context, w *wav.Writer, p plan, path string) (res Result, err error) {
	finalized := false
	defer func() {
		if finalized {
			return
		}
		w.Abort()
		if err == nil {
			err = errAborted
		}
		s.state.fail(err)
	}()

	s.state.advance(PhaseRendering)
	s.logger.WithFields(logrus.Fields{
		"path":   path,
		"frames": w.DeclaredFrames(),
		"mode":   p.schedule.Mode.String(),
	}).Debug("Rendering")

	if p.schedule.Mode == timing.ModeElapsed {
		err = s.renderContinuous(ctx, w, p)
	} else {
		err = s.renderUnits(ctx, w, p)
	}
	if err != nil {
		var rerr *ResourceError
		if errors.As(err, &rerr) && rerr.Path == "" {
			rerr.Path = path
		}
		return Result{}, err
	}

	if err := w.Close(); err != nil {
		return Result{}, &ResourceError{Op: "finalize", Path: path, Err: err}
	}
	finalized = true
	s.state.advance(PhaseFinalized)

	res = Result{
		Schedule:  p.schedule,
		Amplitude: p.amplitude,
		Frames:    w.Frames(),
	}
	s.logger.WithField("frames", res.Frames).Debug("WAV file finalized")
	return res, nil
}

// renderContinuous writes one unbroken pulse train of TotalSamples samples
func (s *Synth) renderContinuous(ctx context.Context, w *wav.Writer, p plan) error {
	total := p.schedule.TotalSamples
	frame := make([]byte, 0, audio.BytesPerSample(p.bitDepth))
	done := 0

	for t := 0; t < total; t++ {
		if t%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("render interrupted at sample %d: %w", t, err)
			}
			s.state.addFrames(t - done)
			done = t
		}
		frame = p.packer(frame[:0], p.wave.At(t))
		if _, err := w.Write(frame); err != nil {
			return &ResourceError{Op: "write", Err: err}
		}
	}
	s.state.addFrames(total - done)
	return nil
}

// renderUnits writes Units blocks of UnitSamples samples, one write per block.
// The pulse period is the tick length, so the phase restarts at each unit.
func (s *Synth) renderUnits(ctx context.Context, w *wav.Writer, p plan) error {
	n := p.schedule.UnitSamples
	block := make([]byte, 0, n*audio.BytesPerSample(p.bitDepth))

	for u := 0; u < p.schedule.Units; u++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("render interrupted at %s unit %d: %w", p.schedule.Mode, u, err)
		}
		block = block[:0]
		for t := 0; t < n; t++ {
			block = p.packer(block, p.wave.At(t))
		}
		if _, err := w.Write(block); err != nil {
			return &ResourceError{Op: "write", Err: err}
		}
		s.state.addFrames(n)
	}
	return nil
}
