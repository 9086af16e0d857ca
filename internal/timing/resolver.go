package timing

import (
	"errors"
	"fmt"
	"math"
	"math/big"
)

var (
	// ErrMissingDuration is returned when no usable duration was supplied
	ErrMissingDuration = errors.New("missing duration")
	// ErrInvalidTiming is returned for non-positive tempo, ppq or sample rate
	ErrInvalidTiming = errors.New("invalid timing parameters")
)

// Schedule is the resolved sample layout of one render
type Schedule struct {
	Mode       Mode
	TempoBPM   float64
	PPQ        int
	SampleRate int

	// SamplesPerTick is deliberately not rounded
	SamplesPerTick float64
	SamplesPerBeat int
	SamplesPerBar  int

	// Seconds and TotalSamples come from the duration in seconds
	Seconds      float64
	TotalSamples int

	// Units and UnitSamples drive beat/bar rendering; zero in elapsed mode
	Units       int
	UnitSamples int
}

// Resolve converts a duration into a sample schedule
func Resolve(d Duration, tempoBPM float64, ppq, sampleRate int) (Schedule, error) {
	if d == nil {
		return Schedule{}, ErrMissingDuration
	}
	if !(tempoBPM > 0) || math.IsInf(tempoBPM, 1) || ppq <= 0 || sampleRate <= 0 {
		return Schedule{}, fmt.Errorf("%w: tempo=%v ppq=%d rate=%d", ErrInvalidTiming, tempoBPM, ppq, sampleRate)
	}

	sr := float64(sampleRate)
	s := Schedule{
		Mode:           d.mode(),
		TempoBPM:       tempoBPM,
		PPQ:            ppq,
		SampleRate:     sampleRate,
		SamplesPerTick: (60 * sr) / (float64(ppq) * tempoBPM),
		SamplesPerBeat: int(math.RoundToEven((60 * sr) / tempoBPM)),
		SamplesPerBar:  int(math.RoundToEven((BeatsPerBar * 60 * sr) / tempoBPM)),
	}

	switch v := d.(type) {
	case Elapsed:
		if v.Minutes < 0 || v.Seconds < 0 {
			return Schedule{}, fmt.Errorf("%w: elapsed %s", ErrInvalidTiming, v)
		}
		s.Seconds = float64(v.TotalSeconds())
	case Beats:
		if v <= 0 {
			return Schedule{}, fmt.Errorf("%w: %s", ErrMissingDuration, v)
		}
		s.Seconds = 60 * float64(v) / tempoBPM
		s.Units = int(v)
		s.UnitSamples = s.SamplesPerBeat
	case Bars:
		if v <= 0 {
			return Schedule{}, fmt.Errorf("%w: %s", ErrMissingDuration, v)
		}
		s.Seconds = BeatsPerBar * 60 * float64(v) / tempoBPM
		s.Units = int(v)
		s.UnitSamples = s.SamplesPerBar
	default:
		return Schedule{}, fmt.Errorf("%w: unknown kind %T", ErrMissingDuration, d)
	}

	s.TotalSamples = int(math.RoundToEven(sr * s.Seconds))
	return s, nil
}

// RenderedSamples is the number of frames the render loop produces.
// In beat/bar mode this is Units*UnitSamples and may differ from TotalSamples.
func (s Schedule) RenderedSamples() int {
	if s.Mode == ModeElapsed {
		return s.TotalSamples
	}
	return s.Units * s.UnitSamples
}

// Drift is RenderedSamples minus TotalSamples
func (s Schedule) Drift() int {
	return s.RenderedSamples() - s.TotalSamples
}

// WholeSamplesPerTick is the integer part of SamplesPerTick
func (s Schedule) WholeSamplesPerTick() int {
	return int(s.SamplesPerTick)
}

// TickRemainder returns the exact fractional samples per tick
func (s Schedule) TickRemainder() *big.Rat {
	tempo := new(big.Rat)
	if tempo.SetFloat64(s.TempoBPM) == nil {
		return new(big.Rat)
	}
	r := new(big.Rat).SetInt64(int64(60 * s.SampleRate))
	r.Quo(r, tempo.Mul(tempo, new(big.Rat).SetInt64(int64(s.PPQ))))
	whole := new(big.Int).Quo(r.Num(), r.Denom())
	return r.Sub(r, new(big.Rat).SetInt(whole))
}

// Frequency is the resulting pulse frequency in Hz
func (s Schedule) Frequency() float64 {
	return float64(s.PPQ) * s.TempoBPM / 60
}
