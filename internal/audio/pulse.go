package audio

import (
	"errors"
	"fmt"
	"math"
)

// ErrContractViolation marks invalid parameters reaching the pulse generator
var ErrContractViolation = errors.New("pulse contract violation")

// Pulse returns the square wave value at sample index t.
// period is kept fractional so the duty edge does not drift across periods.
func Pulse(t int, period float64, amplitude int32, duty float64, bipolar bool) int32 {
	w, err := NewWave(period, amplitude, duty, bipolar)
	if err != nil {
		panic(err)
	}
	return w.At(t)
}

// Wave is a pulse train whose parameters were checked once by NewWave
type Wave struct {
	period    float64
	high      float64
	amplitude int32
	low       int32
}

// NewWave validates the pulse parameters for repeated sampling with At
func NewWave(period float64, amplitude int32, duty float64, bipolar bool) (Wave, error) {
	if err := CheckPulse(period, amplitude, duty); err != nil {
		return Wave{}, err
	}
	w := Wave{period: period, high: period * duty, amplitude: amplitude}
	if bipolar {
		w.low = -amplitude
	}
	return w, nil
}

// At returns the wave value at sample index t
func (w Wave) At(t int) int32 {
	if math.Mod(float64(t), w.period) < w.high {
		return w.amplitude
	}
	return w.low
}

// CheckPulse validates pulse parameters without generating anything
func CheckPulse(period float64, amplitude int32, duty float64) error {
	switch {
	case !(period > 0) || math.IsInf(period, 1):
		return fmt.Errorf("%w: period %v samples", ErrContractViolation, period)
	case amplitude <= 0:
		return fmt.Errorf("%w: amplitude %d", ErrContractViolation, amplitude)
	case !(duty > 0 && duty <= 1):
		return fmt.Errorf("%w: duty cycle %v", ErrContractViolation, duty)
	}
	return nil
}

// MaxAmplitude returns the largest signed value for a bit depth, or 0 if unsupported
func MaxAmplitude(bitDepth int) int32 {
	switch bitDepth {
	case 16:
		return MaxAmplitude16
	case 24:
		return MaxAmplitude24
	}
	return 0
}

// ScaleAmplitude scales the full-scale amplitude of bitDepth by percent
func ScaleAmplitude(bitDepth, percent int) (int32, error) {
	full := MaxAmplitude(bitDepth)
	if full == 0 {
		return 0, fmt.Errorf("%w: %d bits", ErrUnsupportedDepth, bitDepth)
	}
	if percent <= 0 || percent > 100 {
		return 0, fmt.Errorf("%w: amplitude %d%%", ErrContractViolation, percent)
	}
	return int32(math.RoundToEven(float64(full) * float64(percent) / 100)), nil
}
