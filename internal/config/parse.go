package config

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/ankogit/clicktrack/internal/audio"
	"github.com/ankogit/clicktrack/internal/timing"
)

// ErrInvalidOption is returned for option values outside their allowed set
var ErrInvalidOption = errors.New("invalid option")

var (
	PPQChoices       = []int{24, 48}
	AmplitudeChoices = []int{25, 50, 75, 100}
	DepthChoices     = []int{16, 24}
	WidthChoices     = []int{5, 10, 25, 50}
)

// Validate checks every default against its allowed values
func (d Defaults) Validate() error {
	if !(d.BPM > 0) || math.IsInf(d.BPM, 1) {
		return fmt.Errorf("%w: bpm %v must be positive", ErrInvalidOption, d.BPM)
	}
	if err := choice("ppq", d.PPQ, PPQChoices); err != nil {
		return err
	}
	if _, err := SampleRate(d.Frequency); err != nil {
		return err
	}
	if err := choice("amplitude", d.Amplitude, AmplitudeChoices); err != nil {
		return err
	}
	if err := choice("depth", d.Depth, DepthChoices); err != nil {
		return err
	}
	return choice("width", d.Width, WidthChoices)
}

// SampleRate maps a frequency label such as "44.1" to Hz
func SampleRate(label string) (int, error) {
	rate, ok := audio.SampleRates[label]
	if !ok {
		return 0, fmt.Errorf("%w: frequency %q, choose from 44.1, 48, 96", ErrInvalidOption, label)
	}
	return rate, nil
}

// ParseMinutes parses "MM" or "MM:SS"
func ParseMinutes(s string) (timing.Elapsed, error) {
	mm, ss, hasSeconds := strings.Cut(strings.TrimSpace(s), ":")
	m, err := clockField(mm)
	if err != nil {
		return timing.Elapsed{}, fmt.Errorf("%w: minutes %q: %v", ErrInvalidOption, s, err)
	}
	e := timing.Elapsed{Minutes: m}
	if hasSeconds {
		if e.Seconds, err = clockField(ss); err != nil {
			return timing.Elapsed{}, fmt.Errorf("%w: minutes %q: %v", ErrInvalidOption, s, err)
		}
	}
	return e, nil
}

// ParseCount parses a positive beat or bar count
func ParseCount(name, s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %s %q must be a positive integer", ErrInvalidOption, name, s)
	}
	return n, nil
}

func clockField(s string) (int, error) {
	if s == "" || len(s) > 2 {
		return 0, errors.New("expected one or two digits")
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 59 {
		return 0, errors.New("expected 0-59")
	}
	return n, nil
}

func choice(name string, v int, allowed []int) error {
	if slices.Contains(allowed, v) {
		return nil
	}
	return fmt.Errorf("%w: %s %d, choose from %v", ErrInvalidOption, name, v, allowed)
}
