package timing

import "fmt"

// Mode records which kind of duration drove a schedule
type Mode int

const (
	ModeElapsed Mode = iota
	ModeBeats
	ModeBars
)

func (m Mode) String() string {
	switch m {
	case ModeElapsed:
		return "elapsed"
	case ModeBeats:
		return "beats"
	case ModeBars:
		return "bars"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// BeatsPerBar is fixed: bars are always 4/4
const BeatsPerBar = 4

// Duration is exactly one of Elapsed, Beats or Bars
type Duration interface {
	mode() Mode
	fmt.Stringer
}

// Elapsed is a wall-clock duration
type Elapsed struct {
	Minutes int
	Seconds int
}

func (Elapsed) mode() Mode { return ModeElapsed }

func (e Elapsed) String() string {
	return fmt.Sprintf("%d:%02d minutes", e.Minutes, e.Seconds)
}

// TotalSeconds returns minutes*60 + seconds
func (e Elapsed) TotalSeconds() int {
	return e.Minutes*60 + e.Seconds
}

// Beats counts quarter notes
type Beats int

func (Beats) mode() Mode { return ModeBeats }

func (b Beats) String() string { return fmt.Sprintf("%d beats", int(b)) }

// Bars counts 4/4 bars
type Bars int

func (Bars) mode() Mode { return ModeBars }

func (b Bars) String() string { return fmt.Sprintf("%d bars", int(b)) }
