package wav

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
)

const inspectChunk = 8192

// ErrNotWav is returned for files that are not PCM WAVE
var ErrNotWav = errors.New("not a PCM wav file")

// Info describes a mono click track read back from disk
type Info struct {
	Channels   int
	BitDepth   int
	SampleRate int
	Frames     int
	Min, Max   int
	// RisingEdges counts low to high transitions
	RisingEdges int
}

// Duration is the play time of the file
func (i Info) Duration() time.Duration {
	if i.SampleRate == 0 {
		return 0
	}
	return time.Duration(float64(i.Frames) / float64(i.SampleRate) * float64(time.Second))
}

// PulseFrequency estimates the pulse rate in Hz from the rising edges
func (i Info) PulseFrequency() float64 {
	if i.Frames == 0 {
		return 0
	}
	return float64(i.RisingEdges) * float64(i.SampleRate) / float64(i.Frames)
}

// Inspect decodes a wav file and measures its pulse train
func Inspect(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer f.Close()
	return InspectReader(f)
}

// InspectReader decodes wav data from r
func InspectReader(r io.ReadSeeker) (Info, error) {
	d := gowav.NewDecoder(r)
	if !d.IsValidFile() {
		return Info{}, fmt.Errorf("%w: %v", ErrNotWav, d.Err())
	}
	if d.WavAudioFormat != FormatPCM {
		return Info{}, fmt.Errorf("%w: format tag %d", ErrNotWav, d.WavAudioFormat)
	}

	info := Info{
		Channels:   int(d.NumChans),
		BitDepth:   int(d.BitDepth),
		SampleRate: int(d.SampleRate),
		Min:        math.MaxInt,
		Max:        math.MinInt,
	}
	if err := d.FwdToPCM(); err != nil {
		return Info{}, fmt.Errorf("failed to find pcm data: %w", err)
	}

	buf := &audio.IntBuffer{Data: make([]int, inspectChunk), Format: d.Format()}
	var edges edgeCounter
	for {
		n, err := d.PCMBuffer(buf)
		if err != nil && !errors.Is(err, io.EOF) {
			return Info{}, fmt.Errorf("failed to read pcm data: %w", err)
		}
		if n == 0 {
			break
		}
		chunk := buf.Data[:n]
		for _, v := range chunk {
			info.Min = min(info.Min, v)
			info.Max = max(info.Max, v)
		}
		edges.count(chunk)
		info.Frames += n
	}
	info.RisingEdges = edges.n
	if info.Channels > 1 {
		info.Frames /= info.Channels
	}
	if info.Frames == 0 {
		info.Min, info.Max = 0, 0
	}
	return info, nil
}

// edgeCounter counts crossings from <= 0 to > 0.
// Both pulse shapes are high above zero and low at or below it.
type edgeCounter struct {
	n    int
	high bool
}

func (e *edgeCounter) count(samples []int) {
	for _, v := range samples {
		high := v > 0
		if high && !e.high {
			e.n++
		}
		e.high = high
	}
}
