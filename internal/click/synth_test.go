package click

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	gowav "github.com/go-audio/wav"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ankogit/clicktrack/internal/timing"
	"github.com/ankogit/clicktrack/internal/wav"
)

func baseRequest(dir string, d timing.Duration) Request {
	return Request{
		Path:             filepath.Join(dir, "click.wav"),
		TempoBPM:         120,
		PPQ:              24,
		SampleRate:       44100,
		AmplitudePercent: 100,
		BitDepth:         16,
		DutyCyclePercent: 50,
		Duration:         d,
	}
}

func newSynth() (*Synth, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return New(logger), hook
}

func decodeFile(t *testing.T, path string) (*gowav.Decoder, []int) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	d := gowav.NewDecoder(f)
	buf, err := d.FullPCMBuffer()
	require.NoError(t, err)
	return d, buf.Data
}

func TestRenderElapsed(t *testing.T) {
	s, _ := newSynth()
	req := baseRequest(t.TempDir(), timing.Elapsed{Minutes: 0, Seconds: 2})

	res, err := s.Render(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 88200, res.Frames)
	assert.Equal(t, 918.75, res.Schedule.SamplesPerTick)
	assert.Equal(t, PhaseFinalized, s.State().Phase())
	assert.Equal(t, 88200, s.State().Frames())

	d, samples := decodeFile(t, req.Path)
	assert.Equal(t, uint16(1), d.NumChans)
	assert.Equal(t, uint16(16), d.BitDepth)
	assert.Equal(t, uint32(44100), d.SampleRate)
	assert.Equal(t, uint16(1), d.WavAudioFormat)
	require.Len(t, samples, 88200)

	// 50% duty over 918.75 samples: high for 0..459, low from 460
	assert.Equal(t, 32767, samples[0])
	assert.Equal(t, 32767, samples[459])
	assert.Equal(t, 0, samples[460])
	assert.Equal(t, 0, samples[918])
	assert.Equal(t, 32767, samples[919])
}

func TestRenderBeats(t *testing.T) {
	s, _ := newSynth()
	req := baseRequest(t.TempDir(), timing.Beats(4))

	res, err := s.Render(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 22050, res.Schedule.SamplesPerBeat)
	assert.Equal(t, 4*22050, res.Frames)

	_, samples := decodeFile(t, req.Path)
	require.Len(t, samples, 4*22050)
	// every beat restarts the pulse phase
	for beat := 1; beat < 4; beat++ {
		assert.Equal(t, samples[:22050], samples[beat*22050:(beat+1)*22050], "beat %d", beat)
	}
}

func TestRenderBars24BitBipolar(t *testing.T) {
	s, _ := newSynth()
	req := baseRequest(t.TempDir(), timing.Bars(1))
	req.TempoBPM = 100
	req.SampleRate = 48000
	req.BitDepth = 24
	req.AmplitudePercent = 50
	req.DutyCyclePercent = 25
	req.Bipolar = true

	res, err := s.Render(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 115200, res.Frames)
	assert.Equal(t, int32(4194304), res.Amplitude)

	d, samples := decodeFile(t, req.Path)
	assert.Equal(t, uint16(24), d.BitDepth)
	assert.Equal(t, uint32(48000), d.SampleRate)
	require.Len(t, samples, 115200)
	for _, v := range samples {
		if v != 4194304 && v != -4194304 {
			t.Fatalf("bipolar sample %d is neither +A nor -A", v)
		}
	}
	// 48000*60/(24*100) = 1200 samples per tick, 300 high
	assert.Equal(t, 4194304, samples[299])
	assert.Equal(t, -4194304, samples[300])
	assert.Equal(t, 4194304, samples[1200])
}

func TestRenderDeclaresRenderedFrames(t *testing.T) {
	// 10 beats at 97 bpm render 4 samples fewer than the seconds formula
	s, _ := newSynth()
	req := baseRequest(t.TempDir(), timing.Beats(10))
	req.TempoBPM = 97

	res, err := s.Render(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 272780, res.Frames)
	assert.Equal(t, 272784, res.Schedule.TotalSamples)

	_, samples := decodeFile(t, req.Path)
	assert.Len(t, samples, 272780)
}

func TestRenderIsDeterministic(t *testing.T) {
	s, _ := newSynth()
	req := baseRequest(t.TempDir(), timing.Elapsed{Seconds: 1})
	req.DutyCyclePercent = 10

	_, err := s.Render(context.Background(), req)
	require.NoError(t, err)
	first, err := os.ReadFile(req.Path)
	require.NoError(t, err)

	_, err = s.Render(context.Background(), req)
	require.NoError(t, err)
	second, err := os.ReadFile(req.Path)
	require.NoError(t, err)

	assert.True(t, bytes.Equal(first, second), "outputs differ")
}

func TestRenderMissingDuration(t *testing.T) {
	s, hook := newSynth()
	dir := t.TempDir()
	req := baseRequest(dir, nil)

	_, err := s.Render(context.Background(), req)
	assert.ErrorIs(t, err, ErrMissingDuration)
	assert.Equal(t, PhaseFailed, s.State().Phase())
	assert.ErrorIs(t, s.State().Err(), ErrMissingDuration)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// only the output path is logged for a rejected request
	assert.Len(t, hook.AllEntries(), 1)
}

func TestRenderRejectsBadParameters(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Request)
		want   error
	}{
		{"depth", func(r *Request) { r.BitDepth = 8 }, ErrUnsupportedDepth},
		{"duty", func(r *Request) { r.DutyCyclePercent = 0 }, ErrContractViolation},
		{"amplitude", func(r *Request) { r.AmplitudePercent = 120 }, ErrContractViolation},
		{"tempo", func(r *Request) { r.TempoBPM = 0 }, timing.ErrInvalidTiming},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newSynth()
			dir := t.TempDir()
			req := baseRequest(dir, timing.Beats(1))
			tt.modify(&req)

			_, err := s.Render(context.Background(), req)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, PhaseFailed, s.State().Phase())

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestRenderCanceledLeavesNoFile(t *testing.T) {
	s, _ := newSynth()
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, d := range []timing.Duration{timing.Elapsed{Seconds: 1}, timing.Bars(2)} {
		_, err := s.Render(ctx, baseRequest(dir, d))
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, PhaseFailed, s.State().Phase())
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRenderUnwritablePath(t *testing.T) {
	s, _ := newSynth()
	req := baseRequest(filepath.Join(t.TempDir(), "nope"), timing.Beats(1))

	_, err := s.Render(context.Background(), req)
	var rerr *ResourceError
	require.True(t, errors.As(err, &rerr), "got %v", err)
	assert.Equal(t, "create", rerr.Op)
	assert.Equal(t, req.Path, rerr.Path)
}

// failingSink accepts limit bytes and then fails every write
type failingSink struct {
	limit int
	n     int
}

func TestRender24BitOddFrameCount(t *testing.T) {
	s, _ := newSynth()
	req := baseRequest(t.TempDir(), timing.Beats(1))
	req.TempoBPM = 99
	req.BitDepth = 24

	res, err := s.Render(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 26727, res.Frames)

	st, err := os.Stat(req.Path)
	require.NoError(t, err)
	assert.Equal(t, int64(wav.HeaderSize+26727*3+1), st.Size())

	info, err := wav.Inspect(req.Path)
	require.NoError(t, err)
	assert.Equal(t, 26727, info.Frames)
	assert.Equal(t, 24, info.BitDepth)
}

var errDiskFull = errors.New("disk full")

func (f *failingSink) Write(p []byte) (int, error) {
	if f.n+len(p) > f.limit {
		return 0, errDiskFull
	}
	f.n += len(p)
	return len(p), nil
}

func (f *failingSink) Seek(offset int64, whence int) (int64, error) {
	return offset, nil
}

func TestRenderToWriteFailure(t *testing.T) {
	s, _ := newSynth()
	req := baseRequest("", timing.Elapsed{Seconds: 10})
	req.Path = "memory"

	_, err := s.RenderTo(context.Background(), &failingSink{limit: 1024}, req)
	var rerr *ResourceError
	require.True(t, errors.As(err, &rerr), "got %v", err)
	assert.Equal(t, "write", rerr.Op)
	assert.Equal(t, "memory", rerr.Path)
	assert.ErrorIs(t, err, errDiskFull)
	assert.Equal(t, PhaseFailed, s.State().Phase())
}

// memSink is an in-memory io.WriteSeeker
type memSink struct {
	buf []byte
	pos int
}

func (m *memSink) Write(p []byte) (int, error) {
	if end := m.pos + len(p); end > len(m.buf) {
		m.buf = append(m.buf, make([]byte, end-len(m.buf))...)
	}
	n := copy(m.buf[m.pos:], p)
	m.pos += n
	return n, nil
}

func (m *memSink) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		m.pos = int(offset)
	case io.SeekCurrent:
		m.pos += int(offset)
	case io.SeekEnd:
		m.pos = len(m.buf) + int(offset)
	}
	return int64(m.pos), nil
}

func TestRenderToMatchesRender(t *testing.T) {
	s, _ := newSynth()
	req := baseRequest(t.TempDir(), timing.Beats(2))

	_, err := s.Render(context.Background(), req)
	require.NoError(t, err)
	onDisk, err := os.ReadFile(req.Path)
	require.NoError(t, err)

	sink := &memSink{}
	_, err = s.RenderTo(context.Background(), sink, req)
	require.NoError(t, err)
	assert.Equal(t, onDisk, sink.buf)
}

func TestRenderReportsDiagnostics(t *testing.T) {
	s, hook := newSynth()
	req := baseRequest(t.TempDir(), timing.Elapsed{Seconds: 2})

	_, err := s.Render(context.Background(), req)
	require.NoError(t, err)

	var messages []string
	for _, e := range hook.AllEntries() {
		messages = append(messages, e.Message)
	}
	all := strings.Join(messages, "\n")
	assert.Contains(t, all, req.Path)
	assert.Contains(t, all, "Each tick has 918 whole samples and a remainder of 3/4 samples")
	assert.Contains(t, all, "Needs 88200 samples for 2 second(s)")
	assert.Contains(t, all, "Bit depth = 16, 2 bytes/sample")
	assert.Contains(t, all, "frequency of 48 Hz")
}

func TestRenderToLogsOutputPath(t *testing.T) {
	s, hook := newSynth()
	req := baseRequest("", timing.Beats(1))
	req.Path = "memory.wav"

	_, err := s.RenderTo(context.Background(), &memSink{}, req)
	require.NoError(t, err)

	entry := hook.AllEntries()[0]
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "Generating WAV file memory.wav", entry.Message)
}
