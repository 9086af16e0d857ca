// Package wav writes PCM WAVE files from bytes packed by the caller, so go-audio's
// IntBuffer encoder is only used for reading them back.
package wav

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const (
	// HeaderSize is the size of the canonical PCM header
	HeaderSize = 44
	// FormatPCM is the WAVE format tag for uncompressed PCM
	FormatPCM = 1

	riffSizeOffset = 4
	dataSizeOffset = 40
	bufferSize     = 64 * 1024
)

// ErrClosed is returned when writing to a finalized writer
var ErrClosed = errors.New("wav writer closed")

// Format describes the PCM layout of the data chunk
type Format struct {
	Channels       int
	BytesPerSample int
	SampleRate     int
}

// BlockAlign is the size of one frame in bytes
func (f Format) BlockAlign() int {
	return f.Channels * f.BytesPerSample
}

// ByteRate is the number of bytes per second of audio
func (f Format) ByteRate() int {
	return f.SampleRate * f.BlockAlign()
}

func (f Format) validate() error {
	if f.Channels < 1 || f.BytesPerSample < 1 || f.SampleRate < 1 {
		return fmt.Errorf("invalid wav format %+v", f)
	}
	return nil
}

// Writer streams PCM frames into a RIFF/WAVE container.
// The header is written up front and patched on Close if the frame count changed.
type Writer struct {
	ws       io.WriteSeeker
	bw       *bufio.Writer
	format   Format
	declared int
	written  int64
	closed   bool

	// set by Create
	file    *os.File
	path    string
	tmpPath string
}

// NewWriter writes the header for frames frames and returns a writer positioned at the data chunk
func NewWriter(ws io.WriteSeeker, format Format, frames int) (*Writer, error) {
	if err := format.validate(); err != nil {
		return nil, err
	}
	if frames < 0 {
		return nil, fmt.Errorf("invalid frame count %d", frames)
	}

	w := &Writer{
		ws:       ws,
		bw:       bufio.NewWriterSize(ws, bufferSize),
		format:   format,
		declared: frames,
	}
	if _, err := w.bw.Write(header(format, int64(frames)*int64(format.BlockAlign()))); err != nil {
		return nil, fmt.Errorf("failed to write wav header: %w", err)
	}
	return w, nil
}

// Create opens a temp file next to path and renames it into place on Close
func Create(path string, format Format, frames int) (*Writer, error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	f, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	if err := f.Chmod(0o644); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("failed to set permissions: %w", err)
	}

	w, err := NewWriter(f, format, frames)
	if err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, err
	}
	w.file = f
	w.path = path
	w.tmpPath = f.Name()
	return w, nil
}

// Format returns the container format
func (w *Writer) Format() Format {
	return w.format
}

// DeclaredFrames is the frame count written in the header
func (w *Writer) DeclaredFrames() int {
	return w.declared
}

// Frames is the number of whole frames written so far
func (w *Writer) Frames() int {
	return int(w.written / int64(w.format.BlockAlign()))
}

// Write appends raw PCM bytes
func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, ErrClosed
	}
	n, err := w.bw.Write(p)
	w.written += int64(n)
	return n, err
}

// Close finalizes the size fields and releases the file.
// For writers from Create the output only appears at its path if Close succeeds.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	if err := w.finalize(); err != nil {
		w.Abort()
		return err
	}
	w.closed = true

	if w.file == nil {
		return nil
	}
	if err := w.file.Close(); err != nil {
		os.Remove(w.tmpPath)
		return fmt.Errorf("failed to close %s: %w", w.tmpPath, err)
	}
	if err := os.Rename(w.tmpPath, w.path); err != nil {
		os.Remove(w.tmpPath)
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}

// Abort discards the output; a no-op after Close
func (w *Writer) Abort() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if w.file == nil {
		return nil
	}
	w.file.Close()
	if err := os.Remove(w.tmpPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", w.tmpPath, err)
	}
	return nil
}

func (w *Writer) finalize() error {
	dataSize := w.written
	// RIFF chunks are word aligned
	if dataSize%2 == 1 {
		if err := w.bw.WriteByte(0); err != nil {
			return fmt.Errorf("failed to write pad byte: %w", err)
		}
	}
	if err := w.bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush wav data: %w", err)
	}

	declaredSize := int64(w.declared) * int64(w.format.BlockAlign())
	if dataSize == declaredSize {
		return nil
	}

	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], riffSize(dataSize))
	if err := w.patch(riffSizeOffset, buf[:]); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(buf[:], uint32(dataSize))
	if err := w.patch(dataSizeOffset, buf[:]); err != nil {
		return err
	}
	if _, err := w.ws.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end: %w", err)
	}
	return nil
}

func (w *Writer) patch(offset int64, b []byte) error {
	if _, err := w.ws.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to header: %w", err)
	}
	if _, err := w.ws.Write(b); err != nil {
		return fmt.Errorf("failed to patch header: %w", err)
	}
	return nil
}

func riffSize(dataSize int64) uint32 {
	return uint32(4 + (8 + 16) + 8 + dataSize + dataSize%2)
}

func header(f Format, dataSize int64) []byte {
	h := make([]byte, HeaderSize)

	// RIFF header (12 bytes)
	copy(h[0:4], "RIFF")
	binary.LittleEndian.PutUint32(h[4:8], riffSize(dataSize))
	copy(h[8:12], "WAVE")

	// fmt chunk (24 bytes)
	copy(h[12:16], "fmt ")
	binary.LittleEndian.PutUint32(h[16:20], 16)
	binary.LittleEndian.PutUint16(h[20:22], FormatPCM)
	binary.LittleEndian.PutUint16(h[22:24], uint16(f.Channels))
	binary.LittleEndian.PutUint32(h[24:28], uint32(f.SampleRate))
	binary.LittleEndian.PutUint32(h[28:32], uint32(f.ByteRate()))
	binary.LittleEndian.PutUint16(h[32:34], uint16(f.BlockAlign()))
	binary.LittleEndian.PutUint16(h[34:36], uint16(f.BytesPerSample*8))

	// data chunk header (8 bytes)
	copy(h[36:40], "data")
	binary.LittleEndian.PutUint32(h[40:44], uint32(dataSize))
	return h
}
