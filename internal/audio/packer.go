package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrUnsupportedDepth is returned for bit depths other than 16 and 24
var ErrUnsupportedDepth = errors.New("unsupported bit depth")

// Packer appends the little-endian encoding of v to dst.
// Values must already fit the depth; nothing is clamped.
type Packer func(dst []byte, v int32) []byte

// NewPacker returns the packer for a bit depth
func NewPacker(bitDepth int) (Packer, error) {
	switch bitDepth {
	case 16:
		return pack16, nil
	case 24:
		return pack24, nil
	}
	return nil, fmt.Errorf("%w: %d bits", ErrUnsupportedDepth, bitDepth)
}

// BytesPerSample returns the packed width of one sample
func BytesPerSample(bitDepth int) int {
	return bitDepth / 8
}

// Pack encodes a single value
func Pack(v int32, bitDepth int) ([]byte, error) {
	p, err := NewPacker(bitDepth)
	if err != nil {
		return nil, err
	}
	return p(make([]byte, 0, BytesPerSample(bitDepth)), v), nil
}

// Unpack decodes a 2 or 3 byte little-endian signed sample
func Unpack(b []byte) (int32, error) {
	switch len(b) {
	case 2:
		return int32(int16(binary.LittleEndian.Uint16(b))), nil
	case 3:
		u := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
		// sign extend bit 23
		return int32(u<<8) >> 8, nil
	}
	return 0, fmt.Errorf("%w: %d byte sample", ErrUnsupportedDepth, len(b))
}

func pack16(dst []byte, v int32) []byte {
	return binary.LittleEndian.AppendUint16(dst, uint16(int16(v)))
}

// pack24 keeps the low three bytes of the little-endian int32
func pack24(dst []byte, v int32) []byte {
	u := uint32(v)
	return append(dst, byte(u), byte(u>>8), byte(u>>16))
}
