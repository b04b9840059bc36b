package mirror

import (
	"encoding/binary"
	"errors"
	"math"
)

// Uniform layout inside the constant buffer.
const (
	// UniformSize is the encoded size of a Uniform.
	UniformSize = 12

	// viewportOffset holds the back buffer size as two float32.
	viewportOffset = 16

	// uniformBufferSize is the constant buffer allocation; constant
	// buffers are 256-byte aligned.
	uniformBufferSize = 256
)

var errShortUniform = errors.New("mirror: uniform data shorter than 12 bytes")

// Uniform describes the overlay triangle in window pixels: the apex and
// the side length of an upright equilateral triangle.
type Uniform struct {
	ApexX      float32
	ApexY      float32
	SideLength float32
}

// MarshalBinary encodes u as three little-endian float32.
func (u Uniform) MarshalBinary() ([]byte, error) {
	b := make([]byte, UniformSize)
	u.put(b)
	return b, nil
}

// UnmarshalBinary decodes the encoding produced by MarshalBinary.
func (u *Uniform) UnmarshalBinary(b []byte) error {
	if len(b) < UniformSize {
		return errShortUniform
	}
	u.ApexX = math.Float32frombits(binary.LittleEndian.Uint32(b[0:]))
	u.ApexY = math.Float32frombits(binary.LittleEndian.Uint32(b[4:]))
	u.SideLength = math.Float32frombits(binary.LittleEndian.Uint32(b[8:]))
	return nil
}

func (u Uniform) put(b []byte) {
	binary.LittleEndian.PutUint32(b[0:], math.Float32bits(u.ApexX))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(u.ApexY))
	binary.LittleEndian.PutUint32(b[8:], math.Float32bits(u.SideLength))
}

// Height returns the triangle height, side * sqrt(3) / 2.
func (u Uniform) Height() float32 {
	return u.SideLength * float32(math.Sqrt(3)) / 2
}

// putViewport writes the back buffer size the shader normalizes with.
func putViewport(b []byte, width, height uint32) {
	binary.LittleEndian.PutUint32(b[viewportOffset:], math.Float32bits(float32(width)))
	binary.LittleEndian.PutUint32(b[viewportOffset+4:], math.Float32bits(float32(height)))
}
