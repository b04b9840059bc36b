package mirror

import (
	"bytes"
	"math"
	"testing"
)

func TestUniformEncoding(t *testing.T) {
	u := Uniform{ApexX: 640, ApexY: 360, SideLength: 200}
	b, err := u.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{
		0x00, 0x00, 0x20, 0x44, // 640
		0x00, 0x00, 0xb4, 0x43, // 360
		0x00, 0x00, 0x48, 0x43, // 200
	}
	if !bytes.Equal(b, want) {
		t.Errorf("MarshalBinary() = % x, want % x", b, want)
	}

	var got Uniform
	if err := got.UnmarshalBinary(b); err != nil {
		t.Fatal(err)
	}
	if got != u {
		t.Errorf("UnmarshalBinary() = %+v, want %+v", got, u)
	}
	if err := got.UnmarshalBinary(b[:8]); err == nil {
		t.Error("UnmarshalBinary(short) = nil, want error")
	}
}

func TestUniformHeight(t *testing.T) {
	u := Uniform{SideLength: 2}
	if got := u.Height(); math.Abs(float64(got)-math.Sqrt(3)) > 1e-6 {
		t.Errorf("Height() = %v, want sqrt(3)", got)
	}
}
