package halffloat

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func TestBitsMatchesReferenceForAllInputs(t *testing.T) {
	for i := 0; i <= math.MaxUint16; i++ {
		h := uint16(i)
		want := math.Float32bits(float16.Frombits(h).Float32())
		got := Bits(h)
		if got != want {
			t.Fatalf("Bits(0x%04x) = 0x%08x, want 0x%08x", h, got, want)
		}
	}
}

func TestToFloat32SpecialValues(t *testing.T) {
	assert.Equal(t, uint32(0), math.Float32bits(ToFloat32(0x0000)))
	assert.Equal(t, uint32(0x80000000), math.Float32bits(ToFloat32(0x8000)))
	assert.True(t, math.IsInf(float64(ToFloat32(0x7c00)), 1))
	assert.True(t, math.IsInf(float64(ToFloat32(0xfc00)), -1))
	assert.Equal(t, float32(1.0), ToFloat32(0x3c00))
	assert.Equal(t, float32(math.Ldexp(1, -24)), ToFloat32(0x0001))
	assert.Equal(t, float32(math.Ldexp(1023, -24)), ToFloat32(0x03ff))
	assert.Equal(t, float32(65504), ToFloat32(0x7bff))
}

func TestToFloat32NaN(t *testing.T) {
	for _, h := range []uint16{0x7c01, 0x7e00, 0x7fff, 0xfc01, 0xfe00} {
		f := ToFloat32(h)
		require.True(t, math.IsNaN(float64(f)), "0x%04x", h)
		bits := math.Float32bits(f)
		assert.Equal(t, uint32(h&0x8000)<<16, bits&0x80000000, "sign of 0x%04x", h)
		assert.Equal(t, uint32(h&0x3ff)<<13, bits&0x7fe000, "payload of 0x%04x", h)
		assert.NotZero(t, bits&0x400000, "quiet bit of 0x%04x", h)
	}
}

func TestToFloat32ExactIntegers(t *testing.T) {
	cases := map[uint16]float32{
		0x4000: 2.0,
		0x4400: 4.0,
		0xc800: -8.0,
		0x3800: 0.5,
		0x3555: 0.333251953125,
	}
	for h, want := range cases {
		assert.Equal(t, want, ToFloat32(h), "0x%04x", h)
	}
}
