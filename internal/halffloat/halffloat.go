// Package halffloat widens IEEE 754 binary16 values to binary32.
package halffloat

import "math"

const (
	signMask     = 0x8000
	exponentMask = 0x7c00
	mantissaMask = 0x03ff

	halfBias   = 15
	singleBias = 127
)

// Bits returns the binary32 bit pattern for the binary16 value h.
// NaN payloads are kept and the result is always a quiet NaN.
func Bits(h uint16) uint32 {
	sign := uint32(h&signMask) << 16
	exp := uint32(h&exponentMask) >> 10
	mant := uint32(h & mantissaMask)

	switch exp {
	case 0:
		if mant == 0 {
			return sign
		}
		// Subnormal half: every subnormal is a normal single.
		e := uint32(singleBias - halfBias + 1)
		for mant&0x400 == 0 {
			mant <<= 1
			e--
		}
		mant &= mantissaMask
		return sign | e<<23 | mant<<13
	case 0x1f:
		if mant == 0 {
			return sign | 0x7f800000
		}
		return sign | 0x7fc00000 | mant<<13
	default:
		return sign | (exp-halfBias+singleBias)<<23 | mant<<13
	}
}

// ToFloat32 converts the binary16 value h to float32. It is exact for every
// input.
func ToFloat32(h uint16) float32 {
	return math.Float32frombits(Bits(h))
}
