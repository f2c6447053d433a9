package bvh

import "golang.org/x/exp/constraints"

// expandBits3 spreads the lower 10 bits of v so that two zero bits
// separate consecutive bits.
func expandBits3(v uint32) uint32 {
	v &= 0x3ff
	v = (v | v<<16) & 0xff0000ff
	v = (v | v<<8) & 0x0f00f00f
	v = (v | v<<4) & 0xc30c30c3
	v = (v | v<<2) & 0x49249249
	return v
}

// expandBits2 spreads the lower 16 bits of v so that one zero bit
// separates consecutive bits.
func expandBits2(v uint32) uint32 {
	v &= 0xffff
	v = (v | v<<8) & 0x00ff00ff
	v = (v | v<<4) & 0x0f0f0f0f
	v = (v | v<<2) & 0x33333333
	v = (v | v<<1) & 0x55555555
	return v
}

func quantize[T constraints.Float](x T, levels uint32) uint32 {
	q := x * T(levels)
	if q <= 0 || q != q {
		return 0
	}
	if q >= T(levels-1) {
		return levels - 1
	}
	return uint32(q)
}

// morton3 encodes a point of the unit cube as a 30 bit Morton code,
// X being the most significant axis.
func morton3[T constraints.Float](p [3]T) uint32 {
	x := expandBits3(quantize(p[0], 1024))
	y := expandBits3(quantize(p[1], 1024))
	z := expandBits3(quantize(p[2], 1024))
	return x<<2 | y<<1 | z
}

// morton2 encodes a point of the unit square as a 32 bit Morton code.
func morton2[T constraints.Float](p [3]T) uint32 {
	x := expandBits2(quantize(p[0], 1<<16))
	y := expandBits2(quantize(p[1], 1<<16))
	return x<<1 | y
}
