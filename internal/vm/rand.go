package vm

import "math/rand/v2"

// Rand produces uniformly distributed bytes for CXNN.
type Rand interface {
	Byte() uint8
}

// RandFunc adapts a function to Rand.
type RandFunc func() uint8

func (f RandFunc) Byte() uint8 {
	return f()
}

func defaultRand() Rand {
	return RandFunc(func() uint8 {
		return uint8(rand.IntN(256))
	})
}
