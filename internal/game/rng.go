package game

import (
	crand "crypto/rand"
	"encoding/binary"
)

// RNG is a mulberry32 generator. Both ends of the wire run this exact
// algorithm: the server picks a seed per delivery, ships it, and the client
// reseeds before recomputing the same trajectory and shot math, so the
// sequence must bit-match the reference implementation.
type RNG struct {
	s uint32
}

// NewRNG seeds a generator. Seeds travel on the wire as non-negative int32.
func NewRNG(seed int32) *RNG {
	return &RNG{s: uint32(seed)}
}

// NewSeed draws a fresh wire seed from the OS entropy source.
func NewSeed() int32 {
	var b [4]byte
	crand.Read(b[:])
	n := int32(binary.LittleEndian.Uint32(b[:]))
	if n < 0 {
		n = -n
	}
	return n
}

// Float64 returns the next value in [0, 1).
func (r *RNG) Float64() float64 {
	r.s += 0x6D2B79F5
	t := (r.s ^ (r.s >> 15)) * (r.s | 1)
	t = (t + (t^(t>>7))*(t|61)) ^ t
	return float64(t^(t>>14)) / 4294967296
}

// Range returns a value in [min, max).
func (r *RNG) Range(min, max float64) float64 {
	return r.Float64()*(max-min) + min
}

// Chance returns true with probability p.
func (r *RNG) Chance(p float64) bool {
	return r.Float64() < p
}

// WeightedPick selects an index by cumulative weight. Weights need not sum
// to 1: a running remainder is consumed until it goes non-positive, and the
// last index is the fallback when float error leaves a sliver.
func (r *RNG) WeightedPick(weights []float64) int {
	var total float64
	for _, w := range weights {
		total += w
	}
	rem := r.Float64() * total
	for i, w := range weights {
		rem -= w
		if rem <= 0 {
			return i
		}
	}
	return len(weights) - 1
}
