// Package bls381 wraps the blst BLS12-381 bindings with the wallet's wire
// point encodings and the handful of group operations the key registry and
// signature verifier need: padded-limb codecs, multi-scalar sums, pairing
// products, and a bridge between gnark-crypto Fr elements and blst scalars.
package bls381

import (
	"errors"
)

const (
	// G1WireSize is the uncompressed wire size of a G1 point: X and Y as
	// 64-byte big-endian limbs, each a 48-byte field element left-padded
	// with 16 zero bytes.
	G1WireSize = 128
	// G2WireSize is the uncompressed wire size of a G2 point: limbs
	// (X.c0, X.c1, Y.c0, Y.c1) in the same padded layout.
	G2WireSize = 256
	// ScalarSize is the big-endian encoding size of an Fr scalar.
	ScalarSize = 32

	g1RawSize = 96
	g2RawSize = 192
	limbSize  = 64
	feSize    = 48
	padSize   = limbSize - feSize
)

var (
	ErrInvalidPoint  = errors.New("bls381: invalid point encoding")
	ErrInvalidScalar = errors.New("bls381: invalid scalar")
)

// IsZero reports whether b is all zero bytes. A zeroed wire point is the
// registry's empty/unset sentinel and never a valid curve point.
func IsZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
