package bls381

import (
	"crypto/rand"
	"io"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	blst "github.com/supranational/blst/bindings/go"
)

// The registry does its scalar field math (weight derivation, aggregation
// coefficients, dealer inverses) in gnark-crypto's fr.Element and converts
// to blst scalars only at the point-multiplication boundary.

// ReduceToFr interprets b as a big-endian integer reduced mod the group order.
func ReduceToFr(b []byte) fr.Element {
	var e fr.Element
	e.SetBytes(b)
	return e
}

// FrToScalar converts an Fr element into a blst scalar.
func FrToScalar(e fr.Element) (*blst.Scalar, error) {
	be := e.Bytes()
	var s blst.Scalar
	if s.Deserialize(be[:]) == nil {
		return nil, ErrInvalidScalar
	}
	return &s, nil
}

// FrFromBytes parses a canonical 32-byte big-endian scalar, rejecting values
// at or above the group order.
func FrFromBytes(b []byte) (fr.Element, error) {
	var e fr.Element
	if len(b) != ScalarSize {
		return e, ErrInvalidScalar
	}
	if err := e.SetBytesCanonical(b); err != nil {
		return e, ErrInvalidScalar
	}
	return e, nil
}

// FrBytes returns the canonical 32-byte big-endian encoding of e.
func FrBytes(e fr.Element) []byte {
	be := e.Bytes()
	out := make([]byte, ScalarSize)
	copy(out, be[:])
	return out
}

// msmBytes packs Fr elements into the little-endian 32-byte-per-scalar
// layout blst's multi-scalar multiplication expects.
func msmBytes(scalars []fr.Element) []byte {
	out := make([]byte, len(scalars)*ScalarSize)
	for i := range scalars {
		be := scalars[i].Bytes()
		for j := 0; j < ScalarSize/2; j++ {
			be[j], be[ScalarSize-1-j] = be[ScalarSize-1-j], be[j]
		}
		copy(out[i*ScalarSize:(i+1)*ScalarSize], be[:])
	}
	return out
}

// RandFr samples a uniform nonzero Fr element from crypto/rand.
func RandFr() (fr.Element, error) {
	var e fr.Element
	ikm := make([]byte, 32)
	for {
		if _, err := io.ReadFull(rand.Reader, ikm); err != nil {
			return e, err
		}
		sk := blst.KeyGen(ikm)
		if sk == nil {
			return e, ErrInvalidScalar
		}
		if err := e.SetBytesCanonical(sk.Serialize()); err != nil {
			return e, ErrInvalidScalar
		}
		if !e.IsZero() {
			return e, nil
		}
	}
}
