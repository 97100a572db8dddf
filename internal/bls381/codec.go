package bls381

import (
	blst "github.com/supranational/blst/bindings/go"
)

// Wire layout note: blst affine serialization is big-endian field elements
// in the order [X, Y] for G1 and [X.c1, X.c0, Y.c1, Y.c0] for G2, while the
// wire format carries (X, Y) and (X.c0, X.c1, Y.c0, Y.c1) as 64-byte
// padded limbs. The codecs below reorder limbs accordingly.

func checkLimbs(wire []byte) bool {
	for off := 0; off < len(wire); off += limbSize {
		if !IsZero(wire[off : off+padSize]) {
			return false
		}
	}
	return true
}

// DecodeG1 parses a 128-byte wire G1 point and enforces subgroup membership.
func DecodeG1(wire []byte) (*blst.P1Affine, error) {
	if len(wire) != G1WireSize || IsZero(wire) || !checkLimbs(wire) {
		return nil, ErrInvalidPoint
	}
	raw := make([]byte, g1RawSize)
	copy(raw[0:feSize], wire[padSize:limbSize])
	copy(raw[feSize:g1RawSize], wire[limbSize+padSize:G1WireSize])
	p := new(blst.P1Affine).Deserialize(raw)
	if p == nil || !p.InG1() {
		return nil, ErrInvalidPoint
	}
	return p, nil
}

// EncodeG1 serializes a G1 point into the 128-byte wire form.
func EncodeG1(p *blst.P1Affine) []byte {
	raw := p.Serialize()
	wire := make([]byte, G1WireSize)
	copy(wire[padSize:limbSize], raw[0:feSize])
	copy(wire[limbSize+padSize:G1WireSize], raw[feSize:g1RawSize])
	return wire
}

// DecodeG2 parses a 256-byte wire G2 point and enforces subgroup membership.
func DecodeG2(wire []byte) (*blst.P2Affine, error) {
	if len(wire) != G2WireSize || IsZero(wire) || !checkLimbs(wire) {
		return nil, ErrInvalidPoint
	}
	raw := make([]byte, g2RawSize)
	copy(raw[0:feSize], wire[1*limbSize+padSize:2*limbSize])       // X.c1
	copy(raw[feSize:2*feSize], wire[0*limbSize+padSize:1*limbSize]) // X.c0
	copy(raw[2*feSize:3*feSize], wire[3*limbSize+padSize:4*limbSize]) // Y.c1
	copy(raw[3*feSize:4*feSize], wire[2*limbSize+padSize:3*limbSize]) // Y.c0
	p := new(blst.P2Affine).Deserialize(raw)
	if p == nil || !p.InG2() {
		return nil, ErrInvalidPoint
	}
	return p, nil
}

// EncodeG2 serializes a G2 point into the 256-byte wire form.
func EncodeG2(p *blst.P2Affine) []byte {
	raw := p.Serialize()
	wire := make([]byte, G2WireSize)
	copy(wire[0*limbSize+padSize:1*limbSize], raw[feSize:2*feSize])   // X.c0
	copy(wire[1*limbSize+padSize:2*limbSize], raw[0:feSize])          // X.c1
	copy(wire[2*limbSize+padSize:3*limbSize], raw[3*feSize:4*feSize]) // Y.c0
	copy(wire[3*limbSize+padSize:4*limbSize], raw[2*feSize:3*feSize]) // Y.c1
	return wire
}
