package bls381

import (
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	blst "github.com/supranational/blst/bindings/go"
)

// HashToG1 maps msg into G1 under dst.
func HashToG1(msg, dst []byte) *blst.P1Affine {
	return blst.HashToG1(msg, dst, nil).ToAffine()
}

// HashToG2 maps msg into G2 under dst.
func HashToG2(msg, dst []byte) *blst.P2Affine {
	return blst.HashToG2(msg, dst, nil).ToAffine()
}

// SumG1 returns the group sum of points; the empty sum is infinity.
func SumG1(points []*blst.P1Affine) *blst.P1Affine {
	if len(points) == 0 {
		return new(blst.P1).ToAffine()
	}
	return blst.P1AffinesAdd(points).ToAffine()
}

// SumG2 returns the group sum of points; the empty sum is infinity.
func SumG2(points []*blst.P2Affine) *blst.P2Affine {
	if len(points) == 0 {
		return new(blst.P2).ToAffine()
	}
	return blst.P2AffinesAdd(points).ToAffine()
}

// MSMG1 computes Σ scalars[i]·points[i] on G1. 255 bits covers the Fr order.
func MSMG1(points []*blst.P1Affine, scalars []fr.Element) *blst.P1Affine {
	return blst.P1AffinesMult(points, msmBytes(scalars), 255).ToAffine()
}

// MSMG2 computes Σ scalars[i]·points[i] on G2.
func MSMG2(points []*blst.P2Affine, scalars []fr.Element) *blst.P2Affine {
	return blst.P2AffinesMult(points, msmBytes(scalars), 255).ToAffine()
}

// MulG1 computes s·p.
func MulG1(p *blst.P1Affine, s fr.Element) (*blst.P1Affine, error) {
	sc, err := FrToScalar(s)
	if err != nil {
		return nil, err
	}
	var full blst.P1
	full.FromAffine(p)
	return full.Mult(sc).ToAffine(), nil
}

// MulG2 computes s·p.
func MulG2(p *blst.P2Affine, s fr.Element) (*blst.P2Affine, error) {
	sc, err := FrToScalar(s)
	if err != nil {
		return nil, err
	}
	var full blst.P2
	full.FromAffine(p)
	return full.Mult(sc).ToAffine(), nil
}

// GenG1 returns the G1 generator.
func GenG1() *blst.P1Affine { return blst.P1Generator().ToAffine() }

// GenG2 returns the G2 generator.
func GenG2() *blst.P2Affine { return blst.P2Generator().ToAffine() }

// NegG1 returns -p, via subtraction from the identity.
func NegG1(p *blst.P1Affine) *blst.P1Affine {
	return new(blst.P1).Sub(p).ToAffine()
}

// NegG2 returns -p.
func NegG2(p *blst.P2Affine) *blst.P2Affine {
	return new(blst.P2).Sub(p).ToAffine()
}

// PairingProductIsOne evaluates Π e(ps[i], qs[i]) with one Miller loop and a
// final exponentiation, reporting whether the product is the identity.
func PairingProductIsOne(ps []blst.P1Affine, qs []blst.P2Affine) bool {
	if len(ps) == 0 || len(ps) != len(qs) {
		return false
	}
	ml := blst.Fp12MillerLoopN(qs, ps)
	ml.FinalExp()
	one := blst.Fp12One()
	return ml.Equals(&one)
}

// AddG1 returns p + q.
func AddG1(p, q *blst.P1Affine) *blst.P1Affine {
	return blst.P1AffinesAdd([]*blst.P1Affine{p, q}).ToAffine()
}

// AddG2 returns p + q.
func AddG2(p, q *blst.P2Affine) *blst.P2Affine {
	return blst.P2AffinesAdd([]*blst.P2Affine{p, q}).ToAffine()
}
