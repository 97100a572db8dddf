package bls381

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeG1_Roundtrip(t *testing.T) {
	gen := GenG1()
	wire := EncodeG1(gen)
	if len(wire) != G1WireSize {
		t.Fatalf("wire size %d, want %d", len(wire), G1WireSize)
	}
	back, err := DecodeG1(wire)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(EncodeG1(back), wire) {
		t.Fatal("roundtrip mismatch")
	}
}

func TestEncodeDecodeG2_Roundtrip(t *testing.T) {
	gen := GenG2()
	wire := EncodeG2(gen)
	if len(wire) != G2WireSize {
		t.Fatalf("wire size %d, want %d", len(wire), G2WireSize)
	}
	back, err := DecodeG2(wire)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(EncodeG2(back), wire) {
		t.Fatal("roundtrip mismatch")
	}
}

func TestDecodeG1_RejectZeroSentinel(t *testing.T) {
	if _, err := DecodeG1(make([]byte, G1WireSize)); err == nil {
		t.Fatal("all-zero wire accepted")
	}
}

func TestDecodeG2_RejectZeroSentinel(t *testing.T) {
	if _, err := DecodeG2(make([]byte, G2WireSize)); err == nil {
		t.Fatal("all-zero wire accepted")
	}
}

func TestDecodeG1_RejectBadPadding(t *testing.T) {
	wire := EncodeG1(GenG1())
	wire[0] = 1 // padding bytes of the first limb must stay zero
	if _, err := DecodeG1(wire); err == nil {
		t.Fatal("non-zero padding accepted")
	}
}

func TestDecodeG2_RejectBadPadding(t *testing.T) {
	wire := EncodeG2(GenG2())
	wire[limbSize] = 1
	if _, err := DecodeG2(wire); err == nil {
		t.Fatal("non-zero padding accepted")
	}
}

func TestDecodeG1_RejectWrongLength(t *testing.T) {
	wire := EncodeG1(GenG1())
	if _, err := DecodeG1(wire[:G1WireSize-1]); err == nil {
		t.Fatal("truncated wire accepted")
	}
	if _, err := DecodeG1(append(wire, 0)); err == nil {
		t.Fatal("oversized wire accepted")
	}
}

func TestDecodeG1_RejectNotOnCurve(t *testing.T) {
	wire := EncodeG1(GenG1())
	wire[G1WireSize-1] ^= 1 // perturb Y
	if _, err := DecodeG1(wire); err == nil {
		t.Fatal("off-curve point accepted")
	}
}

func FuzzDecodeG1_NoPanic(f *testing.F) {
	f.Add(make([]byte, G1WireSize))
	f.Add(EncodeG1(GenG1()))
	f.Fuzz(func(t *testing.T, b []byte) {
		p, err := DecodeG1(b)
		if err == nil {
			// anything accepted must re-encode to the same bytes
			if !bytes.Equal(EncodeG1(p), b) {
				t.Fatal("accepted wire does not roundtrip")
			}
		}
	})
}

func FuzzDecodeG2_NoPanic(f *testing.F) {
	f.Add(make([]byte, G2WireSize))
	f.Add(EncodeG2(GenG2()))
	f.Fuzz(func(t *testing.T, b []byte) {
		p, err := DecodeG2(b)
		if err == nil {
			if !bytes.Equal(EncodeG2(p), b) {
				t.Fatal("accepted wire does not roundtrip")
			}
		}
	})
}
