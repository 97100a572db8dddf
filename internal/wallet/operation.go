package wallet

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// HashSize is the size of a canonical operation hash.
const HashSize = 32

// CheckCodeSize is the size of the redundant hash check code: the low
// (trailing) 8 bytes of the operation hash, supplied by the proposer and
// cross-checked on submission.
const CheckCodeSize = 8

// Validation floors for proposed operations.
const (
	MinGasLimit    = 21000
	MinPayloadSize = 4
)

// Hash is a canonical operation identity.
type Hash [HashSize]byte

func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// HashFromHex parses a 64-character hex operation hash.
func HashFromHex(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != HashSize {
		return h, fmt.Errorf("%w: %q", ErrMalformedHash, s)
	}
	copy(h[:], b)
	return h, nil
}

// Operation is a proposed external action subject to quorum authorization.
// Identity is the hash of the seven payload fields; Status, Signature and
// Signers are lifecycle state mutated by the ledger and engine only.
type Operation struct {
	Target         string
	Value          uint64
	EffectiveTime  int64
	ExpirationTime int64
	GasLimit       uint64
	Nonce          uint64
	Payload        []byte

	Status        Status
	HashCheckCode []byte
	Signature     []byte
	Signers       [][]byte // threshold mode only; wire-encoded member keys
}

// ComputeHash returns the Keccak-256 of the ordered concatenation
// target || value || effectiveTime || expirationTime || gasLimit || nonce ||
// payload, with integers big-endian 8-byte. Off-chain co-signers must
// reproduce this byte ordering exactly.
func (op *Operation) ComputeHash() Hash {
	d := sha3.NewLegacyKeccak256()
	var u [8]byte
	d.Write([]byte(op.Target))
	binary.BigEndian.PutUint64(u[:], op.Value)
	d.Write(u[:])
	binary.BigEndian.PutUint64(u[:], uint64(op.EffectiveTime))
	d.Write(u[:])
	binary.BigEndian.PutUint64(u[:], uint64(op.ExpirationTime))
	d.Write(u[:])
	binary.BigEndian.PutUint64(u[:], op.GasLimit)
	d.Write(u[:])
	binary.BigEndian.PutUint64(u[:], op.Nonce)
	d.Write(u[:])
	d.Write(op.Payload)
	var h Hash
	d.Sum(h[:0])
	return h
}

// CheckCode returns the low 8 bytes of h.
func CheckCode(h Hash) []byte {
	out := make([]byte, CheckCodeSize)
	copy(out, h[HashSize-CheckCodeSize:])
	return out
}

// Clone returns a deep copy; the ledger hands copies out so callers cannot
// mutate stored records.
func (op *Operation) Clone() *Operation {
	cp := *op
	cp.Payload = append([]byte(nil), op.Payload...)
	cp.HashCheckCode = append([]byte(nil), op.HashCheckCode...)
	cp.Signature = append([]byte(nil), op.Signature...)
	if op.Signers != nil {
		cp.Signers = make([][]byte, len(op.Signers))
		for i, s := range op.Signers {
			cp.Signers[i] = append([]byte(nil), s...)
		}
	}
	return &cp
}
