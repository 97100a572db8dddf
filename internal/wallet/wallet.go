// Package wallet holds the shared vocabulary of the quorum wallet: the
// curve-role mode, the operation record and its canonical hash, the status
// state machine, and the error taxonomy used across registry, ledger and
// execution engine.
package wallet

import "github.com/qvault/quorum-wallet/internal/bls381"

// Mode fixes which curve carries public keys and which carries signatures.
// It is chosen at initialization and immutable thereafter.
type Mode uint8

const (
	ModeUnknown Mode = iota
	// ModeKeysOnG1: public keys on G1 (128-byte wire), signatures,
	// message points and verification points on G2 (256-byte wire).
	ModeKeysOnG1
	// ModeKeysOnG2: the mirror assignment.
	ModeKeysOnG2
)

func (m Mode) String() string {
	switch m {
	case ModeKeysOnG1:
		return "keys_g1"
	case ModeKeysOnG2:
		return "keys_g2"
	default:
		return "unknown"
	}
}

// KeySize returns the wire size of a public key for the mode.
func (m Mode) KeySize() int {
	if m == ModeKeysOnG2 {
		return bls381.G2WireSize
	}
	return bls381.G1WireSize
}

// SignatureSize returns the wire size of a signature for the mode.
func (m Mode) SignatureSize() int {
	if m == ModeKeysOnG2 {
		return bls381.G1WireSize
	}
	return bls381.G2WireSize
}

// Valid reports whether m is one of the two operating modes.
func (m Mode) Valid() bool { return m == ModeKeysOnG1 || m == ModeKeysOnG2 }

// ParseMode maps a config string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "keys_g1":
		return ModeKeysOnG1, nil
	case "keys_g2":
		return ModeKeysOnG2, nil
	default:
		return ModeUnknown, ErrUnknownMode
	}
}

// Hash-to-curve domain separation tags. Message points and member
// verification points live in distinct domains so neither can be replayed
// as the other.
const (
	DSTMessageG1 = "QWALLET-V01-MSG-BLS12381G1_XMD:SHA-256_SSWU_RO_"
	DSTMessageG2 = "QWALLET-V01-MSG-BLS12381G2_XMD:SHA-256_SSWU_RO_"
	DSTMemberG1  = "QWALLET-V01-MBR-BLS12381G1_XMD:SHA-256_SSWU_RO_"
	DSTMemberG2  = "QWALLET-V01-MBR-BLS12381G2_XMD:SHA-256_SSWU_RO_"
)
