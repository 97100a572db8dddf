// Package verify evaluates the mode-specific pairing equations deciding
// whether an aggregate or threshold signature authorizes an operation hash
// against the registered key set.
package verify

import (
	"fmt"

	blst "github.com/supranational/blst/bindings/go"

	"github.com/qvault/quorum-wallet/internal/bls381"
	"github.com/qvault/quorum-wallet/internal/wallet"
	"github.com/qvault/quorum-wallet/internal/wallet/keyset"
	"github.com/qvault/quorum-wallet/pkg/metrics"
)

// Verifier checks signatures against one immutable key set. A malformed
// input is an error; a well-formed signature that fails the pairing
// equation is a false result, so callers can mark the operation rejected
// instead of aborting.
type Verifier struct {
	reg *keyset.Registry
}

func New(reg *keyset.Registry) *Verifier { return &Verifier{reg: reg} }

// Verify dispatches on the registry variant. signers is consulted only for
// threshold wallets.
func (v *Verifier) Verify(msg wallet.Hash, sig []byte, signers [][]byte) (bool, error) {
	if v.reg.Variant() == keyset.VariantThreshold {
		return v.VerifyThreshold(msg, sig, signers)
	}
	return v.VerifyAggregate(msg, sig)
}

// VerifyAggregate checks the N-of-N equation
// e(gen, sig) == e(AggKey, H(msg)): only the fully-summed signature over
// all members satisfies it, because AggKey is the fixed sum of all N keys.
func (v *Verifier) VerifyAggregate(msg wallet.Hash, sig []byte) (bool, error) {
	mode := v.reg.Mode()
	if len(sig) != mode.SignatureSize() {
		return false, fmt.Errorf("%w: got %d bytes, want %d", wallet.ErrInvalidSignature, len(sig), mode.SignatureSize())
	}
	var ok bool
	switch mode {
	case wallet.ModeKeysOnG1:
		sigPt, err := bls381.DecodeG2(sig)
		if err != nil {
			return false, fmt.Errorf("%w: %v", wallet.ErrInvalidSignature, err)
		}
		agg, err := bls381.DecodeG1(v.reg.AggregatedKey())
		if err != nil {
			return false, err
		}
		h := bls381.HashToG2(msg[:], []byte(wallet.DSTMessageG2))
		ok = bls381.PairingProductIsOne(
			[]blst.P1Affine{*bls381.NegG1(bls381.GenG1()), *agg},
			[]blst.P2Affine{*sigPt, *h},
		)
	case wallet.ModeKeysOnG2:
		sigPt, err := bls381.DecodeG1(sig)
		if err != nil {
			return false, fmt.Errorf("%w: %v", wallet.ErrInvalidSignature, err)
		}
		agg, err := bls381.DecodeG2(v.reg.AggregatedKey())
		if err != nil {
			return false, err
		}
		h := bls381.HashToG1(msg[:], []byte(wallet.DSTMessageG1))
		ok = bls381.PairingProductIsOne(
			[]blst.P1Affine{*sigPt, *h},
			[]blst.P2Affine{*bls381.NegG2(bls381.GenG2()), *agg},
		)
	default:
		return false, wallet.ErrUnknownMode
	}
	metrics.Inc("wallet_verify_total", map[string]string{"variant": "multisig", "result": resultLabel(ok)})
	return ok, nil
}

// VerifyThreshold checks the M-of-N equation over the named signer subset S:
// e(-gen, sig) · e(Σ_{i∈S} pk_i, H(msg)) · e(AggKey, Σ_{i∈S} V_i) == 1.
// The threshold count is a cardinality precondition enforced before any
// cryptography; validity itself is decided entirely by the product.
func (v *Verifier) VerifyThreshold(msg wallet.Hash, sig []byte, signers [][]byte) (bool, error) {
	mode := v.reg.Mode()
	if len(sig) != mode.SignatureSize() {
		return false, fmt.Errorf("%w: got %d bytes, want %d", wallet.ErrInvalidSignature, len(sig), mode.SignatureSize())
	}
	if len(signers) < v.reg.Threshold() {
		return false, fmt.Errorf("%w: %d signers, threshold %d", wallet.ErrSignersNotEnough, len(signers), v.reg.Threshold())
	}
	members, err := v.lookupSigners(signers)
	if err != nil {
		return false, err
	}
	if len(members) < v.reg.Threshold() {
		return false, fmt.Errorf("%w: %d distinct signers, threshold %d", wallet.ErrSignersNotEnough, len(members), v.reg.Threshold())
	}

	var ok bool
	switch mode {
	case wallet.ModeKeysOnG1:
		sigPt, err := bls381.DecodeG2(sig)
		if err != nil {
			return false, fmt.Errorf("%w: %v", wallet.ErrInvalidSignature, err)
		}
		agg, err := bls381.DecodeG1(v.reg.AggregatedKey())
		if err != nil {
			return false, err
		}
		keys := make([]*blst.P1Affine, len(members))
		vps := make([]*blst.P2Affine, len(members))
		for i, m := range members {
			if keys[i], err = bls381.DecodeG1(m.PublicKey); err != nil {
				return false, err
			}
			if vps[i], err = bls381.DecodeG2(m.VerificationPoint); err != nil {
				return false, err
			}
		}
		h := bls381.HashToG2(msg[:], []byte(wallet.DSTMessageG2))
		ok = bls381.PairingProductIsOne(
			[]blst.P1Affine{*bls381.NegG1(bls381.GenG1()), *bls381.SumG1(keys), *agg},
			[]blst.P2Affine{*sigPt, *h, *bls381.SumG2(vps)},
		)
	case wallet.ModeKeysOnG2:
		sigPt, err := bls381.DecodeG1(sig)
		if err != nil {
			return false, fmt.Errorf("%w: %v", wallet.ErrInvalidSignature, err)
		}
		agg, err := bls381.DecodeG2(v.reg.AggregatedKey())
		if err != nil {
			return false, err
		}
		keys := make([]*blst.P2Affine, len(members))
		vps := make([]*blst.P1Affine, len(members))
		for i, m := range members {
			if keys[i], err = bls381.DecodeG2(m.PublicKey); err != nil {
				return false, err
			}
			if vps[i], err = bls381.DecodeG1(m.VerificationPoint); err != nil {
				return false, err
			}
		}
		h := bls381.HashToG1(msg[:], []byte(wallet.DSTMessageG1))
		ok = bls381.PairingProductIsOne(
			[]blst.P1Affine{*sigPt, *h, *bls381.SumG1(vps)},
			[]blst.P2Affine{*bls381.NegG2(bls381.GenG2()), *bls381.SumG2(keys), *agg},
		)
	default:
		return false, wallet.ErrUnknownMode
	}
	metrics.Inc("wallet_verify_total", map[string]string{"variant": "threshold", "result": resultLabel(ok)})
	return ok, nil
}

// lookupSigners resolves the named subset against the registry. Duplicate
// signers are counted once so repetition cannot satisfy the threshold.
func (v *Verifier) lookupSigners(signers [][]byte) ([]*keyset.MemberRecord, error) {
	out := make([]*keyset.MemberRecord, 0, len(signers))
	seen := make(map[string]struct{}, len(signers))
	for i, pk := range signers {
		key := keyset.KeyHash(pk)
		if _, dup := seen[key]; dup {
			continue
		}
		m, ok := v.reg.Member(pk)
		if !ok {
			return nil, fmt.Errorf("%w: signer %d", wallet.ErrUnrecognizedSigner, i)
		}
		seen[key] = struct{}{}
		out = append(out, m)
	}
	return out, nil
}

func resultLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "mismatch"
}
