// Package keyset builds and holds a wallet's registered key material: the
// single aggregated key of an N-of-N multisig wallet, or the per-member
// weight/verification records of an M-of-N threshold wallet. It also carries
// the dealer-side ceremony and the off-chain co-signing helpers that produce
// inputs satisfying the registration identities.
package keyset

import (
	"encoding/hex"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	blst "github.com/supranational/blst/bindings/go"
	"golang.org/x/crypto/sha3"
	"lukechampine.com/blake3"

	"github.com/qvault/quorum-wallet/internal/bls381"
	"github.com/qvault/quorum-wallet/internal/wallet"
	"github.com/qvault/quorum-wallet/pkg/logger"
	"github.com/qvault/quorum-wallet/pkg/metrics"
)

// Variant selects between the two wallet flavors.
type Variant uint8

const (
	VariantMultisig Variant = iota + 1
	VariantThreshold
)

func (v Variant) String() string {
	if v == VariantThreshold {
		return "threshold"
	}
	return "multisig"
}

// weightDomain separates the member weight hash from any other use of the
// same hash function.
const weightDomain = "QWALLET-V01-WEIGHT"

// MemberRecord is one registered threshold member. All fields are immutable
// after registration; the pairing identity binding MemberID to the
// aggregated key is checked once at init and never re-checked.
type MemberRecord struct {
	PublicKey         []byte // wire, key curve
	Weight            fr.Element
	VerificationPoint []byte // wire, signature curve
	MemberID          []byte // wire, signature curve
}

// Registry is an immutable wallet key set. Member rotation requires a new
// wallet instance.
type Registry struct {
	mode      wallet.Mode
	variant   Variant
	threshold int
	aggKey    []byte
	members   map[string]*MemberRecord
	order     []string
}

// KeyHash returns the registry key for a wire-encoded public key: the hex
// Keccak-256 of its bytes.
func KeyHash(pub []byte) string {
	d := sha3.NewLegacyKeccak256()
	d.Write(pub)
	return hex.EncodeToString(d.Sum(nil))
}

// NewMultisig registers the pre-aggregated public key of an N-of-N wallet.
// No per-member record is retained; membership is implicit in the sum.
func NewMultisig(mode wallet.Mode, pubKey []byte) (*Registry, error) {
	if !mode.Valid() {
		return nil, wallet.ErrUnknownMode
	}
	if len(pubKey) != mode.KeySize() {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", wallet.ErrInvalidPublicKey, len(pubKey), mode.KeySize())
	}
	if err := decodeKeyPoint(mode, pubKey); err != nil {
		return nil, fmt.Errorf("%w: %v", wallet.ErrInvalidPublicKey, err)
	}
	r := &Registry{
		mode:    mode,
		variant: VariantMultisig,
		aggKey:  append([]byte(nil), pubKey...),
	}
	logger.InfoJ("keyset", map[string]any{"op": "init", "variant": "multisig", "mode": mode.String(), "result": "ok"})
	metrics.Inc("wallet_keyset_init_total", map[string]string{"variant": "multisig", "result": "ok"})
	return r, nil
}

// NewThreshold registers an M-of-N threshold key set. The whole registration
// is atomic: any invalid input aborts with no partial state.
func NewThreshold(mode wallet.Mode, pubKeys, memberIDs [][]byte, threshold int) (*Registry, error) {
	if !mode.Valid() {
		return nil, wallet.ErrUnknownMode
	}
	n := len(pubKeys)
	if n == 0 {
		return nil, wallet.ErrEmptyPublicKey
	}
	if len(memberIDs) != n {
		return nil, fmt.Errorf("%w: %d keys, %d member ids", wallet.ErrKeyCountMismatch, n, len(memberIDs))
	}
	if threshold < 1 || threshold > n {
		return nil, fmt.Errorf("%w: m=%d n=%d", wallet.ErrThresholdOutOfRange, threshold, n)
	}
	for i, pk := range pubKeys {
		if len(pk) != mode.KeySize() {
			return nil, fmt.Errorf("%w: member %d: got %d bytes, want %d", wallet.ErrInvalidPublicKey, i, len(pk), mode.KeySize())
		}
		if err := decodeKeyPoint(mode, pk); err != nil {
			return nil, fmt.Errorf("%w: member %d: %v", wallet.ErrInvalidPublicKey, i, err)
		}
	}

	weights := MemberWeights(pubKeys)
	r := &Registry{
		mode:      mode,
		variant:   VariantThreshold,
		threshold: threshold,
		members:   make(map[string]*MemberRecord, n),
	}

	// AggregatedKey = Σ weight_i · pk_i on the key curve.
	switch mode {
	case wallet.ModeKeysOnG1:
		points := make([]*blst.P1Affine, n)
		for i, pk := range pubKeys {
			p, err := bls381.DecodeG1(pk)
			if err != nil {
				return nil, fmt.Errorf("%w: member %d", wallet.ErrInvalidPublicKey, i)
			}
			points[i] = p
		}
		agg := bls381.MSMG1(points, weights)
		r.aggKey = bls381.EncodeG1(agg)

		negGen := bls381.NegG1(bls381.GenG1())
		for i := range pubKeys {
			vp := bls381.HashToG2(bls381.FrBytes(weights[i]), []byte(wallet.DSTMemberG2))
			mid, err := bls381.DecodeG2(memberIDs[i])
			if err != nil {
				return nil, fmt.Errorf("%w: member %d", wallet.ErrInvalidMemberID, i)
			}
			// e(A, M_i) · e(-g1, V_i) == 1, i.e. the member's claimed
			// weight share was endorsed by the full key set at setup.
			if !bls381.PairingProductIsOne(
				[]blst.P1Affine{*agg, *negGen},
				[]blst.P2Affine{*mid, *vp},
			) {
				metrics.Inc("wallet_keyset_init_total", map[string]string{"variant": "threshold", "result": "member_id_mismatch"})
				return nil, fmt.Errorf("%w: member %d id does not match public key", wallet.ErrInvalidSignature, i)
			}
			r.addMember(pubKeys[i], weights[i], bls381.EncodeG2(vp), memberIDs[i])
		}

	case wallet.ModeKeysOnG2:
		points := make([]*blst.P2Affine, n)
		for i, pk := range pubKeys {
			p, err := bls381.DecodeG2(pk)
			if err != nil {
				return nil, fmt.Errorf("%w: member %d", wallet.ErrInvalidPublicKey, i)
			}
			points[i] = p
		}
		agg := bls381.MSMG2(points, weights)
		r.aggKey = bls381.EncodeG2(agg)

		negGen := bls381.NegG2(bls381.GenG2())
		for i := range pubKeys {
			vp := bls381.HashToG1(bls381.FrBytes(weights[i]), []byte(wallet.DSTMemberG1))
			mid, err := bls381.DecodeG1(memberIDs[i])
			if err != nil {
				return nil, fmt.Errorf("%w: member %d", wallet.ErrInvalidMemberID, i)
			}
			if !bls381.PairingProductIsOne(
				[]blst.P1Affine{*mid, *vp},
				[]blst.P2Affine{*agg, *negGen},
			) {
				metrics.Inc("wallet_keyset_init_total", map[string]string{"variant": "threshold", "result": "member_id_mismatch"})
				return nil, fmt.Errorf("%w: member %d id does not match public key", wallet.ErrInvalidSignature, i)
			}
			r.addMember(pubKeys[i], weights[i], bls381.EncodeG1(vp), memberIDs[i])
		}
	}

	logger.InfoJ("keyset", map[string]any{"op": "init", "variant": "threshold", "mode": mode.String(), "n": n, "m": threshold, "result": "ok"})
	metrics.Inc("wallet_keyset_init_total", map[string]string{"variant": "threshold", "result": "ok"})
	return r, nil
}

func (r *Registry) addMember(pub []byte, w fr.Element, vp, mid []byte) {
	key := KeyHash(pub)
	r.members[key] = &MemberRecord{
		PublicKey:         append([]byte(nil), pub...),
		Weight:            w,
		VerificationPoint: vp,
		MemberID:          append([]byte(nil), mid...),
	}
	r.order = append(r.order, key)
}

// MemberWeights derives every member's weight scalar. Each weight binds the
// member's key to the entire key set: blake3(domain || pk_i || pk_1‖…‖pk_n)
// reduced into Fr, so weights cannot be forged independent of membership.
func MemberWeights(pubKeys [][]byte) []fr.Element {
	out := make([]fr.Element, len(pubKeys))
	for i, pk := range pubKeys {
		h := blake3.New(32, nil)
		h.Write([]byte(weightDomain))
		h.Write(pk)
		for _, other := range pubKeys {
			h.Write(other)
		}
		out[i] = bls381.ReduceToFr(h.Sum(nil))
	}
	return out
}

func decodeKeyPoint(mode wallet.Mode, pub []byte) error {
	if mode == wallet.ModeKeysOnG2 {
		_, err := bls381.DecodeG2(pub)
		return err
	}
	_, err := bls381.DecodeG1(pub)
	return err
}

func (r *Registry) Mode() wallet.Mode { return r.mode }
func (r *Registry) Variant() Variant  { return r.variant }

// Threshold returns M for threshold wallets and 0 otherwise.
func (r *Registry) Threshold() int { return r.threshold }

// MemberCount returns N for threshold wallets and 0 otherwise.
func (r *Registry) MemberCount() int { return len(r.order) }

// AggregatedKey returns the wire-encoded aggregated public key.
func (r *Registry) AggregatedKey() []byte { return append([]byte(nil), r.aggKey...) }

// Member looks up the record registered for a wire-encoded public key.
func (r *Registry) Member(pub []byte) (*MemberRecord, bool) {
	m, ok := r.members[KeyHash(pub)]
	return m, ok
}

// Members returns the records in registration order.
func (r *Registry) Members() []*MemberRecord {
	out := make([]*MemberRecord, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.members[k])
	}
	return out
}
