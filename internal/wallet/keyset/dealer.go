package keyset

import (
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	blst "github.com/supranational/blst/bindings/go"

	"github.com/qvault/quorum-wallet/internal/bls381"
	"github.com/qvault/quorum-wallet/internal/wallet"
)

// Member is one key holder's material as produced by the dealer ceremony.
// Secret and SigningPoint are private to the member; PublicKey and MemberID
// are the registration inputs.
type Member struct {
	Index     int
	Secret    fr.Element
	PublicKey []byte
	// MemberID = VerificationPoint^(1/a) where a = Σ weight_j·secret_j.
	// Satisfies the registration identity e(MemberID, AggKey) == e(V, gen).
	// Threshold wallets only.
	MemberID []byte
	// SigningPoint = VerificationPoint^a, the member's additive share of
	// the pairing-balance term in a threshold signature. Threshold only.
	SigningPoint []byte
}

// Dealer is the trusted-ceremony output for one wallet instance. Production
// deployments run this once, distribute Member records, and discard the
// dealer state; tests use it to mint verifiable fixtures.
type Dealer struct {
	Mode          wallet.Mode
	Variant       Variant
	Threshold     int
	Members       []Member
	AggregatedKey []byte
}

// NewMultisigDealer samples n key holders for an N-of-N wallet and returns
// their aggregated key (the plain sum of all public keys).
func NewMultisigDealer(mode wallet.Mode, n int) (*Dealer, error) {
	if !mode.Valid() {
		return nil, wallet.ErrUnknownMode
	}
	if n < 1 {
		return nil, wallet.ErrEmptyPublicKey
	}
	d := &Dealer{Mode: mode, Variant: VariantMultisig, Members: make([]Member, n)}
	ones := make([]fr.Element, n)
	for i := 0; i < n; i++ {
		sk, err := bls381.RandFr()
		if err != nil {
			return nil, err
		}
		pub, err := keyPoint(mode, sk)
		if err != nil {
			return nil, err
		}
		d.Members[i] = Member{Index: i, Secret: sk, PublicKey: pub}
		ones[i].SetOne()
	}
	agg, err := sumKeys(mode, d.publicKeys(), ones)
	if err != nil {
		return nil, err
	}
	d.AggregatedKey = agg
	return d, nil
}

// NewThresholdDealer samples n key holders for an M-of-N wallet, derives the
// set-bound weights, and computes each member's MemberID and SigningPoint
// against the weighted aggregate a = Σ weight_i·secret_i.
func NewThresholdDealer(mode wallet.Mode, n, m int) (*Dealer, error) {
	if !mode.Valid() {
		return nil, wallet.ErrUnknownMode
	}
	if n < 1 {
		return nil, wallet.ErrEmptyPublicKey
	}
	if m < 1 || m > n {
		return nil, wallet.ErrThresholdOutOfRange
	}
	d := &Dealer{Mode: mode, Variant: VariantThreshold, Threshold: m, Members: make([]Member, n)}
	for i := 0; i < n; i++ {
		sk, err := bls381.RandFr()
		if err != nil {
			return nil, err
		}
		pub, err := keyPoint(mode, sk)
		if err != nil {
			return nil, err
		}
		d.Members[i] = Member{Index: i, Secret: sk, PublicKey: pub}
	}

	pubs := d.publicKeys()
	weights := MemberWeights(pubs)

	var a fr.Element
	for i := range d.Members {
		var term fr.Element
		term.Mul(&weights[i], &d.Members[i].Secret)
		a.Add(&a, &term)
	}
	if a.IsZero() {
		return nil, bls381.ErrInvalidScalar
	}
	var aInv fr.Element
	aInv.Inverse(&a)

	agg, err := sumKeys(mode, pubs, weights)
	if err != nil {
		return nil, err
	}
	d.AggregatedKey = agg

	for i := range d.Members {
		wb := bls381.FrBytes(weights[i])
		switch mode {
		case wallet.ModeKeysOnG1:
			vp := bls381.HashToG2(wb, []byte(wallet.DSTMemberG2))
			mid, err := bls381.MulG2(vp, aInv)
			if err != nil {
				return nil, err
			}
			sp, err := bls381.MulG2(vp, a)
			if err != nil {
				return nil, err
			}
			d.Members[i].MemberID = bls381.EncodeG2(mid)
			d.Members[i].SigningPoint = bls381.EncodeG2(sp)
		case wallet.ModeKeysOnG2:
			vp := bls381.HashToG1(wb, []byte(wallet.DSTMemberG1))
			mid, err := bls381.MulG1(vp, aInv)
			if err != nil {
				return nil, err
			}
			sp, err := bls381.MulG1(vp, a)
			if err != nil {
				return nil, err
			}
			d.Members[i].MemberID = bls381.EncodeG1(mid)
			d.Members[i].SigningPoint = bls381.EncodeG1(sp)
		}
	}
	return d, nil
}

// Registry builds the wallet-side registry from the ceremony output,
// exercising the same validation path production registration uses.
func (d *Dealer) Registry() (*Registry, error) {
	if d.Variant == VariantMultisig {
		return NewMultisig(d.Mode, d.AggregatedKey)
	}
	return NewThreshold(d.Mode, d.publicKeys(), d.memberIDs(), d.Threshold)
}

func (d *Dealer) publicKeys() [][]byte {
	out := make([][]byte, len(d.Members))
	for i := range d.Members {
		out[i] = d.Members[i].PublicKey
	}
	return out
}

func (d *Dealer) memberIDs() [][]byte {
	out := make([][]byte, len(d.Members))
	for i := range d.Members {
		out[i] = d.Members[i].MemberID
	}
	return out
}

func keyPoint(mode wallet.Mode, sk fr.Element) ([]byte, error) {
	if mode == wallet.ModeKeysOnG2 {
		p, err := bls381.MulG2(bls381.GenG2(), sk)
		if err != nil {
			return nil, err
		}
		return bls381.EncodeG2(p), nil
	}
	p, err := bls381.MulG1(bls381.GenG1(), sk)
	if err != nil {
		return nil, err
	}
	return bls381.EncodeG1(p), nil
}

func sumKeys(mode wallet.Mode, pubs [][]byte, scalars []fr.Element) ([]byte, error) {
	switch mode {
	case wallet.ModeKeysOnG2:
		points := make([]*blst.P2Affine, len(pubs))
		for i, pk := range pubs {
			p, err := bls381.DecodeG2(pk)
			if err != nil {
				return nil, err
			}
			points[i] = p
		}
		return bls381.EncodeG2(bls381.MSMG2(points, scalars)), nil
	default:
		points := make([]*blst.P1Affine, len(pubs))
		for i, pk := range pubs {
			p, err := bls381.DecodeG1(pk)
			if err != nil {
				return nil, err
			}
			points[i] = p
		}
		return bls381.EncodeG1(bls381.MSMG1(points, scalars)), nil
	}
}
