package keyset

import (
	blst "github.com/supranational/blst/bindings/go"

	"github.com/qvault/quorum-wallet/internal/bls381"
	"github.com/qvault/quorum-wallet/internal/wallet"
)

// Off-chain co-signing. Holders sign the canonical operation hash; partial
// signatures are points on the signature curve and combine by group
// addition. The wallet only ever sees the combined wire signature.

// HashMessage maps an operation hash onto the signature curve for the mode.
func HashMessage(mode wallet.Mode, msg []byte) []byte {
	if mode == wallet.ModeKeysOnG2 {
		return bls381.EncodeG1(bls381.HashToG1(msg, []byte(wallet.DSTMessageG1)))
	}
	return bls381.EncodeG2(bls381.HashToG2(msg, []byte(wallet.DSTMessageG2)))
}

// SignShare produces a multisig partial signature H(msg)^secret.
func SignShare(mode wallet.Mode, m Member, msg []byte) ([]byte, error) {
	switch mode {
	case wallet.ModeKeysOnG2:
		h := bls381.HashToG1(msg, []byte(wallet.DSTMessageG1))
		p, err := bls381.MulG1(h, m.Secret)
		if err != nil {
			return nil, err
		}
		return bls381.EncodeG1(p), nil
	default:
		h := bls381.HashToG2(msg, []byte(wallet.DSTMessageG2))
		p, err := bls381.MulG2(h, m.Secret)
		if err != nil {
			return nil, err
		}
		return bls381.EncodeG2(p), nil
	}
}

// SignThresholdShare produces a threshold partial signature
// H(msg)^secret + SigningPoint. Summing the shares of any signer subset
// balances the three-term pairing product checked at verification.
func SignThresholdShare(mode wallet.Mode, m Member, msg []byte) ([]byte, error) {
	if len(m.SigningPoint) == 0 {
		return nil, wallet.ErrInvalidSignature
	}
	switch mode {
	case wallet.ModeKeysOnG2:
		h := bls381.HashToG1(msg, []byte(wallet.DSTMessageG1))
		p, err := bls381.MulG1(h, m.Secret)
		if err != nil {
			return nil, err
		}
		sp, err := bls381.DecodeG1(m.SigningPoint)
		if err != nil {
			return nil, err
		}
		return bls381.EncodeG1(bls381.AddG1(p, sp)), nil
	default:
		h := bls381.HashToG2(msg, []byte(wallet.DSTMessageG2))
		p, err := bls381.MulG2(h, m.Secret)
		if err != nil {
			return nil, err
		}
		sp, err := bls381.DecodeG2(m.SigningPoint)
		if err != nil {
			return nil, err
		}
		return bls381.EncodeG2(bls381.AddG2(p, sp)), nil
	}
}

// CombineShares sums wire-encoded partial signatures into the final
// signature blob submitted to the wallet.
func CombineShares(mode wallet.Mode, shares [][]byte) ([]byte, error) {
	if len(shares) == 0 {
		return nil, wallet.ErrInvalidSignature
	}
	switch mode {
	case wallet.ModeKeysOnG2:
		points := make([]*blst.P1Affine, len(shares))
		for i, s := range shares {
			p, err := bls381.DecodeG1(s)
			if err != nil {
				return nil, err
			}
			points[i] = p
		}
		return bls381.EncodeG1(bls381.SumG1(points)), nil
	default:
		points := make([]*blst.P2Affine, len(shares))
		for i, s := range shares {
			p, err := bls381.DecodeG2(s)
			if err != nil {
				return nil, err
			}
			points[i] = p
		}
		return bls381.EncodeG2(bls381.SumG2(points)), nil
	}
}
