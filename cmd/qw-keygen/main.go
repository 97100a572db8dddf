// qw-keygen runs the dealer ceremony for a quorum wallet and writes the
// public wallet config plus one private key file per member.
package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/qvault/quorum-wallet/internal/bls381"
	"github.com/qvault/quorum-wallet/internal/wallet"
	"github.com/qvault/quorum-wallet/internal/wallet/keyset"
)

type walletConfig struct {
	Mode          string   `json:"mode"`
	Variant       string   `json:"variant"`
	Threshold     int      `json:"threshold,omitempty"`
	AggregatedKey string   `json:"aggregated_key"`
	PublicKeys    []string `json:"public_keys"`
	MemberIDs     []string `json:"member_ids,omitempty"`
}

type memberConfig struct {
	Mode         string `json:"mode"`
	Variant      string `json:"variant"`
	Index        int    `json:"index"`
	Secret       string `json:"secret"`
	PublicKey    string `json:"public_key"`
	MemberID     string `json:"member_id,omitempty"`
	SigningPoint string `json:"signing_point,omitempty"`
}

func main() {
	var (
		modeStr string
		variant string
		n       int
		m       int
		out     string
	)
	flag.StringVar(&modeStr, "mode", "keys_g1", "Curve role: keys_g1 or keys_g2")
	flag.StringVar(&variant, "variant", "threshold", "Wallet variant: multisig or threshold")
	flag.IntVar(&n, "n", 4, "Total members")
	flag.IntVar(&m, "m", 3, "Threshold (m-of-n, threshold variant only)")
	flag.StringVar(&out, "out", "qw-keys", "Output directory")
	flag.Parse()

	mode, err := wallet.ParseMode(modeStr)
	if err != nil {
		fatal(fmt.Sprintf("invalid mode %q", modeStr))
	}

	var dealer *keyset.Dealer
	switch variant {
	case "multisig":
		dealer, err = keyset.NewMultisigDealer(mode, n)
	case "threshold":
		dealer, err = keyset.NewThresholdDealer(mode, n, m)
	default:
		fatal(fmt.Sprintf("invalid variant %q", variant))
	}
	if err != nil {
		fatal(err.Error())
	}

	// The registry round-trip re-runs the wallet's own registration
	// checks; a ceremony whose output cannot register is discarded here.
	if _, err := dealer.Registry(); err != nil {
		fatal("ceremony output failed registration: " + err.Error())
	}

	if err := os.MkdirAll(out, 0o755); err != nil {
		fatal(err.Error())
	}

	pub := walletConfig{
		Mode:          mode.String(),
		Variant:       variant,
		AggregatedKey: hex.EncodeToString(dealer.AggregatedKey),
	}
	if variant == "threshold" {
		pub.Threshold = dealer.Threshold
	}
	for _, mem := range dealer.Members {
		pub.PublicKeys = append(pub.PublicKeys, hex.EncodeToString(mem.PublicKey))
		if variant == "threshold" {
			pub.MemberIDs = append(pub.MemberIDs, hex.EncodeToString(mem.MemberID))
		}
	}
	if err := writeJSON(filepath.Join(out, "wallet.json"), pub); err != nil {
		fatal(err.Error())
	}

	for _, mem := range dealer.Members {
		cfg := memberConfig{
			Mode:      mode.String(),
			Variant:   variant,
			Index:     mem.Index,
			Secret:    hex.EncodeToString(bls381.FrBytes(mem.Secret)),
			PublicKey: hex.EncodeToString(mem.PublicKey),
		}
		if variant == "threshold" {
			cfg.MemberID = hex.EncodeToString(mem.MemberID)
			cfg.SigningPoint = hex.EncodeToString(mem.SigningPoint)
		}
		name := fmt.Sprintf("member-%d.json", mem.Index)
		if err := writeJSON(filepath.Join(out, name), cfg); err != nil {
			fatal(err.Error())
		}
	}
	fmt.Printf("wrote %s and %d member files\n", filepath.Join(out, "wallet.json"), len(dealer.Members))
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o600)
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
