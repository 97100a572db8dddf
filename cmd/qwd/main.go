// qwd is the quorum wallet daemon: it loads the wallet config produced by
// qw-keygen, restores the operation ledger from disk, and serves the wallet
// and monitoring HTTP endpoints until interrupted.
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/qvault/quorum-wallet/internal/api"
	"github.com/qvault/quorum-wallet/internal/dispatch"
	"github.com/qvault/quorum-wallet/internal/monitoring"
	"github.com/qvault/quorum-wallet/internal/wallet"
	"github.com/qvault/quorum-wallet/internal/wallet/keyset"
	"github.com/qvault/quorum-wallet/internal/wallet/ledger"
	"github.com/qvault/quorum-wallet/internal/wallet/store"
	"github.com/qvault/quorum-wallet/internal/wallet/verify"
	"github.com/qvault/quorum-wallet/pkg/bus"
	"github.com/qvault/quorum-wallet/pkg/lifecycle"
	"github.com/qvault/quorum-wallet/pkg/logger"
)

type walletConfig struct {
	Mode          string   `json:"mode"`
	Variant       string   `json:"variant"`
	Threshold     int      `json:"threshold,omitempty"`
	AggregatedKey string   `json:"aggregated_key"`
	PublicKeys    []string `json:"public_keys"`
	MemberIDs     []string `json:"member_ids,omitempty"`
}

func main() {
	var (
		cfgPath string
		apiAddr string
		monAddr string
		dataDir string
	)
	flag.StringVar(&cfgPath, "config", "qw-keys/wallet.json", "Wallet config file")
	flag.StringVar(&apiAddr, "wallet-api", "127.0.0.1:4700", "Wallet API listen address")
	flag.StringVar(&monAddr, "monitoring", "127.0.0.1:4720", "Monitoring listen address")
	flag.StringVar(&dataDir, "data-dir", "qw-data", "Operation store directory")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg, err := loadRegistry(cfgPath)
	if err != nil {
		logger.Error("load wallet config: " + err.Error())
		os.Exit(1)
	}
	logger.InfoJ("keyset_loaded", map[string]any{
		"mode":    reg.Mode().String(),
		"variant": reg.Variant().String(),
		"members": reg.MemberCount(),
	})

	b := bus.New(256)
	b.Publish(ctx, bus.Event{Kind: bus.KindKeySet, Body: reg.MemberCount()})

	led := ledger.New(reg.Mode(), reg.Variant() == keyset.VariantThreshold, reg.Threshold(), verify.New(reg))
	led.SetBus(b)

	st := store.New(dataDir)
	restored, err := st.LoadAll()
	if err != nil {
		logger.Error("restore operation store: " + err.Error())
		os.Exit(1)
	}
	led.Restore(restored)
	led.SetStore(st)
	logger.InfoJ("ledger_restored", map[string]any{"ops": len(restored)})

	engine := ledger.NewEngine(led, dispatch.NewHTTPDispatcher())

	m := lifecycle.New()
	m.Add(api.New(apiAddr, reg, led, engine))
	m.Add(monitoring.New(monAddr))
	if err := m.StartAll(ctx); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
	<-ctx.Done()
	_ = m.StopAll(context.Background())
}

func loadRegistry(path string) (*keyset.Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg walletConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	mode, err := wallet.ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	switch cfg.Variant {
	case "multisig":
		agg, err := hex.DecodeString(cfg.AggregatedKey)
		if err != nil {
			return nil, err
		}
		return keyset.NewMultisig(mode, agg)
	case "threshold":
		pubs, err := decodeHexList(cfg.PublicKeys)
		if err != nil {
			return nil, err
		}
		ids, err := decodeHexList(cfg.MemberIDs)
		if err != nil {
			return nil, err
		}
		return keyset.NewThreshold(mode, pubs, ids, cfg.Threshold)
	default:
		return nil, wallet.ErrUnknownMode
	}
}

func decodeHexList(in []string) ([][]byte, error) {
	out := make([][]byte, len(in))
	for i, s := range in {
		b, err := hex.DecodeString(s)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}
