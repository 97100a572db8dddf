// Package dispatch delivers executed operations to their targets.
package dispatch

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/qvault/quorum-wallet/internal/wallet"
	"github.com/qvault/quorum-wallet/pkg/logger"
)

// Dispatcher delivers one approved operation to its target.
type Dispatcher interface {
	Dispatch(ctx context.Context, h wallet.Hash, op *wallet.Operation) error
}

// DispatchFunc adapts a function to the Dispatcher interface.
type DispatchFunc func(ctx context.Context, h wallet.Hash, op *wallet.Operation) error

func (f DispatchFunc) Dispatch(ctx context.Context, h wallet.Hash, op *wallet.Operation) error {
	return f(ctx, h, op)
}

// callBody is the JSON envelope posted to the operation's target.
type callBody struct {
	OpHash   string `json:"op_hash"`
	Value    uint64 `json:"value"`
	GasLimit uint64 `json:"gas_limit"`
	Nonce    uint64 `json:"nonce"`
	Payload  string `json:"payload"`
}

// HTTPDispatcher posts the operation payload to op.Target. The request
// deadline scales with the operation's gas limit so heavier calls get
// proportionally more time, bounded by MaxTimeout.
type HTTPDispatcher struct {
	Client      *http.Client
	BaseTimeout time.Duration
	MaxTimeout  time.Duration
}

func NewHTTPDispatcher() *HTTPDispatcher {
	return &HTTPDispatcher{
		Client:      &http.Client{},
		BaseTimeout: 500 * time.Millisecond,
		MaxTimeout:  10 * time.Second,
	}
}

func (d *HTTPDispatcher) Dispatch(ctx context.Context, h wallet.Hash, op *wallet.Operation) error {
	body, err := json.Marshal(callBody{
		OpHash:   h.String(),
		Value:    op.Value,
		GasLimit: op.GasLimit,
		Nonce:    op.Nonce,
		Payload:  hex.EncodeToString(op.Payload),
	})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeoutFor(op.GasLimit))
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, op.Target, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := d.Client.Do(req)
	if err != nil {
		logger.ErrorJ("op_dispatch", map[string]any{"op_hash": h.String(), "result": "post_error", "err": err.Error()})
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		logger.ErrorJ("op_dispatch", map[string]any{"op_hash": h.String(), "result": "remote_error", "code": resp.StatusCode})
		return fmt.Errorf("target returned %d", resp.StatusCode)
	}
	logger.InfoJ("op_dispatch", map[string]any{"op_hash": h.String(), "result": "ok", "code": resp.StatusCode})
	return nil
}

// timeoutFor grants one extra millisecond per thousand gas above base.
func (d *HTTPDispatcher) timeoutFor(gas uint64) time.Duration {
	t := d.BaseTimeout + time.Duration(gas/1000)*time.Millisecond
	if t > d.MaxTimeout {
		return d.MaxTimeout
	}
	return t
}
