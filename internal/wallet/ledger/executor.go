package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/qvault/quorum-wallet/internal/wallet"
	"github.com/qvault/quorum-wallet/pkg/logger"
	"github.com/qvault/quorum-wallet/pkg/metrics"
)

// Dispatcher delivers an approved operation to its target. A dispatch
// error marks the operation Failed; it does not fail the batch call.
type Dispatcher interface {
	Dispatch(ctx context.Context, h wallet.Hash, op *wallet.Operation) error
}

// Engine executes approved operations. It shares the ledger's mutex, so
// execution cannot interleave with submit or verify, and a re-entrant
// call observes ErrWalletBusy.
type Engine struct {
	led        *Ledger
	dispatcher Dispatcher
}

func NewEngine(led *Ledger, d Dispatcher) *Engine {
	return &Engine{led: led, dispatcher: d}
}

// ExecuteBatch runs the named operations in order. Each must be Approved
// and inside its [effective, expiration) window at execution time. An
// operation past expiration moves to Expired before the error is returned;
// that transition is one-way, the operation can never execute afterwards.
// A not-yet-effective operation keeps its Approved status and may be
// retried. The first precondition failure aborts the remainder of the
// batch; operations already dispatched stay dispatched.
func (e *Engine) ExecuteBatch(ctx context.Context, hashes []wallet.Hash) error {
	if !e.led.mu.TryLock() {
		return wallet.ErrWalletBusy
	}
	defer e.led.mu.Unlock()

	for _, h := range hashes {
		if err := e.executeOne(ctx, h); err != nil {
			return fmt.Errorf("op %s: %w", h, err)
		}
	}
	return nil
}

func (e *Engine) executeOne(ctx context.Context, h wallet.Hash) error {
	op, ok := e.led.ops[h]
	if !ok {
		return wallet.ErrUnknownOperation
	}
	if op.Status != wallet.StatusApproved {
		return &wallet.UnapprovedError{Status: op.Status}
	}

	now := e.led.clk.Now().Unix()
	if now < op.EffectiveTime {
		return wallet.ErrNotYetEffective
	}
	if now >= op.ExpirationTime {
		if err := e.led.transition(ctx, h, wallet.StatusExpired); err != nil {
			return err
		}
		return wallet.ErrOperationExpired
	}

	if err := e.led.transition(ctx, h, wallet.StatusExecuting); err != nil {
		return err
	}

	start := time.Now()
	dispatchErr := e.dispatcher.Dispatch(ctx, h, op.Clone())
	metrics.ObserveSummary("wallet_execute_seconds", nil, time.Since(start).Seconds())

	final := wallet.StatusExecuted
	if dispatchErr != nil {
		final = wallet.StatusFailed
		logger.ErrorJ("op_dispatch_failed", map[string]any{
			"op_hash": h.String(),
			"target":  op.Target,
			"error":   dispatchErr.Error(),
		})
	}
	if err := e.led.transition(ctx, h, final); err != nil {
		return err
	}
	logger.InfoJ("op_executed", map[string]any{
		"op_hash": h.String(),
		"target":  op.Target,
		"status":  final.String(),
	})
	return nil
}
