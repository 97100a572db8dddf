// Package ledger holds the wallet's operation records and drives them
// through the submit / verify / execute status machine. Batch calls are
// atomic: every entry is validated against a staged view first, and state
// is committed only when the whole batch passes.
package ledger

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/qvault/quorum-wallet/internal/wallet"
	"github.com/qvault/quorum-wallet/pkg/bus"
	"github.com/qvault/quorum-wallet/pkg/logger"
	"github.com/qvault/quorum-wallet/pkg/metrics"
	"github.com/qvault/quorum-wallet/pkg/trace"
)

// SigVerifier abstracts the pairing checks so the ledger can be tested
// without curve arithmetic.
type SigVerifier interface {
	Verify(msg wallet.Hash, sig []byte, signers [][]byte) (bool, error)
}

// OpStore persists operation records; the ledger writes through on every
// committed transition.
type OpStore interface {
	Save(h wallet.Hash, op *wallet.Operation) error
}

// Ledger is the replay-safe operation registry. One mutex covers the whole
// wallet: submit, verify and execute serialize against each other, and a
// contended caller gets ErrWalletBusy instead of blocking.
type Ledger struct {
	mu sync.Mutex

	mode        wallet.Mode
	thresholded bool
	threshold   int

	verifier SigVerifier
	store    OpStore
	bus      *bus.Bus
	clk      clock.Clock

	ops   map[wallet.Hash]*wallet.Operation
	order []wallet.Hash
	nonce uint64
}

func New(mode wallet.Mode, thresholded bool, threshold int, verifier SigVerifier) *Ledger {
	return &Ledger{
		mode:        mode,
		thresholded: thresholded,
		threshold:   threshold,
		verifier:    verifier,
		clk:         clock.New(),
		ops:         make(map[wallet.Hash]*wallet.Operation),
	}
}

func (l *Ledger) SetStore(s OpStore) { l.store = s }
func (l *Ledger) SetBus(b *bus.Bus)  { l.bus = b }
func (l *Ledger) SetClock(c clock.Clock) {
	l.clk = c
}

// Restore seeds the ledger from previously persisted records. Records carry
// their nonce, so submission order is nonce order; the counter resumes past
// the highest restored nonce even when the store skipped unreadable files.
func (l *Ledger) Restore(ops map[wallet.Hash]*wallet.Operation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	restored := make([]wallet.Hash, 0, len(ops))
	for h, op := range ops {
		if _, dup := l.ops[h]; dup {
			continue
		}
		l.ops[h] = op.Clone()
		restored = append(restored, h)
	}
	sort.Slice(restored, func(i, j int) bool {
		return l.ops[restored[i]].Nonce < l.ops[restored[j]].Nonce
	})
	l.order = append(l.order, restored...)
	for _, h := range restored {
		if next := l.ops[h].Nonce + 1; next > l.nonce {
			l.nonce = next
		}
	}
}

// Get returns a copy of the record for h.
func (l *Ledger) Get(h wallet.Hash) (*wallet.Operation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	op, ok := l.ops[h]
	if !ok {
		return nil, wallet.ErrUnknownOperation
	}
	return op.Clone(), nil
}

// Hashes returns stored operation hashes in submission order.
func (l *Ledger) Hashes() []wallet.Hash {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]wallet.Hash(nil), l.order...)
}

// Submit records a batch of new operations. Each entry is structurally
// validated, hash-checked against its check code, and nonce-checked against
// the ledger counter; entries carrying a signature are verified inline and
// land as Approved, the rest as Pending. Any failure rejects the whole
// batch and leaves the ledger untouched.
func (l *Ledger) Submit(ctx context.Context, ops []*wallet.Operation) ([]wallet.Hash, error) {
	if len(ops) == 0 {
		return nil, fmt.Errorf("%w: empty batch", wallet.ErrInvalidOperation)
	}
	if !l.mu.TryLock() {
		return nil, wallet.ErrWalletBusy
	}
	defer l.mu.Unlock()

	type staged struct {
		h  wallet.Hash
		op *wallet.Operation
	}
	now := l.clk.Now().Unix()
	nonce := l.nonce
	batch := make([]staged, 0, len(ops))
	seen := make(map[wallet.Hash]struct{}, len(ops))

	for i, in := range ops {
		op := in.Clone()
		if err := l.validateShape(op, now); err != nil {
			return nil, fmt.Errorf("op %d: %w", i, err)
		}
		if op.Nonce != nonce {
			return nil, fmt.Errorf("op %d: %w: got %d, want %d", i, wallet.ErrInvalidNonce, op.Nonce, nonce)
		}
		nonce++

		h := op.ComputeHash()
		if !bytes.Equal(op.HashCheckCode, wallet.CheckCode(h)) {
			return nil, fmt.Errorf("op %d: %w", i, wallet.ErrChecksumMismatch)
		}
		if _, dup := l.ops[h]; dup {
			return nil, fmt.Errorf("op %d: %w: %s", i, wallet.ErrOperationExists, h)
		}
		if _, dup := seen[h]; dup {
			return nil, fmt.Errorf("op %d: %w: %s", i, wallet.ErrOperationExists, h)
		}
		seen[h] = struct{}{}

		if len(op.Signature) > 0 {
			ok, err := l.verifier.Verify(h, op.Signature, op.Signers)
			if err != nil {
				return nil, fmt.Errorf("op %d: %w", i, err)
			}
			if !ok {
				return nil, fmt.Errorf("op %d: %w", i, wallet.ErrSignatureMismatch)
			}
			op.Status = wallet.StatusApproved
		} else {
			op.Status = wallet.StatusPending
		}
		batch = append(batch, staged{h: h, op: op})
	}

	// Commit.
	hashes := make([]wallet.Hash, 0, len(batch))
	for _, s := range batch {
		l.ops[s.h] = s.op
		l.order = append(l.order, s.h)
		l.persist(s.h, s.op)
		l.publish(ctx, s.h, wallet.StatusNone, s.op.Status)
		metrics.Inc("wallet_ops_submitted_total", map[string]string{"status": s.op.Status.String()})
		hashes = append(hashes, s.h)
	}
	l.nonce = nonce
	metrics.SetGauge("wallet_ops_stored", nil, float64(len(l.ops)))
	logger.InfoJ("ledger_submit", map[string]any{
		"count":    len(batch),
		"nonce":    l.nonce,
		"trace_id": traceOf(ctx),
	})
	return hashes, nil
}

// VerifyBatch attaches signatures to pending operations. hashes, sigs and
// signerLists are parallel arrays. The returned slice reports per-entry
// outcome: true means the operation moved to Approved, false means it was
// skipped (unknown hash, repeated in the batch, already signed, wrong
// status) or moved to Rejected on a failed pairing check. Malformed input
// errors abort the batch before any transition commits.
func (l *Ledger) VerifyBatch(ctx context.Context, hashes []wallet.Hash, sigs [][]byte, signerLists [][][]byte) ([]bool, error) {
	if len(hashes) != len(sigs) || len(hashes) != len(signerLists) {
		return nil, fmt.Errorf("%w: %d hashes, %d sigs, %d signer lists",
			wallet.ErrBatchLenMismatch, len(hashes), len(sigs), len(signerLists))
	}
	if !l.mu.TryLock() {
		return nil, wallet.ErrWalletBusy
	}
	defer l.mu.Unlock()

	type staged struct {
		h    wallet.Hash
		op   *wallet.Operation
		next wallet.Status
	}
	results := make([]bool, len(hashes))
	batch := make([]staged, 0, len(hashes))
	seen := make(map[wallet.Hash]struct{}, len(hashes))

	for i, h := range hashes {
		op, ok := l.ops[h]
		if !ok {
			continue
		}
		if _, dup := seen[h]; dup {
			continue
		}
		if op.Status != wallet.StatusPending || len(op.Signature) > 0 {
			l.publishMismatch(ctx, h, op.Status)
			continue
		}
		valid, err := l.verifier.Verify(h, sigs[i], signerLists[i])
		if err != nil {
			return nil, fmt.Errorf("op %s: %w", h, err)
		}
		next := wallet.StatusRejected
		if valid {
			next = wallet.StatusApproved
			results[i] = true
		}
		c := op.Clone()
		if valid {
			c.Signature = append([]byte(nil), sigs[i]...)
			c.Signers = cloneSigners(signerLists[i])
		}
		c.Status = next
		batch = append(batch, staged{h: h, op: c, next: next})
		seen[h] = struct{}{}
	}

	for _, s := range batch {
		old := l.ops[s.h].Status
		l.ops[s.h] = s.op
		l.persist(s.h, s.op)
		l.publish(ctx, s.h, old, s.next)
		metrics.Inc("wallet_ops_verified_total", map[string]string{"status": s.next.String()})
	}
	return results, nil
}

func (l *Ledger) validateShape(op *wallet.Operation, now int64) error {
	if op.Target == "" {
		return fmt.Errorf("%w: empty target", wallet.ErrInvalidOperation)
	}
	if op.ExpirationTime <= op.EffectiveTime {
		return fmt.Errorf("%w: expiration %d not after effective %d",
			wallet.ErrInvalidOperation, op.ExpirationTime, op.EffectiveTime)
	}
	if op.ExpirationTime <= now {
		return fmt.Errorf("%w: already expired", wallet.ErrInvalidOperation)
	}
	if op.GasLimit < wallet.MinGasLimit {
		return fmt.Errorf("%w: gas limit %d below minimum %d",
			wallet.ErrInvalidOperation, op.GasLimit, wallet.MinGasLimit)
	}
	if len(op.Payload) < wallet.MinPayloadSize {
		return fmt.Errorf("%w: payload %d bytes below minimum %d",
			wallet.ErrInvalidOperation, len(op.Payload), wallet.MinPayloadSize)
	}
	if len(op.HashCheckCode) != wallet.CheckCodeSize {
		return fmt.Errorf("%w: check code must be %d bytes",
			wallet.ErrInvalidOperation, wallet.CheckCodeSize)
	}
	if len(op.Signature) > 0 && len(op.Signature) != l.mode.SignatureSize() {
		return fmt.Errorf("%w: got %d bytes, want %d",
			wallet.ErrInvalidSignature, len(op.Signature), l.mode.SignatureSize())
	}
	// A threshold proposal naming signers (or carrying a signature that will
	// need them) must name at least M up front.
	if l.thresholded && (len(op.Signers) > 0 || len(op.Signature) > 0) && len(op.Signers) < l.threshold {
		return fmt.Errorf("%w: %d signers, threshold %d",
			wallet.ErrSignersNotEnough, len(op.Signers), l.threshold)
	}
	return nil
}

// transition moves one operation to next under the caller-held lock,
// persisting and publishing. Used by the execution engine.
func (l *Ledger) transition(ctx context.Context, h wallet.Hash, next wallet.Status) error {
	op, ok := l.ops[h]
	if !ok {
		return wallet.ErrUnknownOperation
	}
	if !wallet.CanTransition(op.Status, next) {
		return fmt.Errorf("%w: %s -> %s", wallet.ErrInvalidOperation, op.Status, next)
	}
	old := op.Status
	op.Status = next
	l.persist(h, op)
	l.publish(ctx, h, old, next)
	metrics.Inc("wallet_ops_transition_total", map[string]string{"to": next.String()})
	return nil
}

func (l *Ledger) persist(h wallet.Hash, op *wallet.Operation) {
	if l.store == nil {
		return
	}
	if err := l.store.Save(h, op); err != nil {
		logger.ErrorJ("ledger_persist_failed", map[string]any{
			"op_hash": h.String(),
			"error":   err.Error(),
		})
	}
}

func (l *Ledger) publish(ctx context.Context, h wallet.Hash, old, next wallet.Status) {
	if l.bus == nil {
		return
	}
	l.bus.Publish(ctx, bus.Event{
		Kind:    bus.KindOpStatus,
		OpHash:  h.String(),
		Old:     old.String(),
		New:     next.String(),
		TraceID: traceOf(ctx),
	})
}

func (l *Ledger) publishMismatch(ctx context.Context, h wallet.Hash, cur wallet.Status) {
	if l.bus == nil {
		return
	}
	l.bus.Publish(ctx, bus.Event{
		Kind:    bus.KindStatusMismatch,
		OpHash:  h.String(),
		Old:     cur.String(),
		TraceID: traceOf(ctx),
	})
}

func cloneSigners(in [][]byte) [][]byte {
	if in == nil {
		return nil
	}
	out := make([][]byte, len(in))
	for i, s := range in {
		out[i] = append([]byte(nil), s...)
	}
	return out
}

func traceOf(ctx context.Context) string {
	id, _ := trace.FromContext(ctx)
	return id
}
