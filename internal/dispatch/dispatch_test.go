package dispatch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/qvault/quorum-wallet/internal/wallet"
)

func dispatchOp(target string) (*wallet.Operation, wallet.Hash) {
	op := &wallet.Operation{
		Target:         target,
		Value:          5,
		EffectiveTime:  1,
		ExpirationTime: 2,
		GasLimit:       wallet.MinGasLimit,
		Nonce:          3,
		Payload:        []byte{0xca, 0xfe, 0xba, 0xbe},
	}
	return op, op.ComputeHash()
}

func TestHTTPDispatcher_PostsEnvelope(t *testing.T) {
	var got callBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type %s", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("unmarshal: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	op, h := dispatchOp(srv.URL)
	if err := NewHTTPDispatcher().Dispatch(context.Background(), h, op); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if got.OpHash != h.String() || got.Nonce != op.Nonce || got.Payload != "cafebabe" {
		t.Fatalf("envelope %+v", got)
	}
}

func TestHTTPDispatcher_RemoteErrorFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "revert", http.StatusInternalServerError)
	}))
	defer srv.Close()

	op, h := dispatchOp(srv.URL)
	if err := NewHTTPDispatcher().Dispatch(context.Background(), h, op); err == nil {
		t.Fatal("5xx response did not fail dispatch")
	}
}

func TestHTTPDispatcher_UnreachableTargetFails(t *testing.T) {
	op, h := dispatchOp("http://127.0.0.1:1/unreachable")
	if err := NewHTTPDispatcher().Dispatch(context.Background(), h, op); err == nil {
		t.Fatal("unreachable target did not fail dispatch")
	}
}

func TestHTTPDispatcher_TimeoutScalesWithGas(t *testing.T) {
	d := NewHTTPDispatcher()
	if got := d.timeoutFor(wallet.MinGasLimit); got <= d.BaseTimeout {
		t.Fatalf("timeout %v did not grow with gas", got)
	}
	if got := d.timeoutFor(1 << 62); got != d.MaxTimeout {
		t.Fatalf("timeout %v exceeds cap", got)
	}
}

func TestDispatchFunc_Adapts(t *testing.T) {
	called := false
	var d Dispatcher = DispatchFunc(func(ctx context.Context, h wallet.Hash, op *wallet.Operation) error {
		called = true
		return nil
	})
	op, h := dispatchOp("http://example.invalid")
	if err := d.Dispatch(context.Background(), h, op); err != nil || !called {
		t.Fatalf("called=%v err=%v", called, err)
	}
}
