package api

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/qvault/quorum-wallet/internal/wallet"
	"github.com/qvault/quorum-wallet/internal/wallet/keyset"
	"github.com/qvault/quorum-wallet/internal/wallet/ledger"
	"github.com/qvault/quorum-wallet/internal/wallet/verify"
)

const testBase = int64(5_000_000)

type fixture struct {
	dealer *keyset.Dealer
	led    *ledger.Ledger
	srv    *httptest.Server
	clock  *clock.Mock
	calls  *int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	d, err := keyset.NewMultisigDealer(wallet.ModeKeysOnG1, 2)
	if err != nil {
		t.Fatalf("dealer: %v", err)
	}
	reg, err := d.Registry()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	led := ledger.New(reg.Mode(), false, 0, verify.New(reg))
	mock := clock.NewMock()
	mock.Set(time.Unix(testBase, 0))
	led.SetClock(mock)

	stub := &dispatchStub{}
	eng := ledger.NewEngine(led, stub)
	svc := New("127.0.0.1:0", reg, led, eng)
	srv := httptest.NewServer(withTrace(svc.routes()))
	t.Cleanup(srv.Close)
	return &fixture{dealer: d, led: led, srv: srv, clock: mock, calls: &stub.calls}
}

type dispatchStub struct{ calls int }

func (s *dispatchStub) Dispatch(_ context.Context, _ wallet.Hash, _ *wallet.Operation) error {
	s.calls++
	return nil
}

func (f *fixture) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(f.srv.URL+path, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post %s: %v", path, err)
	}
	return resp
}

func (f *fixture) operationDTO(t *testing.T, nonce uint64, sign bool) operationDTO {
	t.Helper()
	op := &wallet.Operation{
		Target:         "http://127.0.0.1:9000/call",
		Value:          1,
		EffectiveTime:  testBase - 10,
		ExpirationTime: testBase + 1000,
		GasLimit:       wallet.MinGasLimit,
		Nonce:          nonce,
		Payload:        []byte{1, 2, 3, 4},
	}
	h := op.ComputeHash()
	dto := operationDTO{
		Target:         op.Target,
		Value:          op.Value,
		EffectiveTime:  op.EffectiveTime,
		ExpirationTime: op.ExpirationTime,
		GasLimit:       op.GasLimit,
		Nonce:          op.Nonce,
		Payload:        hex.EncodeToString(op.Payload),
		HashCheckCode:  hex.EncodeToString(wallet.CheckCode(h)),
	}
	if sign {
		shares := make([][]byte, len(f.dealer.Members))
		for i, m := range f.dealer.Members {
			s, err := keyset.SignShare(f.dealer.Mode, m, h[:])
			if err != nil {
				t.Fatalf("share: %v", err)
			}
			shares[i] = s
		}
		sig, err := keyset.CombineShares(f.dealer.Mode, shares)
		if err != nil {
			t.Fatalf("combine: %v", err)
		}
		dto.Signature = hex.EncodeToString(sig)
	}
	return dto
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

func TestAPI_SubmitVerifyExecuteFlow(t *testing.T) {
	f := newFixture(t)

	// submit unsigned, lands pending
	resp := f.post(t, "/wallet/v1/operations", submitRequest{Operations: []operationDTO{f.operationDTO(t, 0, false)}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit status %d", resp.StatusCode)
	}
	sub := decodeBody[submitResponse](t, resp)
	if len(sub.Hashes) != 1 {
		t.Fatalf("%d hashes", len(sub.Hashes))
	}
	hash := sub.Hashes[0]

	got, err := http.Get(f.srv.URL + "/wallet/v1/operations/" + hash)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	dto := decodeBody[operationDTO](t, got)
	if dto.Status != wallet.StatusPending.String() {
		t.Fatalf("status %s", dto.Status)
	}

	// verify with the full co-signature
	h, err := wallet.HashFromHex(hash)
	if err != nil {
		t.Fatalf("parse hash: %v", err)
	}
	shares := make([][]byte, len(f.dealer.Members))
	for i, m := range f.dealer.Members {
		if shares[i], err = keyset.SignShare(f.dealer.Mode, m, h[:]); err != nil {
			t.Fatalf("share: %v", err)
		}
	}
	sig, err := keyset.CombineShares(f.dealer.Mode, shares)
	if err != nil {
		t.Fatalf("combine: %v", err)
	}
	var vreq verifyRequest
	vreq.Entries = append(vreq.Entries, struct {
		Hash      string   `json:"hash"`
		Signature string   `json:"signature"`
		Signers   []string `json:"signers,omitempty"`
	}{Hash: hash, Signature: hex.EncodeToString(sig)})
	resp = f.post(t, "/wallet/v1/verify", vreq)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("verify status %d", resp.StatusCode)
	}
	vres := decodeBody[verifyResponse](t, resp)
	if len(vres.Results) != 1 || !vres.Results[0] {
		t.Fatalf("verify results %v", vres.Results)
	}

	// execute
	resp = f.post(t, "/wallet/v1/execute", executeRequest{Hashes: []string{hash}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("execute status %d", resp.StatusCode)
	}
	resp.Body.Close()
	if *f.calls != 1 {
		t.Fatalf("dispatch calls %d", *f.calls)
	}
}

func TestAPI_SubmitSignedApprovesInline(t *testing.T) {
	f := newFixture(t)
	resp := f.post(t, "/wallet/v1/operations", submitRequest{Operations: []operationDTO{f.operationDTO(t, 0, true)}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit status %d", resp.StatusCode)
	}
	sub := decodeBody[submitResponse](t, resp)

	got, err := http.Get(f.srv.URL + "/wallet/v1/operations/" + sub.Hashes[0])
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	dto := decodeBody[operationDTO](t, got)
	if dto.Status != wallet.StatusApproved.String() {
		t.Fatalf("status %s", dto.Status)
	}
}

func TestAPI_SubmitBadNonceRejected(t *testing.T) {
	f := newFixture(t)
	resp := f.post(t, "/wallet/v1/operations", submitRequest{Operations: []operationDTO{f.operationDTO(t, 9, false)}})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d", resp.StatusCode)
	}
}

func TestAPI_GetUnknownOperation(t *testing.T) {
	f := newFixture(t)
	unknown := wallet.Hash{0xee}
	resp, err := http.Get(f.srv.URL + "/wallet/v1/operations/" + unknown.String())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d", resp.StatusCode)
	}
}

func TestAPI_GetMalformedHash(t *testing.T) {
	f := newFixture(t)
	// not hex: a syntax error, not a miss
	resp, err := http.Get(f.srv.URL + "/wallet/v1/operations/nothex")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", resp.StatusCode)
	}
}

func TestAPI_KeySet(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Get(f.srv.URL + "/wallet/v1/keyset")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	ks := decodeBody[keySetResponse](t, resp)
	if ks.Mode != wallet.ModeKeysOnG1.String() || ks.Variant != keyset.VariantMultisig.String() {
		t.Fatalf("keyset %+v", ks)
	}
	if ks.AggregatedKey == "" {
		t.Fatal("aggregated key missing")
	}
}

func TestAPI_TraceIDReflected(t *testing.T) {
	f := newFixture(t)
	req, _ := http.NewRequest(http.MethodGet, f.srv.URL+"/wallet/v1/keyset", nil)
	req.Header.Set("X-Trace-Id", "trace-123")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("X-Trace-Id"); got != "trace-123" {
		t.Fatalf("trace id %q", got)
	}
}
