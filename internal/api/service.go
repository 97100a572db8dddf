// Package api exposes the wallet over HTTP: submitting operations,
// attaching signatures, executing approved operations and inspecting the
// key set.
package api

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/qvault/quorum-wallet/internal/wallet"
	"github.com/qvault/quorum-wallet/internal/wallet/keyset"
	"github.com/qvault/quorum-wallet/internal/wallet/ledger"
	"github.com/qvault/quorum-wallet/pkg/logger"
	"github.com/qvault/quorum-wallet/pkg/metrics"
	"github.com/qvault/quorum-wallet/pkg/trace"
)

// Service serves the wallet HTTP API as a lifecycle-managed component.
type Service struct {
	addr   string
	reg    *keyset.Registry
	led    *ledger.Ledger
	engine *ledger.Engine

	srv *http.Server
	eg  *errgroup.Group
}

func New(addr string, reg *keyset.Registry, led *ledger.Ledger, engine *ledger.Engine) *Service {
	return &Service{addr: addr, reg: reg, led: led, engine: engine}
}

func (s *Service) Name() string { return "api" }

func (s *Service) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /wallet/v1/operations", s.handleSubmit)
	mux.HandleFunc("POST /wallet/v1/verify", s.handleVerify)
	mux.HandleFunc("POST /wallet/v1/execute", s.handleExecute)
	mux.HandleFunc("GET /wallet/v1/operations/{hash}", s.handleGetOp)
	mux.HandleFunc("GET /wallet/v1/operations", s.handleListOps)
	mux.HandleFunc("GET /wallet/v1/keyset", s.handleKeySet)
	return mux
}

func (s *Service) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.srv = &http.Server{Handler: withTrace(s.routes()), ReadHeaderTimeout: 5 * time.Second}
	s.eg, _ = errgroup.WithContext(ctx)
	s.eg.Go(func() error {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	logger.InfoJ("api_listen", map[string]any{"addr": ln.Addr().String()})
	return nil
}

func (s *Service) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return err
	}
	return s.eg.Wait()
}

// withTrace assigns every request a trace ID and reflects it back.
func withTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Trace-Id")
		if id == "" {
			id = trace.New()
		}
		w.Header().Set("X-Trace-Id", id)
		next.ServeHTTP(w, r.WithContext(trace.WithTraceID(r.Context(), id)))
	})
}

type operationDTO struct {
	Target         string   `json:"target"`
	Value          uint64   `json:"value"`
	EffectiveTime  int64    `json:"effective_time"`
	ExpirationTime int64    `json:"expiration_time"`
	GasLimit       uint64   `json:"gas_limit"`
	Nonce          uint64   `json:"nonce"`
	Payload        string   `json:"payload"`
	HashCheckCode  string   `json:"hash_check_code"`
	Signature      string   `json:"signature,omitempty"`
	Signers        []string `json:"signers,omitempty"`
	Status         string   `json:"status,omitempty"`
	Hash           string   `json:"hash,omitempty"`
}

type submitRequest struct {
	Operations []operationDTO `json:"operations"`
}

type submitResponse struct {
	Hashes []string `json:"hashes"`
}

type verifyRequest struct {
	Entries []struct {
		Hash      string   `json:"hash"`
		Signature string   `json:"signature"`
		Signers   []string `json:"signers,omitempty"`
	} `json:"entries"`
}

type verifyResponse struct {
	Results []bool `json:"results"`
}

type executeRequest struct {
	Hashes []string `json:"hashes"`
}

func (s *Service) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ops := make([]*wallet.Operation, 0, len(req.Operations))
	for _, dto := range req.Operations {
		op, err := decodeDTO(dto)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		ops = append(ops, op)
	}
	hashes, err := s.led.Submit(r.Context(), ops)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	out := submitResponse{Hashes: make([]string, len(hashes))}
	for i, h := range hashes {
		out.Hashes[i] = h.String()
	}
	metrics.Inc("api_requests_total", map[string]string{"route": "submit", "result": "ok"})
	writeJSON(w, http.StatusOK, out)
}

func (s *Service) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	hashes := make([]wallet.Hash, len(req.Entries))
	sigs := make([][]byte, len(req.Entries))
	signerLists := make([][][]byte, len(req.Entries))
	for i, e := range req.Entries {
		h, err := wallet.HashFromHex(e.Hash)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		sig, err := hex.DecodeString(e.Signature)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		signers, err := decodeHexList(e.Signers)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		hashes[i], sigs[i], signerLists[i] = h, sig, signers
	}
	results, err := s.led.VerifyBatch(r.Context(), hashes, sigs, signerLists)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	metrics.Inc("api_requests_total", map[string]string{"route": "verify", "result": "ok"})
	writeJSON(w, http.StatusOK, verifyResponse{Results: results})
}

func (s *Service) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	hashes := make([]wallet.Hash, len(req.Hashes))
	for i, hs := range req.Hashes {
		h, err := wallet.HashFromHex(hs)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		hashes[i] = h
	}
	if err := s.engine.ExecuteBatch(r.Context(), hashes); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	metrics.Inc("api_requests_total", map[string]string{"route": "execute", "result": "ok"})
	writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}

func (s *Service) handleGetOp(w http.ResponseWriter, r *http.Request) {
	h, err := wallet.HashFromHex(r.PathValue("hash"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	op, err := s.led.Get(h)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, encodeDTO(h, op))
}

func (s *Service) handleListOps(w http.ResponseWriter, r *http.Request) {
	hashes := s.led.Hashes()
	out := make([]string, len(hashes))
	for i, h := range hashes {
		out[i] = h.String()
	}
	writeJSON(w, http.StatusOK, map[string]any{"hashes": out})
}

type keySetResponse struct {
	Mode          string   `json:"mode"`
	Variant       string   `json:"variant"`
	Threshold     int      `json:"threshold,omitempty"`
	MemberCount   int      `json:"member_count"`
	AggregatedKey string   `json:"aggregated_key"`
	Members       []string `json:"members,omitempty"`
}

func (s *Service) handleKeySet(w http.ResponseWriter, r *http.Request) {
	resp := keySetResponse{
		Mode:          s.reg.Mode().String(),
		Variant:       s.reg.Variant().String(),
		MemberCount:   s.reg.MemberCount(),
		AggregatedKey: hex.EncodeToString(s.reg.AggregatedKey()),
	}
	if s.reg.Variant() == keyset.VariantThreshold {
		resp.Threshold = s.reg.Threshold()
		for _, m := range s.reg.Members() {
			resp.Members = append(resp.Members, hex.EncodeToString(m.PublicKey))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func decodeDTO(dto operationDTO) (*wallet.Operation, error) {
	payload, err := hex.DecodeString(dto.Payload)
	if err != nil {
		return nil, err
	}
	code, err := hex.DecodeString(dto.HashCheckCode)
	if err != nil {
		return nil, err
	}
	var sig []byte
	if dto.Signature != "" {
		if sig, err = hex.DecodeString(dto.Signature); err != nil {
			return nil, err
		}
	}
	signers, err := decodeHexList(dto.Signers)
	if err != nil {
		return nil, err
	}
	return &wallet.Operation{
		Target:         dto.Target,
		Value:          dto.Value,
		EffectiveTime:  dto.EffectiveTime,
		ExpirationTime: dto.ExpirationTime,
		GasLimit:       dto.GasLimit,
		Nonce:          dto.Nonce,
		Payload:        payload,
		HashCheckCode:  code,
		Signature:      sig,
		Signers:        signers,
	}, nil
}

func encodeDTO(h wallet.Hash, op *wallet.Operation) operationDTO {
	dto := operationDTO{
		Target:         op.Target,
		Value:          op.Value,
		EffectiveTime:  op.EffectiveTime,
		ExpirationTime: op.ExpirationTime,
		GasLimit:       op.GasLimit,
		Nonce:          op.Nonce,
		Payload:        hex.EncodeToString(op.Payload),
		HashCheckCode:  hex.EncodeToString(op.HashCheckCode),
		Signature:      hex.EncodeToString(op.Signature),
		Status:         op.Status.String(),
		Hash:           h.String(),
	}
	for _, s := range op.Signers {
		dto.Signers = append(dto.Signers, hex.EncodeToString(s))
	}
	return dto
}

func decodeHexList(in []string) ([][]byte, error) {
	if len(in) == 0 {
		return nil, nil
	}
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

func statusFor(err error) int {
	var unapproved *wallet.UnapprovedError
	switch {
	case errors.Is(err, wallet.ErrUnknownOperation):
		return http.StatusNotFound
	case errors.Is(err, wallet.ErrWalletBusy):
		return http.StatusConflict
	case errors.Is(err, wallet.ErrOperationExists):
		return http.StatusConflict
	case errors.As(err, &unapproved),
		errors.Is(err, wallet.ErrNotYetEffective),
		errors.Is(err, wallet.ErrOperationExpired):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	metrics.Inc("api_requests_total", map[string]string{"route": "any", "result": "error"})
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
