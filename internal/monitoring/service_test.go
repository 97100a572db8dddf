package monitoring

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/qvault/quorum-wallet/pkg/metrics"
)

func TestService_MetricsAndHealth(t *testing.T) {
	metrics.Reset()
	metrics.Inc("wallet_ops_submitted_total", map[string]string{"status": "pending"})

	s := New("127.0.0.1:0")
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop(context.Background())

	base := "http://" + s.Addr()
	resp, err := http.Get(base + "/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Fatalf("health %d %q", resp.StatusCode, body)
	}

	resp, err = http.Get(base + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "wallet_ops_submitted_total") {
		t.Fatalf("metrics output missing counter: %s", body)
	}
}
