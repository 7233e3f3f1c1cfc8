package s3

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ivankudzin/oneclick/internal/domain/model"
	s3infra "github.com/ivankudzin/oneclick/internal/infra/s3"
)

func TestExchangeKey(t *testing.T) {
	at := time.Date(2024, time.March, 5, 10, 30, 0, 42, time.UTC)
	key := ExchangeKey(model.GatewayExchange{Operation: "refund", Reference: "ORD 1/2", At: at})

	want := "exchanges/refund/2024/03/05/ORD%201%2F2-" + "1709634600000000042" + ".json"
	if key != want {
		t.Fatalf("unexpected key:\n got %s\nwant %s", key, want)
	}

	fallback := ExchangeKey(model.GatewayExchange{At: at})
	if !strings.HasPrefix(fallback, "exchanges/unknown/2024/03/05/none-") {
		t.Fatalf("unexpected fallback key %s", fallback)
	}
}

func TestArchivePutsJSONObject(t *testing.T) {
	var (
		mu     sync.Mutex
		puts   []string
		bodies [][]byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut && strings.Count(strings.Trim(r.URL.Path, "/"), "/") > 0 {
			body, _ := io.ReadAll(r.Body)
			mu.Lock()
			puts = append(puts, r.URL.Path)
			bodies = append(bodies, body)
			mu.Unlock()
			w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  srv.URL,
		AccessKey: "access",
		SecretKey: "secret",
		Region:    "us-east-1",
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	archive := NewExchangeArchive(client, "oneclick-exchanges")
	exchange := model.GatewayExchange{
		Operation:  "authorize",
		Reference:  "ORD-1",
		StatusCode: 200,
		At:         time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC),
	}
	if err := archive.Archive(context.Background(), exchange); err != nil {
		t.Fatalf("archive: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(puts) != 1 {
		t.Fatalf("expected one object put, got %v", puts)
	}
	if !strings.HasPrefix(puts[0], "/oneclick-exchanges/exchanges/authorize/2024/03/05/ORD-1-") {
		t.Fatalf("unexpected object path %s", puts[0])
	}
	want, _ := json.Marshal(exchange)
	if !strings.Contains(string(bodies[0]), string(want)) {
		t.Fatalf("stored body does not carry the exchange json: %q", bodies[0])
	}
}

func TestArchiveWithoutClient(t *testing.T) {
	archive := NewExchangeArchive(nil, "bucket")
	if err := archive.Archive(context.Background(), model.GatewayExchange{}); err == nil {
		t.Fatalf("expected error without client")
	}
}
