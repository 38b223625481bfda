package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trivia-service/internal/domain"
	"trivia-service/internal/infra/memory"
)

func newBankServer(t *testing.T) *httptest.Server {
	t.Helper()
	loader := memory.NewStaticBankLoader(map[string]domain.QuestionBank{
		"demo": {
			ID:         "demo",
			Categories: []string{"Science"},
			Questions: [][]domain.BankQuestion{
				{{ID: "sci100", Text: "Q", Points: 100}},
			},
		},
	})
	handler := NewBankHandler(memory.NewBankRepository(loader, time.Minute))
	mux := http.NewServeMux()
	mux.HandleFunc("GET /banks/{id}", handler.ServeBank)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestServeBank(t *testing.T) {
	server := newBankServer(t)

	resp, err := http.Get(server.URL + "/banks/demo")
	if err != nil {
		t.Fatalf("get bank: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected json content type, got %s", ct)
	}
}

func TestServeBankNotFound(t *testing.T) {
	server := newBankServer(t)

	resp, err := http.Get(server.URL + "/banks/nope")
	if err != nil {
		t.Fatalf("get bank: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
