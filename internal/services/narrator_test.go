package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/eatsalad239/gato-blanco-ops/internal/domain"
)

func sampleReport() AnalyticsReport {
	return AnalyticsReport{
		Period: PeriodDay,
		From:   time.Date(2026, time.March, 14, 0, 0, 0, 0, time.UTC),
		To:     time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC),
		Revenue: RevenueSummary{
			Total:      83750,
			ByCurrency: map[domain.Currency]int64{domain.CurrencyCOP: 17000, domain.CurrencyUSD: 66750},
		},
		Customers: CustomerSummary{Total: 2, New: 2, ForeignPercentage: 50},
		TopItems:  []TopItem{{ItemID: "espresso", Revenue: 15750}},
		Events:    EventSummary{Attendance: 4, Revenue: 60000},
	}
}

func TestHTTPNarratorPostsReport(t *testing.T) {
	var gotAuth string
	var gotPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Prompt string `json:"prompt"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		gotPrompt = req.Prompt
		json.NewEncoder(w).Encode(map[string]string{"text": "busy morning, espresso carried the day"})
	}))
	defer server.Close()

	narrator, err := NewHTTPNarrator(HTTPNarratorConfig{
		Endpoint: server.URL,
		APIKey:   "key_test",
		Model:    "summary-v1",
	})
	if err != nil {
		t.Fatalf("NewHTTPNarrator: %v", err)
	}

	text, err := narrator.Narrate(context.Background(), sampleReport(), []string{"low stock: espresso has 2 on hand (threshold 5)"})
	if err != nil {
		t.Fatalf("Narrate: %v", err)
	}
	if text != "busy morning, espresso carried the day" {
		t.Errorf("text = %q", text)
	}
	if gotAuth != "Bearer key_test" {
		t.Errorf("authorization = %q", gotAuth)
	}
	for _, fragment := range []string{"Revenue total: 83750", "Top item 1: espresso", "Alert: low stock"} {
		if !strings.Contains(gotPrompt, fragment) {
			t.Errorf("prompt missing %q:\n%s", fragment, gotPrompt)
		}
	}
}

func TestHTTPNarratorNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	narrator, err := NewHTTPNarrator(HTTPNarratorConfig{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("NewHTTPNarrator: %v", err)
	}
	if _, err := narrator.Narrate(context.Background(), sampleReport(), nil); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}

func TestHTTPNarratorEmptyText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"text": "  "})
	}))
	defer server.Close()

	narrator, err := NewHTTPNarrator(HTTPNarratorConfig{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("NewHTTPNarrator: %v", err)
	}
	if _, err := narrator.Narrate(context.Background(), sampleReport(), nil); err == nil {
		t.Fatal("expected error for empty narrative")
	}
}

func TestHTTPNarratorRequiresEndpoint(t *testing.T) {
	if _, err := NewHTTPNarrator(HTTPNarratorConfig{}); err == nil {
		t.Fatal("expected error for missing endpoint")
	}
}
