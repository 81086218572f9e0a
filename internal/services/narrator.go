package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/eatsalad239/gato-blanco-ops/internal/domain"
)

const defaultNarratorTimeout = 10 * time.Second

// HTTPNarratorConfig configures the hosted text-generation collaborator.
type HTTPNarratorConfig struct {
	Endpoint string
	APIKey   string
	Model    string
	Timeout  time.Duration
	Client   *http.Client
}

// HTTPNarrator delegates report narration to a hosted text-generation API.
// It is a best-effort collaborator: callers treat any error as "no narrative".
type HTTPNarrator struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

// NewHTTPNarrator validates the config and builds the narrator.
func NewHTTPNarrator(cfg HTTPNarratorConfig) (*HTTPNarrator, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("narrator: endpoint is required")
	}
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultNarratorTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPNarrator{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		client:   client,
	}, nil
}

type narrateRequest struct {
	Model  string `json:"model,omitempty"`
	Prompt string `json:"prompt"`
}

type narrateResponse struct {
	Text string `json:"text"`
}

// Narrate renders the report into a prompt, posts it to the endpoint and
// returns the generated text.
func (n *HTTPNarrator) Narrate(ctx context.Context, report AnalyticsReport, alerts []string) (string, error) {
	body, err := json.Marshal(narrateRequest{
		Model:  n.model,
		Prompt: renderPrompt(report, alerts),
	})
	if err != nil {
		return "", fmt.Errorf("narrator: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("narrator: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if n.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+n.apiKey)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("narrator: call endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("narrator: endpoint returned status %d", resp.StatusCode)
	}

	var parsed narrateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("narrator: decode response: %w", err)
	}
	if strings.TrimSpace(parsed.Text) == "" {
		return "", errors.New("narrator: empty narrative returned")
	}
	return parsed.Text, nil
}

// renderPrompt flattens the report into the plain-text summary the narration
// endpoint is asked to write about.
func renderPrompt(report AnalyticsReport, alerts []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summarise this %s business report for the venue operator.\n", report.Period)
	fmt.Fprintf(&b, "Window: %s to %s\n", report.From.Format(time.RFC3339), report.To.Format(time.RFC3339))
	fmt.Fprintf(&b, "Revenue total: %d\n", report.Revenue.Total)
	for _, currency := range []domain.Currency{domain.CurrencyCOP, domain.CurrencyUSD} {
		if amount, ok := report.Revenue.ByCurrency[currency]; ok {
			fmt.Fprintf(&b, "Revenue %s: %d\n", currency, amount)
		}
	}
	fmt.Fprintf(&b, "Customers: %d total, %d new, %.1f%% foreign\n",
		report.Customers.Total, report.Customers.New, report.Customers.ForeignPercentage)
	for i, item := range report.TopItems {
		fmt.Fprintf(&b, "Top item %d: %s (%d)\n", i+1, item.ItemID, item.Revenue)
	}
	fmt.Fprintf(&b, "Events: %d attendees, %d revenue\n", report.Events.Attendance, report.Events.Revenue)
	for _, alert := range alerts {
		fmt.Fprintf(&b, "Alert: %s\n", alert)
	}
	return b.String()
}
