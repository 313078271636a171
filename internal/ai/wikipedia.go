package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const wikipediaBaseURL = "https://en.wikipedia.org/api/rest_v1/page/summary/"

// Wikipedia looks up jargon definitions from the Wikipedia summary endpoint.
// Lookups are best effort; callers fall back to a generic definition.
type Wikipedia struct {
	client  *http.Client
	baseURL string
}

func NewWikipedia() *Wikipedia {
	return &Wikipedia{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: wikipediaBaseURL,
	}
}

func (w *Wikipedia) LookupDefinition(ctx context.Context, term string) (string, error) {
	endpoint := w.baseURL + url.PathEscape(strings.ReplaceAll(strings.TrimSpace(term), " ", "_"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build wikipedia request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("wikipedia lookup %q: %w", term, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("wikipedia lookup %q: status %d", term, resp.StatusCode)
	}

	var payload struct {
		Extract string `json:"extract"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode wikipedia response for %q: %w", term, err)
	}

	return firstSentence(payload.Extract), nil
}

func firstSentence(extract string) string {
	extract = strings.TrimSpace(extract)
	if extract == "" {
		return ""
	}

	if idx := strings.Index(extract, ". "); idx > 0 {
		extract = extract[:idx+1]
	}
	if len(extract) > 200 {
		extract = extract[:200] + "..."
	}
	return extract
}
