package words

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrWordsExhausted indicates that no fresh keyword can be obtained, either
// because the upstream endpoint is failing or because it keeps returning
// words this run has already consumed. Collection cannot continue without a
// keyword, so callers treat this as fatal.
var ErrWordsExhausted = errors.New("word source exhausted")

// maxAttempts bounds how many times Next retries when the endpoint keeps
// returning words already present in the ledger.
const maxAttempts = 10

// Source supplies unique random keywords from a word API, tracking every
// word it has handed out so the same keyword is never used twice in a run.
type Source struct {
	url    string
	client *http.Client
	ledger map[string]bool
}

// New creates a new Source for the given word endpoint
func New(url string) *Source {
	return &Source{
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
		ledger: make(map[string]bool),
	}
}

// Next fetches the next unused keyword. Each attempt is one outbound call;
// duplicate words are retried up to maxAttempts before giving up with
// ErrWordsExhausted.
func (s *Source) Next(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		word, err := s.fetch(ctx)
		if err != nil {
			return "", err
		}
		if s.ledger[word] {
			continue
		}
		s.ledger[word] = true
		return word, nil
	}
	return "", fmt.Errorf("no unused word after %d attempts: %w", maxAttempts, ErrWordsExhausted)
}

func (s *Source) fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build word request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("word endpoint unreachable: %v: %w", err, ErrWordsExhausted)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("word endpoint returned %s: %w", resp.Status, ErrWordsExhausted)
	}

	// The endpoint responds with a single-element JSON array
	var payload []string
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("malformed word response: %v: %w", err, ErrWordsExhausted)
	}
	if len(payload) == 0 || payload[0] == "" {
		return "", fmt.Errorf("empty word response: %w", ErrWordsExhausted)
	}

	return payload[0], nil
}
