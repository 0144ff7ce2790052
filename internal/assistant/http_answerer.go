package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	// ErrEmptyAnswer is returned when the service replies without any text.
	ErrEmptyAnswer = errors.New("empty answer")
	// ErrUnexpectedStatus wraps non-2xx replies from the answer endpoint.
	ErrUnexpectedStatus = errors.New("unexpected status")
)

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Answer string `json:"answer"`
}

// HTTPAnswerer asks a question-answering endpoint that takes {"question"} and
// replies with {"answer"}.
type HTTPAnswerer struct {
	URL    string
	Client *http.Client
}

// NewHTTPAnswerer creates an answerer for the endpoint at url.
func NewHTTPAnswerer(url string) *HTTPAnswerer {
	return &HTTPAnswerer{URL: url, Client: http.DefaultClient}
}

// Answer posts the question and returns the answer as sent.
func (a *HTTPAnswerer) Answer(ctx context.Context, question string) (string, error) {
	body, err := json.Marshal(askRequest{Question: question})
	if err != nil {
		return "", fmt.Errorf("encode question: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.URL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client().Do(req)
	if err != nil {
		return "", fmt.Errorf("ask: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w %d: %s", ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out askResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode answer: %w", err)
	}
	if strings.TrimSpace(out.Answer) == "" {
		return "", ErrEmptyAnswer
	}
	return out.Answer, nil
}

func (a *HTTPAnswerer) client() *http.Client {
	if a.Client != nil {
		return a.Client
	}
	return http.DefaultClient
}
