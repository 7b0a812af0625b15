package typeahead

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Provider resolves a non-empty, lower-cased query to candidates.
type Provider interface {
	Search(ctx context.Context, query string) ([]Candidate, error)
}

// Mode selects where every selector of a form resolves its queries.
type Mode string

const (
	ModeLocal  Mode = "local"  // Filter the in-memory fallback dataset
	ModeRemote Mode = "remote" // POST the query to the field's endpoint
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeLocal:
		return ModeLocal, nil
	case ModeRemote:
		return ModeRemote, nil
	default:
		return "", fmt.Errorf("unknown search mode %q (want local or remote)", s)
	}
}

// NewProvider returns the provider for mode. Remote mode uses endpoint and
// client; local mode filters dataset.
func NewProvider(mode Mode, endpoint string, dataset []Candidate, client *http.Client, logger *slog.Logger) Provider {
	if mode == ModeRemote {
		return NewRemoteProvider(endpoint, client, logger)
	}
	return &LocalProvider{Dataset: dataset}
}

// LocalProvider filters a fixed dataset.
type LocalProvider struct {
	Dataset []Candidate
}

// Compile-time check that LocalProvider implements Provider.
var _ Provider = (*LocalProvider)(nil)

// Search implements Provider.
func (p *LocalProvider) Search(_ context.Context, query string) ([]Candidate, error) {
	return Filter(p.Dataset, query), nil
}

// searchRequest is the body sent to remote endpoints.
type searchRequest struct {
	Query string `json:"query"`
}

// RemoteProvider posts queries to an HTTP endpoint.
type RemoteProvider struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// Compile-time check that RemoteProvider implements Provider.
var _ Provider = (*RemoteProvider)(nil)

// NewRemoteProvider creates a provider for endpoint. A nil client means
// http.DefaultClient; a nil logger means slog.Default().
func NewRemoteProvider(endpoint string, client *http.Client, logger *slog.Logger) *RemoteProvider {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RemoteProvider{endpoint: endpoint, client: client, logger: logger}
}

// Endpoint returns the configured URL.
func (p *RemoteProvider) Endpoint() string {
	return p.endpoint
}

// Search implements Provider. A non-success status or transport failure
// is an error; a body that is not valid JSON is logged and yields no
// candidates.
func (p *RemoteProvider) Search(ctx context.Context, query string) ([]Candidate, error) {
	body, err := json.Marshal(searchRequest{Query: query})
	if err != nil {
		return nil, fmt.Errorf("encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Endpoint: p.endpoint, Err: err}
	}
	reqID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", reqID)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &TransportError{Endpoint: p.endpoint, Err: err}
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Endpoint: p.endpoint, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status, Body: string(text)}
	}

	var data any
	if err := json.Unmarshal(text, &data); err != nil {
		p.logger.Warn("search response is not valid JSON",
			"endpoint", p.endpoint,
			"request_id", reqID,
			"body", string(text),
			"error", err,
		)
		return nil, nil
	}
	return p.normalize(data, reqID), nil
}

func (p *RemoteProvider) normalize(data any, reqID string) []Candidate {
	out, skipped := Normalize(data)
	if skipped > 0 {
		p.logger.Debug("ignoring non-object search results",
			"endpoint", p.endpoint, "request_id", reqID, "skipped", skipped)
	}
	return out
}
