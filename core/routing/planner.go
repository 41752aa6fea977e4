package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/kilianp07/mg4dash/config"
	"github.com/kilianp07/mg4dash/core/logger"
	"github.com/kilianp07/mg4dash/core/model"
)

// Doer is the subset of *http.Client used by the planner.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// CredentialFunc returns the provider key, or "" when unset. It is called
// on every request so key rotation needs no restart.
type CredentialFunc func() string

// EnvCredential reads the key from the named environment variable.
func EnvCredential(name string) CredentialFunc {
	return func() string { return os.Getenv(name) }
}

// maxBody bounds how much of a provider answer is read.
const maxBody = 32 << 20

// Planner forwards trip requests to the routing provider.
type Planner struct {
	client     Doer
	baseURL    string
	credential CredentialFunc
	log        logger.Logger
}

// Option customises a Planner.
type Option func(*Planner)

// WithClient replaces the HTTP client.
func WithClient(c Doer) Option { return func(p *Planner) { p.client = c } }

// WithCredential replaces the credential lookup.
func WithCredential(f CredentialFunc) Option { return func(p *Planner) { p.credential = f } }

// NewPlanner builds a Planner from the gateway configuration.
func NewPlanner(cfg config.GatewayConfig, log logger.Logger, opts ...Option) *Planner {
	cfg.SetDefaults()
	p := &Planner{
		client:     &http.Client{Timeout: cfg.Timeout()},
		baseURL:    cfg.BaseURL,
		credential: EnvCredential(cfg.APIKeyEnv),
		log:        log,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Plan validates the request, queries the provider once and returns its
// payload untouched. Validation and credential failures never reach the
// network.
func (p *Planner) Plan(ctx context.Context, req model.TripRequest) (model.RouteDocument, error) {
	if !req.HasEndpoints() {
		return nil, ErrInvalidRequest
	}
	key := p.credential()
	if key == "" {
		return nil, ErrMissingCredential
	}
	u, err := p.endpoint(BuildQuery(req, key))
	if err != nil {
		return nil, err
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build provider request: %w", err)
	}
	hreq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := p.client.Do(hreq)
	if err != nil {
		// url.Error embeds the full URL, key included.
		return nil, fmt.Errorf("routing provider unreachable: %s", redact(err.Error(), key))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read provider response: %w", err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("routing provider returned invalid JSON (status %d)", resp.StatusCode)
	}
	p.log.Debugw("routing provider answered", map[string]any{
		"status":      resp.StatusCode,
		"origin":      req.Origin.Trimmed(),
		"destination": req.Destination.Trimmed(),
		"elapsed_ms":  time.Since(start).Milliseconds(),
	})
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ProviderError{StatusCode: resp.StatusCode, Body: body}
	}
	return model.RouteDocument(body), nil
}

// endpoint merges q into the base URL's own query; q wins on conflicts.
func (p *Planner) endpoint(q url.Values) (string, error) {
	u, err := url.Parse(p.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse provider url: %w", err)
	}
	merged := u.Query()
	for k, vs := range q {
		merged[k] = vs
	}
	u.RawQuery = merged.Encode()
	return u.String(), nil
}

func redact(s, secret string) string {
	if secret == "" {
		return s
	}
	s = strings.ReplaceAll(s, url.QueryEscape(secret), "REDACTED")
	return strings.ReplaceAll(s, secret, "REDACTED")
}
