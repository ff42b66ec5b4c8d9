// README: Dispatch pipeline; turns intents into PENDING -> SUCCESS|FAILURE event sequences.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"courier/internal/modules/entity"
)

const maxResponseBytes = 8 << 20

// Sink receives every event the pipeline emits. The root store is the only
// production sink.
type Sink interface {
	Apply(Event)
}

// TokenSource supplies the bearer credential for the current session.
type TokenSource interface {
	AccessToken() string
}

// Dispatcher is what intent-building services depend on.
type Dispatcher interface {
	Dispatch(ctx context.Context, in Intent) Event
}

type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Metrics    *Metrics
	Logger     *slog.Logger
}

type Pipeline struct {
	base           *url.URL
	client         *http.Client
	sink           Sink
	tokens         TokenSource
	metrics        *Metrics
	logger         *slog.Logger
	onUnauthorized func()
}

func New(sink Sink, tokens TokenSource, opts Options) (*Pipeline, error) {
	base := opts.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		base:    u,
		client:  client,
		sink:    sink,
		tokens:  tokens,
		metrics: opts.Metrics,
		logger:  logger,
	}, nil
}

// OnUnauthorized registers the forced-logout hook run after a 401. It must be
// set before the first dispatch.
func (p *Pipeline) OnUnauthorized(fn func()) {
	p.onUnauthorized = fn
}

// Dispatch emits PENDING synchronously, performs exactly one request and
// emits and returns the settling event. It never returns an error; callers
// branch on the event kind.
func (p *Pipeline) Dispatch(ctx context.Context, in Intent) Event {
	id := uuid.NewString()
	start := time.Now()
	p.sink.Apply(Event{ID: id, Action: in.Action, Kind: KindPending, Effect: in.Effect})

	ev := p.perform(ctx, id, in)
	p.metrics.observe(in.Action, ev.Kind, time.Since(start))
	if ev.Kind == KindFailure {
		p.logger.Warn("intent failed",
			slog.String("action", in.Action),
			slog.String("request_id", id),
			slog.Int("status", ev.Status),
			slog.String("error", ev.Err))
	} else {
		p.logger.Debug("intent settled", slog.String("action", in.Action), slog.String("request_id", id))
	}
	p.sink.Apply(ev)

	if ev.Status == http.StatusUnauthorized && in.BasicAuth == nil && p.onUnauthorized != nil {
		p.onUnauthorized()
	}
	return ev
}

func (p *Pipeline) perform(ctx context.Context, id string, in Intent) Event {
	fail := func(status int, msg string) Event {
		return Event{ID: id, Action: in.Action, Kind: KindFailure, Effect: in.Effect, Status: status, Err: msg}
	}

	method := strings.ToUpper(in.Method)
	if method != http.MethodGet && method != http.MethodPost {
		return fail(0, fmt.Sprintf("unsupported http method %q", in.Method))
	}

	var body io.Reader
	contentType := ""
	switch {
	case in.Form != nil:
		body = strings.NewReader(in.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case in.Body != nil:
		b, err := json.Marshal(in.Body)
		if err != nil {
			return fail(0, fmt.Sprintf("encode request: %v", err))
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, p.resolve(in), body)
	if err != nil {
		return fail(0, err.Error())
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", id)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if in.BasicAuth != nil {
		req.SetBasicAuth(in.BasicAuth.Username, in.BasicAuth.Password)
	} else if token := p.tokens.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fail(0, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fail(resp.StatusCode, fmt.Sprintf("read response: %v", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail(resp.StatusCode, serverMessage(raw, resp.StatusCode))
	}

	ev := Event{ID: id, Action: in.Action, Kind: KindSuccess, Effect: in.Effect, Status: resp.StatusCode}
	if in.Effect == EffectAccessToken {
		var tok struct {
			AccessToken string `json:"access_token"`
		}
		if err := json.Unmarshal(raw, &tok); err != nil || tok.AccessToken == "" {
			return fail(resp.StatusCode, accessTokenFailureMessage)
		}
		ev.AccessToken = tok.AccessToken
	}
	if in.Schema != nil {
		n, err := entity.Normalize(raw, *in.Schema)
		if err != nil {
			return fail(resp.StatusCode, fmt.Sprintf("parse response: %v", err))
		}
		ev.Payload = n
		ev.Replace = in.Replace
	}
	return ev
}

func (p *Pipeline) resolve(in Intent) string {
	ref := &url.URL{Path: strings.TrimPrefix(in.EndPoint, "/")}
	u := p.base.ResolveReference(ref)
	if len(in.Query) > 0 {
		u.RawQuery = in.Query.Encode()
	}
	return u.String()
}

// serverMessage extracts the service's own error text where it sent one.
func serverMessage(raw []byte, status int) string {
	var body map[string]any
	if json.Unmarshal(raw, &body) == nil {
		for _, f := range []string{"message", "error_description", "error"} {
			if s, ok := body[f].(string); ok && s != "" {
				return s
			}
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return GenericFailureMessage
}
