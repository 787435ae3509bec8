package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var ErrBreakerOpen = errors.New("gateway circuit open")

// HTTPGateway posts form-encoded messages to an SMSAPI-style REST endpoint
// authenticated with a bearer token.
type HTTPGateway struct {
	name    string
	baseURL string
	path    string
	token   string
	from    string
	client  *http.Client
	br      *Breaker
}

type HTTPOpts struct {
	Name          string
	BaseURL       string
	Path          string
	Token         string
	From          string
	TimeoutMs     int
	FailThreshold int
	OpenForMs     int
}

func NewHTTPGateway(o HTTPOpts) *HTTPGateway {
	if o.TimeoutMs <= 0 {
		o.TimeoutMs = 3000
	}
	if o.OpenForMs <= 0 {
		o.OpenForMs = 15000
	}
	if o.Path == "" {
		o.Path = "/sms.do"
	}

	return &HTTPGateway{
		name:    o.Name,
		baseURL: strings.TrimRight(o.BaseURL, "/"),
		path:    o.Path,
		token:   o.Token,
		from:    o.From,
		client:  &http.Client{Timeout: time.Duration(o.TimeoutMs) * time.Millisecond},
		br:      NewBreaker(o.FailThreshold, time.Duration(o.OpenForMs)*time.Millisecond),
	}
}

func (g *HTTPGateway) Name() string { return g.name }
func (g *HTTPGateway) Ready() bool  { return g.br.Ready() }

func (g *HTTPGateway) Send(ctx context.Context, to, body string) error {
	if !g.br.Allow() {
		return fmt.Errorf("gateway=%s: %w", g.name, ErrBreakerOpen)
	}
	if err := g.post(ctx, to, body); err != nil {
		g.br.Failure()
		return err
	}
	g.br.Success()
	return nil
}

type gatewayError struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
}

func (g *HTTPGateway) post(ctx context.Context, to, body string) error {
	form := url.Values{}
	form.Set("to", to)
	form.Set("message", body)
	form.Set("format", "json")
	if g.from != "" {
		form.Set("from", g.from)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+g.path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+g.token)

	res, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))

	if res.StatusCode/100 != 2 {
		return fmt.Errorf("gateway=%s status=%d", g.name, res.StatusCode)
	}

	// SMSAPI answers 200 with {"error":code,"message":...} on rejection
	var ge gatewayError
	if json.Unmarshal(raw, &ge) == nil && ge.Error != 0 {
		return fmt.Errorf("gateway=%s error=%d: %s", g.name, ge.Error, ge.Message)
	}

	return nil
}
