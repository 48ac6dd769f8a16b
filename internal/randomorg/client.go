package randomorg

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/kapu/meal-max-arena/internal/obslog"
)

// DefaultURL asks random.org for one decimal fraction in [0,1) as plain text.
const DefaultURL = "https://www.random.org/decimal-fractions/?num=1&dec=8&col=1&format=plain&rnd=new"

// ErrTimeout marks a timed-out draw so callers can treat it as transient.
var ErrTimeout = errors.New("request to random.org timed out")

// Client fetches uniform random values from random.org.
type Client struct {
	url     string
	http    *fasthttp.Client
	timeout time.Duration
}

type Option func(*Client)

func WithURL(url string) Option {
	return func(c *Client) { c.url = strings.TrimSpace(url) }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		url:     DefaultURL,
		http:    &fasthttp.Client{ReadTimeout: 5 * time.Second, WriteTimeout: 5 * time.Second, MaxConnsPerHost: 4},
		timeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Next returns one uniformly distributed value in [0,1). Timeouts surface as
// ErrTimeout; any other transport or parse failure is returned as-is.
func (c *Client) Next(ctx context.Context) (float64, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(c.url)

	if err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx)); err != nil {
		if errors.Is(err, fasthttp.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			obslog.L().Warn("random_org_timeout", zap.Error(err))
			return 0, ErrTimeout
		}
		return 0, fmt.Errorf("request to random.org failed: %w", err)
	}

	if status := resp.StatusCode(); status != fasthttp.StatusOK {
		return 0, fmt.Errorf("random.org returned status %d", status)
	}

	body := strings.TrimSpace(string(resp.Body()))
	v, err := strconv.ParseFloat(body, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid response from random.org: %q", body)
	}
	if v < 0 || v >= 1 {
		return 0, fmt.Errorf("random.org value out of range: %v", v)
	}
	obslog.L().Debug("random_org_draw", zap.Float64("value", v))
	return v, nil
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}
