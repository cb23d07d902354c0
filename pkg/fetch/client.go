package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/tidwall/gjson"
	"github.com/valyala/fasthttp"
)

// Failure is returned for every unsuccessful fetch. Transport errors carry a 5xx
// gateway status, non-2xx responses carry the upstream status.
type Failure struct {
	Status  int
	Message string
	URL     string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("fetch %s: %d %s", f.URL, f.Status, f.Message)
}

type Request struct {
	Method string
	URL    string
	Header map[string]string
	Body   []byte
}

// Get is a convenience constructor for the common public-endpoint case.
func Get(url string) Request {
	return Request{Method: fasthttp.MethodGet, URL: url}
}

// Fetcher performs one HTTP exchange and returns the parsed JSON document.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (gjson.Result, error)
}

// Func adapts a plain function to the Fetcher interface.
type Func func(ctx context.Context, req Request) (gjson.Result, error)

func (f Func) Fetch(ctx context.Context, req Request) (gjson.Result, error) { return f(ctx, req) }

type Client struct {
	client    *fasthttp.Client
	timeout   time.Duration
	retries   int
	retryWait time.Duration
}

const defaultTimeout = 10 * time.Second

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		client: &fasthttp.Client{
			Name:                "cryptoagg",
			MaxIdleConnDuration: time.Minute,
		},
		timeout: timeout,
	}
}

// WithRetries lets GET requests be repeated up to n times, with exponential backoff
// starting at wait, after a transport failure or a 429/5xx answer. Signed POSTs carry
// a nonce and are never repeated.
func (c *Client) WithRetries(n int, wait time.Duration) *Client {
	c.retries = n
	c.retryWait = wait
	return c
}

func (c *Client) Fetch(ctx context.Context, r Request) (gjson.Result, error) {
	res, err := c.do(ctx, r)
	if err == nil || c.retries <= 0 || !retryable(r, err) {
		return res, err
	}

	b := backoff.NewExponentialBackOff()
	if c.retryWait > 0 {
		b.InitialInterval = c.retryWait
	}
	for range c.retries {
		select {
		case <-ctx.Done():
			return gjson.Result{}, err
		case <-time.After(b.NextBackOff()):
		}
		res, err = c.do(ctx, r)
		if err == nil || !retryable(r, err) {
			return res, err
		}
	}
	return res, err
}

func retryable(r Request, err error) bool {
	if r.Method != "" && r.Method != fasthttp.MethodGet {
		return false
	}
	var f *Failure
	return errors.As(err, &f) && (f.Status == http.StatusTooManyRequests || f.Status >= 500)
}

func (c *Client) do(ctx context.Context, r Request) (gjson.Result, error) {
	if err := ctx.Err(); err != nil {
		return gjson.Result{}, &Failure{Status: http.StatusGatewayTimeout, Message: err.Error(), URL: r.URL}
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(r.URL)
	method := r.Method
	if method == "" {
		method = fasthttp.MethodGet
	}
	req.Header.SetMethod(method)
	for k, v := range r.Header {
		req.Header.Set(k, v)
	}
	if len(r.Body) > 0 {
		req.SetBody(r.Body)
	}

	if err := c.client.DoDeadline(req, resp, c.deadline(ctx)); err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, fasthttp.ErrTimeout) {
			status = http.StatusGatewayTimeout
		}
		return gjson.Result{}, &Failure{Status: status, Message: err.Error(), URL: r.URL}
	}

	body := resp.Body()
	code := resp.StatusCode()
	if code < 200 || code > 299 {
		return gjson.Result{}, &Failure{Status: code, Message: statusMessage(code, body), URL: r.URL}
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, &Failure{Status: http.StatusBadGateway, Message: "malformed JSON response", URL: r.URL}
	}

	return gjson.ParseBytes(body), nil
}

func (c *Client) deadline(ctx context.Context) time.Time {
	d := time.Now().Add(c.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(d) {
		return dl
	}
	return d
}

func statusMessage(code int, body []byte) string {
	if msg := gjson.GetBytes(body, "message"); msg.Type == gjson.String {
		return msg.Str
	}
	if text := http.StatusText(code); text != "" {
		return text
	}
	return "unexpected status"
}
