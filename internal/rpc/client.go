// Package rpc is the JSON-over-HTTP plumbing shared by the certifier and
// builder clients.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"cosmossdk.io/log"
	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"
)

// StatusError is a non-2xx response.
type StatusError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Status, e.Body)
}

// Client issues JSON requests, retrying transport failures and 5xx
// responses with a fixed delay.
type Client struct {
	BaseURL  string
	HTTP     *http.Client
	Attempts uint
	Delay    time.Duration
	Logger   log.Logger
}

func NewClient(baseURL string, timeout time.Duration, attempts uint, delay time.Duration, logger log.Logger) *Client {
	if attempts == 0 {
		attempts = 1
	}
	return &Client{
		BaseURL:  baseURL,
		HTTP:     &http.Client{Timeout: timeout},
		Attempts: attempts,
		Delay:    delay,
		Logger:   logger,
	}
}

// Do sends in (when non-nil) as the JSON body and decodes the response into
// out (when non-nil).
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return errors.Wrap(err, "encoding request")
		}
	}
	url := c.BaseURL + path

	return retry.Do(
		func() error {
			return c.once(ctx, method, url, body, out)
		},
		retry.Context(ctx),
		retry.Attempts(c.Attempts),
		retry.Delay(c.Delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.Logger.Debug("retrying request", "method", method, "url", url, "attempt", n+1, "err", err)
		}),
	)
}

func (c *Client) once(ctx context.Context, method, url string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return retry.Unrecoverable(errors.Wrap(err, "building request"))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return retry.Unrecoverable(ctx.Err())
		}
		return errors.Wrapf(err, "%s %s", method, url)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "reading response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serr := &StatusError{Method: method, URL: url, Status: resp.StatusCode, Body: string(bytes.TrimSpace(raw))}
		if resp.StatusCode >= 500 {
			return serr
		}
		return retry.Unrecoverable(serr)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return retry.Unrecoverable(errors.Wrapf(err, "decoding response of %s %s", method, url))
	}
	return nil
}
