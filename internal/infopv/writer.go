package infopv

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/oshokin/alarm-engine/internal/logger"
)

// defaultHTTPTimeout bounds one gateway request.
const defaultHTTPTimeout = 5 * time.Second

// ErrEmptyURL is returned when the gateway URL is missing.
var ErrEmptyURL = errors.New("pv gateway url is empty")

// Writer writes text to a PV.
type Writer interface {
	Write(ctx context.Context, pvName, text string) error
}

// LogWriter only logs the writes. It is used when no gateway is configured.
type LogWriter struct{}

// Write logs the PV value.
func (LogWriter) Write(ctx context.Context, pvName, text string) error {
	logger.InfoKV(ctx, "info PV update", "pv", pvName, "value", text)

	return nil
}

// gatewayPayload is the body posted to the gateway.
type gatewayPayload struct {
	PV    string `json:"pv"`
	Value string `json:"value"`
}

// HTTPWriter posts PV values to an HTTP PV gateway.
type HTTPWriter struct {
	url    string
	client *http.Client
}

// HTTPOption configures an HTTPWriter.
type HTTPOption func(*HTTPWriter)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(w *HTTPWriter) {
		if client != nil {
			w.client = client
		}
	}
}

// NewHTTPWriter creates a writer for the gateway at url.
func NewHTTPWriter(url string, opts ...HTTPOption) (*HTTPWriter, error) {
	if url == "" {
		return nil, ErrEmptyURL
	}

	w := &HTTPWriter{
		url:    url,
		client: &http.Client{Timeout: defaultHTTPTimeout},
	}

	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// Write posts {"pv": pvName, "value": text} and expects a 2xx response.
func (w *HTTPWriter) Write(ctx context.Context, pvName, text string) error {
	body, err := json.Marshal(gatewayPayload{PV: pvName, Value: text})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("write %s: %w", pvName, err)
	}

	defer resp.Body.Close()

	//nolint:errcheck // Drained only to reuse the connection.
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("write %s: gateway returned %d", pvName, resp.StatusCode)
	}

	return nil
}
