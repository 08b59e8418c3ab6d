package scan

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotConfigured is returned when no scan endpoint is set; callers fall
// back to manual entry.
var ErrNotConfigured = errors.New("scan: receipt scanning endpoint not configured")

// Result is the structured content the scanning service extracted from a
// receipt image. Confidence is in [0,1]; callers decide their own threshold.
type Result struct {
	Amount     decimal.Decimal `json:"amount"`
	Vendor     string          `json:"vendor"`
	Date       string          `json:"date"` // ISO 8601 date as returned by the service
	Confidence float64         `json:"confidence"`
}

// Client calls the external AI receipt-scanning service. The service is a
// black box: one multipart POST with the image, one JSON response.
type Client struct {
	endpoint string
	apiKey   string
	hc       *http.Client
}

// NewClient builds a client; endpoint may be empty, in which case Scan
// returns ErrNotConfigured.
func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		hc:       &http.Client{Timeout: timeout},
	}
}

// Scan submits a receipt image and returns the extracted fields. Errors are
// returned verbatim for the caller to surface; there is no retry.
func (c *Client) Scan(ctx context.Context, image []byte, fileName string) (*Result, error) {
	if c.endpoint == "" {
		return nil, ErrNotConfigured
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(image); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scan request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("scan service returned %d: %s", resp.StatusCode, bytes.TrimSpace(b))
	}

	var res Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("decode scan response: %w", err)
	}
	return &res, nil
}
