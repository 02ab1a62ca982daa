// Package compute wraps the external compute service that executes wipes,
// signs certificates and renders certificate PDFs.
package compute

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"strings"
	"time"
)

// ErrTimeout marks a compute call that exceeded its per-call bound.
var ErrTimeout = errors.New("compute request timed out")

// UpstreamError reports a non-2xx response from the compute service.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("compute upstream error: status %d: %s", e.StatusCode, e.Body)
}

type Config struct {
	BaseURL string
	// WipeTimeout bounds wipe and proxy calls; ArtifactTimeout bounds PDF
	// rendering, which is expected to be slow.
	WipeTimeout     time.Duration
	ArtifactTimeout time.Duration
	ServiceToken    string
}

type Client struct {
	baseURL      string
	serviceToken string
	hc           *http.Client
	artifactHC   *http.Client
}

func NewClient(cfg Config) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = "http://localhost:8000"
	}
	wipeTimeout := cfg.WipeTimeout
	if wipeTimeout <= 0 {
		wipeTimeout = 30 * time.Second
	}
	artifactTimeout := cfg.ArtifactTimeout
	if artifactTimeout <= 0 {
		artifactTimeout = 2 * time.Minute
	}
	return &Client{
		baseURL:      base,
		serviceToken: cfg.ServiceToken,
		hc:           &http.Client{Timeout: wipeTimeout},
		artifactHC:   &http.Client{Timeout: artifactTimeout},
	}
}

// WipePayload is the wipe record inside a signed certificate payload.
type WipePayload struct {
	Method      string    `json:"method"`
	LogHash     string    `json:"log_hash"`
	CompletedAt time.Time `json:"completed_at"`
}

// CertificatePayload is the parsed view of the signed payload. The raw bytes
// in WipeResult.Payload remain authoritative.
type CertificatePayload struct {
	CertificateID string      `json:"certificate_id"`
	UserID        string      `json:"user_id"`
	Wipe          WipePayload `json:"wipe"`
}

type WipeResult struct {
	Status      string
	Payload     json.RawMessage
	Signature   string
	Certificate CertificatePayload
}

// RequestWipe triggers a wipe and returns the signed certificate the compute
// service produced for it.
func (c *Client) RequestWipe(ctx context.Context, payload any) (WipeResult, error) {
	resp, err := c.postJSON(ctx, c.hc, "/api/wipe", payload, nil)
	if err != nil {
		return WipeResult{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	var body struct {
		Status      string `json:"status"`
		Certificate struct {
			Payload   json.RawMessage `json:"payload"`
			Signature string          `json:"signature"`
		} `json:"certificate_json"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return WipeResult{}, fmt.Errorf("decode wipe response: %w", err)
	}

	var parsed CertificatePayload
	if err := json.Unmarshal(body.Certificate.Payload, &parsed); err != nil {
		return WipeResult{}, fmt.Errorf("decode certificate payload: %w", err)
	}
	if parsed.CertificateID == "" {
		return WipeResult{}, errors.New("wipe response missing certificate id")
	}

	status := body.Status
	if status == "" {
		status = "running"
	}
	return WipeResult{
		Status:      status,
		Payload:     body.Certificate.Payload,
		Signature:   body.Certificate.Signature,
		Certificate: parsed,
	}, nil
}

// RequestArtifact asks the compute service to render the signed PDF for a
// certificate. The caller owns the returned stream.
func (c *Client) RequestArtifact(ctx context.Context, payload json.RawMessage, signature string) (io.ReadCloser, error) {
	sender := map[string]any{
		"payload":   payload,
		"signature": signature,
	}
	headers := map[string]string{"X-Service-Token": c.serviceToken}
	resp, err := c.postJSON(ctx, c.artifactHC, "/api/genpdf", sender, headers)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// GetCertificate reads back the certificate JSON held by the compute service.
func (c *Client) GetCertificate(ctx context.Context, certificateID string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/certificates/"+certificateID, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(c.hc, req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	return io.ReadAll(resp.Body)
}

// VerifyCertificate forwards a payload+signature pair for verification.
func (c *Client) VerifyCertificate(ctx context.Context, body json.RawMessage) (json.RawMessage, error) {
	resp, err := c.postJSON(ctx, c.hc, "/api/verify-cert", body, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	return io.ReadAll(resp.Body)
}

// VerifyPDF uploads a candidate PDF for signature verification.
func (c *Client) VerifyPDF(ctx context.Context, filename string, file io.Reader) (map[string]any, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/verify-pdf", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.do(c.artifactHC, req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode verify-pdf response: %w", err)
	}
	return out, nil
}

// DriveHealth forwards SMART data for a failure prediction.
func (c *Client) DriveHealth(ctx context.Context, body json.RawMessage) (map[string]any, error) {
	resp, err := c.postJSON(ctx, c.hc, "/api/drive/health", body, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode drive health response: %w", err)
	}
	return out, nil
}

func (c *Client) postJSON(ctx context.Context, hc *http.Client, path string, payload any, headers map[string]string) (*http.Response, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.do(hc, req)
}

// do executes the request and maps failures to the package's error taxonomy:
// timeouts to ErrTimeout, non-2xx responses to *UpstreamError.
func (c *Client) do(hc *http.Client, req *http.Request) (*http.Response, error) {
	resp, err := hc.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("compute request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return resp, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
