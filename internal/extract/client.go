// SPDX-License-Identifier: MIT

package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/payflowd/payflow/internal/config"
	"github.com/payflowd/payflow/internal/fault"
	"github.com/payflowd/payflow/internal/model"
)

// Client calls an external document-understanding service over HTTP.
type Client struct {
	base string
	http *http.Client
}

// NewClient builds an HTTP extraction adapter from config.
func NewClient(cfg config.ExtractorConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		base: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

type extractRequest struct {
	Filename   string `json:"filename"`
	MimeType   string `json:"mimeType"`
	FileBase64 string `json:"fileBase64"`
}

type extractResponse struct {
	Processable bool                    `json:"processable"`
	Reason      string                  `json:"reason,omitempty"`
	Fields      *model.ExtractionFields `json:"fields,omitempty"`
}

// Extract sends the document to the backend and normalizes its answer.
// Transport failures and backend 5xx are infrastructure errors (retryable),
// distinct from a well-formed "unprocessable" verdict.
func (c *Client) Extract(ctx context.Context, doc model.Document) (model.ExtractionResult, error) {
	if res, ok := CheckInput(doc); !ok {
		return res, nil
	}

	body, err := json.Marshal(extractRequest{
		Filename:   doc.Filename,
		MimeType:   doc.MimeType,
		FileBase64: base64.StdEncoding.EncodeToString(doc.Bytes),
	})
	if err != nil {
		return model.ExtractionResult{}, fault.Wrap(fault.ClassInternal, "encode extraction request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/v1/extract", bytes.NewReader(body))
	if err != nil {
		return model.ExtractionResult{}, fault.Wrap(fault.ClassInternal, "build extraction request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return model.ExtractionResult{}, fault.Wrap(fault.ClassRetryable, "extraction service unreachable", err)
	}
	defer func() { _ = res.Body.Close() }()

	switch {
	case res.StatusCode >= 500:
		return model.ExtractionResult{}, fault.Newf(fault.ClassRetryable, "extraction service error %d", res.StatusCode)
	case res.StatusCode >= 400:
		return model.ExtractionResult{}, fault.Newf(fault.ClassInternal, "extraction request rejected with %d", res.StatusCode)
	}

	var payload extractResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return model.ExtractionResult{}, fault.Wrap(fault.ClassRetryable, "malformed extractor output", err)
	}

	return gate(model.ExtractionResult{
		Processable: payload.Processable,
		Reason:      payload.Reason,
		Fields:      payload.Fields,
	}), nil
}

var _ Extractor = (*Client)(nil)

// Stub is a deterministic test double. Result and Err are returned verbatim,
// after the shared input checks and processability gate.
type Stub struct {
	Result model.ExtractionResult
	Err    error
	Calls  int

	// FailTimes injects this many consecutive transient failures before
	// the stub behaves normally again.
	FailTimes int
}

func (s *Stub) Extract(_ context.Context, doc model.Document) (model.ExtractionResult, error) {
	s.Calls++
	if res, ok := CheckInput(doc); !ok {
		return res, nil
	}
	if s.FailTimes > 0 {
		s.FailTimes--
		return model.ExtractionResult{}, fault.New(fault.ClassRetryable, "extraction service timeout")
	}
	if s.Err != nil {
		return model.ExtractionResult{}, s.Err
	}
	return gate(s.Result), nil
}

var _ Extractor = (*Stub)(nil)

// Null is an extractor for deployments without a configured backend; it
// fails loudly instead of guessing.
type Null struct{}

func (Null) Extract(context.Context, model.Document) (model.ExtractionResult, error) {
	return model.ExtractionResult{}, fault.New(fault.ClassInternal, "no extraction backend configured")
}

var _ Extractor = Null{}

// FromConfig selects the production adapter, or Null when unconfigured.
func FromConfig(cfg config.ExtractorConfig) Extractor {
	if cfg.BaseURL == "" {
		return Null{}
	}
	return NewClient(cfg)
}
