// SPDX-License-Identifier: MIT

package extract_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payflowd/payflow/internal/config"
	"github.com/payflowd/payflow/internal/extract"
	"github.com/payflowd/payflow/internal/fault"
	"github.com/payflowd/payflow/internal/model"
)

func pdfDoc() model.Document {
	return model.Document{Bytes: []byte("%PDF-1.7 fake"), MimeType: "application/pdf", Filename: "invoice.pdf"}
}

func TestStub_RejectsUnsupportedInput(t *testing.T) {
	stub := &extract.Stub{}

	res, err := stub.Extract(context.Background(), model.Document{MimeType: "application/pdf"})
	require.NoError(t, err)
	assert.False(t, res.Processable)
	assert.Equal(t, "empty document", res.Reason)

	res, err = stub.Extract(context.Background(), model.Document{Bytes: []byte("x"), MimeType: "text/plain"})
	require.NoError(t, err)
	assert.False(t, res.Processable)
	assert.Equal(t, "unsupported format", res.Reason)
}

func TestStub_AmountGate(t *testing.T) {
	// A processable claim without an amount is downgraded, with a reason.
	stub := &extract.Stub{Result: model.ExtractionResult{
		Processable: true,
		Fields:      &model.ExtractionFields{PayeeName: "Acme"},
	}}

	res, err := stub.Extract(context.Background(), pdfDoc())
	require.NoError(t, err)
	assert.False(t, res.Processable)
	assert.Equal(t, "no amount found in document", res.Reason)
}

func TestStub_PassesThroughProcessableResult(t *testing.T) {
	amt := decimal.RequireFromString("99.50")
	stub := &extract.Stub{Result: model.ExtractionResult{
		Processable: true,
		Fields:      &model.ExtractionFields{PayeeName: "Acme", Amount: &amt, Currency: "USD"},
	}}

	res, err := stub.Extract(context.Background(), pdfDoc())
	require.NoError(t, err)
	require.True(t, res.Processable)
	assert.Equal(t, "Acme", res.Fields.PayeeName)
	assert.Equal(t, 1, stub.Calls)
}

func TestClient_BackendOutageIsRetryableError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := extract.NewClient(config.ExtractorConfig{BaseURL: srv.URL, Timeout: 2 * time.Second})
	_, err := c.Extract(context.Background(), pdfDoc())
	require.Error(t, err)
	assert.True(t, fault.IsRetryable(err))
}

func TestClient_DecodesBackendResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"processable": true,
			"fields": map[string]any{
				"payeeName": "Acme Corp",
				"amount":    "1250.00",
				"currency":  "EUR",
			},
		})
	}))
	defer srv.Close()

	c := extract.NewClient(config.ExtractorConfig{BaseURL: srv.URL, Timeout: 2 * time.Second})
	res, err := c.Extract(context.Background(), pdfDoc())
	require.NoError(t, err)
	require.True(t, res.Processable)
	assert.Equal(t, "Acme Corp", res.Fields.PayeeName)
	require.NotNil(t, res.Fields.Amount)
	assert.Equal(t, "1250", res.Fields.Amount.String())
}

func TestNull_FailsLoudly(t *testing.T) {
	_, err := extract.Null{}.Extract(context.Background(), pdfDoc())
	require.Error(t, err)
}

func TestFromConfig(t *testing.T) {
	assert.IsType(t, extract.Null{}, extract.FromConfig(config.ExtractorConfig{}))
	assert.IsType(t, &extract.Client{}, extract.FromConfig(config.ExtractorConfig{BaseURL: "http://localhost:9"}))
}
