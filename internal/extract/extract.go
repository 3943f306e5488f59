// SPDX-License-Identifier: MIT

// Package extract normalizes a raw document into a structured, possibly
// incomplete payment intent, or declares it unprocessable. The extraction
// backend is a black box behind the Extractor capability interface.
package extract

import (
	"context"

	"github.com/payflowd/payflow/internal/model"
)

// Extractor is the document-understanding boundary. Implementations must
// return either a processable result with non-nil fields or an unprocessable
// result with a non-empty reason; backend outages are reported as errors,
// never encoded as unprocessable.
type Extractor interface {
	Extract(ctx context.Context, doc model.Document) (model.ExtractionResult, error)
}

// supportedMimeTypes is the closed set of document formats the workflow
// accepts. Anything else is unprocessable, not a hard failure.
var supportedMimeTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
	"image/webp":      true,
	"image/heic":      true,
	"image/tiff":      true,
}

// CheckInput applies the adapter's input constraints. A violation yields an
// unprocessable result (ok=false) instead of an error so the workflow can
// surface the reason to the user.
func CheckInput(doc model.Document) (model.ExtractionResult, bool) {
	if len(doc.Bytes) == 0 {
		return model.Unprocessable("empty document"), false
	}
	if !supportedMimeTypes[doc.MimeType] {
		return model.Unprocessable("unsupported format"), false
	}
	return model.ExtractionResult{}, true
}

// gate enforces the minimal processability contract on backend output:
// a processable invoice must carry an amount. Results are downgraded rather
// than rejected so the user sees why extraction stopped.
func gate(res model.ExtractionResult) model.ExtractionResult {
	if !res.Processable {
		if res.Reason == "" {
			res.Reason = "document could not be processed"
		}
		res.Fields = nil
		return res
	}
	if res.Fields == nil {
		res.Fields = &model.ExtractionFields{}
	}
	if res.Fields.Amount == nil {
		res.Processable = false
		if res.Reason == "" {
			res.Reason = "no amount found in document"
		}
		res.Fields.Warnings = append(res.Fields.Warnings, "amount not found; marked unprocessable")
	}
	return res
}
