// Package extraction turns uploaded invoice documents into validated
// invoice proposals. The document-understanding capability itself is opaque
// behind DocumentReader; this package owns only the validation and
// normalization of whatever the reader returns.
package extraction

import (
	"context"
	"encoding/json"
)

// DocumentReader is the external document-understanding capability. Extract
// returns a candidate invoice payload as raw JSON, or nil when the document
// yields no data. Only transport-level failures are errors; an unreadable
// document is absence, not an error.
type DocumentReader interface {
	Extract(ctx context.Context, filePath string) (json.RawMessage, error)
}
