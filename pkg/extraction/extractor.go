package extraction

import (
	"fmt"
	"strings"
)

// Extractor turns an uploaded file payload into plain text.
// Extraction either produces text or a terminal failure; "pending" is a
// property of the document record, not of the extractor.
type Extractor interface {
	ExtractText(data []byte, mimeType string) (string, error)
}

// Registry selects an extractor by MIME type.
type Registry struct {
	byMime map[string]Extractor
}

func NewRegistry() *Registry {
	r := &Registry{byMime: make(map[string]Extractor)}
	plain := &PlainTextExtractor{}
	r.Register("text/plain", plain)
	r.Register("text/markdown", plain)
	r.Register("application/pdf", &PDFExtractor{})
	return r
}

func (r *Registry) Register(mimeType string, e Extractor) {
	r.byMime[mimeType] = e
}

// ForMime returns the extractor for the given MIME type.
// Parameters after a semicolon (e.g., "text/plain; charset=utf-8") are ignored.
func (r *Registry) ForMime(mimeType string) (Extractor, error) {
	base := mimeType
	if idx := strings.Index(base, ";"); idx >= 0 {
		base = base[:idx]
	}
	base = strings.TrimSpace(strings.ToLower(base))

	e, ok := r.byMime[base]
	if !ok {
		return nil, fmt.Errorf("unsupported document type: %s", mimeType)
	}
	return e, nil
}
