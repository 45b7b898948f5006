package extraction

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// PlainTextExtractor passes UTF-8 text through unchanged apart from
// whitespace normalization at the edges.
type PlainTextExtractor struct{}

func (e *PlainTextExtractor) ExtractText(data []byte, mimeType string) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("file is not valid UTF-8 text")
	}
	return strings.TrimSpace(string(data)), nil
}
