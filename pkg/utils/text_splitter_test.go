package utils

import (
	"strings"
	"testing"
)

func TestSplitTextShortInput(t *testing.T) {
	chunks := SplitText("short text", 100, 10)
	if len(chunks) != 1 || chunks[0] != "short text" {
		t.Errorf("SplitText = %v, want single untouched chunk", chunks)
	}
}

func TestSplitTextOverlap(t *testing.T) {
	text := strings.Repeat("abcdefghij", 10) // 100 chars
	chunks := SplitText(text, 40, 10)

	if len(chunks) < 3 {
		t.Fatalf("chunk count = %d, want at least 3", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk) > 40 {
			t.Errorf("chunk %d length = %d, want <= 40", i, len(chunk))
		}
	}

	// Consecutive chunks share the overlap region.
	for i := 1; i < len(chunks); i++ {
		prevTail := chunks[i-1][len(chunks[i-1])-10:]
		if !strings.HasPrefix(chunks[i], prevTail) {
			t.Errorf("chunk %d does not start with previous tail %q", i, prevTail)
		}
	}
}

func TestSplitTextCoversWholeInput(t *testing.T) {
	text := strings.Repeat("x", 95)
	chunks := SplitText(text, 40, 10)

	last := chunks[len(chunks)-1]
	if !strings.HasSuffix(text, last) {
		t.Error("last chunk is not a suffix of the input")
	}

	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	if total < len(text) {
		t.Errorf("chunks cover %d chars, input has %d", total, len(text))
	}
}

func TestSplitTextOverlapLargerThanChunk(t *testing.T) {
	text := strings.Repeat("y", 50)
	chunks := SplitText(text, 10, 20)
	if len(chunks) == 0 {
		t.Fatal("no chunks returned")
	}
	// Must terminate and still cover the input end.
	if !strings.HasSuffix(text, chunks[len(chunks)-1]) {
		t.Error("last chunk is not a suffix of the input")
	}
}

func TestWordCount(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"whitespace only", "  \n\t ", 0},
		{"single word", "aspirin", 1},
		{"sentence", "Patient reports mild headache.", 4},
		{"irregular spacing", "  BP   120/80\nafebrile ", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WordCount(tt.text); got != tt.want {
				t.Errorf("WordCount(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}
