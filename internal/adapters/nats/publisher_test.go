package natsadapter

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestPreviewOf(t *testing.T) {
	short := "nice shot"
	if got := previewOf(short); got != short {
		t.Errorf("short comments must pass through, got %q", got)
	}

	exact := strings.Repeat("a", commentPreviewLen)
	if got := previewOf(exact); got != exact {
		t.Errorf("comment at the limit must pass through, got %d chars", len(got))
	}

	long := strings.Repeat("b", commentPreviewLen+40)
	got := previewOf(long)
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated preview must end with ellipsis: %q", got)
	}
	if utf8.RuneCountInString(got) != commentPreviewLen+3 {
		t.Errorf("expected %d runes, got %d", commentPreviewLen+3, utf8.RuneCountInString(got))
	}

	// Truncation must not split multi-byte runes.
	wide := strings.Repeat("ü", commentPreviewLen+10)
	if !utf8.ValidString(previewOf(wide)) {
		t.Error("preview broke a multi-byte rune")
	}
}
