package llm

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateContent(t *testing.T) {
	short := "hello"
	if got := truncateContent(short, 10); got != short {
		t.Errorf("got %q, want %q", got, short)
	}

	// A multi-byte rune straddling the limit must be dropped whole.
	straddling := strings.Repeat("a", 9) + "世"
	got := truncateContent(straddling, 10)
	if !utf8.ValidString(got) {
		t.Errorf("truncated content is not valid UTF-8: %q", got)
	}
	if got != strings.Repeat("a", 9) {
		t.Errorf("got %q, want %q", got, strings.Repeat("a", 9))
	}

	exact := strings.Repeat("b", 10)
	if got := truncateContent(exact, 10); got != exact {
		t.Errorf("got %q, want %q", got, exact)
	}
}
