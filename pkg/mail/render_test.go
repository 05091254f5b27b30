package mail

import (
	"strings"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

var testItems = []RankedItem{
	{Rank: 1, Title: "New Model Drops", Summary: "A model was released.", URL: "https://example.com/a", SourceType: "anthropic", RelevanceScore: 9.2},
	{Rank: 2, Title: "Agent Benchmarks", Summary: "Benchmarks improved.", URL: "https://example.com/b", SourceType: "youtube", RelevanceScore: 7.5},
}

func TestSubject(t *testing.T) {
	date := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, Subject("Ada", date), "Daily AI News Digest for Ada - Jun 1, 2025")
	assert.Equal(t, Subject("", date), "Daily AI News Digest - Jun 1, 2025")
}

func TestRenderText(t *testing.T) {
	got := RenderText("Ada", testItems)

	assert.Equal(t, strings.Contains(got, "Hello Ada"), true)
	assert.Equal(t, strings.Contains(got, "1. New Model Drops [anthropic]"), true)
	assert.Equal(t, strings.Contains(got, "https://example.com/b"), true)
	assert.Equal(t, strings.Contains(got, "top 2 AI stories"), true)
}

func TestRenderHTML(t *testing.T) {
	got, err := RenderHTML("Ada", testItems)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assert.Equal(t, strings.Contains(got, `<a href="https://example.com/a">New Model Drops</a>`), true)
	assert.Equal(t, strings.Contains(got, "relevance 9.2"), true)
}

func TestRenderHTML_EscapesContent(t *testing.T) {
	items := []RankedItem{{Rank: 1, Title: "<script>alert(1)</script>", Summary: "s", URL: "https://example.com"}}

	got, err := RenderHTML("", items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assert.Equal(t, strings.Contains(got, "<script>alert(1)</script>"), false)
}

func TestBuildMessage(t *testing.T) {
	msg := string(buildMessage("digest@example.com", []string{"a@example.com"}, "Subj", "text body", "<p>html body</p>"))

	assert.Equal(t, strings.Contains(msg, "Subject: Subj"), true)
	assert.Equal(t, strings.Contains(msg, "To: a@example.com"), true)
	assert.Equal(t, strings.Contains(msg, "text body"), true)
	assert.Equal(t, strings.Contains(msg, "<p>html body</p>"), true)
	assert.Equal(t, strings.Contains(msg, "multipart/alternative"), true)
}

func TestBuildMessage_StripsCRLFFromHeaders(t *testing.T) {
	subject := "Digest for Eve\r\nBcc: attacker@example.com"
	msg := string(buildMessage("digest@example.com", []string{"a@example.com\r\nCc: b@example.com"}, subject, "body", ""))

	// The injected newlines must never start a header line of their own.
	assert.Equal(t, strings.Contains(msg, "\r\nBcc:"), false)
	assert.Equal(t, strings.Contains(msg, "\r\nCc:"), false)
	assert.Equal(t, strings.Contains(msg, "Subject: Digest for EveBcc: attacker@example.com\r\n"), true)
}
