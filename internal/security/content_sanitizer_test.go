package security

import (
	"strings"
	"testing"
)

func TestSanitize_RemovesScriptTags(t *testing.T) {
	sanitizer := NewContentSanitizer()

	got := sanitizer.Sanitize(`<p>水やりのコツ</p><script>alert("xss")</script>`)
	if strings.Contains(got, "script") || strings.Contains(got, "alert") {
		t.Errorf("script content survived sanitization: %q", got)
	}
	if !strings.Contains(got, "<p>水やりのコツ</p>") {
		t.Errorf("paragraph should be preserved: %q", got)
	}
}

func TestSanitize_RemovesEventHandlers(t *testing.T) {
	sanitizer := NewContentSanitizer()

	got := sanitizer.Sanitize(`<p onclick="steal()">text</p>`)
	if strings.Contains(got, "onclick") {
		t.Errorf("event handler survived sanitization: %q", got)
	}
}

func TestSanitize_RemovesIframes(t *testing.T) {
	sanitizer := NewContentSanitizer()

	got := sanitizer.Sanitize(`<iframe src="https://evil.example.com"></iframe><p>ok</p>`)
	if strings.Contains(got, "iframe") {
		t.Errorf("iframe survived sanitization: %q", got)
	}
}

func TestSanitize_PreservesAllowedMarkup(t *testing.T) {
	sanitizer := NewContentSanitizer()

	input := `<h2>植え替え</h2><ul><li>鉢を選ぶ</li></ul><blockquote>引用</blockquote><pre><code>x</code></pre><strong>重要</strong>`
	got := sanitizer.Sanitize(input)
	for _, tag := range []string{"<h2>", "<ul>", "<li>", "<blockquote>", "<pre>", "<code>", "<strong>"} {
		if !strings.Contains(got, tag) {
			t.Errorf("allowed tag %s was removed: %q", tag, got)
		}
	}
}

func TestSanitize_ForcesSafeLinkAttributes(t *testing.T) {
	sanitizer := NewContentSanitizer()

	got := sanitizer.Sanitize(`<a href="https://example.com">link</a>`)
	if !strings.Contains(got, `href="https://example.com"`) {
		t.Errorf("https link should be preserved: %q", got)
	}
	if !strings.Contains(got, "noreferrer") {
		t.Errorf("rel=noreferrer should be enforced on links: %q", got)
	}
}

func TestSanitize_AllowsHTTPSImagesOnly(t *testing.T) {
	sanitizer := NewContentSanitizer()

	got := sanitizer.Sanitize(`<img src="https://example.com/a.jpg" alt="ficus">`)
	if !strings.Contains(got, `src="https://example.com/a.jpg"`) {
		t.Errorf("https image should be preserved: %q", got)
	}

	got = sanitizer.Sanitize(`<img src="javascript:alert(1)">`)
	if strings.Contains(got, "javascript") {
		t.Errorf("javascript scheme survived sanitization: %q", got)
	}
}

func TestSanitize_EmptyInputReturnsEmpty(t *testing.T) {
	sanitizer := NewContentSanitizer()

	if got := sanitizer.Sanitize(""); got != "" {
		t.Errorf("Sanitize(\"\") = %q, want empty", got)
	}
}

func TestSanitize_IsIdempotent(t *testing.T) {
	sanitizer := NewContentSanitizer()

	input := `<p>text</p><script>alert(1)</script><a href="https://example.com">link</a>`
	once := sanitizer.Sanitize(input)
	twice := sanitizer.Sanitize(once)
	if once != twice {
		t.Errorf("sanitization is not idempotent: %q != %q", once, twice)
	}
}

func TestSanitizeText_StripsAllTags(t *testing.T) {
	sanitizer := NewContentSanitizer()

	got := sanitizer.SanitizeText(`<strong>多肉植物</strong>の<em>育て方</em>`)
	if strings.Contains(got, "<") {
		t.Errorf("tags survived text sanitization: %q", got)
	}
	if !strings.Contains(got, "多肉植物") || !strings.Contains(got, "育て方") {
		t.Errorf("text content was lost: %q", got)
	}
}
