package urlhandler

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{name: "adds scheme", input: "Example.COM/docs", expected: "https://example.com/docs"},
		{name: "keeps http", input: "http://example.com", expected: "http://example.com"},
		{name: "trims spaces", input: "  https://example.com/a  ", expected: "https://example.com/a"},
		{name: "empty", input: "   ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeURL(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestResolveURL(t *testing.T) {
	base, err := url.Parse("https://example.com/library/index.html")
	require.NoError(t, err)

	got, err := ResolveURL("files/report.pdf", base)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/library/files/report.pdf", got)

	got, err = ResolveURL("/root.png", base)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/root.png", got)

	got, err = ResolveURL("https://cdn.example.org/a.mp3", base)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.org/a.mp3", got)

	_, err = ResolveURL("relative.pdf", nil)
	assert.Error(t, err)

	_, err = ResolveURL("", base)
	assert.Error(t, err)
}

func TestDecodeURL(t *testing.T) {
	assert.Equal(t, "https://example.com/my file.pdf", DecodeURL("https://example.com/my%20file.pdf"))
	assert.Equal(t, "https://example.com/bad%zz.pdf", DecodeURL("https://example.com/bad%zz.pdf"))
}

func TestExtension(t *testing.T) {
	assert.Equal(t, ".pdf", Extension("https://example.com/Report.PDF?download=1#page=2"))
	assert.Equal(t, ".jpeg", Extension("https://example.com/img/photo.jpeg"))
	assert.Equal(t, "", Extension("https://example.com/"))
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "annual-report", BaseName("https://example.com/docs/annual-report.pdf"))
	assert.Equal(t, "", BaseName("https://example.com/"))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "example.com_a_b.pdf", SanitizeFilename("https://example.com/a/b.pdf"))
	assert.Equal(t, "sanitized_empty_input", SanitizeFilename("https://"))
}
