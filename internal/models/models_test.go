package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyExtension(t *testing.T) {
	tests := []struct {
		ext      string
		expected ResourceType
		ok       bool
	}{
		{".pdf", ResourcePDF, true},
		{".PDF", ResourcePDF, true},
		{".jpeg", ResourceImage, true},
		{".webp", ResourceImage, true},
		{".m4a", ResourceAudio, true},
		{".webm", ResourceVideo, true},
		{".docx", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ClassifyExtension(tt.ext)
		assert.Equal(t, tt.ok, ok, tt.ext)
		assert.Equal(t, tt.expected, got, tt.ext)
	}
}

func TestParseResourceType(t *testing.T) {
	got, err := ParseResourceType(" Video ")
	require.NoError(t, err)
	assert.Equal(t, ResourceVideo, got)

	_, err = ParseResourceType("zip")
	assert.Error(t, err)
}

func TestNewResource_HashIsOverURL(t *testing.T) {
	a := NewResource("https://example.com/a.pdf", ResourcePDF, " Report ")
	b := NewResource("https://example.com/a.pdf", ResourcePDF, "other text")

	assert.Equal(t, a.Hash, b.Hash)
	assert.Len(t, a.Hash, 64)
	assert.Equal(t, "Report", a.DisplayText)
	assert.True(t, a.Type.IsDocument())
	assert.False(t, ResourceAudio.IsDocument())
}

func TestTargetID(t *testing.T) {
	id := TargetID("42", "https://example.com")
	assert.True(t, strings.HasPrefix(id, "42_"))
	assert.Len(t, id, len("42_")+16)
	assert.NotEqual(t, id, TargetID("42", "https://example.org"))
}

func TestTarget_Validate(t *testing.T) {
	target := Target{Owner: "1", URL: "https://example.com", IntervalMinutes: 5}
	assert.NoError(t, target.Validate())

	target.IntervalMinutes = 0
	assert.Error(t, target.Validate())
}

func TestHashSet(t *testing.T) {
	s := NewHashSet("b", "a")
	s.Add("c")
	assert.True(t, s.Has("a"))
	assert.False(t, s.Has("z"))
	assert.Equal(t, []string{"a", "b", "c"}, s.Sorted())
}

func TestFilter(t *testing.T) {
	f := Filter{}
	assert.True(t, f.IsEmpty())
	assert.True(t, f.AllowsType(ResourceVideo))
	assert.True(t, f.AllowsSize(1<<40))

	f.Types = []ResourceType{ResourcePDF}
	f.SizeRanges = []SizeRange{{Min: 0, Max: 1000}, {Min: 5000, Max: 6000}}
	assert.True(t, f.AllowsType(ResourcePDF))
	assert.False(t, f.AllowsType(ResourceImage))
	assert.True(t, f.AllowsSize(1000))
	assert.False(t, f.AllowsSize(2000))
	assert.True(t, f.AllowsSize(5500))

	f.Regex = "("
	_, err := f.CompileRegex()
	assert.Error(t, err)
}

func TestParseSizeRange(t *testing.T) {
	r, err := ParseSizeRange("100-2000")
	require.NoError(t, err)
	assert.Equal(t, SizeRange{Min: 100, Max: 2000}, r)

	for _, bad := range []string{"100", "a-b", "10-5"} {
		_, err := ParseSizeRange(bad)
		assert.Error(t, err, bad)
	}
}

func TestStats_UptimePercent(t *testing.T) {
	s := Stats{}
	assert.Zero(t, s.UptimePercent())

	s.Counter(StatChecks).Success = 3
	s.Counter(StatChecks).Failure = 1
	assert.InDelta(t, 75.0, s.UptimePercent(), 0.001)
}

func TestPayload_Files(t *testing.T) {
	assert.Equal(t, []string{"/tmp/a.pdf"}, ArtifactPayload("/tmp/a.pdf").Files())
	assert.Equal(t, []string{"1.png", "2.png"}, AlbumPayload([]string{"1.png", "2.png"}).Files())
	assert.Nil(t, Payload{}.Files())
}
