package common

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapError(t *testing.T) {
	tests := []struct {
		name            string
		originalError   error
		message         string
		expectedMessage string
	}{
		{
			name:            "wrap simple error",
			originalError:   errors.New("original error"),
			message:         "wrapper message",
			expectedMessage: "wrapper message: original error",
		},
		{
			name:            "empty wrapper message",
			originalError:   errors.New("original error"),
			message:         "",
			expectedMessage: ": original error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrappedError := WrapError(tt.originalError, tt.message)
			require.Error(t, wrappedError)
			assert.Equal(t, tt.expectedMessage, wrappedError.Error())
			assert.ErrorIs(t, wrappedError, tt.originalError)
		})
	}

	assert.NoError(t, WrapError(nil, "ignored"))
}

func TestHTTPError(t *testing.T) {
	err := NewHTTPErrorWithURL(http.StatusNotFound, "resource not found", "https://example.com/a.pdf")
	assert.Equal(t, "HTTP 404 error for 'https://example.com/a.pdf': resource not found", err.Error())
}

func TestTaxonomyUnwrap(t *testing.T) {
	root := errors.New("connection reset")

	t.Run("fetch error", func(t *testing.T) {
		var err error = NewFetchError("https://example.com", root)
		var fe *FetchError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "https://example.com", fe.URL)
		assert.ErrorIs(t, err, root)
	})

	t.Run("acquisition error exposes both attempts", func(t *testing.T) {
		limit := NewSizeLimitExceeded("https://example.com/big.mp4", 10, 11)
		var err error = NewAcquisitionError("https://example.com/big.mp4", root, limit)

		assert.ErrorIs(t, err, root)
		var sle *SizeLimitExceeded
		require.ErrorAs(t, err, &sle)
		assert.Equal(t, int64(10), sle.Limit)
	})

	t.Run("render error", func(t *testing.T) {
		var err error = NewRenderError("/tmp/doc.pdf", 150, root)
		assert.Contains(t, err.Error(), "150 dpi")
		assert.ErrorIs(t, err, root)
	})

	t.Run("persistence error", func(t *testing.T) {
		var err error = NewPersistenceError("apply check result", "1_abc", root)
		var pe *PersistenceError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "1_abc", pe.TargetID)
	})
}

func TestErrorCollector(t *testing.T) {
	var ec ErrorCollector
	assert.False(t, ec.HasErrors())
	assert.NoError(t, ec.Error())

	ec.Add(nil)
	ec.Add(errors.New("first"))
	ec.AddWithContext(errors.New("second"), "ctx")

	assert.True(t, ec.HasErrors())
	assert.Len(t, ec.Errors(), 2)
	assert.Equal(t, "multiple errors occurred: [first; ctx: second]", ec.Error().Error())
}

func TestSHA256Hex(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", SHA256Hex(nil))
	assert.Len(t, ShortHash("https://example.com", 16), 16)
	assert.Equal(t, SHA256Hex([]byte("x")), ShortHash("x", 0))
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "state.json")

	require.NoError(t, WriteFileAtomic(path, []byte("one"), 0644))
	require.NoError(t, WriteFileAtomic(path, []byte("two"), 0644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
