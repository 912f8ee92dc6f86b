package urlhandler

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/aleister1102/resourcewatch/internal/common"
)

// Regex for cleaning filenames
var (
	unsafeFilenameCharsRegex = regexp.MustCompile(`[^a-zA-Z0-9_.-]+`)
	multipleUnderscoresRegex = regexp.MustCompile(`_+`)
)

// NormalizeURL normalizes a URL by adding scheme if missing and lowercasing the domain
func NormalizeURL(rawURL string) (string, error) {
	trimmedURL := strings.TrimSpace(rawURL)
	if trimmedURL == "" {
		return "", common.NewError("URL is empty")
	}

	if !strings.HasPrefix(trimmedURL, "http://") && !strings.HasPrefix(trimmedURL, "https://") {
		trimmedURL = "https://" + trimmedURL
	}

	parsedURL, err := url.Parse(trimmedURL)
	if err != nil {
		return "", common.WrapError(err, "could not parse URL '"+trimmedURL+"'")
	}
	if parsedURL.Host == "" {
		return "", common.NewError("URL '%s' has no host", trimmedURL)
	}

	parsedURL.Host = strings.ToLower(parsedURL.Host)

	return parsedURL.String(), nil
}

// ResolveURL resolves a relative or absolute URL against a base URL
func ResolveURL(href string, base *url.URL) (string, error) {
	trimmedHref := strings.TrimSpace(href)
	if trimmedHref == "" {
		return "", common.NewError("href is empty")
	}

	parsedHref, err := url.Parse(trimmedHref)
	if err != nil {
		return "", common.WrapError(err, "error parsing href '"+trimmedHref+"'")
	}
	if parsedHref.IsAbs() {
		return parsedHref.String(), nil
	}

	if base == nil {
		return "", common.NewError("cannot process relative URL '%s' without a base URL", trimmedHref)
	}

	return base.ResolveReference(parsedHref).String(), nil
}

// DecodeURL percent-decodes an absolute URL string. Undecodable input is returned unchanged.
func DecodeURL(absoluteURL string) string {
	decoded, err := url.PathUnescape(absoluteURL)
	if err != nil {
		return absoluteURL
	}
	return decoded
}

// Extension returns the lowercased extension of the URL path, ignoring query and fragment.
func Extension(rawURL string) string {
	p := rawURL
	if parsed, err := url.Parse(rawURL); err == nil {
		p = parsed.Path
	} else if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	return strings.ToLower(path.Ext(p))
}

// BaseName returns the last path segment of the URL without extension.
func BaseName(rawURL string) string {
	p := rawURL
	if parsed, err := url.Parse(rawURL); err == nil {
		p = parsed.Path
	}
	base := path.Base(p)
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, path.Ext(base))
}

// SanitizeFilename creates a safe filename string from a URL or any input string.
func SanitizeFilename(input string) string {
	name := input
	if i := strings.Index(name, "://"); i != -1 {
		name = name[i+3:]
	}

	name = unsafeFilenameCharsRegex.ReplaceAllString(name, "_")
	name = multipleUnderscoresRegex.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")

	if name == "" {
		return "sanitized_empty_input"
	}

	return name
}
