package models

import (
	"strings"

	"github.com/aleister1102/resourcewatch/internal/common"
)

// ResourceType is the closed set of downloadable resource kinds.
type ResourceType string

const (
	ResourcePDF   ResourceType = "pdf"
	ResourceImage ResourceType = "image"
	ResourceAudio ResourceType = "audio"
	ResourceVideo ResourceType = "video"
)

var extensionTypes = map[string]ResourceType{
	".pdf":  ResourcePDF,
	".jpg":  ResourceImage,
	".jpeg": ResourceImage,
	".png":  ResourceImage,
	".webp": ResourceImage,
	".mp3":  ResourceAudio,
	".wav":  ResourceAudio,
	".ogg":  ResourceAudio,
	".m4a":  ResourceAudio,
	".mp4":  ResourceVideo,
	".mkv":  ResourceVideo,
	".mov":  ResourceVideo,
	".webm": ResourceVideo,
}

// AllResourceTypes lists every resource kind in display order.
func AllResourceTypes() []ResourceType {
	return []ResourceType{ResourcePDF, ResourceImage, ResourceAudio, ResourceVideo}
}

// ClassifyExtension maps a lowercased extension (with dot) to its resource type.
func ClassifyExtension(ext string) (ResourceType, bool) {
	t, ok := extensionTypes[strings.ToLower(ext)]
	return t, ok
}

// ParseResourceType parses a user-supplied type name.
func ParseResourceType(s string) (ResourceType, error) {
	switch ResourceType(strings.ToLower(strings.TrimSpace(s))) {
	case ResourcePDF:
		return ResourcePDF, nil
	case ResourceImage:
		return ResourceImage, nil
	case ResourceAudio:
		return ResourceAudio, nil
	case ResourceVideo:
		return ResourceVideo, nil
	}
	return "", common.NewValidationError("type", s, "unknown resource type")
}

// IsDocument reports whether the type is subject to rasterization.
func (t ResourceType) IsDocument() bool {
	return t == ResourcePDF
}

func (t ResourceType) String() string {
	return string(t)
}

// Resource is a classified downloadable link found on a fetched page.
// Hash is computed over the decoded URL, so a link is new exactly once.
// Source keeps the link's original escaping and is what gets requested.
type Resource struct {
	URL         string       `json:"url"`
	Source      string       `json:"source,omitempty"`
	Type        ResourceType `json:"type"`
	Hash        string       `json:"hash"`
	DisplayText string       `json:"display_text,omitempty"`
}

// FetchURL returns the address to request for the resource.
func (r Resource) FetchURL() string {
	if r.Source != "" {
		return r.Source
	}
	return r.URL
}

// NewResource builds a descriptor and computes its identity digest.
func NewResource(absoluteURL string, resourceType ResourceType, displayText string) Resource {
	return Resource{
		URL:         absoluteURL,
		Type:        resourceType,
		Hash:        ResourceHash(absoluteURL),
		DisplayText: strings.TrimSpace(displayText),
	}
}

// ResourceHash returns the identity digest for a resource URL.
func ResourceHash(absoluteURL string) string {
	return common.SHA256Hex([]byte(absoluteURL))
}

// Document is a named document link shown by the documents listing.
type Document struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// DocumentExtensions are the link extensions included in document listings.
var DocumentExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".xls":  true,
	".xlsx": true,
	".ppt":  true,
	".pptx": true,
	".txt":  true,
}
