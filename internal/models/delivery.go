package models

// TargetMeta identifies the target a delivery belongs to.
type TargetMeta struct {
	ID    string
	Owner string
	Name  string
	URL   string
}

// ResourceMeta describes the resource being delivered.
type ResourceMeta struct {
	URL         string
	Type        ResourceType
	DisplayText string
}

// MetaOf returns the delivery metadata of a resource.
func MetaOf(r Resource) ResourceMeta {
	return ResourceMeta{URL: r.FetchURL(), Type: r.Type, DisplayText: r.DisplayText}
}

// PayloadKind distinguishes a single artifact from a page-image album.
type PayloadKind int

const (
	PayloadArtifact PayloadKind = iota
	PayloadAlbum
)

// Payload is the content handed to a delivery sink.
type Payload struct {
	Kind   PayloadKind
	Path   string
	Images []string
}

// ArtifactPayload wraps a single local file.
func ArtifactPayload(path string) Payload {
	return Payload{Kind: PayloadArtifact, Path: path}
}

// AlbumPayload wraps an ordered image sequence.
func AlbumPayload(images []string) Payload {
	return Payload{Kind: PayloadAlbum, Images: images}
}

// Files returns every local path referenced by the payload, in order.
func (p Payload) Files() []string {
	if p.Kind == PayloadAlbum {
		return p.Images
	}
	if p.Path == "" {
		return nil
	}
	return []string{p.Path}
}

// RenderJob describes one rasterization run.
type RenderJob struct {
	ID        string
	InputPath string
	OutputDir string
	DPI       int
}
