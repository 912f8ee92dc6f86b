package fetcher

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/BishopFox/jsluice"
	"github.com/PuerkitoBio/goquery"
	"github.com/aleister1102/resourcewatch/internal/common"
	"github.com/aleister1102/resourcewatch/internal/models"
	"github.com/aleister1102/resourcewatch/internal/urlhandler"
	"github.com/rs/zerolog"
)

// linkSource maps an element to the attribute holding its link
type linkSource struct {
	Tag       string
	Attribute string
}

func defaultLinkSources() []linkSource {
	return []linkSource{
		{"a", "href"},
		{"img", "src"},
		{"audio", "src"},
		{"video", "src"},
		{"source", "src"},
	}
}

// Extraction is everything pulled out of one page.
type Extraction struct {
	Resources []models.Resource
	Documents []models.Document
	// Dropped holds one ExtractionError per link that could not be resolved.
	Dropped []error
}

// ResourceExtractor finds classified resource links in page markup
type ResourceExtractor struct {
	sources     []linkSource
	scanScripts bool
	logger      zerolog.Logger
}

// NewResourceExtractor creates an extractor. With scanScripts, inline scripts are searched for URLs.
func NewResourceExtractor(scanScripts bool, logger zerolog.Logger) *ResourceExtractor {
	return &ResourceExtractor{
		sources:     defaultLinkSources(),
		scanScripts: scanScripts,
		logger:      logger.With().Str("component", "ResourceExtractor").Logger(),
	}
}

// extractionState collects results in document order, keeping the first occurrence of each URL
type extractionState struct {
	base     *url.URL
	seen     map[string]struct{}
	seenDocs map[string]struct{}
	result   Extraction
}

// Extract parses markup and returns its resources and documents.
func (re *ResourceExtractor) Extract(body []byte, base *url.URL) (*Extraction, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, common.WrapError(err, "failed to parse page markup")
	}

	state := &extractionState{
		base:     base,
		seen:     make(map[string]struct{}),
		seenDocs: make(map[string]struct{}),
	}

	selector := make([]string, 0, len(re.sources))
	for _, src := range re.sources {
		selector = append(selector, src.Tag+"["+src.Attribute+"]")
	}

	doc.Find(strings.Join(selector, ", ")).Each(func(_ int, sel *goquery.Selection) {
		tag := goquery.NodeName(sel)
		attr := "src"
		if tag == "a" {
			attr = "href"
		}
		raw, _ := sel.Attr(attr)

		absolute, err := urlhandler.ResolveURL(raw, base)
		if err != nil {
			state.result.Dropped = append(state.result.Dropped, common.NewExtractionError(raw, "unresolvable link", err))
			return
		}
		decoded := urlhandler.DecodeURL(absolute)
		text := displayText(tag, sel)

		state.addResource(absolute, decoded, text)
		if tag == "a" {
			state.addDocument(decoded, text)
		}
	})

	if re.scanScripts {
		doc.Find("script").Each(func(_ int, sel *goquery.Selection) {
			if _, hasSrc := sel.Attr("src"); hasSrc {
				return
			}
			re.scanScript(state, []byte(sel.Text()))
		})
	}

	return &state.result, nil
}

func (re *ResourceExtractor) scanScript(state *extractionState, script []byte) {
	if len(bytes.TrimSpace(script)) == 0 {
		return
	}
	analyzer := jsluice.NewAnalyzer(script)
	for _, found := range analyzer.GetURLs() {
		absolute, err := urlhandler.ResolveURL(found.URL, state.base)
		if err != nil {
			state.result.Dropped = append(state.result.Dropped, common.NewExtractionError(found.URL, "unresolvable script URL", err))
			continue
		}
		state.addResource(absolute, urlhandler.DecodeURL(absolute), "")
	}
}

// addResource classifies by the escaped link so that decoded reserved
// characters in a file name cannot hide its extension.
func (s *extractionState) addResource(absolute, decoded, text string) {
	resourceType, ok := models.ClassifyExtension(urlhandler.Extension(absolute))
	if !ok {
		return
	}
	if _, dup := s.seen[decoded]; dup {
		return
	}
	s.seen[decoded] = struct{}{}
	resource := models.NewResource(decoded, resourceType, text)
	resource.Source = absolute
	s.result.Resources = append(s.result.Resources, resource)
}

func (s *extractionState) addDocument(decoded, text string) {
	if !models.DocumentExtensions[urlhandler.Extension(decoded)] {
		return
	}
	if _, dup := s.seenDocs[decoded]; dup {
		return
	}
	s.seenDocs[decoded] = struct{}{}

	name := text
	if name == "" {
		name = urlhandler.BaseName(decoded)
	}
	s.result.Documents = append(s.result.Documents, models.Document{Name: name, URL: decoded})
}

func displayText(tag string, sel *goquery.Selection) string {
	switch tag {
	case "a":
		return strings.Join(strings.Fields(sel.Text()), " ")
	case "img":
		alt, _ := sel.Attr("alt")
		return strings.TrimSpace(alt)
	default:
		title, _ := sel.Attr("title")
		return strings.TrimSpace(title)
	}
}
