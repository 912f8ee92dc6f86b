package rasterizer

import (
	"os"

	"github.com/aleister1102/resourcewatch/internal/config"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// PageCounter reads the number of pages in a document.
type PageCounter interface {
	PageCount(path string) (int, error)
}

// PDFPageCounter counts pages with pdfcpu.
type PDFPageCounter struct{}

// PageCount returns the page count of a PDF file.
func (PDFPageCounter) PageCount(path string) (int, error) {
	return api.PageCountFile(path)
}

// GateResult is the outcome of the size/page gate.
type GateResult struct {
	Size  int64
	Pages int
	Pass  bool
	// CountErr is set when the page count could not be read; only size is gated then.
	CountErr error
}

func checkGate(path string, counter PageCounter, cfg config.RasterizerConfig) (GateResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return GateResult{}, err
	}

	result := GateResult{Size: info.Size()}
	pages, err := counter.PageCount(path)
	if err != nil || pages <= 0 {
		result.CountErr = err
		result.Pass = result.Size <= cfg.SizeThresholdBytes
		return result, nil
	}
	result.Pages = pages
	result.Pass = result.Size <= cfg.SizeThresholdBytes && pages <= cfg.PageThreshold
	return result, nil
}

// SelectDPI maps the average page density (KB per page) onto the step table.
// Tier bounds are exclusive upper limits; the last tier is unbounded.
func SelectDPI(tiers []config.DPITier, size int64, pages int) int {
	if len(tiers) == 0 {
		tiers = config.DefaultDPITiers()
	}
	if pages <= 0 {
		pages = 1
	}
	density := float64(size) / 1024.0 / float64(pages)
	for _, tier := range tiers {
		if tier.MaxKBPerPage == 0 || density < tier.MaxKBPerPage {
			return tier.DPI
		}
	}
	return tiers[len(tiers)-1].DPI
}
