package models

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/aleister1102/resourcewatch/internal/common"
)

// SizeRange is an inclusive byte range.
type SizeRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// Contains reports whether size falls within the range.
func (r SizeRange) Contains(size int64) bool {
	return size >= r.Min && size <= r.Max
}

// ParseSizeRange parses "min-max" in bytes.
func ParseSizeRange(s string) (SizeRange, error) {
	parts := strings.SplitN(strings.TrimSpace(s), "-", 2)
	if len(parts) != 2 {
		return SizeRange{}, common.NewValidationError("size_range", s, "expected min-max")
	}
	minSize, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return SizeRange{}, common.NewValidationError("size_range", s, "invalid minimum")
	}
	maxSize, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return SizeRange{}, common.NewValidationError("size_range", s, "invalid maximum")
	}
	if minSize < 0 || maxSize < minSize {
		return SizeRange{}, common.NewValidationError("size_range", s, "range is empty")
	}
	return SizeRange{Min: minSize, Max: maxSize}, nil
}

// Filter narrows which new resources an owner receives.
// Empty fields do not constrain.
type Filter struct {
	Owner      string         `json:"owner"`
	Types      []ResourceType `json:"types,omitempty"`
	SizeRanges []SizeRange    `json:"size_ranges,omitempty"`
	Regex      string         `json:"regex,omitempty"`
}

// IsEmpty reports whether the filter accepts everything.
func (f Filter) IsEmpty() bool {
	return len(f.Types) == 0 && len(f.SizeRanges) == 0 && f.Regex == ""
}

// AllowsType reports whether the type passes the type constraint.
func (f Filter) AllowsType(t ResourceType) bool {
	if len(f.Types) == 0 {
		return true
	}
	for _, allowed := range f.Types {
		if allowed == t {
			return true
		}
	}
	return false
}

// AllowsSize reports whether size passes any configured range.
func (f Filter) AllowsSize(size int64) bool {
	if len(f.SizeRanges) == 0 {
		return true
	}
	for _, r := range f.SizeRanges {
		if r.Contains(size) {
			return true
		}
	}
	return false
}

// CompileRegex compiles the URL pattern; nil when unset.
func (f Filter) CompileRegex() (*regexp.Regexp, error) {
	if f.Regex == "" {
		return nil, nil
	}
	return regexp.Compile(f.Regex)
}
