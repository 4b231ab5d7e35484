// Package postal cleans and normalizes scraped postal-code data: expanding
// range notation into individual codes, splitting multi-code cities into one
// row per code, and folding diacritics for merge keys.
package postal

import (
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// rangeSeparator is the en-dash used in postal-code range notation
// ("01067–01069"). Sources use the typographic dash, not ASCII hyphen.
const rangeSeparator = '–'

// maxRangeSpan caps how many codes a single range may expand to. A scraped
// cell claiming a wider range than this is malformed source data.
const maxRangeSpan = 10000

// ExpandRanges parses a raw postal-code cell into individual codes.
//
// Grammar: the cell is a comma-separated list of segments after every
// character other than digits, commas, and en-dashes has been stripped.
// A segment is either a literal code, kept verbatim, or a range
// "start–end" expanded inclusively with zero-padding to the width of the
// start token. Empty and malformed segments (unparsable bounds, reversed or
// oversized ranges) are skipped with a logged warning, never a failure.
func ExpandRanges(cell string) []string {
	cleaned := stripInvalid(cell)

	var codes []string
	for segment := range strings.SplitSeq(cleaned, ",") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			if cell != "" {
				zap.L().Warn("postal: skipping empty range segment", zap.String("cell", cell))
			}
			continue
		}

		if !strings.ContainsRune(segment, rangeSeparator) {
			codes = append(codes, segment)
			continue
		}

		expanded, ok := expandSegment(segment)
		if !ok {
			zap.L().Warn("postal: skipping malformed range segment",
				zap.String("segment", segment),
				zap.String("cell", cell),
			)
			continue
		}
		codes = append(codes, expanded...)
	}
	return codes
}

// expandSegment expands one "start–end" segment into zero-padded codes.
func expandSegment(segment string) ([]string, bool) {
	bounds := strings.FieldsFunc(segment, func(r rune) bool { return r == rangeSeparator })
	if len(bounds) != 2 {
		return nil, false
	}

	start, err := strconv.Atoi(bounds[0])
	if err != nil {
		return nil, false
	}
	end, err := strconv.Atoi(bounds[1])
	if err != nil {
		return nil, false
	}
	if end < start || end-start > maxRangeSpan {
		return nil, false
	}

	width := len(bounds[0])
	codes := make([]string, 0, end-start+1)
	for code := start; code <= end; code++ {
		padded := strconv.Itoa(code)
		if len(padded) < width {
			padded = strings.Repeat("0", width-len(padded)) + padded
		}
		codes = append(codes, padded)
	}
	return codes, true
}

// stripInvalid removes everything except digits, commas, and en-dashes.
func stripInvalid(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == ',' || r == rangeSeparator {
			b.WriteRune(r)
		}
	}
	return b.String()
}
