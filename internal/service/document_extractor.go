package service

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Extraction is what the analyzer pulled out of a document's text.
type Extraction struct {
	Supplier   *string
	Total      decimal.NullDecimal
	Date       *time.Time
	Confidence float64
}

// DocumentExtractor analyzes raw document text.
type DocumentExtractor interface {
	Extract(rawText string) (*Extraction, error)
}

var (
	totalPattern  = regexp.MustCompile(`(?i)total[^0-9$]*\$?\s*([0-9][0-9,]*\.?[0-9]{0,2})`)
	amountPattern = regexp.MustCompile(`\$\s*([0-9][0-9,]*\.?[0-9]{0,2})`)
	datePattern   = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{4})\b`)
	fromPattern   = regexp.MustCompile(`(?i)(?:from|supplier)\s*[:\-]\s*(.+)`)
)

// HeuristicExtractor extracts supplier, total and date from invoice-style
// text with regular expressions. Deterministic for a given input, so repeated
// analysis of the same document always agrees.
type HeuristicExtractor struct{}

// NewHeuristicExtractor constructs a HeuristicExtractor.
func NewHeuristicExtractor() *HeuristicExtractor {
	return &HeuristicExtractor{}
}

// Extract analyzes the text. It never fails outright; low-signal documents
// come back with a low confidence and nil fields instead.
func (e *HeuristicExtractor) Extract(rawText string) (*Extraction, error) {
	ex := &Extraction{}
	signals := 0

	if supplier := extractSupplier(rawText); supplier != "" {
		ex.Supplier = &supplier
		signals++
	}
	if total, ok := extractTotal(rawText); ok {
		ex.Total = decimal.NullDecimal{Decimal: total, Valid: true}
		signals++
	}
	if date, ok := extractDate(rawText); ok {
		ex.Date = &date
		signals++
	}

	ex.Confidence = float64(signals) / 3.0
	return ex, nil
}

// extractSupplier prefers an explicit "From:" or "Supplier:" line, falling
// back to the first non-empty line of the document.
func extractSupplier(text string) string {
	if m := fromPattern.FindStringSubmatch(text); m != nil {
		if name := strings.TrimSpace(firstLine(m[1])); name != "" {
			return name
		}
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return ""
}

// extractTotal prefers an amount labelled "total"; otherwise it takes the
// largest dollar amount on the page.
func extractTotal(text string) (decimal.Decimal, bool) {
	if m := totalPattern.FindStringSubmatch(text); m != nil {
		if d, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", "")); err == nil {
			return d, true
		}
	}

	var best decimal.Decimal
	found := false
	for _, m := range amountPattern.FindAllStringSubmatch(text, -1) {
		d, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", ""))
		if err != nil {
			continue
		}
		if !found || d.GreaterThan(best) {
			best = d
			found = true
		}
	}
	return best, found
}

func extractDate(text string) (time.Time, bool) {
	m := datePattern.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02", "2/1/2006", "02/01/2006"} {
		if d, err := time.Parse(layout, m[1]); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
