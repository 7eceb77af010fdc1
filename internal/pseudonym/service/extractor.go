package service

import (
	"regexp"
	"strings"
)

// Default field lists for audit-finding records. Person fields carry names
// verbatim; free-text fields are scanned with the identifier and amount patterns.
var (
	DefaultPersonFields = []string{
		"responsiblePerson",
		"executor",
		"reviewer",
		"manager",
		"auditor",
		"preparedBy",
		"approvedBy",
	}

	DefaultFreeTextFields = []string{
		"description",
		"rootCause",
		"response",
		"recommendation",
		"notes",
		"condition",
		"criteria",
	}
)

var (
	// identifierPattern matches document/reference identifiers: two or more
	// uppercase letters followed by three or more digits, or a bare run of six
	// or more digits.
	identifierPattern = regexp.MustCompile(`\b[A-Z]{2,}\d{3,}\b|\b\d{6,}\b`)

	// amountPattern matches monetary amounts: a $-prefixed grouped decimal, or a
	// grouped decimal followed by a 3-letter currency code or the words
	// "dollars"/"rupiah" (case-insensitive).
	amountPattern = regexp.MustCompile(
		`\$\d{1,3}(?:,\d{3})*(?:\.\d+)?|\b\d{1,3}(?:,\d{3})*(?:\.\d+)?\s?(?:[A-Z]{3}\b|(?i:dollars|rupiah)\b)`,
	)
)

// ExtractorConfig configures field lists and patterns for sensitive-value extraction.
// Zero-value fields fall back to the defaults above.
type ExtractorConfig struct {
	PersonFields      []string
	FreeTextFields    []string
	IdentifierPattern *regexp.Regexp
	AmountPattern     *regexp.Regexp
}

// Extractor scans audit-finding records for sensitive values. Extraction is purely
// syntactic: identifiers and amounts are recognized by regular expression, which can
// both over-match (a six-digit non-sensitive number) and under-match (an identifier
// format not anticipated). The pattern set is configurable for that reason.
type Extractor struct {
	personFields      []string
	freeTextFields    []string
	identifierPattern *regexp.Regexp
	amountPattern     *regexp.Regexp
}

// Extraction holds distinct candidate values per category, in first-occurrence order.
type Extraction struct {
	Names       []string
	Identifiers []string
	Amounts     []string
}

// NewExtractor creates an Extractor with the given configuration, applying defaults
// for any unset field.
func NewExtractor(cfg ExtractorConfig) *Extractor {
	e := &Extractor{
		personFields:      cfg.PersonFields,
		freeTextFields:    cfg.FreeTextFields,
		identifierPattern: cfg.IdentifierPattern,
		amountPattern:     cfg.AmountPattern,
	}
	if len(e.personFields) == 0 {
		e.personFields = DefaultPersonFields
	}
	if len(e.freeTextFields) == 0 {
		e.freeTextFields = DefaultFreeTextFields
	}
	if e.identifierPattern == nil {
		e.identifierPattern = identifierPattern
	}
	if e.amountPattern == nil {
		e.amountPattern = amountPattern
	}
	return e
}

// FreeTextFields returns the fields substituted during pseudonymization.
func (e *Extractor) FreeTextFields() []string {
	return e.freeTextFields
}

// PersonFields returns the fields whose values are treated as person names.
func (e *Extractor) PersonFields() []string {
	return e.personFields
}

// Extract scans a batch of records and produces candidate sets of names,
// identifiers, and amounts. Pure function: no side effects on the input records.
// Categories are applied independently; the caller resolves cross-category
// precedence.
func (e *Extractor) Extract(records []map[string]any) Extraction {
	var extraction Extraction
	seenNames := make(map[string]bool)
	seenIdentifiers := make(map[string]bool)
	seenAmounts := make(map[string]bool)

	for _, record := range records {
		for _, field := range e.personFields {
			value, ok := record[field].(string)
			if !ok {
				continue
			}
			name := strings.TrimSpace(value)
			if name == "" || seenNames[name] {
				continue
			}
			seenNames[name] = true
			extraction.Names = append(extraction.Names, name)
		}

		for _, field := range e.freeTextFields {
			text, ok := record[field].(string)
			if !ok || text == "" {
				continue
			}

			for _, match := range e.identifierPattern.FindAllString(text, -1) {
				if !seenIdentifiers[match] {
					seenIdentifiers[match] = true
					extraction.Identifiers = append(extraction.Identifiers, match)
				}
			}

			for _, match := range e.amountPattern.FindAllString(text, -1) {
				if !seenAmounts[match] {
					seenAmounts[match] = true
					extraction.Amounts = append(extraction.Amounts, match)
				}
			}
		}
	}

	return extraction
}
