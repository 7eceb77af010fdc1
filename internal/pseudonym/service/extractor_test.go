package service

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractor_Extract(t *testing.T) {
	extractor := NewExtractor(ExtractorConfig{})

	t.Run("NamesFromPersonFields", func(t *testing.T) {
		records := []map[string]any{
			{"responsiblePerson": "  John Doe  ", "reviewer": "Jane Smith"},
			{"manager": "John Doe"},
		}

		extraction := extractor.Extract(records)

		assert.Equal(t, []string{"John Doe", "Jane Smith"}, extraction.Names)
	})

	t.Run("IdentifiersFromFreeText", func(t *testing.T) {
		records := []map[string]any{
			{"description": "Finding AUDIT2024 references invoice 12345678 and ID123"},
		}

		extraction := extractor.Extract(records)

		assert.Equal(t, []string{"AUDIT2024", "12345678", "ID123"}, extraction.Identifiers)
	})

	t.Run("AmountsFromFreeText", func(t *testing.T) {
		records := []map[string]any{
			{"description": "Overpayment of $5,000 plus 1,250.50 USD and 300 dollars"},
			{"notes": "Recovered 750,000 rupiah"},
		}

		extraction := extractor.Extract(records)

		assert.Equal(t, []string{"$5,000", "1,250.50 USD", "300 dollars", "750,000 rupiah"}, extraction.Amounts)
	})

	t.Run("ConcreteScenario", func(t *testing.T) {
		records := []map[string]any{
			{"responsiblePerson": "John Doe", "description": "Issue ID12345 cost $5,000"},
		}

		extraction := extractor.Extract(records)

		assert.Equal(t, []string{"John Doe"}, extraction.Names)
		assert.Equal(t, []string{"ID12345"}, extraction.Identifiers)
		assert.Equal(t, []string{"$5,000"}, extraction.Amounts)
	})

	t.Run("DeduplicatesWithinCategory", func(t *testing.T) {
		records := []map[string]any{
			{"description": "ID12345 appears twice: ID12345"},
		}

		extraction := extractor.Extract(records)

		assert.Equal(t, []string{"ID12345"}, extraction.Identifiers)
	})

	t.Run("IgnoresNonStringAndUnknownFields", func(t *testing.T) {
		records := []map[string]any{
			{"responsiblePerson": 42, "description": nil, "status": "open ID12345"},
		}

		extraction := extractor.Extract(records)

		assert.Empty(t, extraction.Names)
		assert.Empty(t, extraction.Identifiers)
	})

	t.Run("ShortNumbersAreNotIdentifiers", func(t *testing.T) {
		records := []map[string]any{
			{"description": "Section 12345 has 99 findings"},
		}

		extraction := extractor.Extract(records)

		assert.Empty(t, extraction.Identifiers)
	})

	t.Run("PureFunctionLeavesRecordsUntouched", func(t *testing.T) {
		records := []map[string]any{
			{"responsiblePerson": "John Doe", "description": "Issue ID12345"},
		}

		extractor.Extract(records)

		assert.Equal(t, "John Doe", records[0]["responsiblePerson"])
		assert.Equal(t, "Issue ID12345", records[0]["description"])
	})
}

func TestNewExtractor_CustomConfig(t *testing.T) {
	extractor := NewExtractor(ExtractorConfig{
		PersonFields:      []string{"owner"},
		FreeTextFields:    []string{"body"},
		IdentifierPattern: regexp.MustCompile(`REF-\d+`),
	})

	records := []map[string]any{
		{"owner": "Jane Smith", "body": "See REF-77 and ID12345", "description": "ignored ID999"},
	}

	extraction := extractor.Extract(records)

	assert.Equal(t, []string{"Jane Smith"}, extraction.Names)
	assert.Equal(t, []string{"REF-77"}, extraction.Identifiers)
}
