package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReplacer_ApplyForward(t *testing.T) {
	replacer := NewReplacer()

	t.Run("ReplacesAllOccurrences", func(t *testing.T) {
		got := replacer.ApplyForward(
			"John met John at the office",
			map[string]string{"John": "Person_A"},
		)
		assert.Equal(t, "Person_A met Person_A at the office", got)
	})

	t.Run("LongestMatchFirst", func(t *testing.T) {
		got := replacer.ApplyForward(
			"John Doe was here",
			map[string]string{
				"John":     "Person_A",
				"John Doe": "Person_B",
			},
		)
		assert.Equal(t, "Person_B was here", got)
	})

	t.Run("LiteralMatchingWithMetacharacters", func(t *testing.T) {
		got := replacer.ApplyForward(
			"Loss of $5,000 (approx.)",
			map[string]string{"$5,000": "Amount_001"},
		)
		assert.Equal(t, "Loss of Amount_001 (approx.)", got)
	})

	t.Run("NoMappingsLeavesTextUntouched", func(t *testing.T) {
		got := replacer.ApplyForward("nothing sensitive", map[string]string{})
		assert.Equal(t, "nothing sensitive", got)
	})
}

func TestReplacer_ApplyReverse(t *testing.T) {
	replacer := NewReplacer()
	reverse := map[string]string{
		"Person_A":   "John Doe",
		"ID_001":     "ID12345",
		"Amount_001": "$5,000",
	}

	t.Run("String", func(t *testing.T) {
		got := replacer.ApplyReverse("Issue ID_001 cost Amount_001", reverse)
		assert.Equal(t, "Issue ID12345 cost $5,000", got)
	})

	t.Run("NestedStructure", func(t *testing.T) {
		data := map[string]any{
			"summary": "Person_A caused Amount_001 in losses",
			"items": []any{
				"see ID_001",
				map[string]any{"who": "Person_A"},
				42,
			},
			"count": 3,
		}

		got := replacer.ApplyReverse(data, reverse).(map[string]any)

		assert.Equal(t, "John Doe caused $5,000 in losses", got["summary"])
		items := got["items"].([]any)
		assert.Equal(t, "see ID12345", items[0])
		assert.Equal(t, "John Doe", items[1].(map[string]any)["who"])
		assert.Equal(t, 42, items[2])
		assert.Equal(t, 3, got["count"])
	})

	t.Run("OverflowPseudonymNotCorruptedByShorterRule", func(t *testing.T) {
		got := replacer.ApplyReverse("Person_A1 reviewed", map[string]string{
			"Person_A":  "John Doe",
			"Person_A1": "Jane Smith",
		})
		assert.Equal(t, "Jane Smith reviewed", got)
	})

	t.Run("NonStringLeafPassesThrough", func(t *testing.T) {
		assert.Equal(t, 3.14, replacer.ApplyReverse(3.14, reverse))
		assert.Equal(t, true, replacer.ApplyReverse(true, reverse))
		assert.Nil(t, replacer.ApplyReverse(nil, reverse))
	})

	t.Run("RecordSlice", func(t *testing.T) {
		records := []map[string]any{
			{"description": "Issue ID_001"},
		}

		got := replacer.ApplyReverse(records, reverse).([]map[string]any)

		assert.Equal(t, "Issue ID12345", got[0]["description"])
	})
}

func TestReplacer_RoundTrip(t *testing.T) {
	replacer := NewReplacer()
	forward := map[string]string{
		"John Doe": "Person_A",
		"ID12345":  "ID_001",
		"$5,000":   "Amount_001",
	}
	reverse := make(map[string]string, len(forward))
	for plaintext, pseudonym := range forward {
		reverse[pseudonym] = plaintext
	}

	original := "John Doe filed issue ID12345 which cost $5,000"
	masked := replacer.ApplyForward(original, forward)

	assert.NotContains(t, masked, "John Doe")
	assert.NotContains(t, masked, "ID12345")
	assert.NotContains(t, masked, "$5,000")

	restored := replacer.ApplyReverse(masked, reverse)
	assert.Equal(t, original, restored)
}
