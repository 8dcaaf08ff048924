package ingest

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/oposita/pkg/models"
)

func TestNormalize_Aliases(t *testing.T) {
	want := models.SessionRecord{
		TopicID:   4,
		Correct:   7,
		Total:     10,
		Timestamp: time.Date(2026, 3, 9, 18, 0, 0, 0, time.UTC),
	}
	tests := []struct {
		name string
		raw  map[string]any
	}{
		{
			name: "spanish schema",
			raw:  map[string]any{"tema": 4, "correctas": 7, "total_preguntas": 10, "fecha": "2026-03-09T18:00:00Z"},
		},
		{
			name: "english schema",
			raw:  map[string]any{"topic_id": float64(4), "correct_count": float64(7), "total_questions": float64(10), "created_at": "2026-03-09T18:00:00Z"},
		},
		{
			name: "mixed schema with strings",
			raw:  map[string]any{"tema_id": "4", "correct_count": "7", "total_preguntas": " 10 ", "timestamp": "2026-03-09 18:00:00"},
		},
		{
			name: "epoch milliseconds",
			raw:  map[string]any{"tema": json.Number("4"), "correctas": json.Number("7"), "total_questions": json.Number("10"), "timestamp": json.Number("1773079200000")},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.raw)
			assert.Equal(t, want.TopicID, got.TopicID)
			assert.Equal(t, want.Correct, got.Correct)
			assert.Equal(t, want.Total, got.Total)
			assert.True(t, want.Timestamp.Equal(got.Timestamp), "got %s", got.Timestamp)
		})
	}
}

func TestNormalize_PriorityAndGarbage(t *testing.T) {
	got := Normalize(map[string]any{
		"tema":          "",
		"topic_id":      2,
		"correctas":     "muchas",
		"total":         -5,
		"timestamp":     "el martes",
		"id":            "abc",
		"correct_count": nil,
	})

	assert.Equal(t, int64(2), got.TopicID, "empty strings fall through to the next alias")
	assert.Equal(t, 0, got.Correct)
	assert.Equal(t, 0, got.Total)
	assert.True(t, got.Timestamp.IsZero())
	assert.Equal(t, "abc", got.ID)
}

func TestDecodeJSON(t *testing.T) {
	input := `[
		{"tema": 1, "correctas": 8, "total_preguntas": 10, "timestamp": "2026-03-02T10:00:00Z"},
		{"topic_id": 3, "correct_count": 4.0, "total_questions": 5, "created_at": "2026-03-03"}
	]`

	got, err := DecodeJSON(strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].TopicID)
	assert.Equal(t, 8, got[0].Correct)
	assert.Equal(t, int64(3), got[1].TopicID)
	assert.Equal(t, 4, got[1].Correct)
	assert.Equal(t, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), got[1].Timestamp)

	_, err = DecodeJSON(strings.NewReader(`{"tema": 1}`))
	assert.Error(t, err)
}

func TestIsKnownField(t *testing.T) {
	assert.True(t, IsKnownField("Tema"))
	assert.True(t, IsKnownField(" total_preguntas "))
	assert.False(t, IsKnownField("duracion"))
}
