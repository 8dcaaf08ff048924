// Package ingest normalizes session summaries coming from heterogeneous
// upstream schemas into models.SessionRecord, so the rest of the app never
// branches on field-name aliases.
package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/example/oposita/pkg/models"
)

// Accepted field names, in lookup priority order
var (
	TopicKeys     = []string{"tema", "topic_id", "tema_id", "topic"}
	CorrectKeys   = []string{"correctas", "correct_count", "correct"}
	TotalKeys     = []string{"total_preguntas", "total_questions", "total"}
	TimestampKeys = []string{"timestamp", "created_at", "completed_at", "fecha", "date"}
	IDKeys        = []string{"id", "session_id"}
	UserKeys      = []string{"user_id", "usuario_id"}
)

// Normalize converts one raw session map. Missing or unparseable counters and
// topic keys become zero; an unparseable timestamp becomes the zero time.
func Normalize(raw map[string]any) models.SessionRecord {
	rec := models.SessionRecord{
		ID:      asString(lookup(raw, IDKeys)),
		UserID:  asInt64(lookup(raw, UserKeys)),
		TopicID: asInt64(lookup(raw, TopicKeys)),
		Correct: int(asInt64(lookup(raw, CorrectKeys))),
		Total:   int(asInt64(lookup(raw, TotalKeys))),
	}
	if rec.Correct < 0 {
		rec.Correct = 0
	}
	if rec.Total < 0 {
		rec.Total = 0
	}
	if ts, ok := asTime(lookup(raw, TimestampKeys)); ok {
		rec.Timestamp = ts
	}
	return rec
}

// NormalizeAll converts a batch of raw sessions, preserving order
func NormalizeAll(raw []map[string]any) []models.SessionRecord {
	out := make([]models.SessionRecord, 0, len(raw))
	for _, r := range raw {
		out = append(out, Normalize(r))
	}
	return out
}

// DecodeJSON reads a JSON array of session objects
func DecodeJSON(r io.Reader) ([]models.SessionRecord, error) {
	var raw []map[string]any
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}
	return NormalizeAll(raw), nil
}

// IsKnownField reports whether a column or JSON key maps to a session field
func IsKnownField(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, keys := range [][]string{TopicKeys, CorrectKeys, TotalKeys, TimestampKeys, IDKeys, UserKeys} {
		for _, k := range keys {
			if k == name {
				return true
			}
		}
	}
	return false
}

func lookup(raw map[string]any, keys []string) any {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
				continue
			}
			return v
		}
	}
	return nil
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case float32:
		return finiteInt(float64(n))
	case float64:
		return finiteInt(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
		if f, err := n.Float64(); err == nil {
			return finiteInt(f)
		}
	case string:
		s := strings.TrimSpace(n)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64); err == nil {
			return finiteInt(f)
		}
	}
	return 0
}

func finiteInt(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int64(math.Round(f))
}

func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	case json.Number:
		return s.String()
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case string:
		return models.ParseTimestamp(t)
	case json.Number, int, int64, float64:
		// epoch milliseconds, as produced by JavaScript clients
		ms := asInt64(t)
		if ms <= 0 {
			return time.Time{}, false
		}
		return time.UnixMilli(ms).UTC(), true
	}
	return time.Time{}, false
}
