package syllabus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/oposita/internal/analytics"
	"github.com/example/oposita/internal/fortress"
)

func TestDefault(t *testing.T) {
	topics := Default()

	require.Len(t, topics, analytics.SyllabusTopicCount)
	for _, topic := range topics {
		name := fortress.ShortName(topic.Title)
		assert.NotEmpty(t, name)
		assert.LessOrEqual(t, len([]rune(name)), 8, topic.Title)
	}

	topics[0].Title = "changed"
	assert.Equal(t, "La Constitución Española de 1978", Default()[0].Title)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "temario.yaml")
	require.NoError(t, os.WriteFile(path, []byte("topics:\n  - id: 1\n    title: Ofimática\n  - id: 2\n    title: Atención al ciudadano\n"), 0o644))

	topics, err := Load(path)

	require.NoError(t, err)
	require.Len(t, topics, 2)
	assert.Equal(t, "Atención al ciudadano", topics[1].Title)
	assert.Equal(t, map[int64]string{1: "Ofimática", 2: "Atención al ciudadano"}, Names(topics))

	found, ok := Find(topics, 2)
	assert.True(t, ok)
	assert.Equal(t, int64(2), found.ID)
	_, ok = Find(topics, 3)
	assert.False(t, ok)

	defaults, err := Load("")
	require.NoError(t, err)
	assert.Len(t, defaults, 11)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"empty":     "topics: []\n",
		"zero id":   "topics:\n  - id: 0\n    title: x\n",
		"duplicate": "topics:\n  - id: 1\n    title: a\n  - id: 1\n    title: b\n",
		"not yaml":  "topics: [",
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(input))
			assert.Error(t, err)
		})
	}
}
