// Package syllabus holds the topic catalog of the covered exam
package syllabus

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/example/oposita/pkg/models"
)

var defaultTopics = []models.Topic{
	{ID: 1, Title: "La Constitución Española de 1978"},
	{ID: 2, Title: "El Tribunal Constitucional y la Corona"},
	{ID: 3, Title: "Las Cortes Generales"},
	{ID: 4, Title: "El Poder Judicial"},
	{ID: 5, Title: "El Gobierno y la Administración"},
	{ID: 6, Title: "Transparencia y Gobierno Abierto"},
	{ID: 7, Title: "La Administración General del Estado"},
	{ID: 8, Title: "La Organización Territorial del Estado"},
	{ID: 9, Title: "La Unión Europea"},
	{ID: 10, Title: "El Procedimiento Administrativo Común"},
	{ID: 11, Title: "El Régimen Jurídico del Sector Público"},
}

// Default returns a copy of the built-in catalog
func Default() []models.Topic {
	out := make([]models.Topic, len(defaultTopics))
	copy(out, defaultTopics)
	return out
}

type catalogFile struct {
	Topics []models.Topic `yaml:"topics"`
}

// Load reads a catalog from a YAML file shaped as
//
//	topics:
//	  - id: 1
//	    title: La Constitución Española de 1978
//
// An empty path returns the built-in catalog.
func Load(path string) ([]models.Topic, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read syllabus %s", path)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog and validates ids
func Parse(data []byte) ([]models.Topic, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(err, "failed to parse syllabus")
	}
	if len(file.Topics) == 0 {
		return nil, errors.New("syllabus has no topics")
	}
	seen := make(map[int64]bool, len(file.Topics))
	for _, t := range file.Topics {
		if t.ID <= 0 {
			return nil, errors.Errorf("topic %q has invalid id %d", t.Title, t.ID)
		}
		if seen[t.ID] {
			return nil, errors.Errorf("duplicate topic id %d", t.ID)
		}
		seen[t.ID] = true
	}
	return file.Topics, nil
}

// Names indexes topic titles by id
func Names(topics []models.Topic) map[int64]string {
	names := make(map[int64]string, len(topics))
	for _, t := range topics {
		names[t.ID] = t.Title
	}
	return names
}

// Find returns the topic with the given id
func Find(topics []models.Topic, id int64) (models.Topic, bool) {
	for _, t := range topics {
		if t.ID == id {
			return t, true
		}
	}
	return models.Topic{}, false
}
