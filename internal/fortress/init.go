package fortress

import (
	"strings"

	"github.com/example/oposita/pkg/models"
)

// shortNames maps the known syllabus titles to the labels shown under each fortress
var shortNames = map[string]string{
	"La Constitución Española de 1978":       "CE 1978",
	"El Tribunal Constitucional y la Corona": "Corona",
	"Las Cortes Generales":                   "Cortes",
	"El Poder Judicial":                      "Judicial",
	"El Gobierno y la Administración":        "Gobierno",
	"Transparencia y Gobierno Abierto":       "Transp.",
	"La Administración General del Estado":   "AGE",
	"La Organización Territorial del Estado": "Territor",
	"La Unión Europea":                       "UE",
	"El Procedimiento Administrativo Común":  "Ley 39",
	"El Régimen Jurídico del Sector Público": "Ley 40",
}

const shortNameMaxRunes = 8

// ShortName returns the display label for a topic title
func ShortName(title string) string {
	if name, ok := shortNames[strings.TrimSpace(title)]; ok {
		return name
	}
	words := strings.Fields(title)
	if len(words) > 2 {
		words = words[:2]
	}
	name := []rune(strings.Join(words, " "))
	if len(name) > shortNameMaxRunes {
		name = name[:shortNameMaxRunes]
	}
	return strings.TrimSpace(string(name))
}

// InitializeFortressData builds one progress record per catalog topic, keeping
// the stored values of existing records and zero defaults for the rest
func InitializeFortressData(topics []models.Topic, existing map[int64]models.TopicProgress) []models.TopicProgress {
	out := make([]models.TopicProgress, 0, len(topics))
	for _, topic := range topics {
		p, ok := existing[topic.ID]
		if !ok {
			p = models.TopicProgress{
				TopicID:            topic.ID,
				ConsolidationLevel: models.ConsolidationNew,
			}
		}
		p.TopicID = topic.ID
		p.Name = topic.Title
		p.ShortName = ShortName(topic.Title)
		if p.ConsolidationLevel == "" {
			p.ConsolidationLevel = models.ConsolidationNew
		}
		p.RefreshDerived()
		out = append(out, p)
	}
	return out
}
