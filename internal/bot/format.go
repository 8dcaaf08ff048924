package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/example/oposita/internal/analytics"
	"github.com/example/oposita/internal/fortress"
	"github.com/example/oposita/internal/quiz"
	"github.com/example/oposita/internal/study"
	"github.com/example/oposita/pkg/models"
)

var blockByColor = map[string]string{
	"green":  "🟩",
	"yellow": "🟨",
	"red":    "🟥",
}

const emptyBlock = "⬜"

// Blocks renders a strength level as six squares colored by status
func Blocks(level int) string {
	status := fortress.GetTopicStatus(level)
	filled := blockByColor[status.Color]
	var sb strings.Builder
	for i := 0; i < models.MaxStrengthLevel; i++ {
		if i < level {
			sb.WriteString(filled)
		} else {
			sb.WriteString(emptyBlock)
		}
	}
	return sb.String()
}

// TimeUntil renders the time left until an ISO-8601 instant
func TimeUntil(iso string, now time.Time) string {
	t, ok := models.ParseTimestamp(iso)
	if !ok {
		return "-"
	}
	d := t.Sub(now)
	switch {
	case d <= 0:
		return "ahora"
	case d < time.Hour:
		return "menos de 1h"
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

// FormatFortress renders the whole syllabus as a block fortress
func FormatFortress(records []models.TopicProgress, now time.Time) string {
	var sb strings.Builder
	sb.WriteString("🏰 Tu fortaleza\n\n")
	solid := 0
	for _, r := range records {
		status := fortress.GetTopicStatus(r.StrengthLevel)
		if status == fortress.StatusSolid {
			solid++
		}
		fmt.Fprintf(&sb, "%s %s · %s", Blocks(r.StrengthLevel), r.ShortName, status.Label)
		if r.StrengthLevel > 0 && r.NextDecayAt != "" {
			fmt.Fprintf(&sb, " (pierde un bloque en %s)", TimeUntil(r.NextDecayAt, now))
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "\n%d/%d temas sólidos", solid, len(records))
	return sb.String()
}

// FormatUrgent lists the topics closest to losing a block
func FormatUrgent(urgent []models.TopicProgress, now time.Time) string {
	if len(urgent) == 0 {
		return "✅ Nada urgente. Ningún tema está a punto de perder bloques."
	}
	var sb strings.Builder
	sb.WriteString("⏰ Temas urgentes\n\n")
	for i, r := range urgent {
		fmt.Fprintf(&sb, "%d. %s %s · pierde un bloque en %s\n",
			i+1, Blocks(r.StrengthLevel), r.Name, TimeUntil(r.NextDecayAt, now))
	}
	sb.WriteString("\nUsa /test <tema> para reforzarlos.")
	return sb.String()
}

// FormatReminder is the scheduled reminder text
func FormatReminder(urgent []models.TopicProgress, now time.Time) string {
	var sb strings.Builder
	sb.WriteString("🔔 ¡Hora de estudiar!\n\n")
	for _, r := range urgent {
		fmt.Fprintf(&sb, "• %s: %d/%d bloques, pierde uno en %s\n",
			r.ShortName, r.StrengthLevel, models.MaxStrengthLevel, TimeUntil(r.NextDecayAt, now))
	}
	sb.WriteString("\nUn test corto ahora evita perder bloques.")
	return sb.String()
}

var trendArrow = map[string]string{
	analytics.TrendUp:     "↑",
	analytics.TrendDown:   "↓",
	analytics.TrendStable: "→",
}

var levelLabel = map[string]string{
	analytics.LevelReady:      "Preparado",
	analytics.LevelAdvanced:   "Avanzado",
	analytics.LevelInProgress: "En progreso",
	analytics.LevelInitial:    "Inicial",
}

var confidenceLabel = map[string]string{
	analytics.ConfidenceHigh:   "alta",
	analytics.ConfidenceMedium: "media",
	analytics.ConfidenceLow:    "baja",
}

// FormatAnalytics renders an analytics snapshot
func FormatAnalytics(s analytics.Snapshot) string {
	if !s.HasEnoughData {
		return fmt.Sprintf("📊 Completa al menos %d tests para ver tu análisis.", analytics.MinTestsForAnalytics)
	}
	var sb strings.Builder
	sb.WriteString("📊 Tu análisis\n\n")

	r := s.Readiness
	fmt.Fprintf(&sb, "Preparación: %d/100 (%s)\n", r.Score, levelLabel[r.Level])
	fmt.Fprintf(&sb, "  Dominio %d%% · Acierto %d%% · Cobertura %d%% · Constancia %d%%\n\n",
		r.Breakdown.Mastery, r.Breakdown.Accuracy, r.Breakdown.Coverage, r.Breakdown.Consistency)

	fmt.Fprintf(&sb, "Velocidad: %d aciertos/semana %s\n", s.Velocity.CurrentVelocity, trendArrow[s.Velocity.Trend])

	if w := s.TopicStrength.Weakest; w != nil {
		fmt.Fprintf(&sb, "Tema más débil: %s (%d%%)\n", topicLabel(*w), w.Accuracy)
	}
	if st := s.TopicStrength.Strongest; st != nil {
		fmt.Fprintf(&sb, "Tema más fuerte: %s (%d%%)\n", topicLabel(*st), st.Accuracy)
	}

	p := s.Prediction
	if p.Days != nil && p.TargetDate != nil {
		fmt.Fprintf(&sb, "\nDominarás el temario en %d días (%s), confianza %s", *p.Days, *p.TargetDate, confidenceLabel[p.Confidence])
	} else {
		sb.WriteString("\nAún no hay datos suficientes para predecir una fecha")
	}
	return sb.String()
}

func topicLabel(t analytics.TopicStrength) string {
	if t.Name != "" {
		return t.Name
	}
	return fmt.Sprintf("Tema %d", t.TopicID)
}

var optionLetters = []string{"A", "B", "C", "D", "E", "F"}

// FormatQuestion renders a quiz question
func FormatQuestion(p quiz.Prompt) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Pregunta %d/%d\n\n%s\n\n", p.Position, p.Total, p.Question.Text)
	for i, opt := range p.Question.Options {
		fmt.Fprintf(&sb, "%s) %s\n", letter(i), opt)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func letter(i int) string {
	if i >= 0 && i < len(optionLetters) {
		return optionLetters[i]
	}
	return fmt.Sprint(i + 1)
}

// FormatFeedback tells the user whether an answer was right
func FormatFeedback(o study.AnswerOutcome) string {
	if o.Answer.Correct {
		return "✅ ¡Correcto!"
	}
	q := o.Question
	text := fmt.Sprintf("❌ Incorrecto. La respuesta era %s) %s", letter(q.CorrectIndex), q.Options[q.CorrectIndex])
	if q.Explanation != "" {
		text += "\n💡 " + q.Explanation
	}
	return text
}

// FormatSummary renders the result of a finished quiz
func FormatSummary(s *study.QuizSummary) string {
	t := s.Topic
	return fmt.Sprintf("🏁 Test terminado: %d/%d (%.0f%%)\n\n%s %s\n%d/%d bloques · %d sesiones",
		s.Results.Correct, s.Results.TotalQuestions, s.Results.Accuracy,
		Blocks(t.StrengthLevel), t.Name,
		t.StrengthLevel, models.MaxStrengthLevel, t.TotalSessions)
}

// FormatTopics lists the catalog for /test without arguments
func FormatTopics(topics []models.Topic) string {
	var sb strings.Builder
	sb.WriteString("Elige un tema: /test <número>\n\n")
	for _, t := range topics {
		fmt.Fprintf(&sb, "%d. %s\n", t.ID, t.Title)
	}
	return strings.TrimRight(sb.String(), "\n")
}
