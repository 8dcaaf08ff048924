package excel

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/example/oposita/internal/ingest"
	"github.com/example/oposita/internal/logger"
	"github.com/example/oposita/internal/syllabus"
	"github.com/example/oposita/pkg/models"
)

// Header aliases of a question bank sheet
var (
	questionTopicHeaders       = []string{"tema", "topic", "topic_id", "tema_id"}
	questionTextHeaders        = []string{"pregunta", "question", "text", "enunciado"}
	questionCorrectHeaders     = []string{"correcta", "correct", "respuesta", "answer"}
	questionExplanationHeaders = []string{"explicacion", "explanation"}
	optionHeaders              = [][]string{
		{"a", "opcion_a", "option_a"},
		{"b", "opcion_b", "option_b"},
		{"c", "opcion_c", "option_c"},
		{"d", "opcion_d", "option_d"},
	}
)

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Created        int
	Skipped        int
	Errors         []string
}

func (r *ImportResult) skip(row int, format string, args ...any) {
	r.Skipped++
	r.Errors = append(r.Errors, fmt.Sprintf("Row %d: %s", row, fmt.Sprintf(format, args...)))
}

// QuestionSaver stores parsed questions
type QuestionSaver interface {
	Upsert(ctx context.Context, q *models.Question) error
}

// SessionSaver stores parsed sessions
type SessionSaver interface {
	Create(ctx context.Context, s *models.SessionRecord) error
}

// Importer loads question banks and session logs from spreadsheets
type Importer struct {
	questions QuestionSaver
	sessions  SessionSaver
	topics    []models.Topic
	log       *logger.Logger
}

// NewImporter creates an importer validating topics against the catalog
func NewImporter(questions QuestionSaver, sessions SessionSaver, topics []models.Topic, log *logger.Logger) *Importer {
	if log == nil {
		log = logger.Nop()
	}
	return &Importer{
		questions: questions,
		sessions:  sessions,
		topics:    topics,
		log:       log.With("component", "importer"),
	}
}

// ImportQuestions reads a question bank file and upserts every valid row
func (im *Importer) ImportQuestions(ctx context.Context, path string) (*ImportResult, error) {
	rows, err := ReadRows(path, "")
	if err != nil {
		return nil, err
	}
	questions, result, err := ParseQuestions(rows, im.topics)
	if err != nil {
		return nil, err
	}
	for i := range questions {
		if err := im.questions.Upsert(ctx, &questions[i]); err != nil {
			return result, errors.Wrapf(err, "failed to save question %d", i+1)
		}
		result.Created++
	}
	im.log.Info("questions imported",
		"file", path,
		"processed", result.TotalProcessed,
		"created", result.Created,
		"skipped", result.Skipped,
	)
	return result, nil
}

// ImportSessions reads a session log and stores every row for userID
func (im *Importer) ImportSessions(ctx context.Context, path string, userID int64) (*ImportResult, error) {
	rows, err := ReadRows(path, "")
	if err != nil {
		return nil, err
	}
	sessions, result, err := ParseSessions(rows)
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		sessions[i].UserID = userID
		if err := im.sessions.Create(ctx, &sessions[i]); err != nil {
			return result, errors.Wrapf(err, "failed to save session %d", i+1)
		}
		result.Created++
	}
	im.log.Info("sessions imported",
		"file", path,
		"user", userID,
		"processed", result.TotalProcessed,
		"created", result.Created,
		"skipped", result.Skipped,
	)
	return result, nil
}

type columns map[string]int

func headerIndex(header []string) columns {
	cols := make(columns, len(header))
	for i, h := range header {
		name := normalizeHeader(h)
		if _, dup := cols[name]; !dup && name != "" {
			cols[name] = i
		}
	}
	return cols
}

func (c columns) find(aliases []string) int {
	for _, a := range aliases {
		if idx, ok := c[a]; ok {
			return idx
		}
	}
	return -1
}

// ParseQuestions converts question bank rows. The first row is the header.
// Invalid rows are skipped and reported in the result.
func ParseQuestions(rows [][]string, topics []models.Topic) ([]models.Question, *ImportResult, error) {
	result := &ImportResult{Errors: make([]string, 0)}
	if len(rows) == 0 {
		return nil, result, errors.New("file is empty")
	}
	cols := headerIndex(rows[0])
	topicCol := cols.find(questionTopicHeaders)
	textCol := cols.find(questionTextHeaders)
	correctCol := cols.find(questionCorrectHeaders)
	if topicCol < 0 || textCol < 0 || correctCol < 0 {
		return nil, result, errors.New("header must name the tema, pregunta and correcta columns")
	}
	explanationCol := cols.find(questionExplanationHeaders)
	optionCols := make([]int, 0, len(optionHeaders))
	for _, aliases := range optionHeaders {
		optionCols = append(optionCols, cols.find(aliases))
	}

	var out []models.Question
	for i, row := range rows[1:] {
		rowNum := i + 2
		if isBlank(row) {
			continue
		}
		result.TotalProcessed++

		topicID, err := strconv.ParseInt(cell(row, topicCol), 10, 64)
		if err != nil {
			result.skip(rowNum, "invalid topic %q", cell(row, topicCol))
			continue
		}
		if _, ok := syllabus.Find(topics, topicID); !ok {
			result.skip(rowNum, "topic %d is not in the syllabus", topicID)
			continue
		}
		text := cell(row, textCol)
		if text == "" {
			result.skip(rowNum, "empty question")
			continue
		}

		// Options are compacted; the answer letter refers to the column
		var options []string
		correct := -1
		answer := parseAnswer(cell(row, correctCol))
		for letter, col := range optionCols {
			opt := cell(row, col)
			if opt == "" {
				continue
			}
			if letter == answer {
				correct = len(options)
			}
			options = append(options, opt)
		}
		if len(options) < 2 {
			result.skip(rowNum, "at least two options are required")
			continue
		}
		if correct < 0 {
			result.skip(rowNum, "invalid correct answer %q", cell(row, correctCol))
			continue
		}

		out = append(out, models.Question{
			TopicID:      topicID,
			Text:         text,
			Options:      options,
			CorrectIndex: correct,
			Explanation:  cell(row, explanationCol),
		})
	}
	return out, result, nil
}

// parseAnswer accepts a letter (A-D) or a 1-based number and returns the
// 0-based option column, or -1
func parseAnswer(s string) int {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) == 1 && s[0] >= 'A' && s[0] <= 'D' {
		return int(s[0] - 'A')
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 1 && n <= len(optionHeaders) {
		return n - 1
	}
	return -1
}

// ParseSessions converts session log rows. The first row is the header and
// may use any of the field names accepted by ingest.
func ParseSessions(rows [][]string) ([]models.SessionRecord, *ImportResult, error) {
	result := &ImportResult{Errors: make([]string, 0)}
	if len(rows) == 0 {
		return nil, result, errors.New("file is empty")
	}
	header := make([]string, len(rows[0]))
	known := 0
	for i, h := range rows[0] {
		header[i] = normalizeHeader(h)
		if ingest.IsKnownField(header[i]) {
			known++
		}
	}
	if known == 0 {
		return nil, result, errors.New("header has no recognized session columns")
	}

	var out []models.SessionRecord
	for i, row := range rows[1:] {
		rowNum := i + 2
		if isBlank(row) {
			continue
		}
		result.TotalProcessed++

		raw := make(map[string]any, len(header))
		for col, name := range header {
			if v := cell(row, col); v != "" && name != "" {
				raw[name] = v
			}
		}
		rec := ingest.Normalize(raw)
		if rec.TopicID <= 0 {
			result.skip(rowNum, "missing topic")
			continue
		}
		if rec.Total <= 0 {
			result.skip(rowNum, "session has no questions")
			continue
		}
		if rec.Correct > rec.Total {
			result.skip(rowNum, "correct answers exceed total")
			continue
		}
		out = append(out, rec)
	}
	return out, result, nil
}
