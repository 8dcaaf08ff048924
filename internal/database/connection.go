package database

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("not found")

// Connect opens the database for driver ("sqlite3" or "postgres") and makes
// sure the schema exists
func Connect(driver, dsn string) (*sqlx.DB, error) {
	if driver == "sqlite3" {
		if err := ensureDir(dsn); err != nil {
			return nil, err
		}
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	if driver == "sqlite3" {
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "failed to enable foreign keys")
		}
		// SQLite doesn't support multiple writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err := InitializeSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func ensureDir(dsn string) error {
	if dsn == "" || strings.HasPrefix(dsn, ":memory:") || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	dir := filepath.Dir(dsn)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "failed to create data directory")
	}
	return nil
}

type dialect struct {
	serial    string
	timestamp string
}

func dialectFor(db *sqlx.DB) dialect {
	if db.DriverName() == "postgres" {
		return dialect{serial: "BIGSERIAL PRIMARY KEY", timestamp: "TIMESTAMPTZ"}
	}
	return dialect{serial: "INTEGER PRIMARY KEY AUTOINCREMENT", timestamp: "TIMESTAMP"}
}

// InitializeSchema creates necessary tables if they don't exist
func InitializeSchema(db *sqlx.DB) error {
	d := dialectFor(db)
	tables := []struct {
		name string
		ddl  string
	}{
		{"users", `
			CREATE TABLE IF NOT EXISTS users (
				id ` + d.serial + `,
				telegram_id BIGINT UNIQUE NOT NULL,
				chat_id BIGINT NOT NULL DEFAULT 0,
				username TEXT NOT NULL DEFAULT '',
				first_name TEXT NOT NULL DEFAULT '',
				notification_enabled BOOLEAN NOT NULL DEFAULT TRUE,
				notification_hour INTEGER NOT NULL DEFAULT 9,
				created_at TEXT NOT NULL DEFAULT ''
			)`},
		{"topics", `
			CREATE TABLE IF NOT EXISTS topics (
				id BIGINT PRIMARY KEY,
				title TEXT NOT NULL
			)`},
		{"topic_progress", `
			CREATE TABLE IF NOT EXISTS topic_progress (
				user_id BIGINT NOT NULL,
				topic_id BIGINT NOT NULL,
				strength_level INTEGER NOT NULL DEFAULT 0,
				consolidation_level TEXT NOT NULL DEFAULT 'new',
				total_sessions INTEGER NOT NULL DEFAULT 0,
				last_studied_at TEXT NOT NULL DEFAULT '',
				next_decay_at TEXT NOT NULL DEFAULT '',
				total_questions_answered INTEGER NOT NULL DEFAULT 0,
				correct_answers INTEGER NOT NULL DEFAULT 0,
				PRIMARY KEY (user_id, topic_id),
				FOREIGN KEY (user_id) REFERENCES users(id)
			)`},
		{"sessions", `
			CREATE TABLE IF NOT EXISTS sessions (
				id TEXT PRIMARY KEY,
				user_id BIGINT NOT NULL,
				topic_id BIGINT NOT NULL,
				correct_count INTEGER NOT NULL,
				total_questions INTEGER NOT NULL,
				created_at ` + d.timestamp + ` NOT NULL,
				FOREIGN KEY (user_id) REFERENCES users(id)
			)`},
		{"questions", `
			CREATE TABLE IF NOT EXISTS questions (
				id ` + d.serial + `,
				topic_id BIGINT NOT NULL,
				text TEXT NOT NULL,
				options TEXT NOT NULL,
				correct_index INTEGER NOT NULL,
				explanation TEXT NOT NULL DEFAULT '',
				UNIQUE(topic_id, text)
			)`},
		{"question_progress", `
			CREATE TABLE IF NOT EXISTS question_progress (
				user_id BIGINT NOT NULL,
				question_id BIGINT NOT NULL,
				topic_id BIGINT NOT NULL,
				last_review_date TEXT NOT NULL DEFAULT '',
				next_review_date TEXT NOT NULL DEFAULT '',
				interval_days INTEGER NOT NULL DEFAULT 0,
				easiness_factor DOUBLE PRECISION NOT NULL DEFAULT 2.5,
				repetitions INTEGER NOT NULL DEFAULT 0,
				last_quality INTEGER NOT NULL DEFAULT 0,
				consecutive_right INTEGER NOT NULL DEFAULT 0,
				is_mastered BOOLEAN NOT NULL DEFAULT FALSE,
				PRIMARY KEY (user_id, question_id),
				FOREIGN KEY (user_id) REFERENCES users(id),
				FOREIGN KEY (question_id) REFERENCES questions(id)
			)`},
	}

	for _, t := range tables {
		if _, err := db.Exec(t.ddl); err != nil {
			return errors.Wrapf(err, "failed to create %s table", t.name)
		}
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_questions_topic ON questions(topic_id)",
		"CREATE INDEX IF NOT EXISTS idx_users_notification ON users(notification_enabled, notification_hour)",
	}
	for _, ddl := range indexes {
		if _, err := db.Exec(ddl); err != nil {
			return errors.Wrap(err, "failed to create index")
		}
	}
	return nil
}

// Repositories bundles every repository over one connection
type Repositories struct {
	Users            *UserRepository
	Topics           *TopicRepository
	TopicProgress    *TopicProgressRepository
	Sessions         *SessionRepository
	Questions        *QuestionRepository
	QuestionProgress *QuestionProgressRepository
	Results          *ResultRepository
}

// NewRepositories creates all repositories over db
func NewRepositories(db *sqlx.DB) *Repositories {
	return &Repositories{
		Users:            NewUserRepository(db),
		Topics:           NewTopicRepository(db),
		TopicProgress:    NewTopicProgressRepository(db),
		Sessions:         NewSessionRepository(db),
		Questions:        NewQuestionRepository(db),
		QuestionProgress: NewQuestionProgressRepository(db),
		Results:          NewResultRepository(db),
	}
}
