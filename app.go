package main

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/example/oposita/internal/activity"
	"github.com/example/oposita/internal/config"
	"github.com/example/oposita/internal/database"
	"github.com/example/oposita/internal/excel"
	"github.com/example/oposita/internal/logger"
	"github.com/example/oposita/internal/study"
	"github.com/example/oposita/internal/syllabus"
	"github.com/example/oposita/pkg/models"
)

// app holds the dependencies shared by every command
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *sqlx.DB
	repos    *database.Repositories
	topics   []models.Topic
	activity *activity.Provider
	study    *study.Service
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build logger")
	}

	topics, err := syllabus.Load(cfg.SyllabusFile)
	if err != nil {
		return nil, err
	}

	db, err := database.Connect(cfg.DriverName(), cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	repos := database.NewRepositories(db)
	if err := repos.Topics.Sync(ctx, topics); err != nil {
		db.Close()
		return nil, err
	}

	provider := activity.NewProvider(repos.Sessions, repos.QuestionProgress, repos.Questions)
	provider.Location = cfg.Location

	svc := study.New(study.Stores{
		TopicProgress:    repos.TopicProgress,
		Questions:        repos.Questions,
		QuestionProgress: repos.QuestionProgress,
		Results:          repos.Results,
		Activity:         provider,
	}, topics, log)
	svc.QuizLength = cfg.QuizLength
	svc.SetLocation(cfg.Location)

	log.Info("database ready",
		"driver", cfg.DriverName(),
		"database_url", cfg.DatabaseURL,
		"topics", len(topics),
	)
	return &app{
		cfg:      cfg,
		log:      log,
		db:       db,
		repos:    repos,
		topics:   topics,
		activity: provider,
		study:    svc,
	}, nil
}

func (a *app) importer() *excel.Importer {
	return excel.NewImporter(a.repos.Questions, a.repos.Sessions, a.topics, a.log)
}

// userByTelegramID finds a registered user, registering it when missing
func (a *app) userByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	user, err := a.repos.Users.GetByTelegramID(ctx, telegramID)
	if errors.Is(err, database.ErrNotFound) {
		return a.repos.Users.Upsert(ctx, &models.User{TelegramID: telegramID, NotificationHour: 9})
	}
	return user, err
}

func (a *app) close() {
	a.log.Sync()
	if err := a.db.Close(); err != nil {
		a.log.Warn("failed to close database", "error", err)
	}
}
