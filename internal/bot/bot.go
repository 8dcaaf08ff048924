package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/oposita/internal/analytics"
	"github.com/example/oposita/internal/logger"
	"github.com/example/oposita/internal/quiz"
	"github.com/example/oposita/internal/study"
	"github.com/example/oposita/pkg/models"
)

// MenuButton represents a button in the menu
type MenuButton struct {
	Text         string
	CallbackData string
}

// createKeyboard creates a keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// Sender is the part of the Telegram API the bot writes through
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// StudyService is what the bot needs from the study service
type StudyService interface {
	Topics() []models.Topic
	Fortress(ctx context.Context, userID int64) ([]models.TopicProgress, error)
	Urgent(ctx context.Context, userID int64) ([]models.TopicProgress, error)
	Analytics(ctx context.Context, userID int64) (analytics.Snapshot, error)
	StartQuiz(ctx context.Context, userID, topicID int64) (quiz.Prompt, error)
	Answer(ctx context.Context, userID int64, r study.Reply) (study.AnswerOutcome, error)
	FinishQuiz(ctx context.Context, userID int64, ref string) (*study.QuizSummary, error)
	ActiveQuiz(userID int64) (quiz.Prompt, bool)
	CancelQuiz(userID int64) bool
}

// UserStore registers telegram users and their reminder settings
type UserStore interface {
	Upsert(ctx context.Context, user *models.User) (*models.User, error)
	SetNotification(ctx context.Context, userID int64, enabled bool, hour int) error
}

// Options configure the bot
type Options struct {
	AdminUserIDs []int64
	Location     *time.Location
}

// Bot represents the Telegram bot application
type Bot struct {
	api    *tgbotapi.BotAPI
	sender Sender
	study  StudyService
	users  UserStore
	admins map[int64]bool
	loc    *time.Location
	log    *logger.Logger

	// Now returns the time used for countdowns
	Now func() time.Time
}

// New authorizes against the Telegram API
func New(token string, svc StudyService, users UserStore, opts Options, log *logger.Logger) (*Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable is not set")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("unable to create bot: %w", err)
	}
	b := NewWithSender(api, svc, users, opts, log)
	b.api = api
	b.log.Info("authorized on account", "username", api.Self.UserName)
	return b, nil
}

// NewWithSender builds a bot over any Sender; used by tests and tools
func NewWithSender(sender Sender, svc StudyService, users UserStore, opts Options, log *logger.Logger) *Bot {
	if log == nil {
		log = logger.Nop()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	admins := make(map[int64]bool, len(opts.AdminUserIDs))
	for _, id := range opts.AdminUserIDs {
		admins[id] = true
	}
	return &Bot{
		sender: sender,
		study:  svc,
		users:  users,
		admins: admins,
		loc:    opts.Location,
		log:    log.With("component", "bot"),
		Now:    time.Now,
	}
}

// Start long-polls for updates until ctx is cancelled
func (b *Bot) Start(ctx context.Context) error {
	if b.api == nil {
		return fmt.Errorf("bot is not connected to telegram")
	}
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info("bot started")
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.log.Info("bot stopped")
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

// SendReminder implements scheduler.Notifier
func (b *Bot) SendReminder(chatID int64, urgent []models.TopicProgress) error {
	msg := tgbotapi.NewMessage(chatID, FormatReminder(urgent, b.Now()))
	msg.ReplyMarkup = createKeyboard(urgentButtons(urgent))
	if _, err := b.sender.Send(msg); err != nil {
		return fmt.Errorf("failed to send reminder to chat %d: %w", chatID, err)
	}
	return nil
}

func (b *Bot) isAdmin(telegramID int64) bool {
	return b.admins[telegramID]
}

func (b *Bot) send(chatID int64, text string, buttons [][]MenuButton) {
	msg := tgbotapi.NewMessage(chatID, text)
	if len(buttons) > 0 {
		msg.ReplyMarkup = createKeyboard(buttons)
	}
	if _, err := b.sender.Send(msg); err != nil {
		b.log.Warn("failed to send message", "chat", chatID, "error", err)
	}
}

// MainMenuButtons returns the buttons for the main menu
func MainMenuButtons() [][]MenuButton {
	return [][]MenuButton{
		{
			{Text: "🏰 Fortaleza", CallbackData: "fortress"},
			{Text: "⏰ Urgentes", CallbackData: "urgent"},
		},
		{
			{Text: "📝 Test", CallbackData: "topics"},
			{Text: "📊 Análisis", CallbackData: "analytics"},
		},
	}
}

func urgentButtons(urgent []models.TopicProgress) [][]MenuButton {
	var row []MenuButton
	for _, r := range urgent {
		row = append(row, MenuButton{
			Text:         "📝 " + r.ShortName,
			CallbackData: fmt.Sprintf("quiz_%d", r.TopicID),
		})
	}
	if len(row) == 0 {
		return nil
	}
	return [][]MenuButton{row}
}

// answerButtons tags every option with the session ref and the position of
// the question, so a tap on an old message can be told apart
func answerButtons(p quiz.Prompt) [][]MenuButton {
	var row []MenuButton
	for i := range p.Question.Options {
		row = append(row, MenuButton{
			Text:         letter(i),
			CallbackData: fmt.Sprintf("ans_%s_%d_%d", p.Ref, p.Position, i),
		})
	}
	return [][]MenuButton{row, {{Text: "✖ Cancelar", CallbackData: "cancel"}}}
}

func retryButtons(ref string) [][]MenuButton {
	return [][]MenuButton{{{Text: "🔁 Reintentar", CallbackData: "fin_" + ref}}}
}

// parseAnswer reads the callback data built by answerButtons
func parseAnswer(data string) (study.Reply, bool) {
	parts := strings.Split(strings.TrimPrefix(data, "ans_"), "_")
	if len(parts) != 3 || parts[0] == "" {
		return study.Reply{}, false
	}
	pos, err := strconv.Atoi(parts[1])
	if err != nil {
		return study.Reply{}, false
	}
	opt, err := strconv.Atoi(parts[2])
	if err != nil {
		return study.Reply{}, false
	}
	return study.Reply{Ref: parts[0], Position: pos, Option: opt}, true
}

func topicButtons(topics []models.Topic) [][]MenuButton {
	var rows [][]MenuButton
	var row []MenuButton
	for _, t := range topics {
		row = append(row, MenuButton{Text: fmt.Sprint(t.ID), CallbackData: fmt.Sprintf("quiz_%d", t.ID)})
		if len(row) == 4 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return rows
}
