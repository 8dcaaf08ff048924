package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/oposita/internal/quiz"
	"github.com/example/oposita/internal/study"
	"github.com/example/oposita/pkg/models"
)

const helpText = `Comandos disponibles:
/fortaleza - Estado de todos los temas
/urgentes - Temas a punto de perder bloques
/test <tema> - Test de un tema
/analisis - Preparación, velocidad y predicción
/recordatorio <hora|off> - Recordatorio diario`

// handleUpdate handles incoming updates from Telegram
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(ctx, update.Message)
	case update.Message != nil:
		b.send(update.Message.Chat.ID, "No te entiendo. Usa /start para ver los comandos.", MainMenuButtons())
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

// register maps the telegram user to a stored user
func (b *Bot) register(ctx context.Context, from *tgbotapi.User, chatID int64) (*models.User, error) {
	return b.users.Upsert(ctx, &models.User{
		TelegramID:          from.ID,
		ChatID:              chatID,
		Username:            from.UserName,
		FirstName:           from.FirstName,
		NotificationEnabled: true,
		NotificationHour:    9,
	})
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	if message.From == nil {
		return
	}
	user, err := b.register(ctx, message.From, chatID)
	if err != nil {
		b.log.Error("failed to register user", "telegram_id", message.From.ID, "error", err)
		b.send(chatID, "❌ Error interno. Inténtalo de nuevo.", nil)
		return
	}

	switch message.Command() {
	case "start", "menu", "help":
		b.handleStart(user, chatID)
	case "fortaleza":
		b.handleFortress(ctx, user, chatID)
	case "urgentes":
		b.handleUrgent(ctx, user, chatID)
	case "analisis":
		b.handleAnalytics(ctx, user, chatID)
	case "test":
		b.handleTest(ctx, user, chatID, message.CommandArguments())
	case "recordatorio":
		b.handleReminder(ctx, user, chatID, message.CommandArguments())
	case "admin":
		if !b.isAdmin(message.From.ID) {
			b.send(chatID, "Este comando solo está disponible para administradores.", nil)
			return
		}
		b.send(chatID, fmt.Sprintf("Temario: %d temas", len(b.study.Topics())), nil)
	default:
		b.send(chatID, "Comando desconocido.\n\n"+helpText, MainMenuButtons())
	}
}

func (b *Bot) handleStart(user *models.User, chatID int64) {
	name := user.FirstName
	if name == "" {
		name = "opositor"
	}
	b.send(chatID, fmt.Sprintf("¡Hola, %s! 🎓\n\n%s", name, helpText), MainMenuButtons())
}

func (b *Bot) handleFortress(ctx context.Context, user *models.User, chatID int64) {
	records, err := b.study.Fortress(ctx, user.ID)
	if err != nil {
		b.fail(chatID, "fortress", err)
		return
	}
	b.send(chatID, FormatFortress(records, b.Now()), MainMenuButtons())
}

func (b *Bot) handleUrgent(ctx context.Context, user *models.User, chatID int64) {
	urgent, err := b.study.Urgent(ctx, user.ID)
	if err != nil {
		b.fail(chatID, "urgent", err)
		return
	}
	b.send(chatID, FormatUrgent(urgent, b.Now()), urgentButtons(urgent))
}

func (b *Bot) handleAnalytics(ctx context.Context, user *models.User, chatID int64) {
	snap, err := b.study.Analytics(ctx, user.ID)
	if err != nil {
		b.fail(chatID, "analytics", err)
		return
	}
	b.send(chatID, FormatAnalytics(snap), MainMenuButtons())
}

func (b *Bot) handleTest(ctx context.Context, user *models.User, chatID int64, args string) {
	args = strings.TrimSpace(args)
	if args == "" {
		if prompt, ok := b.study.ActiveQuiz(user.ID); ok {
			b.send(chatID, "Tienes un test en curso:\n\n"+FormatQuestion(prompt), answerButtons(prompt))
			return
		}
		topics := b.study.Topics()
		b.send(chatID, FormatTopics(topics), topicButtons(topics))
		return
	}
	topicID, err := strconv.ParseInt(args, 10, 64)
	if err != nil {
		b.send(chatID, "Indica el número del tema, por ejemplo /test 3", nil)
		return
	}
	b.startQuiz(ctx, user, chatID, topicID)
}

func (b *Bot) startQuiz(ctx context.Context, user *models.User, chatID, topicID int64) {
	prompt, err := b.study.StartQuiz(ctx, user.ID, topicID)
	switch {
	case errors.Is(err, study.ErrUnknownTopic):
		b.send(chatID, fmt.Sprintf("El tema %d no existe.", topicID), nil)
		return
	case errors.Is(err, quiz.ErrNoQuestions):
		b.send(chatID, "Todavía no hay preguntas para este tema.", nil)
		return
	case err != nil:
		b.fail(chatID, "start quiz", err)
		return
	}
	b.send(chatID, FormatQuestion(prompt), answerButtons(prompt))
}

func (b *Bot) handleReminder(ctx context.Context, user *models.User, chatID int64, args string) {
	args = strings.ToLower(strings.TrimSpace(args))
	if args == "" {
		state := "desactivado"
		if user.NotificationEnabled {
			state = fmt.Sprintf("a las %d:00", user.NotificationHour)
		}
		b.send(chatID, fmt.Sprintf("Recordatorio %s.\nUsa /recordatorio <0-23> o /recordatorio off", state), nil)
		return
	}
	if args == "off" {
		if err := b.users.SetNotification(ctx, user.ID, false, user.NotificationHour); err != nil {
			b.fail(chatID, "reminder", err)
			return
		}
		b.send(chatID, "🔕 Recordatorio desactivado.", nil)
		return
	}
	hour, err := strconv.Atoi(strings.TrimSuffix(args, ":00"))
	if err != nil || hour < 0 || hour > 23 {
		b.send(chatID, "Hora no válida. Usa un número entre 0 y 23.", nil)
		return
	}
	if err := b.users.SetNotification(ctx, user.ID, true, hour); err != nil {
		b.fail(chatID, "reminder", err)
		return
	}
	b.send(chatID, fmt.Sprintf("✅ Recordatorio diario a las %d:00", hour), nil)
}

// handleCallback handles button presses
func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if callback.Message == nil || callback.From == nil {
		return
	}
	chatID := callback.Message.Chat.ID
	if _, err := b.sender.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		b.log.Debug("failed to answer callback", "error", err)
	}
	user, err := b.register(ctx, callback.From, chatID)
	if err != nil {
		b.log.Error("failed to register user", "telegram_id", callback.From.ID, "error", err)
		return
	}

	data := callback.Data
	switch {
	case data == "fortress":
		b.handleFortress(ctx, user, chatID)
	case data == "urgent":
		b.handleUrgent(ctx, user, chatID)
	case data == "analytics":
		b.handleAnalytics(ctx, user, chatID)
	case data == "topics":
		b.handleTest(ctx, user, chatID, "")
	case data == "cancel":
		if b.study.CancelQuiz(user.ID) {
			b.send(chatID, "Test cancelado.", MainMenuButtons())
		}
	case strings.HasPrefix(data, "quiz_"):
		topicID, err := strconv.ParseInt(strings.TrimPrefix(data, "quiz_"), 10, 64)
		if err != nil {
			b.log.Warn("invalid quiz callback", "data", data)
			return
		}
		b.startQuiz(ctx, user, chatID, topicID)
	case strings.HasPrefix(data, "ans_"):
		reply, ok := parseAnswer(data)
		if !ok {
			b.log.Warn("invalid answer callback", "data", data)
			return
		}
		b.handleAnswer(ctx, user, chatID, reply)
	case strings.HasPrefix(data, "fin_"):
		b.handleFinish(ctx, user, chatID, strings.TrimPrefix(data, "fin_"))
	}
}

func (b *Bot) handleAnswer(ctx context.Context, user *models.User, chatID int64, reply study.Reply) {
	outcome, err := b.study.Answer(ctx, user.ID, reply)
	switch {
	case errors.Is(err, study.ErrNoActiveQuiz):
		b.send(chatID, "No tienes ningún test en curso. Usa /test para empezar.", nil)
		return
	case errors.Is(err, study.ErrStaleAnswer), errors.Is(err, quiz.ErrInvalidOption):
		b.log.Debug("ignored answer", "user", user.ID, "ref", reply.Ref, "position", reply.Position, "error", err)
		return
	case err != nil && outcome.Done:
		b.send(chatID, FormatFeedback(outcome), nil)
		b.log.Error("request failed", "op", "finish quiz", "chat", chatID, "error", err)
		b.send(chatID, "❌ No se pudo guardar el test. Tus respuestas siguen aquí.", retryButtons(reply.Ref))
		return
	case err != nil:
		b.fail(chatID, "answer", err)
		return
	}

	b.send(chatID, FormatFeedback(outcome), nil)
	if outcome.Summary != nil {
		b.send(chatID, FormatSummary(outcome.Summary), MainMenuButtons())
		return
	}
	if outcome.Next != nil {
		b.send(chatID, FormatQuestion(*outcome.Next), answerButtons(*outcome.Next))
	}
}

func (b *Bot) handleFinish(ctx context.Context, user *models.User, chatID int64, ref string) {
	summary, err := b.study.FinishQuiz(ctx, user.ID, ref)
	switch {
	case errors.Is(err, study.ErrNoActiveQuiz), errors.Is(err, study.ErrStaleAnswer), errors.Is(err, study.ErrQuizInProgress):
		return
	case err != nil:
		b.log.Error("request failed", "op", "finish quiz", "chat", chatID, "error", err)
		b.send(chatID, "❌ No se pudo guardar el test. Inténtalo de nuevo.", retryButtons(ref))
		return
	}
	b.send(chatID, FormatSummary(summary), MainMenuButtons())
}

func (b *Bot) fail(chatID int64, op string, err error) {
	b.log.Error("request failed", "op", op, "chat", chatID, "error", err)
	b.send(chatID, "❌ Error interno. Inténtalo de nuevo.", nil)
}
