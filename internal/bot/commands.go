package bot

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"diet-planner/internal/db"
	"diet-planner/internal/models"
)

const helpText = `Te preparo un plan de comidas semanal adaptado a tu perfil.

/start - responder el cuestionario
/plan - ver tu plan activo
/retry - regenerar el plan con tu último perfil
/finish - guardar el plan activo en tu historial
/history - ver tus planes anteriores
/new - descartar el plan activo y empezar otro`

func (t *TelegramBot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	command := message.Command()
	chatID := message.Chat.ID
	userID := message.From.ID

	t.logger.Infow("Handling command", "command", command, "user_id", userID)

	switch command {
	case "start":
		switch message.CommandArguments() {
		case "payment_success":
			t.reply(chatID, "¡Gracias por tu pago! Recibirás tu plan en cuanto se confirme.", nil)
			return
		case "payment_cancel":
			t.clearState(userID)
			t.reply(chatID, "El pago se ha cancelado. Puedes volver a intentarlo con /start.", nil)
			return
		}
		t.beginWizard(chatID, userID)

	case "help":
		t.reply(chatID, helpText, nil)

	case "plan":
		user, ok := t.loadUser(ctx, chatID, userID)
		if !ok {
			return
		}
		plan, err := t.store.GetActivePlan(ctx, user.ID)
		if err != nil {
			t.storeError(chatID, err, "No tienes un plan activo. Usa /start o /retry para crear uno.")
			return
		}
		t.sendPlan(chatID, plan)

	case "retry":
		user, ok := t.loadUser(ctx, chatID, userID)
		if !ok {
			return
		}
		// A paid generation that failed can be retried for free.
		state, _ := t.state(userID)
		switch {
		case state.CurrentState == StateProcessing:
			t.reply(chatID, processingText, nil)
		case t.checkout != nil && state.CurrentState != StateFailed:
			t.startCheckout(ctx, models.UserState{TelegramID: userID, ChatID: chatID, Profile: user.Profile}, user)
		default:
			t.generate(ctx, user)
		}

	case "finish":
		user, ok := t.loadUser(ctx, chatID, userID)
		if !ok {
			return
		}
		if err := t.store.FinishActivePlan(ctx, user.ID); err != nil {
			t.storeError(chatID, err, "No tienes un plan activo que guardar.")
			return
		}
		t.reply(chatID, "📚 Plan guardado en tu historial. Usa /new cuando quieras otro.", nil)

	case "history":
		user, ok := t.loadUser(ctx, chatID, userID)
		if !ok {
			return
		}
		entries, err := t.store.ListHistory(ctx, user.ID, historyLimit)
		if err != nil {
			t.storeError(chatID, err, "")
			return
		}
		t.reply(chatID, renderHistory(entries), nil)

	case "new":
		if user, err := t.store.GetUser(ctx, userID); err == nil {
			if err := t.store.DiscardActivePlan(ctx, user.ID); err != nil && !errors.Is(err, db.ErrNotFound) {
				t.logger.Errorw("Failed to discard active plan", "error", err, "user_id", userID)
			}
		}
		t.beginWizard(chatID, userID)

	default:
		t.reply(chatID, "Comando desconocido. Usa /help para ver los comandos.", nil)
	}
}

// loadUser fetches the stored profile, telling the user when there is none.
func (t *TelegramBot) loadUser(ctx context.Context, chatID, userID int64) (*models.User, bool) {
	user, err := t.store.GetUser(ctx, userID)
	if err != nil {
		t.storeError(chatID, err, "Aún no tienes un perfil. Usa /start para crearlo.")
		return nil, false
	}
	return user, true
}

func (t *TelegramBot) storeError(chatID int64, err error, notFound string) {
	if notFound != "" && errors.Is(err, db.ErrNotFound) {
		t.reply(chatID, notFound, nil)
		return
	}
	t.logger.Errorw("Storage failure", "error", err, "chat_id", chatID)
	t.reply(chatID, "Lo sentimos, ha ocurrido un error. Inténtalo más tarde.", nil)
}
