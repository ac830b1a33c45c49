package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"diet-planner/internal/models"
	"diet-planner/internal/nutrition"
	"diet-planner/internal/planclient"
)

const historyLimit = 10

const processingText = "⏳ Tu plan se está generando, un momento..."

// generate requests a plan for the user's saved profile, stores it as the
// active plan and sends it day by day.
func (t *TelegramBot) generate(ctx context.Context, user *models.User) {
	if !t.tryBeginProcessing(user) {
		t.reply(user.ChatID, processingText, nil)
		return
	}

	targets := nutrition.ComputeTargets(user.Profile)
	t.reply(user.ChatID,
		fmt.Sprintf("⏳ Generando tu plan semanal de %d kcal/día. Puede tardar un par de minutos...", targets.CalorieTarget),
		tgbotapi.NewRemoveKeyboard(true))

	ctx, cancel := context.WithTimeout(ctx, t.generateTimeout)
	defer cancel()

	plan, err := t.planner.RequestPlan(ctx, user.Profile, targets.CalorieTarget)
	if err != nil {
		t.logger.Errorw("Failed to generate plan", "error", err, "user_id", user.TelegramID)
		t.setState(models.UserState{
			TelegramID:   user.TelegramID,
			ChatID:       user.ChatID,
			CurrentState: StateFailed,
			Profile:      user.Profile,
		})
		t.reply(user.ChatID,
			"❌ "+planclient.UserMessage(err)+"\n\nUsa /retry para reintentarlo o /start para empezar de nuevo.",
			nil)
		return
	}

	if err := t.store.SaveActivePlan(ctx, user.ID, user.Profile, plan); err != nil {
		t.logger.Errorw("Failed to save plan", "error", err, "user_id", user.TelegramID)
	}

	t.sendPlan(user.ChatID, plan)
	t.reply(user.ChatID, summarizePlan(plan, targets), nil)

	t.setState(models.UserState{
		TelegramID:   user.TelegramID,
		ChatID:       user.ChatID,
		CurrentState: StateComplete,
		Profile:      user.Profile,
	})
	t.logger.Infow("Plan delivered", "user_id", user.TelegramID, "plan_id", plan.ID)
}

// startCheckout opens a Stripe checkout session; the webhook resumes
// generation once it completes.
func (t *TelegramBot) startCheckout(ctx context.Context, state models.UserState, user *models.User) {
	successURL := fmt.Sprintf("https://t.me/%s?start=payment_success", t.username)
	cancelURL := fmt.Sprintf("https://t.me/%s?start=payment_cancel", t.username)

	sessionID, checkoutURL, err := t.checkout.CreateCheckoutSession(user.TelegramID, successURL, cancelURL)
	if err != nil {
		t.logger.Errorw("Failed to create Stripe session", "error", err, "user_id", user.TelegramID)
		t.reply(user.ChatID, "Lo sentimos, no pudimos iniciar el pago. Inténtalo más tarde.", nil)
		return
	}

	amount, currency := t.checkout.Price()
	payment := &models.Payment{
		UserID:          user.ID,
		Amount:          amount,
		Currency:        currency,
		StripePaymentID: sessionID,
		Status:          models.PaymentPending,
	}
	if err := t.store.SavePayment(ctx, payment); err != nil {
		t.logger.Errorw("Failed to save payment record", "error", err, "session_id", sessionID)
	}

	state.CurrentState = StatePayment
	state.StripeSessionID = sessionID
	t.setState(state)

	msg := tgbotapi.NewMessage(user.ChatID,
		fmt.Sprintf("Tus datos están guardados. El plan cuesta %.2f %s.", float64(amount)/100, strings.ToUpper(currency)))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("Pagar", checkoutURL),
		),
	)
	if _, err := t.api.Send(msg); err != nil {
		t.logger.Errorw("Failed to send payment link", "error", err, "chat_id", user.ChatID)
	}
}

func (t *TelegramBot) sendPlan(chatID int64, plan *models.WeeklyPlan) {
	for _, day := range plan.Days {
		t.reply(chatID, renderDay(day), nil)
	}
}

func renderDay(day models.DailyPlan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📅 %s · %.0f kcal · 💧 %s\n", day.Day, day.TotalCalories, day.WaterGoal)
	for _, m := range day.Meals {
		fmt.Fprintf(&b, "\n🍽 %s %s · %s\n", m.Type, m.Time, m.Name)
		fmt.Fprintf(&b, "%.0f kcal · %s\n", m.Calories, m.PrepTime)
		if len(m.Ingredients) > 0 {
			fmt.Fprintf(&b, "Ingredientes: %s\n", strings.Join(m.Ingredients, ", "))
		}
		for i, step := range m.Instructions {
			fmt.Fprintf(&b, "%d. %s\n", i+1, step)
		}
	}
	return b.String()
}

func averageCalories(plan *models.WeeklyPlan) float64 {
	if len(plan.Days) == 0 {
		return 0
	}
	var total float64
	for _, d := range plan.Days {
		total += d.TotalCalories
	}
	return total / float64(len(plan.Days))
}

func summarizePlan(plan *models.WeeklyPlan, targets models.NutritionTargets) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ Tu plan de %d días está listo.\n", len(plan.Days))
	fmt.Fprintf(&b, "Media: %.0f kcal/día (objetivo %d kcal).\n", averageCalories(plan), targets.CalorieTarget)
	if targets.SafetyWarning != "" {
		fmt.Fprintf(&b, "⚠️ %s\n", targets.SafetyWarning)
	}
	b.WriteString("\n/plan para volver a verlo · /finish al terminar la semana · /new para otro plan")
	return b.String()
}

func renderHistory(entries []models.PlanHistoryEntry) string {
	if len(entries) == 0 {
		return "Tu historial está vacío. Usa /finish para guardar tu plan activo."
	}
	var b strings.Builder
	b.WriteString("📚 Tus planes anteriores:\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "\n• %s · %s · %.0f kcal/día · %s",
			e.ArchivedAt.Format("02/01/2006"), e.Profile.Diet.Label(), averageCalories(&e.Plan), e.Profile.FastingType.Label())
	}
	return b.String()
}
