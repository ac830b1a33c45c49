package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"diet-planner/internal/models"
	"diet-planner/internal/nutrition"
)

const (
	StateSafety     = "safety"
	StateSex        = "sex"
	StateAge        = "age"
	StateWeight     = "weight"
	StateHeight     = "height"
	StateActivity   = "activity"
	StateDiet       = "diet"
	StateAllergies  = "allergies"
	StateDisliked   = "disliked"
	StateMeals      = "meals"
	StateFasting    = "fasting"
	StateBudget     = "budget"
	StateCooking    = "cooking"
	StateConfirm    = "confirm"
	StatePayment    = "payment"
	StateProcessing = "processing"
	StateFailed     = "failed"
	StateComplete   = "complete"
)

const (
	safetyNone     = "Ninguna de estas"
	confirmYes     = "Sí, generar mi plan"
	confirmRestart = "Empezar de nuevo"
)

var safetyConditions = []string{
	"Embarazo o lactancia",
	"Menor de 18 años",
	"Diabetes, TCA o patología cardíaca",
	"Medicación metabólica especial",
}

var (
	sexOptions      = []models.Sex{models.SexMale, models.SexFemale}
	activityOptions = []models.ActivityLevel{models.ActivitySedentary, models.ActivityLight, models.ActivityModerate, models.ActivityHigh}
	dietOptions     = []models.DietPreference{models.DietOmnivore, models.DietVegetarian}
	fastingOptions  = []models.FastingWindow{models.FastingNone, models.FastingNoonToEight, models.FastingNineToFive}
	budgetOptions   = []models.Budget{models.BudgetLow, models.BudgetMedium, models.BudgetHigh}
	cookingOptions  = []models.CookingTime{models.CookingFast, models.CookingNormal}
)

type labeled interface {
	~string
	Label() string
}

func labelsOf[T labeled](options []T) []string {
	out := make([]string, len(options))
	for i, o := range options {
		out[i] = o.Label()
	}
	return out
}

// pick matches text against the option labels.
func pick[T labeled](options []T, text string) (T, bool) {
	for _, o := range options {
		if strings.EqualFold(o.Label(), text) {
			return o, true
		}
	}
	var zero T
	return zero, false
}

// keyboard lays the buttons out two per row.
func keyboard(labels ...string) tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	for i := 0; i < len(labels); i += 2 {
		row := tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(labels[i]))
		if i+1 < len(labels) {
			row = append(row, tgbotapi.NewKeyboardButton(labels[i+1]))
		}
		rows = append(rows, row)
	}
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.OneTimeKeyboard = true
	return kb
}

func parseNumber(text string, min, max float64) (float64, bool) {
	v, err := strconv.ParseFloat(strings.Replace(strings.TrimSpace(text), ",", ".", 1), 64)
	if err != nil || v < min || v > max {
		return 0, false
	}
	return v, true
}

// freeText treats "-" and "ninguna"/"ninguno" as no answer.
func freeText(text string) string {
	text = strings.TrimSpace(text)
	switch strings.ToLower(text) {
	case "-", "ninguna", "ninguno", "no":
		return ""
	}
	return text
}

// beginWizard resets the user's questionnaire to the safety screening.
func (t *TelegramBot) beginWizard(chatID, userID int64) {
	t.setState(models.UserState{
		TelegramID:   userID,
		ChatID:       chatID,
		CurrentState: StateSafety,
		Profile:      models.DefaultProfile(),
	})

	options := append([]string{safetyNone}, safetyConditions...)
	t.reply(chatID,
		"👋 ¡Hola! Voy a prepararte un plan de comidas semanal.\n\n"+
			"Antes de empezar, ¿te encuentras en alguna de estas situaciones?",
		keyboard(options...))
}

func (t *TelegramBot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	userID := message.From.ID
	text := strings.TrimSpace(message.Text)

	state, ok := t.state(userID)
	if !ok {
		t.reply(chatID, "Usa /start para comenzar.", nil)
		return
	}

	t.logger.Debugw("Processing message based on state",
		"user_id", userID,
		"state", state.CurrentState)

	p := &state.Profile

	switch state.CurrentState {
	case StateSafety:
		if text != safetyNone {
			for _, c := range safetyConditions {
				if text == c {
					t.clearState(userID)
					t.reply(chatID,
						"💚 Priorizamos tu bienestar. En tu caso te recomendamos consultar con un "+
							"profesional sanitario antes de iniciar cualquier plan automatizado.",
						tgbotapi.NewRemoveKeyboard(true))
					return
				}
			}
			t.reply(chatID, "Por favor, elige una opción del teclado.", nil)
			return
		}
		state.CurrentState = StateSex
		t.reply(chatID, "Perfecto. ¿Cuál es tu sexo?", keyboard(labelsOf(sexOptions)...))

	case StateSex:
		sex, ok := pick(sexOptions, text)
		if !ok {
			t.reply(chatID, "Por favor, elige una opción del teclado.", keyboard(labelsOf(sexOptions)...))
			return
		}
		p.Sex = sex
		state.CurrentState = StateAge
		t.reply(chatID, "¿Qué edad tienes? (18-100)", tgbotapi.NewRemoveKeyboard(true))

	case StateAge:
		age, ok := parseNumber(text, 18, 100)
		if !ok || age != float64(int(age)) {
			t.reply(chatID, "Introduce una edad válida entre 18 y 100 años.", nil)
			return
		}
		p.Age = int(age)
		state.CurrentState = StateWeight
		t.reply(chatID, "¿Cuánto pesas en kg? (por ejemplo, 70)", nil)

	case StateWeight:
		weight, ok := parseNumber(text, 30, 300)
		if !ok {
			t.reply(chatID, "Introduce un peso válido entre 30 y 300 kg.", nil)
			return
		}
		p.Weight = weight
		state.CurrentState = StateHeight
		t.reply(chatID, "¿Cuánto mides en cm? (por ejemplo, 165)", nil)

	case StateHeight:
		height, ok := parseNumber(text, 100, 250)
		if !ok {
			t.reply(chatID, "Introduce una altura válida entre 100 y 250 cm.", nil)
			return
		}
		p.Height = height
		state.CurrentState = StateActivity
		t.reply(chatID, "¿Cuál es tu nivel de actividad?", keyboard(labelsOf(activityOptions)...))

	case StateActivity:
		activity, ok := pick(activityOptions, text)
		if !ok {
			t.reply(chatID, "Por favor, elige una opción del teclado.", keyboard(labelsOf(activityOptions)...))
			return
		}
		p.Activity = activity
		state.CurrentState = StateDiet
		t.reply(chatID, "¿Qué tipo de dieta sigues?", keyboard(labelsOf(dietOptions)...))

	case StateDiet:
		diet, ok := pick(dietOptions, text)
		if !ok {
			t.reply(chatID, "Por favor, elige una opción del teclado.", keyboard(labelsOf(dietOptions)...))
			return
		}
		p.Diet = diet
		state.CurrentState = StateAllergies
		t.reply(chatID, "¿Tienes alergias o intolerancias? Escríbelas o envía \"-\" si no tienes.",
			tgbotapi.NewRemoveKeyboard(true))

	case StateAllergies:
		p.Allergies = freeText(text)
		state.CurrentState = StateDisliked
		t.reply(chatID, "¿Hay alimentos que no te gusten? Escríbelos o envía \"-\".", nil)

	case StateDisliked:
		p.DislikedFoods = freeText(text)
		state.CurrentState = StateMeals
		t.reply(chatID, "¿Cuántas comidas quieres hacer al día?", keyboard("2", "3", "4", "5", "6"))

	case StateMeals:
		meals, ok := parseNumber(text, 2, 6)
		if !ok || meals != float64(int(meals)) {
			t.reply(chatID, "Elige entre 2 y 6 comidas al día.", keyboard("2", "3", "4", "5", "6"))
			return
		}
		p.MealsPerDay = int(meals)
		state.CurrentState = StateFasting
		t.reply(chatID, "¿Sigues algún horario de ayuno?", keyboard(labelsOf(fastingOptions)...))

	case StateFasting:
		fasting, ok := pick(fastingOptions, text)
		if !ok {
			t.reply(chatID, "Por favor, elige una opción del teclado.", keyboard(labelsOf(fastingOptions)...))
			return
		}
		p.FastingType = fasting
		state.CurrentState = StateBudget
		t.reply(chatID, "¿Qué presupuesto prefieres?", keyboard(labelsOf(budgetOptions)...))

	case StateBudget:
		budget, ok := pick(budgetOptions, text)
		if !ok {
			t.reply(chatID, "Por favor, elige una opción del teclado.", keyboard(labelsOf(budgetOptions)...))
			return
		}
		p.Budget = budget
		state.CurrentState = StateCooking
		t.reply(chatID, "¿Cuánto tiempo quieres dedicar a cocinar?", keyboard(labelsOf(cookingOptions)...))

	case StateCooking:
		cooking, ok := pick(cookingOptions, text)
		if !ok {
			t.reply(chatID, "Por favor, elige una opción del teclado.", keyboard(labelsOf(cookingOptions)...))
			return
		}
		p.CookingTime = cooking
		state.CurrentState = StateConfirm
		t.reply(chatID, summarizeProfile(*p, nutrition.ComputeTargets(*p)), keyboard(confirmYes, confirmRestart))

	case StateConfirm:
		switch text {
		case confirmRestart:
			t.beginWizard(chatID, userID)
			return
		case confirmYes:
		default:
			t.reply(chatID, "Por favor, elige una opción del teclado.", keyboard(confirmYes, confirmRestart))
			return
		}

		user := &models.User{
			TelegramID: userID,
			ChatID:     chatID,
			Username:   message.From.UserName,
			Profile:    state.Profile,
		}
		if err := t.store.SaveUser(ctx, user); err != nil {
			t.logger.Errorw("Failed to save user data", "error", err, "user_id", userID)
			t.reply(chatID, "Lo sentimos, no pudimos guardar tus datos. Inténtalo más tarde.", nil)
			return
		}

		if t.checkout != nil {
			t.startCheckout(ctx, state, user)
			return
		}
		t.setState(state)
		t.generate(ctx, user)
		return

	case StatePayment:
		t.reply(chatID, "Estamos esperando la confirmación del pago. Usa /start para empezar de nuevo.", nil)
		return

	case StateProcessing:
		t.reply(chatID, processingText, nil)
		return

	default:
		t.reply(chatID, "Usa /plan para ver tu plan, /new para crear otro o /help para ver los comandos.", nil)
		return
	}

	t.setState(state)
}

func summarizeProfile(p models.UserProfile, targets models.NutritionTargets) string {
	var b strings.Builder
	b.WriteString("Revisemos tus datos:\n\n")
	fmt.Fprintf(&b, "Sexo: %s\nEdad: %d años\nPeso: %g kg\nAltura: %g cm\n", p.Sex.Label(), p.Age, p.Weight, p.Height)
	fmt.Fprintf(&b, "Actividad: %s\nDieta: %s\n", p.Activity.Label(), p.Diet.Label())
	fmt.Fprintf(&b, "Alergias: %s\nNo me gusta: %s\n", orNone(p.Allergies), orNone(p.DislikedFoods))
	fmt.Fprintf(&b, "Comidas al día: %d\nHorario: %s\nPresupuesto: %s\nCocina: %s\n\n",
		p.MealsPerDay, p.FastingType.Label(), p.Budget.Label(), p.CookingTime.Label())
	fmt.Fprintf(&b, "Metabolismo basal: %d kcal\nGasto diario: %d kcal\nObjetivo: %d kcal/día\n",
		targets.BMR, targets.TDEE, targets.CalorieTarget)
	if targets.SafetyWarning != "" {
		fmt.Fprintf(&b, "\n⚠️ %s\n", targets.SafetyWarning)
	}
	b.WriteString("\n¿Todo correcto?")
	return b.String()
}

func orNone(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
