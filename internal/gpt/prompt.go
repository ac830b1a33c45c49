package gpt

import (
	"fmt"

	"github.com/tmc/langchaingo/prompts"

	"diet-planner/internal/models"
)

const systemPrompt = "Eres un nutricionista colegiado experto en dieta mediterránea creativa y variada. " +
	"Respondes únicamente con el objeto JSON solicitado."

var planPrompt = prompts.NewPromptTemplate(`Genera un plan de alimentación detallado para 7 días completos (lunes a domingo).

VARIEDAD (semilla aleatoria: {{.seed}}):
Este plan debe ser claramente distinto de un plan estándar. Evita repetir platos entre días y alterna
pescados, carnes magras, legumbres, verduras de temporada y cereales integrales.

PERFIL DEL USUARIO:
- Objetivo calórico: {{.targetCalories}} kcal/día (margen +/- 5%).
- Tipo de dieta: {{.diet}}.
- Comidas por día: {{.mealsPerDay}}.
- Alergias/intolerancias: {{.allergies}}.
- Alimentos a evitar: {{.dislikedFoods}}.
- Presupuesto: {{.budget}} (ajusta los ingredientes a este presupuesto).
- Tiempo de cocina: {{.cookingTime}}.
{{- if .fasting}}
- {{.fasting}}
{{- end}}

REGLAS DE RESPUESTA:
1. Responde solo con el objeto JSON solicitado, sin texto adicional.
2. No incluyas una lista de la compra global; los ingredientes ya van en cada plato.
3. Cada comida debe indicar sus calorías como un número positivo.`,
	[]string{"seed", "targetCalories", "diet", "mealsPerDay", "allergies", "dislikedFoods", "budget", "cookingTime", "fasting"},
)

// fastingInstruction is empty when the profile has no fasting window.
func fastingInstruction(f models.FastingWindow) string {
	start, end, ok := f.Bounds()
	if !ok {
		return ""
	}
	return fmt.Sprintf("IMPORTANTE: el usuario hace ayuno intermitente 16:8 (ventana %s a %s). "+
		"Todas las comidas deben programarse estrictamente dentro de ese horario.", start, end)
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// BuildPrompt renders the generation instruction for one request.
func BuildPrompt(profile models.UserProfile, targetCalories, seed int) (string, error) {
	out, err := planPrompt.Format(map[string]any{
		"seed":           seed,
		"targetCalories": targetCalories,
		"diet":           profile.Diet.Label(),
		"mealsPerDay":    profile.MealsPerDay,
		"allergies":      orDefault(profile.Allergies, "Ninguna"),
		"dislikedFoods":  orDefault(profile.DislikedFoods, "Ninguno"),
		"budget":         profile.Budget.Label(),
		"cookingTime":    profile.CookingTime.Label(),
		"fasting":        fastingInstruction(profile.FastingType),
	})
	if err != nil {
		return "", fmt.Errorf("rendering plan prompt: %w", err)
	}
	return out, nil
}
