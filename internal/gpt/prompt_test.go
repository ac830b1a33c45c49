package gpt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diet-planner/internal/models"
)

func TestBuildPrompt(t *testing.T) {
	p := models.DefaultProfile()
	p.Diet = models.DietVegetarian
	p.Allergies = "lactosa"
	p.Budget = models.BudgetLow
	p.CookingTime = models.CookingFast

	out, err := BuildPrompt(p, 1660, 987654)
	require.NoError(t, err)

	assert.Contains(t, out, "1660 kcal/día (margen +/- 5%)")
	assert.Contains(t, out, "vegetariana")
	assert.Contains(t, out, "lactosa")
	assert.Contains(t, out, "Alimentos a evitar: Ninguno")
	assert.Contains(t, out, "económico")
	assert.Contains(t, out, "exprés")
	assert.Contains(t, out, "987654")
	assert.NotContains(t, out, "ayuno intermitente")
}

func TestBuildPromptFastingWindow(t *testing.T) {
	p := models.DefaultProfile()
	p.FastingType = models.FastingNoonToEight

	out, err := BuildPrompt(p, 1500, 1)
	require.NoError(t, err)
	assert.Contains(t, out, "ventana 12:00 a 20:00")
}
