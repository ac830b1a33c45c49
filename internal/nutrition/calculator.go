// Package nutrition derives daily energy targets from a user profile.
package nutrition

import (
	"fmt"
	"math"

	"diet-planner/internal/models"
)

// deficitFactor applies a fixed 15% deficit to the TDEE.
const deficitFactor = 0.85

const (
	maleFloorKcal   = 1500
	femaleFloorKcal = 1200
)

var activityFactors = map[models.ActivityLevel]float64{
	models.ActivitySedentary: 1.2,
	models.ActivityLight:     1.375,
	models.ActivityModerate:  1.55,
	models.ActivityHigh:      1.725,
}

// ActivityFactor returns the TDEE multiplier for a level, or 0 for an unknown level.
func ActivityFactor(level models.ActivityLevel) float64 {
	return activityFactors[level]
}

// SafetyFloor returns the minimum daily calorie target allowed for sex.
func SafetyFloor(sex models.Sex) float64 {
	if sex == models.SexMale {
		return maleFloorKcal
	}
	return femaleFloorKcal
}

// ComputeTargets estimates BMR with the Mifflin-St Jeor equation, scales it
// by the activity factor and applies the deficit. The target never drops
// below the sex-dependent floor; SafetyWarning is set only when it was clamped.
// Inputs are not range-checked.
func ComputeTargets(p models.UserProfile) models.NutritionTargets {
	bmr := 10*p.Weight + 6.25*p.Height - 5*float64(p.Age)
	if p.Sex == models.SexMale {
		bmr += 5
	} else {
		bmr -= 161
	}

	tdee := bmr * ActivityFactor(p.Activity)
	target := tdee * deficitFactor

	floor := SafetyFloor(p.Sex)
	var warning string
	if target < floor {
		target = floor
		warning = fmt.Sprintf("Tu objetivo calculado era muy bajo. Se ha ajustado al mínimo de seguridad (%d kcal) recomendado por Sanidad.", int(floor))
	}

	return models.NutritionTargets{
		BMR:           round(bmr),
		TDEE:          round(tdee),
		CalorieTarget: round(target),
		SafetyWarning: warning,
	}
}

// round breaks ties towards positive infinity, so -148.5 becomes -148.
func round(x float64) int {
	return int(math.Floor(x + 0.5))
}
