package models

import (
	"errors"
	"fmt"
)

type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

type ActivityLevel string

const (
	ActivitySedentary ActivityLevel = "sedentary"
	ActivityLight     ActivityLevel = "light"
	ActivityModerate  ActivityLevel = "moderate"
	ActivityHigh      ActivityLevel = "high"
)

type DietPreference string

const (
	DietOmnivore   DietPreference = "omnivore"
	DietVegetarian DietPreference = "vegetarian"
)

// FastingWindow is the clock-time interval all meals of a day must fall into.
type FastingWindow string

const (
	FastingNone        FastingWindow = "none"
	FastingNoonToEight FastingWindow = "12-20"
	FastingNineToFive  FastingWindow = "9-17"
)

// Bounds returns the start and end clock times of the window.
// ok is false for FastingNone and unknown values.
func (f FastingWindow) Bounds() (start, end string, ok bool) {
	switch f {
	case FastingNoonToEight:
		return "12:00", "20:00", true
	case FastingNineToFive:
		return "09:00", "17:00", true
	default:
		return "", "", false
	}
}

type Budget string

const (
	BudgetLow    Budget = "low"
	BudgetMedium Budget = "medium"
	BudgetHigh   Budget = "high"
)

type CookingTime string

const (
	CookingFast   CookingTime = "fast"
	CookingNormal CookingTime = "normal"
)

// UserProfile is the questionnaire result. It is supplied fully formed to the
// calculator and the plan client and never mutated by them.
type UserProfile struct {
	Age           int            `json:"age"`
	Sex           Sex            `json:"sex"`
	Height        float64        `json:"height"`
	Weight        float64        `json:"weight"`
	Activity      ActivityLevel  `json:"activity"`
	Diet          DietPreference `json:"diet"`
	Allergies     string         `json:"allergies"`
	DislikedFoods string         `json:"dislikedFoods"`
	MealsPerDay   int            `json:"mealsPerDay"`
	FastingType   FastingWindow  `json:"fastingType"`
	Budget        Budget         `json:"budget"`
	CookingTime   CookingTime    `json:"cookingTime"`
}

// DefaultProfile returns the values the questionnaire starts from.
func DefaultProfile() UserProfile {
	return UserProfile{
		Age:         30,
		Sex:         SexFemale,
		Height:      165,
		Weight:      70,
		Activity:    ActivityLight,
		Diet:        DietOmnivore,
		MealsPerDay: 3,
		FastingType: FastingNone,
		Budget:      BudgetMedium,
		CookingTime: CookingNormal,
	}
}

var ErrInvalidProfile = errors.New("invalid user profile")

// Validate checks enum membership and that numeric fields are positive.
func (p UserProfile) Validate() error {
	var problems []string

	if p.Age <= 0 {
		problems = append(problems, "age must be positive")
	}
	if p.Height <= 0 {
		problems = append(problems, "height must be positive")
	}
	if p.Weight <= 0 {
		problems = append(problems, "weight must be positive")
	}
	if p.MealsPerDay <= 0 {
		problems = append(problems, "mealsPerDay must be positive")
	}

	switch p.Sex {
	case SexMale, SexFemale:
	default:
		problems = append(problems, fmt.Sprintf("unknown sex %q", p.Sex))
	}
	switch p.Activity {
	case ActivitySedentary, ActivityLight, ActivityModerate, ActivityHigh:
	default:
		problems = append(problems, fmt.Sprintf("unknown activity level %q", p.Activity))
	}
	switch p.Diet {
	case DietOmnivore, DietVegetarian:
	default:
		problems = append(problems, fmt.Sprintf("unknown diet %q", p.Diet))
	}
	switch p.FastingType {
	case FastingNone, FastingNoonToEight, FastingNineToFive:
	default:
		problems = append(problems, fmt.Sprintf("unknown fasting window %q", p.FastingType))
	}
	switch p.Budget {
	case BudgetLow, BudgetMedium, BudgetHigh:
	default:
		problems = append(problems, fmt.Sprintf("unknown budget %q", p.Budget))
	}
	switch p.CookingTime {
	case CookingFast, CookingNormal:
	default:
		problems = append(problems, fmt.Sprintf("unknown cooking time %q", p.CookingTime))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %v", ErrInvalidProfile, problems)
	}
	return nil
}

// NutritionTargets is derived from a UserProfile and recomputed whenever the
// profile changes.
type NutritionTargets struct {
	BMR           int    `json:"bmr"`
	TDEE          int    `json:"tdee"`
	CalorieTarget int    `json:"target"`
	SafetyWarning string `json:"warning,omitempty"`
}
