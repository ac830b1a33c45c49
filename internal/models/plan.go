package models

import "time"

// DaysPerPlan is the number of DailyPlan entries every WeeklyPlan carries.
const DaysPerPlan = 7

type Meal struct {
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	Time         string   `json:"time"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
	Calories     float64  `json:"calories"`
	PrepTime     string   `json:"prepTime"`
}

type DailyPlan struct {
	Day           string  `json:"day"`
	Meals         []Meal  `json:"meals"`
	TotalCalories float64 `json:"totalCalories"`
	WaterGoal     string  `json:"waterGoal"`
}

type WeeklyPlan struct {
	ID        string      `json:"id,omitempty"`
	CreatedAt *time.Time  `json:"createdAt,omitempty"` // nil until stored
	Days      []DailyPlan `json:"days"`
}

// PlanHistoryEntry is an archived plan together with the profile it was
// generated for.
type PlanHistoryEntry struct {
	ID         string      `json:"id"`
	Plan       WeeklyPlan  `json:"plan"`
	Profile    UserProfile `json:"userData"`
	ArchivedAt time.Time   `json:"date"`
}

type PlanStatus string

const (
	PlanActive    PlanStatus = "active"
	PlanArchived  PlanStatus = "archived"
	PlanDiscarded PlanStatus = "discarded"
)
