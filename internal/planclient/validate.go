package planclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"diet-planner/internal/models"
)

// Wire shapes use pointers so a missing field is distinguishable from a zero value.
type wireMeal struct {
	Name         *string   `json:"name"`
	Type         *string   `json:"type"`
	Time         *string   `json:"time"`
	Ingredients  *[]string `json:"ingredients"`
	Instructions *[]string `json:"instructions"`
	Calories     *float64  `json:"calories"`
	PrepTime     *string   `json:"prepTime"`
}

type wireDay struct {
	Day           *string     `json:"day"`
	Meals         *[]wireMeal `json:"meals"`
	TotalCalories *float64    `json:"totalCalories"`
	WaterGoal     *string     `json:"waterGoal"`
}

type wirePlan struct {
	Days *[]wireDay `json:"days"`
}

// DecodePlan parses body as a single JSON value and checks it against the
// weekly plan shape. The result is either a complete plan or an error.
func DecodePlan(body []byte) (*models.WeeklyPlan, error) {
	dec := json.NewDecoder(bytes.NewReader(body))

	var wp wirePlan
	if err := dec.Decode(&wp); err != nil {
		return nil, fmt.Errorf("decoding plan: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after plan")
	}

	if err := validatePlan(&wp); err != nil {
		return nil, err
	}
	return wp.toModel(), nil
}

// validatePlan reports the first shape violation found in wp.
func validatePlan(wp *wirePlan) error {
	if wp.Days == nil {
		return errors.New("missing days")
	}
	days := *wp.Days
	if len(days) != models.DaysPerPlan {
		return fmt.Errorf("expected %d days, got %d", models.DaysPerPlan, len(days))
	}

	for i, d := range days {
		switch {
		case d.Day == nil:
			return fmt.Errorf("day %d: missing day", i)
		case d.TotalCalories == nil:
			return fmt.Errorf("day %d: missing totalCalories", i)
		case d.WaterGoal == nil:
			return fmt.Errorf("day %d: missing waterGoal", i)
		case d.Meals == nil:
			return fmt.Errorf("day %d: missing meals", i)
		case len(*d.Meals) == 0:
			return fmt.Errorf("day %d: no meals", i)
		}

		for j, m := range *d.Meals {
			if err := validateMeal(m); err != nil {
				return fmt.Errorf("day %d meal %d: %w", i, j, err)
			}
		}
	}
	return nil
}

func validateMeal(m wireMeal) error {
	missing := func(field string) error { return fmt.Errorf("missing %s", field) }

	switch {
	case m.Name == nil:
		return missing("name")
	case m.Type == nil:
		return missing("type")
	case m.Time == nil:
		return missing("time")
	case m.Ingredients == nil:
		return missing("ingredients")
	case m.Instructions == nil:
		return missing("instructions")
	case m.Calories == nil:
		return missing("calories")
	case m.PrepTime == nil:
		return missing("prepTime")
	case *m.Calories <= 0:
		return fmt.Errorf("calories must be positive, got %v", *m.Calories)
	}
	return nil
}

// toModel must only be called on a validated plan.
func (wp *wirePlan) toModel() *models.WeeklyPlan {
	plan := &models.WeeklyPlan{Days: make([]models.DailyPlan, 0, len(*wp.Days))}
	for _, d := range *wp.Days {
		day := models.DailyPlan{
			Day:           *d.Day,
			TotalCalories: *d.TotalCalories,
			WaterGoal:     *d.WaterGoal,
			Meals:         make([]models.Meal, 0, len(*d.Meals)),
		}
		for _, m := range *d.Meals {
			day.Meals = append(day.Meals, models.Meal{
				Name:         *m.Name,
				Type:         *m.Type,
				Time:         *m.Time,
				Ingredients:  *m.Ingredients,
				Instructions: *m.Instructions,
				Calories:     *m.Calories,
				PrepTime:     *m.PrepTime,
			})
		}
		plan.Days = append(plan.Days, day)
	}
	return plan
}
