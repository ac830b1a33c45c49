package models

// Human readable labels shown to users and embedded in generation prompts.

func (s Sex) Label() string {
	if s == SexMale {
		return "Hombre"
	}
	return "Mujer"
}

func (a ActivityLevel) Label() string {
	switch a {
	case ActivitySedentary:
		return "Suave (poco activo)"
	case ActivityLight:
		return "Activo (1-2 días)"
	case ActivityModerate:
		return "Enérgico (3-4 días)"
	case ActivityHigh:
		return "Atlético (deporte diario)"
	}
	return string(a)
}

func (d DietPreference) Label() string {
	switch d {
	case DietOmnivore:
		return "omnívora"
	case DietVegetarian:
		return "vegetariana"
	}
	return string(d)
}

func (f FastingWindow) Label() string {
	switch f {
	case FastingNoonToEight:
		return "Ayuno 12h-20h"
	case FastingNineToFive:
		return "Ayuno 09h-17h"
	}
	return "Tradicional"
}

func (b Budget) Label() string {
	switch b {
	case BudgetLow:
		return "económico"
	case BudgetMedium:
		return "equilibrado"
	case BudgetHigh:
		return "gourmet"
	}
	return string(b)
}

func (c CookingTime) Label() string {
	switch c {
	case CookingFast:
		return "exprés"
	case CookingNormal:
		return "con tiempo"
	}
	return string(c)
}
