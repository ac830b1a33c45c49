package gpt

import (
	"sort"

	"github.com/sashabaranov/go-openai/jsonschema"
)

func strictObject(props map[string]jsonschema.Definition) jsonschema.Definition {
	required := make([]string, 0, len(props))
	for name := range props {
		required = append(required, name)
	}
	sort.Strings(required)
	return jsonschema.Definition{
		Type:                 jsonschema.Object,
		Properties:           props,
		Required:             required,
		AdditionalProperties: false,
	}
}

func stringList() jsonschema.Definition {
	return jsonschema.Definition{Type: jsonschema.Array, Items: &jsonschema.Definition{Type: jsonschema.String}}
}

// planSchema mirrors the weekly plan shape the client validates.
func planSchema() *jsonschema.Definition {
	meal := strictObject(map[string]jsonschema.Definition{
		"name":         {Type: jsonschema.String},
		"type":         {Type: jsonschema.String, Description: "Desayuno, Comida, Merienda, Cena..."},
		"time":         {Type: jsonschema.String, Description: "HH:MM"},
		"ingredients":  stringList(),
		"instructions": stringList(),
		"calories":     {Type: jsonschema.Number},
		"prepTime":     {Type: jsonschema.String},
	})

	day := strictObject(map[string]jsonschema.Definition{
		"day":           {Type: jsonschema.String},
		"totalCalories": {Type: jsonschema.Number},
		"waterGoal":     {Type: jsonschema.String},
		"meals":         {Type: jsonschema.Array, Items: &meal},
	})

	plan := strictObject(map[string]jsonschema.Definition{
		"days": {Type: jsonschema.Array, Items: &day},
	})
	return &plan
}
