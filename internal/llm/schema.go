package llm

// BuildSyllabusJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a generic map.
// Everything but an assignment's type is required; type is defaulted after
// decoding, so it is only constrained to be a string here.
func BuildSyllabusJSONSchema() map[string]any {
	assignment := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{"type": "string", "minLength": 1},
			"date":  map[string]any{"type": "string"},
			"type":  map[string]any{"type": "string"},
		},
		"required": []string{"title", "date"},
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"course_name": map[string]any{"type": "string"},
			"course_code": map[string]any{"type": "string"},
			"assignments": map[string]any{"type": "array", "items": assignment},
		},
		"required": []string{"course_name", "course_code", "assignments"},
	}
}
