package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/syllabus-tracker/constants"
	"github.com/joseph-ayodele/syllabus-tracker/internal/common"
)

// DecodeSyllabus turns the model's reply text into a ParsedSyllabus.
// Fences are stripped and the document is validated strictly; the only
// defaulted field is an assignment's type, which falls back to homework.
func DecodeSyllabus(text string, logger *slog.Logger) (ParsedSyllabus, error) {
	if logger == nil {
		logger = slog.Default()
	}
	body := []byte(StripCodeFences(text))
	if !json.Valid(body) {
		logger.Error("llm.decode.invalid_json", "bytes", len(body))
		return ParsedSyllabus{}, malformed(fmt.Errorf("reply is not JSON"))
	}

	cleaned, _, err := NormalizeSyllabusJSON(body, logger)
	if err != nil {
		return ParsedSyllabus{}, malformed(err)
	}
	if err := validateSyllabus(cleaned); err != nil {
		logger.Error("llm.decode.schema_validation_failed", "error", err, "content", string(body))
		return ParsedSyllabus{}, malformed(err)
	}

	var out ParsedSyllabus
	if err := json.Unmarshal(cleaned, &out); err != nil {
		return ParsedSyllabus{}, malformed(err)
	}
	if out.Assignments == nil {
		out.Assignments = []ParsedAssignment{}
	}
	for i := range out.Assignments {
		t, ok := constants.Canonicalize(out.Assignments[i].Type)
		if !ok {
			logger.Debug("llm.decode.type_defaulted",
				"title", out.Assignments[i].Title,
				"type", out.Assignments[i].Type,
				"default", constants.Homework,
			)
		}
		out.Assignments[i].Type = string(t)
	}
	return out, nil
}

func malformed(cause error) error {
	return common.NewParsingError("malformed model response", fmt.Errorf("%w: %v", common.ErrMalformedResponse, cause))
}
