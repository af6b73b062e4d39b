package trail

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed draft.schema.json
var draftSchema string

var schemaLoader = gojsonschema.NewStringLoader(draftSchema)

// ParseDraft decodes a YAML (or JSON) draft after checking its structure
// against the draft schema.
func ParseDraft(data []byte) (Draft, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Draft{}, fmt.Errorf("parsing draft: %w", err)
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(raw))
	if err != nil {
		return Draft{}, fmt.Errorf("checking draft schema: %w", err)
	}
	if !result.Valid() {
		problems := make([]Problem, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, Problem{Field: e.Field(), Message: e.Description()})
		}
		return Draft{}, &ValidationError{Problems: problems}
	}

	var d Draft
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Draft{}, fmt.Errorf("decoding draft: %w", err)
	}
	return d, nil
}

func LoadDraft(path string) (Draft, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Draft{}, fmt.Errorf("reading draft: %w", err)
	}
	return ParseDraft(data)
}
