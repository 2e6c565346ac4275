package jobs

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/gemforge/backend/internal/models"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// ErrValidation can be used with errors.Is to detect a payload rejected by its schema.
var ErrValidation = errors.New("validation failed")

// Validator checks request payloads against the JSON schema of their job kind.
type Validator struct {
	schemas map[string]*jsonschema.Schema
}

// NewValidator compiles one embedded schema per job kind.
func NewValidator() (*Validator, error) {
	files := map[string]string{
		models.JobKindGroupImage: "schemas/group_image.json",
		models.JobKindComicPanel: "schemas/comic_panel.json",
	}
	schemas := make(map[string]*jsonschema.Schema, len(files))
	for kind, path := range files {
		data, err := schemaFS.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", path, err)
		}
		s, err := jsonschema.CompileString("https://gemforge.app/schemas/"+kind+".json", string(data))
		if err != nil {
			return nil, fmt.Errorf("compile schema %q: %w", kind, err)
		}
		schemas[kind] = s
	}
	return &Validator{schemas: schemas}, nil
}

// Validate is a hard reject: malformed JSON or a schema mismatch both wrap ErrValidation.
func (v *Validator) Validate(kind string, payload []byte) error {
	schema, ok := v.schemas[kind]
	if !ok {
		return fmt.Errorf("unknown job kind %q", kind)
	}
	var doc interface{}
	if err := json.Unmarshal(payload, &doc); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", ErrValidation, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}
