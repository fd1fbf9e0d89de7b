package twitter

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema/timeline-page.json
var timelinePageSchema string

const timelinePageSchemaURL = "timeline-page.json"

// PageValidator checks raw timeline pages against the embedded schema.
type PageValidator struct {
	schema *jsonschema.Schema
}

// NewPageValidator compiles the embedded timeline page schema.
func NewPageValidator() (*PageValidator, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(timelinePageSchema))
	if err != nil {
		return nil, fmt.Errorf("parse timeline schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(timelinePageSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("add timeline schema: %w", err)
	}
	sch, err := c.Compile(timelinePageSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile timeline schema: %w", err)
	}
	return &PageValidator{schema: sch}, nil
}

// Validate returns an error wrapping ErrMalformedPage when body does not
// match the schema.
func (v *PageValidator) Validate(body []byte) error {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPage, err)
	}
	if err := v.schema.Validate(inst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPage, err)
	}
	return nil
}
