package yamlcfg

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/bburda42dot/diag-converter-sub001/ir"
)

// SchemaError wraps a failed structural validation: the YAML parsed but
// violated the embedded JSON Schema.
type SchemaError struct {
	Issues []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("yaml schema validation failed with %d issue(s): %s", len(e.Issues), e.Issues[0])
}

// ParseDocument deserialises raw YAML into a Document, running schema
// validation first. Semantic validation is not run here (its issues are
// non-fatal Warnings as well as fatal Errors, so callers decide whether
// to treat them as blocking); call ValidateSemantics explicitly.
func ParseDocument(data []byte) (*Document, error) {
	if issues, err := ValidateSchema(data); err != nil {
		return nil, fmt.Errorf("validate yaml schema: %w", err)
	} else if len(issues) > 0 {
		return nil, &SchemaError{Issues: issues}
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return &doc, nil
}

// Parse deserialises, validates, and expands a YAML diagnostic
// description into a DiagDatabase. Semantic Errors (not Warnings) are
// surfaced as a failure; Warnings are discarded here since the IR they
// would have annotated has no carrier for them (callers wanting warnings
// should call ParseDocument + ValidateSemantics directly).
func Parse(data []byte) (*ir.DiagDatabase, error) {
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, err
	}

	var errs []SemanticIssue
	for _, issue := range ValidateSemantics(doc) {
		if issue.Severity == SeverityError {
			errs = append(errs, issue)
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("semantic validation failed: %s", errs[0].Error())
	}

	return Generate(doc), nil
}
