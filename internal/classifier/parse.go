package classifier

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema.json
var schemaJSON string

// ErrNoJSON is returned when a model answer holds no JSON object
var ErrNoJSON = errors.New("no JSON object in response")

var classificationSchema = mustCompileSchema(schemaJSON)

func mustCompileSchema(src string) *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(src))
	if err != nil {
		panic(fmt.Sprintf("classifier: unmarshal schema: %v", err))
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("classification.json", doc); err != nil {
		panic(fmt.Sprintf("classifier: add schema resource: %v", err))
	}
	schema, err := c.Compile("classification.json")
	if err != nil {
		panic(fmt.Sprintf("classifier: compile schema: %v", err))
	}
	return schema
}

// Parse extracts a classification from free-form model output.
//
// The JSON object may be fenced in a markdown block or surrounded by prose.
// When it does not decode as-is, single quotes are swapped for double quotes
// and decoding is tried once more. The object must satisfy the
// classification schema.
func Parse(text string) (Classification, error) {
	candidate := extractJSON(text)
	if candidate == "" {
		return Classification{}, ErrNoJSON
	}

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(candidate))
	if err != nil {
		repaired := strings.ReplaceAll(candidate, "'", `"`)
		doc, err = jsonschema.UnmarshalJSON(strings.NewReader(repaired))
		if err != nil {
			return Classification{}, fmt.Errorf("invalid JSON: %w", err)
		}
		candidate = repaired
	}

	if err := classificationSchema.Validate(doc); err != nil {
		return Classification{}, fmt.Errorf("schema validation failed: %w", err)
	}

	var c Classification
	if err := json.Unmarshal([]byte(candidate), &c); err != nil {
		return Classification{}, fmt.Errorf("decode classification: %w", err)
	}
	if c.Keywords == nil {
		c.Keywords = []string{}
	}

	return c, nil
}

// extractJSON finds a JSON object in the response text
func extractJSON(text string) string {
	text = strings.TrimSpace(text)

	// Fenced block: ```json ... ``` or ``` ... ```
	if idx := strings.Index(text, "```"); idx >= 0 {
		rest := text[idx+3:]
		if nl := strings.Index(rest, "\n"); nl >= 0 {
			body := rest[nl+1:]
			if end := strings.Index(body, "```"); end >= 0 {
				if candidate := extractBalanced(strings.TrimSpace(body[:end])); candidate != "" {
					return candidate
				}
			}
		}
	}

	if i := strings.Index(text, "{"); i >= 0 {
		return extractBalanced(text[i:])
	}

	return ""
}

// extractBalanced extracts the balanced {...} object at the start of s
func extractBalanced(s string) string {
	if len(s) == 0 || s[0] != '{' {
		return ""
	}

	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		ch := s[i]

		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch ch {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}

	return ""
}
