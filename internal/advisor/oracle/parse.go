package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"

	"mandimind/internal/advisor"
)

// Models wrap answers in prose or code fences often enough that the parser
// never trusts the raw content; it digs out the first balanced object and
// schema-checks it.
var suggestionSchema = jsonschema.MustCompileString("suggestion.json", `{
	"type": "object",
	"required": ["suggested_price", "reasoning", "confidence"],
	"properties": {
		"suggested_price": {"type": "number", "exclusiveMinimum": 0},
		"reasoning":       {"type": "string", "minLength": 1},
		"confidence":      {"type": "number", "minimum": 0, "maximum": 1}
	}
}`)

func parseSuggestion(content string) (advisor.OracleResult, error) {
	raw, ok := extractJSONObject(content)
	if !ok {
		return advisor.OracleResult{}, fmt.Errorf("no JSON object in oracle reply")
	}
	if !gjson.Valid(raw) {
		return advisor.OracleResult{}, fmt.Errorf("malformed JSON in oracle reply")
	}

	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return advisor.OracleResult{}, err
	}
	if err := suggestionSchema.Validate(doc); err != nil {
		return advisor.OracleResult{}, fmt.Errorf("oracle reply failed schema check: %w", err)
	}

	var res advisor.OracleResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return advisor.OracleResult{}, err
	}
	return res, nil
}

// extractJSONObject returns the first balanced {...} in s. Braces inside
// string literals are respected.
func extractJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	if start == -1 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(s[start : i+1]), true
			}
		}
	}
	return "", false
}
